package tabular

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS tabular_tables (
		source_id  TEXT NOT NULL,
		table_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (source_id, table_name)
	);
	CREATE TABLE IF NOT EXISTS tabular_rows (
		source_id  TEXT NOT NULL,
		table_name TEXT NOT NULL,
		row_index  INTEGER NOT NULL,
		cells      TEXT[] NOT NULL,
		PRIMARY KEY (source_id, table_name, row_index),
		FOREIGN KEY (source_id, table_name) REFERENCES tabular_tables (source_id, table_name) ON DELETE CASCADE
	);
`

// PostgresSource guarda las tablas como filas de celdas text[] indexadas por posición
type PostgresSource struct {
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	logger *zap.Logger
}

// NewPostgresSource crea el esquema si falta y prepara las consultas
func NewPostgresSource(db *sql.DB, logger *zap.Logger) (*PostgresSource, error) {
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create tabular schema: %w", err)
	}

	src := &PostgresSource{
		db:     db,
		stmts:  make(map[string]*sql.Stmt),
		logger: logger,
	}
	if err := src.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return src, nil
}

func (s *PostgresSource) prepareStatements() error {
	statements := map[string]string{
		"table_exists": `
			SELECT EXISTS (
				SELECT 1 FROM tabular_tables WHERE source_id = $1 AND table_name = $2
			)
		`,
		"read_rows": `
			SELECT row_index, cells
			FROM tabular_rows
			WHERE source_id = $1 AND table_name = $2
			ORDER BY row_index
		`,
		"max_row": `
			SELECT COALESCE(MAX(row_index), -1)
			FROM tabular_rows
			WHERE source_id = $1 AND table_name = $2
				AND EXISTS (SELECT 1 FROM unnest(cells) AS cell WHERE cell <> '')
		`,
		"create_table": `
			INSERT INTO tabular_tables (source_id, table_name)
			VALUES ($1, $2)
			ON CONFLICT (source_id, table_name) DO NOTHING
		`,
	}

	for name, query := range statements {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		s.stmts[name] = stmt
	}
	return nil
}

const upsertRowQuery = `
	INSERT INTO tabular_rows (source_id, table_name, row_index, cells)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (source_id, table_name, row_index) DO UPDATE SET cells = EXCLUDED.cells
`

func (s *PostgresSource) exists(ctx context.Context, sourceID, table string) error {
	var exists bool
	if err := s.stmts["table_exists"].QueryRowContext(ctx, sourceID, table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check table %s/%s: %w", sourceID, table, err)
	}
	if !exists {
		return fmt.Errorf("%s/%s: %w", sourceID, table, ErrTableNotFound)
	}
	return nil
}

func (s *PostgresSource) ReadTable(ctx context.Context, sourceID, table string) ([][]string, error) {
	if err := s.exists(ctx, sourceID, table); err != nil {
		return nil, err
	}

	rows, err := s.stmts["read_rows"].QueryContext(ctx, sourceID, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s/%s: %w", sourceID, table, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var (
			index int
			cells []string
		)
		if err := rows.Scan(&index, pq.Array(&cells)); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// Los huecos de índice se leen como filas vacías
		for len(out) < index {
			out = append(out, []string{})
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return [][]string{{}}, nil
	}
	return TrimTrailingBlank(out), nil
}

func (s *PostgresSource) WriteTable(ctx context.Context, sourceID, table string, rng Range, rows [][]string) error {
	if err := checkRange(rng); err != nil {
		return err
	}
	if err := s.exists(ctx, sourceID, table); err != nil {
		return err
	}

	width := 0
	if current, err := s.ReadTable(ctx, sourceID, table); err == nil && len(current) > 0 {
		width = len(current[0])
	}
	block := Block(rng, rows, width)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRowQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, row := range block {
		if _, err := stmt.ExecContext(ctx, sourceID, table, rng.StartRow+i, pq.Array(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rng.StartRow+i, err)
		}
	}
	return tx.Commit()
}

// AppendRow escribe a continuación de la última fila con datos; las filas en blanco del final se reutilizan
func (s *PostgresSource) AppendRow(ctx context.Context, sourceID, table string, row []string) error {
	if err := s.exists(ctx, sourceID, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int
	if err := tx.StmtContext(ctx, s.stmts["max_row"]).QueryRowContext(ctx, sourceID, table).Scan(&last); err != nil {
		return fmt.Errorf("failed to find last row: %w", err)
	}
	// La fila 0 queda para la cabecera aunque esté vacía
	next := last + 1
	if next < 1 {
		next = 1
	}
	if _, err := tx.ExecContext(ctx, upsertRowQuery, sourceID, table, next, pq.Array(row)); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresSource) DeleteRow(ctx context.Context, sourceID, table string, rowIndex int) error {
	if err := s.exists(ctx, sourceID, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM tabular_rows
		WHERE source_id = $1 AND table_name = $2 AND row_index = $3
	`, sourceID, table, rowIndex)
	if err != nil {
		return fmt.Errorf("failed to delete row %d: %w", rowIndex, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("row %d out of range", rowIndex)
	}

	// Corrimiento en dos pasos para no chocar con la clave primaria
	if _, err := tx.ExecContext(ctx, `
		UPDATE tabular_rows SET row_index = -row_index
		WHERE source_id = $1 AND table_name = $2 AND row_index > $3
	`, sourceID, table, rowIndex); err != nil {
		return fmt.Errorf("failed to shift rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tabular_rows SET row_index = -row_index - 1
		WHERE source_id = $1 AND table_name = $2 AND row_index < 0
	`, sourceID, table); err != nil {
		return fmt.Errorf("failed to shift rows: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresSource) CreateTable(ctx context.Context, sourceID, table string, header []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.StmtContext(ctx, s.stmts["create_table"]).ExecContext(ctx, sourceID, table)
	if err != nil {
		return fmt.Errorf("failed to create table %s/%s: %w", sourceID, table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, upsertRowQuery, sourceID, table, 0, pq.Array(header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	s.logger.Info("Tabular table created",
		zap.String("source_id", sourceID),
		zap.String("table", table),
	)
	return tx.Commit()
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close libera los statements preparados
func (s *PostgresSource) Close() error {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	return nil
}
