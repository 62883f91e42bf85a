package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TableRef identifica una tabla dentro de una fuente tabular
type TableRef struct {
	SourceID string `yaml:"source_id"`
	Name     string `yaml:"name"`
}

func (t TableRef) String() string {
	return t.SourceID + "/" + t.Name
}

// MovementTable mapeo de columnas de entregas, ventas o retiros
type MovementTable struct {
	TableRef         `yaml:",inline"`
	IDColumn         string `yaml:"id_column"`
	RecordedAtColumn string `yaml:"recorded_at_column"`
	DateColumn       string `yaml:"date_column"`
	CodeColumn       string `yaml:"code_column"`
	QuantityColumn   string `yaml:"quantity_column"`
	ExpirationColumn string `yaml:"expiration_column"`
	Sign             int    `yaml:"sign"`
}

// Header columnas configuradas, en el orden en que se crea la tabla
func (m MovementTable) Header() []string {
	return nonEmpty(m.IDColumn, m.RecordedAtColumn, m.DateColumn, m.CodeColumn, m.QuantityColumn, m.ExpirationColumn)
}

// StocktakeTable mapeo de columnas de inventarios físicos
type StocktakeTable struct {
	TableRef         `yaml:",inline"`
	IDColumn         string `yaml:"id_column"`
	RecordedAtColumn string `yaml:"recorded_at_column"`
	DateColumn       string `yaml:"date_column"`
	CodeColumn       string `yaml:"code_column"`
	CountColumn      string `yaml:"count_column"`
	HandlerColumn    string `yaml:"handler_column"`
}

func (s StocktakeTable) Header() []string {
	return nonEmpty(s.IDColumn, s.RecordedAtColumn, s.DateColumn, s.CodeColumn, s.CountColumn, s.HandlerColumn)
}

// ProductTable mapeo de columnas del maestro de productos
type ProductTable struct {
	TableRef            `yaml:",inline"`
	CodeColumn          string `yaml:"code_column"`
	NameColumn          string `yaml:"name_column"`
	ExternalCodeColumn  string `yaml:"external_code_column"`
	ShelfLifeColumn     string `yaml:"shelf_life_column"`
	AlertDaysColumn     string `yaml:"alert_days_column"`
	StandardStockColumn string `yaml:"standard_stock_column"`
	ManagedColumn       string `yaml:"managed_column"`
}

func (p ProductTable) Header() []string {
	return nonEmpty(p.CodeColumn, p.NameColumn, p.ExternalCodeColumn, p.ShelfLifeColumn, p.AlertDaysColumn, p.StandardStockColumn, p.ManagedColumn)
}

// FixedTable tabla con columnas fijas en orden (staging del ledger y resumen)
type FixedTable struct {
	TableRef `yaml:",inline"`
	Columns  []string `yaml:"columns"`
}

// TablesConfig disposición completa de las tablas que lee y escribe el servicio
type TablesConfig struct {
	Deliveries MovementTable  `yaml:"deliveries"`
	Sales      MovementTable  `yaml:"sales"`
	Recoveries MovementTable  `yaml:"recoveries"`
	Stocktakes StocktakeTable `yaml:"stocktakes"`
	Products   ProductTable   `yaml:"products"`
	Ledger     FixedTable     `yaml:"ledger"`
	Summary    FixedTable     `yaml:"summary"`
}

// LedgerColumns columnas del staging: id, recordedAt, occurredOn, productCode, kind, quantity, expirationDate, handlerCode
var LedgerColumns = []string{"id", "recordedAt", "occurredOn", "productCode", "kind", "quantity", "expirationDate", "handlerCode"}

// SummaryColumns columnas persistidas del resumen, en orden
var SummaryColumns = []string{"date", "productCode", "closingStock", "physicalCount", "discrepancy", "oldestExpirationDate", "daysUntilMustSell"}

// DefaultTables disposición por defecto, todas las tablas en la misma fuente
func DefaultTables(sourceID string) TablesConfig {
	movement := func(name, prefix string, sign int, withExpiration bool) MovementTable {
		m := MovementTable{
			TableRef:         TableRef{SourceID: sourceID, Name: name},
			IDColumn:         prefix + "Id",
			RecordedAtColumn: "recordedAt",
			DateColumn:       "date",
			CodeColumn:       "productCode",
			QuantityColumn:   "quantity",
			Sign:             sign,
		}
		if withExpiration {
			m.ExpirationColumn = "expirationDate"
		}
		return m
	}

	return TablesConfig{
		Deliveries: movement("deliveries", "delivery", 1, true),
		Sales:      movement("sales", "sale", -1, false),
		Recoveries: movement("recoveries", "recovery", -1, true),
		Stocktakes: StocktakeTable{
			TableRef:         TableRef{SourceID: sourceID, Name: "stocktakes"},
			IDColumn:         "stocktakeId",
			RecordedAtColumn: "recordedAt",
			DateColumn:       "date",
			CodeColumn:       "productCode",
			CountColumn:      "count",
			HandlerColumn:    "handlerCode",
		},
		Products: ProductTable{
			TableRef:            TableRef{SourceID: sourceID, Name: "products"},
			CodeColumn:          "productCode",
			NameColumn:          "name",
			ExternalCodeColumn:  "externalCode",
			ShelfLifeColumn:     "shelfLifeDays",
			AlertDaysColumn:     "alertDays",
			StandardStockColumn: "standardStock",
			ManagedColumn:       "isManaged",
		},
		Ledger: FixedTable{
			TableRef: TableRef{SourceID: sourceID, Name: "ledger"},
			Columns:  append([]string(nil), LedgerColumns...),
		},
		Summary: FixedTable{
			TableRef: TableRef{SourceID: sourceID, Name: "daily_summary"},
			Columns:  append([]string(nil), SummaryColumns...),
		},
	}
}

// LoadTables lee un archivo YAML sobre la disposición actual; los campos ausentes conservan su valor
func LoadTables(path string, tables *TablesConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tables config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, tables); err != nil {
		return fmt.Errorf("failed to parse tables config %s: %w", path, err)
	}
	return nil
}

// Validate verifica que cada tabla tenga fuente, nombre y las columnas obligatorias
func (t TablesConfig) Validate() error {
	var problems []string
	require := func(table TableRef, label string, columns map[string]string) {
		if table.SourceID == "" || table.Name == "" {
			problems = append(problems, label+": source_id and name are required")
		}
		for field, value := range columns {
			if strings.TrimSpace(value) == "" {
				problems = append(problems, fmt.Sprintf("%s: %s is required", label, field))
			}
		}
	}

	for label, m := range map[string]MovementTable{"deliveries": t.Deliveries, "sales": t.Sales, "recoveries": t.Recoveries} {
		require(m.TableRef, label, map[string]string{
			"date_column":     m.DateColumn,
			"code_column":     m.CodeColumn,
			"quantity_column": m.QuantityColumn,
		})
		if m.Sign != 1 && m.Sign != -1 {
			problems = append(problems, label+": sign must be 1 or -1")
		}
	}
	require(t.Stocktakes.TableRef, "stocktakes", map[string]string{
		"date_column":  t.Stocktakes.DateColumn,
		"code_column":  t.Stocktakes.CodeColumn,
		"count_column": t.Stocktakes.CountColumn,
	})
	require(t.Products.TableRef, "products", map[string]string{
		"code_column":    t.Products.CodeColumn,
		"managed_column": t.Products.ManagedColumn,
	})
	require(t.Ledger.TableRef, "ledger", nil)
	require(t.Summary.TableRef, "summary", nil)
	if len(t.Ledger.Columns) != len(LedgerColumns) {
		problems = append(problems, fmt.Sprintf("ledger: expected %d columns", len(LedgerColumns)))
	}
	if len(t.Summary.Columns) != len(SummaryColumns) {
		problems = append(problems, fmt.Sprintf("summary: expected %d columns", len(SummaryColumns)))
	}

	if len(problems) > 0 {
		return fmt.Errorf("tables: %s", strings.Join(problems, "; "))
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
