package repository

import (
	"context"
	"fmt"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/tabular"
)

// RecordRepository agrega filas a las tablas fuente respetando su cabecera
type RecordRepository interface {
	Append(ctx context.Context, ref config.TableRef, values map[string]string) error
}

type recordRepository struct {
	src tabular.Source
}

func NewRecordRepository(src tabular.Source) RecordRepository {
	return &recordRepository{src: src}
}

// Append ubica cada valor bajo la columna del mismo nombre; todas deben existir en la cabecera
func (r *recordRepository) Append(ctx context.Context, ref config.TableRef, values map[string]string) error {
	_, header, err := readWithHeader(ctx, r.src, ref)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	if err := header.Require(names...); err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}

	if err := r.src.AppendRow(ctx, ref.SourceID, ref.Name, layout(header, values)); err != nil {
		return fmt.Errorf("failed to append to %s: %w", ref, err)
	}
	return nil
}
