// Package db provides shared PostgreSQL helpers for bulk copy and table
// replacement.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBatchSize = 5000

// CopyFrom bulk-inserts rows into a schema-qualified table using the COPY
// protocol, in chunks of batchSize rows (0 = default 5,000).
func CopyFrom(ctx context.Context, ex Executor, schema, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	ident := identifier(schema, table)
	log := zap.L().With(
		zap.String("component", "db.copy"),
		zap.String("table", ident.Sanitize()),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))

		n, err := ex.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows[i:end]))
		if err != nil {
			return total, eris.Wrapf(err, "db: COPY INTO %s (batch %d-%d)", ident.Sanitize(), i, end)
		}
		total += n

		log.Debug("batch copied",
			zap.Int("batch_start", i),
			zap.Int("batch_end", end),
			zap.Int64("batch_rows", n),
		)
	}

	return total, nil
}

func identifier(schema, table string) pgx.Identifier {
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}
