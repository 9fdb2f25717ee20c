package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "public", "lotes", []string{"a", "b"}, nil, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"public", "lotes"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := CopyFrom(context.Background(), mock, "public", "lotes", []string{"a", "b"}, rows, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_NoSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"lotes"}, []string{"a"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "", "lotes", []string{"a"}, [][]any{{1}}, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ident := pgx.Identifier{"reurb", "lotes"}
	mock.ExpectCopyFrom(ident, []string{"a"}).WillReturnResult(2)
	mock.ExpectCopyFrom(ident, []string{"a"}).WillReturnResult(2)
	mock.ExpectCopyFrom(ident, []string{"a"}).WillReturnResult(1)

	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	n, err := CopyFrom(context.Background(), mock, "reurb", "lotes", []string{"a"}, rows, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"public", "lotes"}, []string{"a", "b"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{1, "x"}}
	_, err = CopyFrom(context.Background(), mock, "public", "lotes", []string{"a", "b"}, rows, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `COPY INTO "public"."lotes"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
