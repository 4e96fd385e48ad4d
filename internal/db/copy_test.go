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
	n, err := CopyFrom(context.TODO(), nil, "metrics", []string{"name", "value"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"metrics"}, []string{"name", "value"}).WillReturnResult(2)

	rows := [][]any{{"Scope 1", 1234.5}, {"Scope 3", 12000.0}}
	n, err := CopyFrom(context.Background(), mock, "metrics", []string{"name", "value"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"metrics"}, []string{"name"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "metrics", []string{"name"}, [][]any{{"Scope 1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO metrics")
	assert.NoError(t, mock.ExpectationsWereMet())
}
