package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func Test_ConnectionString(t *testing.T) {
	t.Run("Should build a connection string with the search path", func(t *testing.T) {
		s, err := getPostgresConnectionString(&PostgresConfig{
			Host:       "localhost",
			Port:       5432,
			Username:   "op",
			DbName:     "operator_state",
			SchemaName: "analytics",
		})
		assert.Nil(t, err)
		assert.Equal(t, "host=localhost  user=op dbname=operator_state port=5432 sslmode=disable TimeZone=UTC search_path=analytics", s)
	})
	t.Run("Should reject unknown ssl modes", func(t *testing.T) {
		_, err := getPostgresConnectionString(&PostgresConfig{SSLMode: "sometimes"})
		assert.NotNil(t, err)
	})
}

func Test_ErrorClassification(t *testing.T) {
	t.Run("Should detect duplicate keys by code and by message", func(t *testing.T) {
		assert.True(t, IsDuplicateKeyError(&pq.Error{Code: "23505"}))
		assert.True(t, IsDuplicateKeyError(errors.New(`ERROR: duplicate key value violates unique constraint "operators_pkey"`)))
		assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
		assert.False(t, IsDuplicateKeyError(nil))
	})
	t.Run("Should detect foreign key violations", func(t *testing.T) {
		assert.True(t, IsForeignKeyError(&pq.Error{Code: "23503"}))
		assert.False(t, IsForeignKeyError(&pq.Error{Code: "23505"}))
	})
}
