package postgresql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "explicit sslmode",
			config: Config{Host: "db", Port: 5432, User: "app", Password: "pw", Database: "mediajobs", SSLMode: "require"},
			want:   "host=db port=5432 user=app password=pw dbname=mediajobs sslmode=require",
		},
		{
			name:   "sslmode defaults to disable",
			config: Config{Host: "localhost", Port: 5433, User: "postgres", Database: "mediajobs"},
			want:   "host=localhost port=5433 user=postgres password= dbname=mediajobs sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestClient_HealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := NewFromDB(sqlx.NewDb(db, "sqlmock"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	require.NoError(t, client.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = client.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")

	mock.ExpectClose()
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_StatsAttr(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	db.SetMaxOpenConns(7)
	client := NewFromDB(sqlx.NewDb(db, "sqlmock"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	attr := client.StatsAttr()
	assert.Equal(t, "pool", attr.Key)

	fields := map[string]slog.Value{}
	for _, a := range attr.Value.Group() {
		fields[a.Key] = a.Value
	}
	assert.Equal(t, int64(7), fields["max_open"].Int64())
	assert.Contains(t, fields, "wait_duration")
}
