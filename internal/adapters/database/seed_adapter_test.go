package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

func TestSeedAdapter_SeedInsertsEveryTableInOneTransaction(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSeedAdapter(client)

	mock.ExpectBegin()
	for _, table := range []string{"hcps", "products", "contacts", "prescriptions", "approved_content", "signals", "system_settings"} {
		mock.ExpectExec(`INSERT INTO "` + table + `" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	err := adapter.Seed(context.Background(), fixtures.Demo(time.Now()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdapter_SeedRollsBackOnFailure(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSeedAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "hcps"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO "products"`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := adapter.Seed(context.Background(), fixtures.Demo(time.Now()))

	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdapter_SkipsEmptyTables(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSeedAdapter(client)

	ds := &fixtures.Dataset{Settings: fixtures.Demo(time.Now()).Settings}
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "system_settings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.Seed(context.Background(), ds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdapter_Reset(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewSeedAdapter(client)

	mock.ExpectExec(`TRUNCATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
