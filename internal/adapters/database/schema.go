package database

import (
	"context"
	"embed"

	"github.com/zatekoja/nextbestaction/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

const PostgresSchemaName = "schema/postgres.sql"

//go:embed schema/*.sql
var schemaFS embed.FS

// LoadSchema reads a schema file embedded in the binary.
func LoadSchema(name string) (string, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EnsureSchema creates any missing tables and indexes. Every statement is idempotent.
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	schema, err := LoadSchema(PostgresSchemaName)
	if err != nil {
		return apperrors.NewInternalError("failed to load schema", err)
	}
	if _, err := client.DB().ExecContext(ctx, schema); err != nil {
		return apperrors.NewInternalError("failed to apply schema", err)
	}
	return nil
}
