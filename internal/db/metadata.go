//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// MetadataTable records how and when the warehouse was initialized.
const MetadataTable = "salesmart_metadata"

// CreateMetadataTableSQL is shared with the embedded backend; the DDL is portable.
const CreateMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS salesmart_metadata (
    key   VARCHAR PRIMARY KEY,
    value VARCHAR NOT NULL
)`

// SaveMetadata upserts the given key/value pairs.
func SaveMetadata(ctx context.Context, pool *pgxpool.Pool, values map[string]string) error {
	_, err := pool.Exec(ctx, CreateMetadataTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		_, err := pool.Exec(ctx, `
            INSERT INTO salesmart_metadata (key, value) VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, values[key])
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Int("keys", len(values)).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, pool *pgxpool.Pool, key string) (string, error) {
	var value string
	err := pool.QueryRow(ctx, `
        SELECT value FROM salesmart_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", MetadataTable))
	return err
}
