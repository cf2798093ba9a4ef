//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing against
// PostgreSQL. Tests use the server named by PGEDGE_TEST_CONN, or a local
// server on the default port, and otherwise start a disposable container.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	// DefaultTestConnString is the default connection string for tests.
	// Override with PGEDGE_TEST_CONN environment variable.
	DefaultTestConnString = "postgres://postgres@localhost:5432/postgres"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "salesmart_test_"

	// ContainerImage is started when no server is reachable.
	ContainerImage = "postgres:16-alpine"
)

// PostgresAvailable checks if PostgreSQL is available for testing.
// Returns the connection string if available, empty string otherwise.
func PostgresAvailable() string {
	connStr := os.Getenv("PGEDGE_TEST_CONN")
	if connStr == "" {
		connStr = DefaultTestConnString
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return ""
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return ""
	}

	return connStr
}

// StartContainer runs a throwaway PostgreSQL container for the test and
// returns its connection string. The test is skipped when no container
// runtime is available.
func StartContainer(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, ContainerImage,
		postgres.WithDatabase("salesmart"),
		postgres.WithUsername("salesmart"),
		postgres.WithPassword("salesmart"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("PostgreSQL not available and container failed to start: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("Warning: Failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get container connection string: %v", err)
	}
	return connStr
}

// PostgresForTest returns a connection string for a fresh, empty database
// that is dropped when the test ends.
func PostgresForTest(t *testing.T) string {
	t.Helper()

	baseConnStr := PostgresAvailable()
	if baseConnStr == "" {
		baseConnStr = StartContainer(t)
	}

	connStr, dbName := CreateTestDB(t, baseConnStr)
	t.Cleanup(func() { DropTestDB(t, baseConnStr, dbName) })
	return connStr
}

// CreateTestDB creates a uniquely named database and returns its
// connection string and name.
func CreateTestDB(t *testing.T, baseConnStr string) (string, string) {
	t.Helper()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("Failed to generate random database name: %v", err)
	}
	dbName := TestDBPrefix + hex.EncodeToString(randomBytes)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	ident := pgx.Identifier{dbName}.Sanitize()
	if _, err := pool.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	config, err := pgx.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	// ConnString() does not reflect changes made to Database
	user := config.User
	if config.Password != "" {
		user += ":" + config.Password
	}
	testConnStr := fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		user, config.Host, config.Port, dbName)

	return testConnStr, dbName
}

// DropTestDB drops a database created by CreateTestDB.
func DropTestDB(t *testing.T, baseConnStr, dbName string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer pool.Close()

	// Terminate connections to the database
	_, _ = pool.Exec(ctx, `
        SELECT pg_terminate_backend(pid)
        FROM pg_stat_activity
        WHERE datname = $1 AND pid <> pg_backend_pid()
    `, dbName)

	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}

// ConnectTestDB connects to a test database.
func ConnectTestDB(t *testing.T, connStr string) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}
