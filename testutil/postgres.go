// Package testutil provides shared test utilities for pgwrap.
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// postgresVersion returns the PostgreSQL version to test against. It reads
// the PGWRAP_POSTGRES_VERSION environment variable, defaulting to "17".
func postgresVersion() string {
	if v := os.Getenv("PGWRAP_POSTGRES_VERSION"); v != "" {
		return v
	}
	return "17"
}

// ContainerInfo holds PostgreSQL container connection details.
type ContainerInfo struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
}

// SetupPostgresContainer starts a throwaway PostgreSQL container and opens
// a pgx pool against it. Tests that cannot reach a container runtime
// should call t.Skip before using this.
func SetupPostgresContainer(ctx context.Context, t *testing.T) *ContainerInfo {
	t.Helper()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:"+postgresVersion()+"-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	return &ContainerInfo{
		Container: postgresContainer,
		DSN:       dsn,
		Pool:      pool,
	}
}

// Terminate closes the pool and stops the container.
func (ci *ContainerInfo) Terminate(ctx context.Context, t *testing.T) {
	ci.Pool.Close()
	if err := ci.Container.Terminate(ctx); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}
