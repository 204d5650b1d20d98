// Package persistence provides SQLite-based storage for buyers, stage
// catalogs, completion records, and artifacts. It is the durable
// collaborator behind the journey core: strongly consistent per key, with
// transient failures surfaced to callers for retry.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"compass/pkg/logx"
)

// Sentinel errors for row lookups.
var (
	// ErrBuyerNotFound indicates the buyer ID has no row.
	ErrBuyerNotFound = errors.New("buyer not found")
	// ErrCatalogEmpty indicates the stages table has not been seeded.
	ErrCatalogEmpty = errors.New("stage catalog is empty")
	// ErrArtifactNotFound indicates the artifact ID has no row.
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Store wraps the SQLite connection with typed operations. It implements
// the persistence collaborator interfaces consumed by the completion
// tracker and the progression engine.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (or creates) the database at dbPath, applies pending schema
// migrations, and returns a ready store. Safe to call on an existing
// database; initialization is idempotent.
func Open(dbPath string) (*Store, error) {
	// WAL mode and a busy timeout keep the single-writer model usable
	// under concurrent UI reads. modernc applies pragmas via the
	// _pragma query parameter, one per pragma.
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, logx.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, logx.Wrap(err, "failed to ping database")
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, logx.Wrap(err, "failed to initialize schema")
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("📦 Database initialized: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying connection. Call during shutdown.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
