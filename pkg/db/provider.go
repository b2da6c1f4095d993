package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider owns the process-wide database handle. The handle is opened and
// migrated lazily on the first Get; concurrent callers during that window
// share the one in-flight initialization instead of racing to open the store
// twice. Pass the Provider (or the handle it yields) explicitly to callers,
// never as ambient global state.
type Provider struct {
	Path       string
	EnableWAL  bool
	SyncPragma string
	Log        zerolog.Logger

	group singleflight.Group

	mu    sync.Mutex
	db    *sql.DB
	fresh bool
}

// NewProvider returns a Provider for the database at path.
func NewProvider(path string, enableWAL bool, syncPragma string, log zerolog.Logger) *Provider {
	return &Provider{
		Path:       path,
		EnableWAL:  enableWAL,
		SyncPragma: syncPragma,
		Log:        log,
	}
}

// Get returns the open, fully migrated database handle, initializing it on
// first use. All concurrent first callers receive the same result.
func (p *Provider) Get(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	if p.db != nil {
		db := p.db
		p.mu.Unlock()
		return db, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do("open", func() (interface{}, error) {
		conn, err := OpenDBConnection(p.Path, p.EnableWAL, p.SyncPragma)
		if err != nil {
			return nil, err
		}

		fresh, err := UpgradeDB(ctx, conn, p.Log)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate database '%s': %w", p.Path, err)
		}

		p.mu.Lock()
		p.db = conn
		p.fresh = fresh
		p.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

// Fresh reports whether the last successful Get found a never-initialized
// store (no schema version recorded before this process migrated it).
func (p *Provider) Fresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fresh
}

// Close checkpoints the WAL and closes the handle if it was ever opened.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
	if _, err := p.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: WAL checkpoint failed during close: %v\n", err)
	}
	err := p.db.Close()
	p.db = nil
	return err
}
