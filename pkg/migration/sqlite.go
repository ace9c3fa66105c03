package migration

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// errNoPersistedFlags signals an empty flags table on startup.
var errNoPersistedFlags = errors.New("no persisted flags")

// flagDB persists the single flags row. SQLite keeps flag mutations
// durable across restarts without requiring an external service.
type flagDB struct {
	db *sql.DB

	saveStmt *sql.Stmt
	loadStmt *sql.Stmt
}

// openFlagDB opens (creating if needed) the flag database at path.
func openFlagDB(path string) (*flagDB, error) {
	if path == "" {
		return nil, fmt.Errorf("flag db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open flag database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	schema := `
	CREATE TABLE IF NOT EXISTS feature_flags (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		flags TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize flag schema: %w", err)
	}

	f := &flagDB{db: db}

	f.saveStmt, err = db.Prepare(`
		INSERT INTO feature_flags (id, flags, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			flags = excluded.flags,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare flag save statement: %w", err)
	}

	f.loadStmt, err = db.Prepare(`SELECT flags FROM feature_flags WHERE id = 1`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare flag load statement: %w", err)
	}

	return f, nil
}

// save persists the flags value as JSON.
func (f *flagDB) save(flags FeatureFlags) error {
	data, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}
	if _, err := f.saveStmt.Exec(string(data), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to persist flags: %w", err)
	}
	return nil
}

// load restores the persisted flags value.
func (f *flagDB) load() (FeatureFlags, error) {
	var data string
	err := f.loadStmt.QueryRow().Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return FeatureFlags{}, errNoPersistedFlags
	}
	if err != nil {
		return FeatureFlags{}, fmt.Errorf("failed to load flags: %w", err)
	}

	var flags FeatureFlags
	if err := json.Unmarshal([]byte(data), &flags); err != nil {
		return FeatureFlags{}, fmt.Errorf("failed to decode persisted flags: %w", err)
	}
	if flags.ProviderEnabled == nil {
		flags.ProviderEnabled = make(map[string]bool)
	}
	return flags, nil
}

func (f *flagDB) close() error {
	if f.saveStmt != nil {
		f.saveStmt.Close()
	}
	if f.loadStmt != nil {
		f.loadStmt.Close()
	}
	return f.db.Close()
}
