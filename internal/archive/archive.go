// Package archive persists the full substrate state to a local SQLite
// database: the ledger and consolidator as single JSON documents, the
// memory entries as one row each so they stay individually queryable.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/meshmind/engram/internal/consolidator"
	"github.com/meshmind/engram/internal/ledger"
	"github.com/meshmind/engram/internal/vectorstore"
)

// Archive is a handle on the state database.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the state database at the given path.
func Open(dbPath string) (*Archive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_state (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		doc  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS consolidator_state (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		doc  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		capsule_id  TEXT PRIMARY KEY,
		doc         TEXT NOT NULL,
		ledger_ref  TEXT,
		quality     REAL NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_quality ON entries(quality DESC);

	CREATE TABLE IF NOT EXISTS meta (
		k  TEXT PRIMARY KEY,
		v  TEXT NOT NULL
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// State bundles the three live components the archive persists together.
type State struct {
	Ledger       *ledger.Ledger
	Store        *vectorstore.Store
	Consolidator *consolidator.Consolidator
}

// Load restores the substrate from the database, or builds a fresh state
// when the database is empty. Fresh ledgers get their genesis block stamped
// with now; fresh consolidators take the given origin.
func (a *Archive) Load(ctx context.Context, now time.Time, origin string, logger *zap.Logger) (*State, error) {
	st := &State{}

	var doc string
	err := a.db.QueryRowContext(ctx, `SELECT doc FROM ledger_state WHERE id = 1`).Scan(&doc)
	switch {
	case err == sql.ErrNoRows:
		st.Ledger = ledger.New(now, logger)
	case err != nil:
		return nil, fmt.Errorf("load ledger: %w", err)
	default:
		var sn ledger.Snapshot
		if err := json.Unmarshal([]byte(doc), &sn); err != nil {
			return nil, fmt.Errorf("decode ledger: %w", err)
		}
		st.Ledger = ledger.FromSnapshot(&sn, logger)
	}

	err = a.db.QueryRowContext(ctx, `SELECT doc FROM consolidator_state WHERE id = 1`).Scan(&doc)
	switch {
	case err == sql.ErrNoRows:
		st.Consolidator = consolidator.New(origin, logger)
	case err != nil:
		return nil, fmt.Errorf("load consolidator: %w", err)
	default:
		var sn consolidator.Snapshot
		if err := json.Unmarshal([]byte(doc), &sn); err != nil {
			return nil, fmt.Errorf("decode consolidator: %w", err)
		}
		st.Consolidator = consolidator.FromSnapshot(&sn, logger)
	}

	store, err := a.loadStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	st.Store = store

	return st, nil
}

func (a *Archive) loadStore(ctx context.Context, logger *zap.Logger) (*vectorstore.Store, error) {
	sn := &vectorstore.Snapshot{Refs: make(map[string]string)}

	rows, err := a.db.QueryContext(ctx, `SELECT capsule_id, doc, ledger_ref FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, doc string
		var ref sql.NullString
		if err := rows.Scan(&id, &doc, &ref); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var e vectorstore.Entry
		if err := json.Unmarshal([]byte(doc), &e); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", id, err)
		}
		sn.Entries = append(sn.Entries, &e)
		if ref.Valid {
			sn.Refs[id] = ref.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastEvict string
	err = a.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'last_evict'`).Scan(&lastEvict)
	if err == nil {
		sn.LastEvict, _ = time.Parse(time.RFC3339, lastEvict)
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	return vectorstore.FromSnapshot(sn, logger), nil
}

// Save writes the full state in one transaction, replacing whatever was
// stored before.
func (a *Archive) Save(ctx context.Context, st *State) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ledgerDoc, err := json.Marshal(st.Ledger.Snapshot())
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_state (id, doc) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, string(ledgerDoc)); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	consDoc, err := json.Marshal(st.Consolidator.Snapshot())
	if err != nil {
		return fmt.Errorf("encode consolidator: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO consolidator_state (id, doc) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, string(consDoc)); err != nil {
		return fmt.Errorf("save consolidator: %w", err)
	}

	storeSn := st.Store.Snapshot()
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	for _, e := range storeSn.Entries {
		doc, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry %s: %w", e.CapsuleID, err)
		}
		var ref interface{}
		if r, ok := storeSn.Refs[e.CapsuleID]; ok {
			ref = r
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (capsule_id, doc, ledger_ref, quality, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			e.CapsuleID, string(doc), ref, e.Quality,
			e.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("save entry %s: %w", e.CapsuleID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (k, v) VALUES ('last_evict', ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		storeSn.LastEvict.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	return tx.Commit()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
