//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"catbot/internal/pet"
	"catbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (pet.Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (pet.Snapshot, error) {
	st := pet.Snapshot{
		Cats:  map[int64]*pet.Cat{},
		Codes: map[string]pet.ConnectionCode{},
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, name, color, hunger, happiness, energy, created_at, walk_time, connected_users, last_messages FROM cats`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c         pet.Cat
			createdAt string
			walkTime  sql.NullString
			connected string
			lastMsgs  sql.NullString
		)
		var color string
		if err := rows.Scan(&c.OwnerID, &c.Name, &color, &c.Hunger, &c.Happiness, &c.Energy,
			&createdAt, &walkTime, &connected, &lastMsgs); err != nil {
			return st, err
		}
		c.Color = pet.Color(color)
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return st, err
		}
		c.WalkTime = walkTime.String
		if connected != "" {
			if err := json.Unmarshal([]byte(connected), &c.ConnectedUsers); err != nil {
				return st, err
			}
		}
		if lastMsgs.Valid && lastMsgs.String != "" {
			if err := json.Unmarshal([]byte(lastMsgs.String), &c.LastMessages); err != nil {
				return st, err
			}
		}
		cat := c
		st.Cats[c.OwnerID] = &cat
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	crows, err := s.db.QueryContext(ctx, `SELECT code, owner_id, expires_at FROM connection_codes`)
	if err != nil {
		return st, err
	}
	defer crows.Close()
	for crows.Next() {
		var (
			code      string
			cc        pet.ConnectionCode
			expiresAt string
		)
		if err := crows.Scan(&code, &cc.OwnerID, &expiresAt); err != nil {
			return st, err
		}
		if cc.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
			return st, err
		}
		st.Codes[code] = cc
	}
	return st, crows.Err()
}

// Save performs a full-state overwrite inside one transaction. The data
// volume is two users per pet, so rewriting is cheaper than diffing.
func (s *sqliteStore) Save(ctx context.Context, st pet.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cats`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connection_codes`); err != nil {
		return err
	}

	for _, c := range st.Cats {
		connected, err := json.Marshal(c.ConnectedUsers)
		if err != nil {
			return err
		}
		var lastMsgs []byte
		if len(c.LastMessages) > 0 {
			if lastMsgs, err = json.Marshal(c.LastMessages); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cats(owner_id, name, color, hunger, happiness, energy, created_at, walk_time, connected_users, last_messages)
			 VALUES(?,?,?,?,?,?,?,?,?,?)`,
			c.OwnerID, c.Name, string(c.Color), c.Hunger, c.Happiness, c.Energy,
			c.CreatedAt.Format(time.RFC3339Nano), nullStr(c.WalkTime), string(connected), nullStr(string(lastMsgs)),
		); err != nil {
			return err
		}
	}
	for code, cc := range st.Codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO connection_codes(code, owner_id, expires_at) VALUES(?,?,?)`,
			code, cc.OwnerID, cc.ExpiresAt.Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
