package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"catbot/internal/pet"
	"catbot/pkg/logx"
)

// fileStore is the dependency-free persistence backend: one JSON snapshot,
// written atomically via tmp + rename. Timestamps are ISO-8601 (RFC 3339)
// through encoding/json; walk_time is a plain "HH:MM" string or absent.
type fileStore struct {
	log  logx.Logger
	mu   sync.Mutex
	path string
}

func openFile(cfg Config, log logx.Logger) (pet.Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) (pet.Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	st := pet.Snapshot{
		Cats:  map[int64]*pet.Cat{},
		Codes: map[string]pet.ConnectionCode{},
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// First run: empty state is fine.
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, err
	}
	if st.Cats == nil {
		st.Cats = map[int64]*pet.Cat{}
	}
	if st.Codes == nil {
		st.Codes = map[string]pet.ConnectionCode{}
	}
	return st, nil
}

func (s *fileStore) Save(ctx context.Context, st pet.Snapshot) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("state snapshot written", logx.String("path", s.path), logx.Int("bytes", len(b)))
	return nil
}

func (s *fileStore) Close() error { return nil }
