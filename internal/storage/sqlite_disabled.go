//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"catbot/internal/pet"
	"catbot/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (pet.Store, error) {
	return nil, errors.New("sqlite driver not built in (rebuild with -tags sqlite)")
}
