// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package kv

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/autobrr/qremote/internal/database"
	"github.com/autobrr/qremote/internal/dbinterface"
)

type SQLiteStore struct {
	db dbinterface.Querier
}

func NewSQLiteStore(db dbinterface.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens the database at path and returns a store over it.
func OpenSQLite(path string) (*SQLiteStore, io.Closer, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, nil, err
	}
	return NewSQLiteStore(db), db, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}
