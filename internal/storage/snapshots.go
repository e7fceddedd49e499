/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists one serialized payload snapshot per document in
// an embedded SQLite database. The pipeline manages no document identity or
// versioning beyond this single latest snapshot.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "katib/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// StoreDirName keeps the embedded database under the workspace root.
	StoreDirName  = ".katib"
	StoreFileName = "snapshots.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// schema changes and add a migration below.
	schemaVersion = 1
)

// language=SQL
// dialect=SQLite
const createMetaSQL = `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`

// language=SQL
// dialect=SQLite
const createSnapshotsSQL = `CREATE TABLE IF NOT EXISTS snapshots (
	doc_id TEXT PRIMARY KEY,
	ts     TEXT NOT NULL,
	token  BLOB NOT NULL
)`

// language=SQL
// dialect=SQLite
const upsertSnapshotSQL = `INSERT INTO snapshots(doc_id, ts, token) VALUES (?, ?, ?)
	ON CONFLICT(doc_id) DO UPDATE SET ts = excluded.ts, token = excluded.token`

// language=SQL
// dialect=SQLite
const selectSnapshotSQL = `SELECT ts, token FROM snapshots WHERE doc_id = ?`

// language=SQL
// dialect=SQLite
const deleteSnapshotSQL = `DELETE FROM snapshots WHERE doc_id = ?`

// StorePath returns the full path to the snapshot database file.
func StorePath(root string) string {
	return filepath.Join(root, StoreDirName, StoreFileName)
}

// openStore ensures the store exists under root, opens it in WAL mode and
// runs schema setup. Callers close the returned handle.
func openStore(root string) (*sql.DB, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store root is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	if err := os.MkdirAll(filepath.Join(root, StoreDirName), 0o755); err != nil {
		l.Error("create store dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", StoreDirName, err)
	}
	db, err := sql.Open("sqlite", StorePath(root))
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, stmt := range []string{createMetaSQL, createSnapshotsSQL} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	if _, err := db.Exec(`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(schemaVersion)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}
	return db, nil
}

// SaveLatest stores the payload marker token as the document's one snapshot,
// replacing any previous one.
func SaveLatest(ctx context.Context, root, docID, token string, ts time.Time) error {
	if strings.TrimSpace(docID) == "" {
		return errors.New("doc id is required")
	}
	db, err := openStore(root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, upsertSnapshotSQL, docID, ts.UTC().Format(time.RFC3339Nano), []byte(token))
	return err
}

// LoadLatest returns the stored token for the document, or ok=false if the
// document has no snapshot.
func LoadLatest(ctx context.Context, root, docID string) (string, time.Time, bool, error) {
	db, err := openStore(root)
	if err != nil {
		return "", time.Time{}, false, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var blob []byte
	err = db.QueryRowContext(ctx, selectSnapshotSQL, docID).Scan(&tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, false, nil
	}
	if err != nil {
		return "", time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return string(blob), time.Time{}, true, nil // return token even if ts parse fails
	}
	return string(blob), ts, true, nil
}

// DeleteLatest removes the document's snapshot if present.
func DeleteLatest(ctx context.Context, root, docID string) error {
	db, err := openStore(root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, deleteSnapshotSQL, docID)
	return err
}
