/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestSaveLoadDeleteLatest(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	ts := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)

	if _, _, ok, err := LoadLatest(ctx, root, "doc-1"); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}

	if err := SaveLatest(ctx, root, "doc-1", "[[KATIB-DOC-V1:abc]]", ts); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}
	tok, gotTS, ok, err := LoadLatest(ctx, root, "doc-1")
	if err != nil || !ok {
		t.Fatalf("LoadLatest: ok=%v err=%v", ok, err)
	}
	if tok != "[[KATIB-DOC-V1:abc]]" {
		t.Fatalf("token = %q", tok)
	}
	if !gotTS.Equal(ts) {
		t.Fatalf("ts = %v, want %v", gotTS, ts)
	}

	if err := DeleteLatest(ctx, root, "doc-1"); err != nil {
		t.Fatalf("DeleteLatest: %v", err)
	}
	if _, _, ok, _ := LoadLatest(ctx, root, "doc-1"); ok {
		t.Fatalf("snapshot survived deletion")
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	if err := SaveLatest(ctx, root, "doc-1", "first", time.Now()); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}
	if err := SaveLatest(ctx, root, "doc-1", "second", time.Now()); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}
	tok, _, ok, err := LoadLatest(ctx, root, "doc-1")
	if err != nil || !ok {
		t.Fatalf("LoadLatest: ok=%v err=%v", ok, err)
	}
	if tok != "second" {
		t.Fatalf("token = %q, want the replacement", tok)
	}
}

func TestDocumentsAreIsolated(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	_ = SaveLatest(ctx, root, "doc-a", "aaa", time.Now())
	_ = SaveLatest(ctx, root, "doc-b", "bbb", time.Now())
	if err := DeleteLatest(ctx, root, "doc-a"); err != nil {
		t.Fatalf("DeleteLatest: %v", err)
	}
	tok, _, ok, err := LoadLatest(ctx, root, "doc-b")
	if err != nil || !ok || tok != "bbb" {
		t.Fatalf("doc-b affected by doc-a deletion: tok=%q ok=%v err=%v", tok, ok, err)
	}
}

func TestSaveValidatesArguments(t *testing.T) {
	ctx := context.Background()
	if err := SaveLatest(ctx, "", "doc-1", "tok", time.Now()); err == nil {
		t.Fatalf("empty root must error")
	}
	if err := SaveLatest(ctx, t.TempDir(), "  ", "tok", time.Now()); err == nil {
		t.Fatalf("blank doc id must error")
	}
}

func TestStoreFileLandsUnderDotDir(t *testing.T) {
	root := t.TempDir()
	if err := SaveLatest(context.Background(), root, "doc-1", "tok", time.Now()); err != nil {
		t.Fatalf("SaveLatest: %v", err)
	}
	if _, err := os.Stat(StorePath(root)); err != nil {
		t.Fatalf("store file missing: %v", err)
	}
}
