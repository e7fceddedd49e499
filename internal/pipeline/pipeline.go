/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline is the plain-text boundary of the import path: it accepts
// an arbitrary string already extracted by an external adapter and returns an
// ordered block sequence, running normalize → segment → classify → score →
// optional review escalation → projection guard.
//
// Every stage except review is a synchronous pure transformation; the review
// round-trip is the sole suspension point and there is at most one in flight
// per Import call. Callers are responsible for not racing stale decisions
// into a newer edit: one review round-trip per document edit.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"katib/internal/classifier"
	"katib/internal/domain"
	"katib/internal/guard"
	applog "katib/internal/log"
	"katib/internal/payload"
	"katib/internal/review"
	"katib/internal/suspicion"
	"katib/internal/telemetry"
	"katib/internal/textnorm"
)

// Options selects the optional stages of one import.
type Options struct {
	// Reviewer escalates suspicious lines when non-nil.
	Reviewer *review.Reconciler
	// CurrentBlocks is the open document the projection would replace, nil
	// for a fresh document.
	CurrentBlocks []domain.Block
	// LabelOnly marks a relabel-in-place pass for the guard.
	LabelOnly bool
	// Telemetry receives anonymous counters when non-nil.
	Telemetry *telemetry.Client
}

// Result is everything one import produced.
type Result struct {
	Blocks     []domain.Block
	Lines      []domain.ClassifiedLine
	Suspicion  suspicion.Packet
	Review     *review.Result
	Guard      guard.Report
	InputLines int
}

// Import classifies raw text into screenplay blocks. A valid embedded
// payload marker bypasses classification entirely and restores the exact
// stored structure.
func Import(ctx context.Context, raw string, opts Options) Result {
	started := time.Now()
	l := applog.WithOperation(applog.WithComponent("pipeline"), "import")

	if p, ok := payload.Decode(raw); ok {
		l.Info("payload marker restored", slog.Int("blocks", len(p.Blocks)))
		rep := guard.Evaluate(guard.Input{
			InputLineCount: len(p.Blocks),
			CurrentBlocks:  opts.CurrentBlocks,
			NextBlocks:     p.Blocks,
			LabelOnly:      opts.LabelOnly,
		})
		return Result{Blocks: p.Blocks, Guard: rep, InputLines: len(p.Blocks)}
	}

	lines := textnorm.Segment(textnorm.Normalize(raw))
	classified := classifier.ClassifyAll(lines)
	pkt := suspicion.Score(classified)

	var revRes *review.Result
	if opts.Reviewer != nil && len(pkt.SuspiciousLines) > 0 {
		r := opts.Reviewer.Run(ctx, classified, pkt)
		revRes = &r
		if r.Status == review.StatusApplied || r.Status == review.StatusWarning || r.Status == review.StatusError {
			// unresolved forced items keep their local types inside Lines;
			// applied decisions are already merged
			classified = r.Lines
		}
	}

	blocks := payload.SplitTopLines(domain.Blocks(classified))
	rep := guard.Evaluate(guard.Input{
		InputLineCount: len(lines),
		CurrentBlocks:  opts.CurrentBlocks,
		NextBlocks:     blocks,
		LabelOnly:      opts.LabelOnly,
	})

	l.Info("import classified",
		slog.Int("lines", len(lines)),
		slog.Int("blocks", len(blocks)),
		slog.Int("suspicious", pkt.TotalSuspicious),
		slog.Bool("guard_accepted", rep.Accepted),
		slog.Duration("took", time.Since(started)),
	)
	if opts.Telemetry != nil {
		props := map[string]any{
			"lines":      len(lines),
			"blocks":     len(blocks),
			"suspicious": pkt.TotalSuspicious,
			"accepted":   rep.Accepted,
		}
		if revRes != nil {
			props["review_status"] = string(revRes.Status)
		}
		opts.Telemetry.Event("import_completed", props)
	}

	return Result{
		Blocks:     blocks,
		Lines:      classified,
		Suspicion:  pkt,
		Review:     revRes,
		Guard:      rep,
		InputLines: len(lines),
	}
}

// Export serializes blocks into a payload marker embeddable in plain text,
// alongside a human-readable rendering with fused scene headers.
func Export(blocks []domain.Block, font string, size int, createdAt time.Time) (marker string, text string, err error) {
	marker, err = payload.Encode(blocks, font, size, createdAt)
	if err != nil {
		return "", "", err
	}
	var b strings.Builder
	for _, blk := range payload.FuseSceneHeaders(blocks) {
		b.WriteString(blk.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(marker)
	b.WriteString("\n")
	return marker, b.String(), nil
}
