/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"katib/internal/domain"
	applog "katib/internal/log"
	"katib/internal/suspicion"
)

// BuildRequest computes the required and forced index sets locally, before
// anything touches the network. Required covers every suspicious item;
// forced is the subset whose assigned type directly contradicts a strong
// textual signal or that routed agent-forced.
func BuildRequest(sessionID string, pkt suspicion.Packet) Request {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	req := Request{
		SessionID:           sessionID,
		TotalReviewed:       pkt.TotalReviewed,
		SuspiciousLines:     pkt.SuspiciousLines,
		RequiredItemIndexes: make([]int, 0, len(pkt.SuspiciousLines)),
	}
	for _, l := range pkt.SuspiciousLines {
		req.RequiredItemIndexes = append(req.RequiredItemIndexes, l.ItemIndex)
		if l.CriticalMismatch || l.RoutingBand == suspicion.BandAgentForced {
			req.ForcedItemIndexes = append(req.ForcedItemIndexes, l.ItemIndex)
		}
	}
	return req
}

// Apply merges the response's decisions into the classified sequence by item
// index and then verifies the forced-set guarantee. It is pure and transport
// independent: the input slice is copied, never mutated.
//
// Decisions with an unknown item index or an unknown final type are dropped
// and counted as missing. A forced item absent from the applied decision set
// fails the whole batch: Status becomes StatusError, UnresolvedForced names
// the offenders, and their local classification is retained rather than
// invented.
func Apply(lines []domain.ClassifiedLine, req Request, resp Response) Result {
	out := make([]domain.ClassifiedLine, len(lines))
	copy(out, lines)

	byItem := make(map[int]suspicion.Line, len(req.SuspiciousLines))
	for _, l := range req.SuspiciousLines {
		byItem[l.ItemIndex] = l
	}

	decided := make(map[int]bool, len(resp.Decisions))
	applied := 0
	for _, d := range resp.Decisions {
		item, ok := byItem[d.ItemIndex]
		if !ok {
			continue
		}
		f, ok := domain.NormalizeFormatID(d.FinalType)
		if !ok {
			continue
		}
		if item.LineIndex < 0 || item.LineIndex >= len(out) {
			continue
		}
		decided[d.ItemIndex] = true
		if out[item.LineIndex].AssignedType != f {
			out[item.LineIndex].AssignedType = f
			out[item.LineIndex].Method = domain.MethodContext
			out[item.LineIndex].Confidence = d.Confidence
			applied++
		}
	}

	var missing []int
	for _, idx := range req.RequiredItemIndexes {
		if !decided[idx] {
			missing = append(missing, idx)
		}
	}
	var unresolvedForced []int
	for _, idx := range req.ForcedItemIndexes {
		if !decided[idx] {
			unresolvedForced = append(unresolvedForced, idx)
		}
	}
	sort.Ints(missing)
	sort.Ints(unresolvedForced)

	res := Result{
		Status:           StatusApplied,
		Model:            resp.Model,
		Message:          resp.Message,
		AppliedCount:     applied,
		MissingIndexes:   missing,
		UnresolvedForced: unresolvedForced,
		Lines:            out,
	}
	switch {
	case len(unresolvedForced) > 0:
		res.Status = StatusError
		res.Message = "forced items left unresolved by review service"
	case len(missing) > 0:
		res.Status = StatusWarning
		res.Message = "review response missing required items"
	}
	return res
}

// Reconciler drives one review round-trip: build the request, send it once
// (no internal retry), apply the decisions, verify the forced set.
type Reconciler struct {
	client *Client
	log    *slog.Logger
}

// NewReconciler wires a reconciler around a client.
func NewReconciler(c *Client) *Reconciler {
	return &Reconciler{client: c, log: applog.WithComponent("review")}
}

// Run escalates the packet and reconciles the answer. Transport and timeout
// failures degrade to StatusSkipped with the local classification untouched;
// nothing raises past this boundary. Exactly one outbound call per
// invocation.
func (r *Reconciler) Run(ctx context.Context, lines []domain.ClassifiedLine, pkt suspicion.Packet) Result {
	if len(pkt.SuspiciousLines) == 0 {
		return Result{Status: StatusSkipped, Message: "nothing to review", Lines: lines}
	}
	req := BuildRequest("", pkt)
	l := applog.WithOperation(r.log, "escalate").With(
		slog.String("session", req.SessionID),
		slog.Int("suspicious", len(req.SuspiciousLines)),
		slog.Int("forced", len(req.ForcedItemIndexes)),
	)
	resp, err := r.client.Review(ctx, req)
	if err != nil {
		l.Warn("review skipped", slog.Any("err", err))
		return Result{Status: StatusSkipped, Message: err.Error(), Lines: lines}
	}
	if resp.Status == StatusError || resp.Status == StatusSkipped {
		l.Warn("review service declined batch", slog.String("status", string(resp.Status)), slog.String("msg", resp.Message))
		return Result{Status: StatusWarning, Model: resp.Model, Message: resp.Message, Lines: lines}
	}
	res := Apply(lines, req, *resp)
	l.Info("review reconciled",
		slog.String("status", string(res.Status)),
		slog.Int("applied", res.AppliedCount),
		slog.Int("missing", len(res.MissingIndexes)),
		slog.Int("unresolved_forced", len(res.UnresolvedForced)),
	)
	return res
}
