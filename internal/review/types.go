/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package review escalates ambiguous classification decisions across the
// external reasoning boundary and merges the answers back under a strict
// resolution guarantee: every forced item must be resolved or the whole
// batch is a review failure and local classification stands.
package review

import (
	"katib/internal/domain"
	"katib/internal/suspicion"
)

// Status is the outcome of one review round-trip.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Request is the outbound packet for the review service.
type Request struct {
	SessionID           string           `json:"sessionId"`
	TotalReviewed       int              `json:"totalReviewed"`
	SuspiciousLines     []suspicion.Line `json:"suspiciousLines"`
	RequiredItemIndexes []int            `json:"requiredItemIndexes"`
	ForcedItemIndexes   []int            `json:"forcedItemIndexes"`
}

// Decision is the service's verdict for one escalated item.
type Decision struct {
	ItemIndex  int     `json:"itemIndex"`
	FinalType  string  `json:"finalType"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Meta carries the service's own accounting of the batch.
type Meta struct {
	RequestedCount              int   `json:"requestedCount"`
	DecisionCount               int   `json:"decisionCount"`
	MissingItemIndexes          []int `json:"missingItemIndexes"`
	ForcedItemIndexes           []int `json:"forcedItemIndexes"`
	UnresolvedForcedItemIndexes []int `json:"unresolvedForcedItemIndexes"`
}

// Response is the inbound packet from the review service.
type Response struct {
	Status    Status     `json:"status"`
	Model     string     `json:"model"`
	Decisions []Decision `json:"decisions"`
	Message   string     `json:"message"`
	LatencyMs int64      `json:"latencyMs"`
	Meta      Meta       `json:"meta"`
}

// Result is what the reconciler reports to its caller. It never escapes as
// an error: transport trouble degrades to skipped, partial answers to
// warning, a broken forced-set guarantee to error, and in every case the
// classified lines keep their local types unless a decision replaced them.
type Result struct {
	Status           Status
	Model            string
	Message          string
	AppliedCount     int
	MissingIndexes   []int
	UnresolvedForced []int
	Lines            []domain.ClassifiedLine
}
