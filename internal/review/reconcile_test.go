/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"reflect"
	"testing"

	"katib/internal/domain"
	"katib/internal/suspicion"
)

func samplePacket() ([]domain.ClassifiedLine, suspicion.Packet) {
	lines := []domain.ClassifiedLine{
		{LineIndex: 0, Text: "أحمد:", AssignedType: domain.FormatCharacter, Method: domain.MethodRule, Confidence: 0.9},
		{LineIndex: 1, Text: "سأخرج الآن قال أحمد ثم أغلق الباب", AssignedType: domain.FormatDialogue, Method: domain.MethodRule, Confidence: 0.7},
		{LineIndex: 2, Text: "يدخل سامي الغرفة", AssignedType: domain.FormatAction, Method: domain.MethodRule, Confidence: 0.6},
	}
	pkt := suspicion.Packet{
		TotalReviewed:   3,
		TotalSuspicious: 2,
		SuspiciousLines: []suspicion.Line{
			{ItemIndex: 0, LineIndex: 1, Text: lines[1].Text, AssignedType: domain.FormatDialogue,
				EscalationScore: 80, RoutingBand: suspicion.BandAgentForced, CriticalMismatch: true},
			{ItemIndex: 1, LineIndex: 2, Text: lines[2].Text, AssignedType: domain.FormatAction,
				EscalationScore: 65, RoutingBand: suspicion.BandLocalReview},
		},
	}
	return lines, pkt
}

func TestBuildRequestSets(t *testing.T) {
	_, pkt := samplePacket()
	req := BuildRequest("", pkt)
	if req.SessionID == "" {
		t.Fatalf("session id must be generated when empty")
	}
	if !reflect.DeepEqual(req.RequiredItemIndexes, []int{0, 1}) {
		t.Fatalf("required = %v", req.RequiredItemIndexes)
	}
	if !reflect.DeepEqual(req.ForcedItemIndexes, []int{0}) {
		t.Fatalf("forced = %v", req.ForcedItemIndexes)
	}
	if req.TotalReviewed != 3 {
		t.Fatalf("totalReviewed = %d", req.TotalReviewed)
	}
	keep := BuildRequest("fixed", pkt)
	if keep.SessionID != "fixed" {
		t.Fatalf("explicit session id overwritten: %q", keep.SessionID)
	}
}

func TestApplyMergesByItemIndex(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			{ItemIndex: 0, FinalType: "action", Confidence: 0.95, Reason: "narrative sentence"},
			{ItemIndex: 1, FinalType: "action", Confidence: 0.8},
		},
	}
	res := Apply(lines, req, resp)
	if res.Status != StatusApplied {
		t.Fatalf("status = %q (%s)", res.Status, res.Message)
	}
	if res.Lines[1].AssignedType != domain.FormatAction || res.Lines[1].Method != domain.MethodContext {
		t.Fatalf("decision not applied: %+v", res.Lines[1])
	}
	if res.Lines[1].Confidence != 0.95 {
		t.Fatalf("confidence = %v", res.Lines[1].Confidence)
	}
	// item 1 confirmed the local type, so only one line actually changed
	if res.AppliedCount != 1 {
		t.Fatalf("appliedCount = %d", res.AppliedCount)
	}
	// input slice untouched
	if lines[1].AssignedType != domain.FormatDialogue {
		t.Fatalf("Apply mutated its input")
	}
}

func TestApplyAcceptsLegacyTypeSpelling(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			{ItemIndex: 0, FinalType: "sceneHeader1", Confidence: 0.9},
			{ItemIndex: 1, FinalType: "action", Confidence: 0.9},
		},
	}
	res := Apply(lines, req, resp)
	if res.Lines[1].AssignedType != domain.FormatSceneHeader1 {
		t.Fatalf("legacy spelling not normalized: %v", res.Lines[1].AssignedType)
	}
}

func TestApplyUnresolvedForcedFailsBatch(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			// forced item 0 is missing entirely
			{ItemIndex: 1, FinalType: "action", Confidence: 0.8},
		},
	}
	res := Apply(lines, req, resp)
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if !reflect.DeepEqual(res.UnresolvedForced, []int{0}) {
		t.Fatalf("unresolvedForced = %v", res.UnresolvedForced)
	}
	// the forced line keeps its local type, nothing is invented
	if res.Lines[1].AssignedType != domain.FormatDialogue {
		t.Fatalf("forced line type invented: %v", res.Lines[1].AssignedType)
	}
}

func TestApplyUnknownTypeCountsAsUnresolved(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			{ItemIndex: 0, FinalType: "interpretive-dance", Confidence: 1},
			{ItemIndex: 1, FinalType: "action", Confidence: 0.8},
		},
	}
	res := Apply(lines, req, resp)
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if res.Lines[1].AssignedType != domain.FormatDialogue {
		t.Fatalf("unknown type must not be applied: %v", res.Lines[1].AssignedType)
	}
}

func TestApplyMissingOptionalIsWarning(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			// forced item answered, non-forced item 1 left out
			{ItemIndex: 0, FinalType: "action", Confidence: 0.9},
		},
	}
	res := Apply(lines, req, resp)
	if res.Status != StatusWarning {
		t.Fatalf("status = %q, want warning", res.Status)
	}
	if !reflect.DeepEqual(res.MissingIndexes, []int{1}) {
		t.Fatalf("missing = %v", res.MissingIndexes)
	}
	if len(res.UnresolvedForced) != 0 {
		t.Fatalf("unresolvedForced = %v", res.UnresolvedForced)
	}
}

func TestApplyIgnoresUnknownItemIndex(t *testing.T) {
	lines, pkt := samplePacket()
	req := BuildRequest("s", pkt)
	resp := Response{
		Status: StatusApplied,
		Decisions: []Decision{
			{ItemIndex: 0, FinalType: "action", Confidence: 0.9},
			{ItemIndex: 1, FinalType: "action", Confidence: 0.9},
			{ItemIndex: 99, FinalType: "dialogue", Confidence: 0.9},
		},
	}
	res := Apply(lines, req, resp)
	if res.Status != StatusApplied {
		t.Fatalf("stray decision must not poison the batch: %q", res.Status)
	}
}
