/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package suspicion re-examines a classified sequence for internal
// inconsistencies and routes the riskiest lines toward external review.
//
// Independent detectors each contribute a weighted delta; deltas sum (signals
// compound, they are not averaged). The escalation score blends the summed
// suspicion with a severity table keyed by assigned-type/contradicting-signal
// pairs. Scoring is pure and deterministic for identical input. Weights,
// severity pairs and thresholds are data, not control flow: tuning is a
// configuration change.
package suspicion

import (
	"fmt"
	"strings"

	"katib/internal/domain"
	"katib/internal/pattern"
)

// RoutingBand is where a suspicious line goes after scoring.
type RoutingBand string

const (
	BandLocalReview    RoutingBand = "local-review"
	BandAgentCandidate RoutingBand = "agent-candidate"
	BandAgentForced    RoutingBand = "agent-forced"
)

// Escalation thresholds. Empirically tuned; kept as named constants so a
// threshold change never touches scoring logic.
const (
	ThresholdLocalReview = 65
	ThresholdAgent       = 80
	maxScore             = 100
)

// contextRadius bounds how many surrounding lines travel with an escalated
// item for disambiguation.
const contextRadius = 2

// Signal names a class of contradicting evidence a detector can raise.
type Signal string

const (
	SignalNarrative    Signal = "narrative-inside"
	SignalColonPrefix  Signal = "late-colon-collision"
	SignalMergedText   Signal = "merged-paragraph"
	SignalLengthAnom   Signal = "abnormal-length"
	SignalOrphanSpeech Signal = "dialogue-without-cue"
	SignalCueShaped    Signal = "cue-shaped-action"
)

// Detector inspects one classified line in its sequence and reports a
// weighted suspicion delta. Critical marks a direct contradiction between
// the assigned type and a strong textual signal.
type Detector struct {
	Signal   Signal
	Weight   int
	Critical bool
	// Applies limits the detector to these assigned types; empty means all.
	Applies []domain.FormatID
	Match   func(i int, lines []domain.ClassifiedLine) (bool, string)
}

// Detectors is the data-driven table of suspicion detectors.
var Detectors = []Detector{
	{
		Signal:   SignalNarrative,
		Weight:   45,
		Critical: true,
		Applies:  []domain.FormatID{domain.FormatDialogue},
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			if pattern.NarrativeConnectiveInside(lines[i].Text) {
				return true, "narrative connective mid-line inside dialogue"
			}
			return false, ""
		},
	},
	{
		Signal:  SignalColonPrefix,
		Weight:  25,
		Applies: []domain.FormatID{domain.FormatDialogue, domain.FormatCharacter},
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			text := lines[i].Text
			idx := strings.Index(text, ":")
			if idx <= 0 {
				return false, ""
			}
			prefix := strings.TrimSpace(text[:idx])
			if len([]rune(prefix)) > pattern.MaxCueChars {
				return true, "inline colon after a long non-cue prefix"
			}
			return false, ""
		},
	},
	{
		Signal: SignalMergedText,
		Weight: 20,
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			text := lines[i].Text
			if len([]rune(text)) > 240 {
				return true, "line far longer than one paragraph"
			}
			if strings.Count(text, "۔")+strings.Count(text, ".")+strings.Count(text, "؟")+strings.Count(text, "!") >= 4 {
				return true, "several sentence stops suggest merged paragraphs"
			}
			return false, ""
		},
	},
	{
		Signal:  SignalLengthAnom,
		Weight:  20,
		Applies: []domain.FormatID{domain.FormatCharacter, domain.FormatTransition, domain.FormatSceneHeader1, domain.FormatSceneHeader2},
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			if len([]rune(lines[i].Text)) > 2*pattern.MaxCueChars {
				return true, fmt.Sprintf("%s text abnormally long", lines[i].AssignedType)
			}
			return false, ""
		},
	},
	{
		Signal:  SignalOrphanSpeech,
		Weight:  15,
		Applies: []domain.FormatID{domain.FormatDialogue},
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			for j := i - 1; j >= 0; j-- {
				switch lines[j].AssignedType {
				case domain.FormatCharacter:
					return false, ""
				case domain.FormatDialogue, domain.FormatParenthetical:
					continue
				default:
					return true, "dialogue with no preceding speaker cue"
				}
			}
			return true, "dialogue with no preceding speaker cue"
		},
	},
	{
		Signal:  SignalCueShaped,
		Weight:  15,
		Applies: []domain.FormatID{domain.FormatAction},
		Match: func(i int, lines []domain.ClassifiedLine) (bool, string) {
			if pattern.IsSpeakerCue(lines[i].Text) || pattern.IsInlineDialogue(lines[i].Text) {
				return true, "action line shaped like a speaker cue"
			}
			return false, ""
		},
	},
}

// severityKey pairs the observed type with the contradicting signal.
type severityKey struct {
	assigned domain.FormatID
	signal   Signal
}

// severityTable adds type-aware weight on top of the summed suspicion. A
// transition that reads like dialogue is graver than a scene header that
// reads like action.
var severityTable = map[severityKey]int{
	{domain.FormatDialogue, SignalNarrative}:      35,
	{domain.FormatTransition, SignalLengthAnom}:   30,
	{domain.FormatCharacter, SignalLengthAnom}:    25,
	{domain.FormatCharacter, SignalColonPrefix}:   25,
	{domain.FormatDialogue, SignalColonPrefix}:    15,
	{domain.FormatDialogue, SignalOrphanSpeech}:   15,
	{domain.FormatSceneHeader1, SignalLengthAnom}: 10,
	{domain.FormatSceneHeader2, SignalLengthAnom}: 10,
	{domain.FormatAction, SignalCueShaped}:        10,
	{domain.FormatDialogue, SignalMergedText}:     10,
	{domain.FormatAction, SignalMergedText}:       5,
}

// Line is one escalated line with everything the reviewer needs.
type Line struct {
	ItemIndex         int                         `json:"itemIndex"`
	LineIndex         int                         `json:"lineIndex"`
	Text              string                      `json:"text"`
	AssignedType      domain.FormatID             `json:"assignedType"`
	Method            domain.ClassificationMethod `json:"classificationMethod"`
	TotalSuspicion    int                         `json:"totalSuspicion"`
	Reasons           []string                    `json:"reasons"`
	ContextLines      []string                    `json:"contextLines"`
	EscalationScore   int                         `json:"escalationScore"`
	RoutingBand       RoutingBand                 `json:"routingBand"`
	CriticalMismatch  bool                        `json:"criticalMismatch"`
	DistinctDetectors int                         `json:"distinctDetectors"`
}

// Packet is the scorer's output for one document.
type Packet struct {
	TotalReviewed   int    `json:"totalReviewed"`
	TotalSuspicious int    `json:"totalSuspicious"`
	SuspiciousLines []Line `json:"suspiciousLines"`
}

// Score runs every detector over the classified sequence and buckets lines
// by escalation score. Lines under ThresholdLocalReview are accepted
// silently and excluded from the suspicious set.
func Score(lines []domain.ClassifiedLine) Packet {
	pkt := Packet{TotalReviewed: len(lines)}
	for i, cl := range lines {
		total := 0
		critical := false
		var reasons []string
		var triggered []Signal
		for _, d := range Detectors {
			if !applies(d, cl.AssignedType) {
				continue
			}
			hit, why := d.Match(i, lines)
			if !hit {
				continue
			}
			total += d.Weight
			triggered = append(triggered, d.Signal)
			reasons = append(reasons, why)
			if d.Critical {
				critical = true
			}
		}
		if total == 0 {
			continue
		}
		score := total
		for _, sig := range triggered {
			score += severityTable[severityKey{cl.AssignedType, sig}]
		}
		if score > maxScore {
			score = maxScore
		}
		if score < ThresholdLocalReview {
			continue
		}
		band := BandLocalReview
		if score >= ThresholdAgent {
			if critical {
				band = BandAgentForced
			} else {
				band = BandAgentCandidate
			}
		}
		pkt.SuspiciousLines = append(pkt.SuspiciousLines, Line{
			ItemIndex:         len(pkt.SuspiciousLines),
			LineIndex:         cl.LineIndex,
			Text:              cl.Text,
			AssignedType:      cl.AssignedType,
			Method:            cl.Method,
			TotalSuspicion:    total,
			Reasons:           reasons,
			ContextLines:      contextFor(i, lines),
			EscalationScore:   score,
			RoutingBand:       band,
			CriticalMismatch:  critical,
			DistinctDetectors: len(triggered),
		})
	}
	pkt.TotalSuspicious = len(pkt.SuspiciousLines)
	return pkt
}

func applies(d Detector, f domain.FormatID) bool {
	if len(d.Applies) == 0 {
		return true
	}
	for _, a := range d.Applies {
		if a == f {
			return true
		}
	}
	return false
}

func contextFor(i int, lines []domain.ClassifiedLine) []string {
	lo := i - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := i + contextRadius
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}
	out := make([]string, 0, hi-lo)
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		out = append(out, fmt.Sprintf("[%d %s] %s", lines[j].LineIndex, lines[j].AssignedType, lines[j].Text))
	}
	return out
}
