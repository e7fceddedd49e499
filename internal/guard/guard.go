/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package guard protects an open document from a reclassification pass that
// would destructively collapse its structure. Evaluation is a pure function
// of counts, reasons accumulate without short-circuiting, and the report is
// advisory: the caller decides whether to block, warn or proceed.
package guard

import (
	"fmt"

	"katib/internal/domain"
)

// Collapse thresholds. Empirically tuned ratios, kept as named constants so
// tuning stays a configuration change.
const (
	// MinLinesForRatioCheck is the smallest input where the output/input
	// ratio is meaningful.
	MinLinesForRatioCheck = 8
	// MinBlocksForShrinkCheck is the smallest current document the shrink
	// check applies to.
	MinBlocksForShrinkCheck = 12
	// MinStructuralForLabelCheck is the smallest structural population the
	// label-only check applies to.
	MinStructuralForLabelCheck = 3

	CollapseRatio       = 0.25
	ShrinkRatio         = 0.20
	StructuralLossRatio = 0.15
)

// Input is everything Evaluate looks at. CurrentBlocks is nil when the
// projection targets a fresh document.
type Input struct {
	InputLineCount int
	CurrentBlocks  []domain.Block
	NextBlocks     []domain.Block
	// LabelOnly marks a reclassification pass that relabels existing text
	// rather than replacing it; the structural-richness check only applies
	// there.
	LabelOnly bool
}

// Report is the guard's verdict plus the counts it was computed from.
type Report struct {
	Accepted              bool     `json:"accepted"`
	Reasons               []string `json:"reasons"`
	InputLineCount        int      `json:"inputLineCount"`
	OutputBlockCount      int      `json:"outputBlockCount"`
	CurrentBlockCount     int      `json:"currentBlockCount,omitempty"`
	CurrentNonActionCount int      `json:"currentNonActionCount,omitempty"`
	OutputNonActionCount  int      `json:"outputNonActionCount"`
	FallbackApplied       bool     `json:"fallbackApplied"`
}

// Evaluate compares the structural density of a proposed output against the
// input and, when replacing an open document, against the current document.
// All rejection conditions are checked; none short-circuits.
func Evaluate(in Input) Report {
	rep := Report{
		Accepted:         true,
		Reasons:          []string{},
		InputLineCount:   in.InputLineCount,
		OutputBlockCount: len(in.NextBlocks),
	}
	for _, b := range in.NextBlocks {
		if b.FormatID.IsStructural() {
			rep.OutputNonActionCount++
		}
	}
	if in.CurrentBlocks != nil {
		rep.CurrentBlockCount = len(in.CurrentBlocks)
		for _, b := range in.CurrentBlocks {
			if b.FormatID.IsStructural() {
				rep.CurrentNonActionCount++
			}
		}
	}

	if in.InputLineCount > 1 && len(in.NextBlocks) <= 1 {
		rep.Reasons = append(rep.Reasons,
			fmt.Sprintf("%d input lines collapsed to %d block(s)", in.InputLineCount, len(in.NextBlocks)))
	}
	if in.InputLineCount >= MinLinesForRatioCheck &&
		float64(len(in.NextBlocks)) <= CollapseRatio*float64(in.InputLineCount) {
		rep.Reasons = append(rep.Reasons,
			fmt.Sprintf("output kept %d of %d input lines (limit ratio %.2f)", len(in.NextBlocks), in.InputLineCount, CollapseRatio))
	}
	if in.CurrentBlocks != nil && rep.CurrentBlockCount >= MinBlocksForShrinkCheck &&
		float64(len(in.NextBlocks)) <= ShrinkRatio*float64(rep.CurrentBlockCount) {
		rep.Reasons = append(rep.Reasons,
			fmt.Sprintf("document would shrink from %d to %d blocks (limit ratio %.2f)", rep.CurrentBlockCount, len(in.NextBlocks), ShrinkRatio))
	}
	if in.LabelOnly && in.CurrentBlocks != nil && rep.CurrentNonActionCount >= MinStructuralForLabelCheck &&
		float64(rep.OutputNonActionCount) <= StructuralLossRatio*float64(rep.CurrentNonActionCount) {
		rep.Reasons = append(rep.Reasons,
			fmt.Sprintf("structural blocks would drop from %d to %d (limit ratio %.2f)", rep.CurrentNonActionCount, rep.OutputNonActionCount, StructuralLossRatio))
	}

	if len(rep.Reasons) > 0 {
		rep.Accepted = false
		rep.FallbackApplied = true
	}
	return rep
}
