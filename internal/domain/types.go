/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model for the katib screenplay
// pipeline: typed screenplay blocks and the classified-line record that
// flows between the classifier, the suspicion scorer and the reconciler.
package domain

// FormatID identifies the screenplay element type of a block.
type FormatID string

const (
	FormatBasmala            FormatID = "basmala"
	FormatSceneHeaderTopLine FormatID = "scene-header-top-line"
	FormatSceneHeader1       FormatID = "scene-header-1"
	FormatSceneHeader2       FormatID = "scene-header-2"
	FormatSceneHeader3       FormatID = "scene-header-3"
	FormatAction             FormatID = "action"
	FormatCharacter          FormatID = "character"
	FormatDialogue           FormatID = "dialogue"
	FormatParenthetical      FormatID = "parenthetical"
	FormatTransition         FormatID = "transition"
)

// AllFormats lists every canonical format identifier.
var AllFormats = []FormatID{
	FormatBasmala,
	FormatSceneHeaderTopLine,
	FormatSceneHeader1,
	FormatSceneHeader2,
	FormatSceneHeader3,
	FormatAction,
	FormatCharacter,
	FormatDialogue,
	FormatParenthetical,
	FormatTransition,
}

// legacyFormatIDs maps the camelCase spellings written by older exports to
// the canonical kebab-case identifiers.
var legacyFormatIDs = map[string]FormatID{
	"basmala":            FormatBasmala,
	"sceneHeaderTopLine": FormatSceneHeaderTopLine,
	"sceneHeader1":       FormatSceneHeader1,
	"sceneHeader2":       FormatSceneHeader2,
	"sceneHeader3":       FormatSceneHeader3,
	"action":             FormatAction,
	"character":          FormatCharacter,
	"dialogue":           FormatDialogue,
	"parenthetical":      FormatParenthetical,
	"transition":         FormatTransition,
}

// NormalizeFormatID resolves a serialized format identifier, accepting both
// the canonical kebab-case spelling and the legacy camelCase one. The second
// return value is false for unknown identifiers.
func NormalizeFormatID(s string) (FormatID, bool) {
	for _, f := range AllFormats {
		if string(f) == s {
			return f, true
		}
	}
	if f, ok := legacyFormatIDs[s]; ok {
		return f, true
	}
	return "", false
}

// IsSceneHeader reports whether f is one of the scene header variants,
// including the legacy fused top-line form.
func (f FormatID) IsSceneHeader() bool {
	switch f {
	case FormatSceneHeaderTopLine, FormatSceneHeader1, FormatSceneHeader2, FormatSceneHeader3:
		return true
	}
	return false
}

// IsStructural reports whether f carries document structure beyond plain
// action text. The projection guard counts structural blocks in label-only
// comparisons.
func (f FormatID) IsStructural() bool {
	return f != FormatAction && f != ""
}

// Block is one classified unit of screenplay text. Blocks are immutable
// values: every pipeline stage copies them forward.
type Block struct {
	FormatID FormatID `json:"formatId"`
	Text     string   `json:"text"`
}

// ClassificationMethod records how a line received its type.
type ClassificationMethod string

const (
	// MethodRule means a lexical predicate matched the line directly.
	MethodRule ClassificationMethod = "rule"
	// MethodContext means the type was carried in from surrounding state
	// (header expectation, pending dialogue, previous element).
	MethodContext ClassificationMethod = "context"
)

// ClassifiedLine is the classifier's per-line output consumed by the
// suspicion scorer and the review reconciler.
type ClassifiedLine struct {
	LineIndex    int                  `json:"lineIndex"`
	Text         string               `json:"text"`
	AssignedType FormatID             `json:"assignedType"`
	Method       ClassificationMethod `json:"classificationMethod"`
	Confidence   float64              `json:"originalConfidence"`
}

// Blocks converts a classified sequence into its block form.
func Blocks(lines []ClassifiedLine) []Block {
	out := make([]Block, 0, len(lines))
	for _, l := range lines {
		out = append(out, Block{FormatID: l.AssignedType, Text: l.Text})
	}
	return out
}
