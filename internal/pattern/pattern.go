/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pattern provides the stateless Arabic-aware lexical predicates the
// line classifier and the suspicion scorer are built on. Every predicate
// expects a normalized, whitespace-collapsed line. All word lists live in
// package-level tables so tuning is a data change, not a code change.
package pattern

import (
	"regexp"
	"strings"
	"unicode"
)

// Speaker cue shape limits.
const (
	MaxCueChars = 30
	MaxCueWords = 4
)

// MaxHeader3Words bounds how long a standalone place line may be before it is
// treated as action text instead.
const MaxHeader3Words = 14

// basmalaForms covers the plain phrase, common spelling variants and the
// single-codepoint ligature U+FDFD.
var basmalaForms = []string{
	"بسم الله الرحمن الرحيم",
	"بسم الله الرحمٰن الرحيم",
	"﷽",
}

// timeWords mark the time-of-day half of a scene header.
var timeWords = []string{
	"ليل", "نهار", "صباح", "مساء", "فجر", "ظهر", "ظهرا", "عصر", "مغرب", "غروب", "شروق", "ليلا", "نهارا",
}

// locationMarkers mark the interior/exterior half of a scene header,
// including the common single-letter abbreviations.
var locationMarkers = []string{
	"داخلي", "خارجي", "داخلى", "خارجى", "د.", "خ.",
}

// transitionPhrases are the conventional cut/fade markers. Matching is exact
// on the phrase after an optional trailing colon is stripped.
var transitionPhrases = []string{
	"قطع", "قطع إلى", "قطع الى", "قطع سريع", "انتقال", "انتقال إلى", "انتقال الى",
	"مزج", "تلاشي", "اختفاء تدريجي", "ظهور تدريجي", "إظلام", "اظلام", "نهاية المشهد",
}

// placeNouns anchor the standalone third header line (the specific place).
var placeNouns = []string{
	"غرفة", "حجرة", "صالة", "صالون", "مطبخ", "منزل", "بيت", "شقة", "فيلا", "عمارة",
	"شارع", "حارة", "زقاق", "ميدان", "طريق", "كورنيش",
	"مكتب", "شركة", "مصنع", "محل", "مقهى", "مطعم", "فندق",
	"مستشفى", "عيادة", "مدرسة", "جامعة", "قسم", "سجن", "محكمة", "مسجد", "كنيسة",
	"سيارة", "سطح", "حديقة", "شرفة", "بلكونة", "مدخل", "سلم", "ممر", "بهو", "قبو",
}

// narrativeConnectives betray narration: a dialogue line carrying one
// mid-sentence is a strong contradiction signal for the scorer.
var narrativeConnectives = []string{
	"ثم", "بعد ذلك", "وفجأة", "فجأة", "بينما", "في هذه الأثناء", "وبعدها", "لحظتها", "عندئذ", "حينها",
}

// reservedCueWords are structural keywords that must never be read as a
// character name even when colon-terminated.
var reservedCueWords = []string{
	"مشهد", "المشهد", "قطع", "انتقال", "داخلي", "خارجي", "ليل", "نهار", "مزج", "تلاشي",
}

var (
	// "مشهد 12", "المشهد ١٢", optional "رقم", optional trailing colon.
	sceneNumberRe = regexp.MustCompile(`^(?:ال)?مشهد(?:\s+رقم)?\s*[0-9٠-٩]+\s*:?$`)
	// leading scene-number prefix of a fused top line.
	sceneNumberPrefixRe = regexp.MustCompile(`^(?:ال)?مشهد(?:\s+رقم)?\s*[0-9٠-٩]+`)
	arabicIndicDigitRe  = regexp.MustCompile(`[٠-٩]`)
	sentencePunctRe     = regexp.MustCompile(`[.?!؟،؛…]`)
)

// stripDiacritics removes Arabic tashkeel and the tatweel so lexical
// comparisons survive vocalized input.
func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) || r == 'ـ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func prepared(line string) string {
	return strings.TrimSpace(stripDiacritics(line))
}

// IsBasmala reports whether the line is the opening religious invocation.
func IsBasmala(line string) bool {
	s := strings.Trim(prepared(line), "()[]{}«»\"'")
	s = strings.TrimSpace(s)
	for _, f := range basmalaForms {
		if s == stripDiacritics(f) {
			return true
		}
	}
	return false
}

// IsSceneNumber reports whether the line is a standalone scene-number
// heading such as "مشهد 12".
func IsSceneNumber(line string) bool {
	return sceneNumberRe.MatchString(prepared(line))
}

// HasTimeOfDay reports whether the line contains a time-of-day word.
func HasTimeOfDay(line string) bool {
	return containsWord(prepared(line), timeWords)
}

// HasLocationMarker reports whether the line contains an interior/exterior
// marker.
func HasLocationMarker(line string) bool {
	s := prepared(line)
	for _, m := range locationMarkers {
		if strings.HasSuffix(m, ".") {
			// abbreviation: match as a token
			for _, w := range strings.Fields(s) {
				if w == m {
					return true
				}
			}
			continue
		}
		if containsWord(s, []string{m}) {
			return true
		}
	}
	return false
}

// IsTimeLocation reports whether the line is a standalone time+location
// header such as "داخلي - ليل". Both halves must be present and nothing
// longer than a short header is accepted.
func IsTimeLocation(line string) bool {
	s := prepared(line)
	if wordCount(s) > 6 {
		return false
	}
	return HasLocationMarker(s) && HasTimeOfDay(s)
}

// IsSceneHeaderTopLine reports whether a scene number and its time/location
// half are fused on one physical line, e.g. "مشهد 12 - داخلي - ليل".
func IsSceneHeaderTopLine(line string) bool {
	s := prepared(line)
	if !sceneNumberPrefixRe.MatchString(s) || IsSceneNumber(s) {
		return false
	}
	return HasLocationMarker(s) || HasTimeOfDay(s)
}

// SplitTopLine splits a fused top line into its scene-number prefix and the
// time/location remainder. ok is false when the line is not top-line shaped.
func SplitTopLine(line string) (scene, rest string, ok bool) {
	s := strings.TrimSpace(line)
	loc := sceneNumberPrefixRe.FindStringIndex(stripDiacritics(s))
	if loc == nil || !IsSceneHeaderTopLine(s) {
		return "", "", false
	}
	// index math is safe: stripDiacritics only removes runes, and the prefix
	// match on the stripped string maps to the same head on headers that
	// carry no diacritics, which is the on-disk legacy form.
	stripped := stripDiacritics(s)
	scene = strings.TrimSpace(stripped[:loc[1]])
	rest = strings.TrimSpace(strings.Trim(stripped[loc[1]:], " -–—:"))
	if rest == "" {
		return "", "", false
	}
	return scene, rest, true
}

// IsTransition reports whether the line is a transition phrase, with or
// without a trailing colon.
func IsTransition(line string) bool {
	s := strings.TrimSpace(strings.TrimSuffix(prepared(line), ":"))
	s = strings.TrimSpace(s)
	for _, p := range transitionPhrases {
		if s == p {
			return true
		}
	}
	return false
}

// IsSpeakerCue reports whether the line is a name-only speaker cue ending in
// a colon: at most MaxCueChars characters and MaxCueWords words before the
// colon, letters/digits only, and not a reserved structural keyword.
func IsSpeakerCue(line string) bool {
	s := prepared(line)
	if !strings.HasSuffix(s, ":") {
		return false
	}
	name := strings.TrimSpace(strings.TrimSuffix(s, ":"))
	return isCueName(name)
}

// IsInlineDialogue reports whether the line carries a cue and its utterance
// together, e.g. "أحمد: أنا جاهز".
func IsInlineDialogue(line string) bool {
	name, rest, ok := CueSplit(line)
	return ok && name != "" && strings.TrimSpace(rest) != ""
}

// CueSplit splits "name: utterance" and validates the name half against the
// cue shape. ok is false when there is no colon or the prefix is not a
// plausible speaker name.
func CueSplit(line string) (name, utterance string, ok bool) {
	s := prepared(line)
	i := strings.Index(s, ":")
	if i < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(s[:i])
	if !isCueName(name) {
		return "", "", false
	}
	return name, strings.TrimSpace(s[i+1:]), true
}

func isCueName(name string) bool {
	if name == "" || len([]rune(name)) > MaxCueChars || wordCount(name) > MaxCueWords {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	for _, w := range strings.Fields(name) {
		for _, res := range reservedCueWords {
			if w == res {
				return false
			}
		}
	}
	return true
}

// IsParenthetical reports whether the line is fully wrapped in parentheses.
func IsParenthetical(line string) bool {
	s := strings.TrimSpace(line)
	if len(s) < 2 {
		return false
	}
	return strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

// IsLikelyLocation reports whether a standalone line looks like the specific
// place half of a scene header: brief, unpunctuated, anchored by a place
// noun, and not action shaped.
func IsLikelyLocation(line string) bool {
	s := prepared(line)
	if s == "" || wordCount(s) > MaxHeader3Words {
		return false
	}
	if sentencePunctRe.MatchString(s) || strings.Contains(s, ":") {
		return false
	}
	if IsActionShaped(s) {
		return false
	}
	first := strings.Fields(s)[0]
	for _, n := range placeNouns {
		if first == n || first == "ال"+n {
			return true
		}
	}
	return false
}

// IsHeader3Continuation is the looser place test used when the classifier
// already expects the third header line: brief, unpunctuated and not action
// shaped, with no lexicon anchor required.
func IsHeader3Continuation(line string) bool {
	s := prepared(line)
	if s == "" || wordCount(s) > MaxHeader3Words {
		return false
	}
	if sentencePunctRe.MatchString(s) || strings.Contains(s, ":") {
		return false
	}
	return !IsActionShaped(s)
}

// IsActionShaped reports whether the line reads as narration: it starts with
// a narrative connective or the conjunction prefix "و" followed by more
// prose, or carries several sentence stops.
func IsActionShaped(line string) bool {
	s := prepared(line)
	if s == "" {
		return false
	}
	words := strings.Fields(s)
	first := words[0]
	for _, c := range narrativeConnectives {
		if first == c || strings.HasPrefix(s, c+" ") {
			return true
		}
	}
	if len(words) >= 4 && strings.HasPrefix(first, "و") && len([]rune(first)) > 2 {
		return true
	}
	return len(sentencePunctRe.FindAllString(s, -1)) >= 2
}

// NarrativeConnectiveInside reports whether a narrative connective occurs
// past the first word of the line, which is contradictory inside dialogue.
func NarrativeConnectiveInside(line string) bool {
	s := prepared(line)
	words := strings.Fields(s)
	if len(words) < 3 {
		return false
	}
	for i := 1; i < len(words); i++ {
		w := strings.Trim(words[i], "،.؛:!؟…")
		for _, c := range narrativeConnectives {
			if w == c {
				return true
			}
		}
	}
	return false
}

// HasArabicIndicDigits reports whether the line uses Arabic-Indic numerals.
func HasArabicIndicDigits(line string) bool {
	return arabicIndicDigitRe.MatchString(line)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func containsWord(s string, words []string) bool {
	fields := strings.Fields(s)
	for _, f := range fields {
		t := strings.Trim(f, "-–—():.،؛")
		for _, w := range words {
			if t == w || t == "ال"+w {
				return true
			}
		}
	}
	return false
}
