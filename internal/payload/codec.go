/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package payload serializes a classified block sequence into a versioned,
// checksummed token that survives inside otherwise plain text, and restores
// it losslessly. Decode never fails loudly: anything that is not a valid,
// checksum-verified marker is simply not a payload, so ordinary text with
// marker-like substrings passes through safely. The codec performs no I/O.
package payload

import (
	"bytes"
	"encoding/base64"
	"hash/fnv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/flate"

	"katib/internal/domain"
	"katib/internal/pattern"
)

// Marker framing. The base64 body is deflate-compressed JSON.
const (
	markerToken  = "KATIB-DOC-V1"
	markerPrefix = "[[" + markerToken + ":"
	markerSuffix = "]]"
)

// Version is the current payload schema version.
const Version = 1

var markerRe = regexp.MustCompile(regexp.QuoteMeta(markerPrefix) + `([A-Za-z0-9_-]+)` + regexp.QuoteMeta(markerSuffix))

// Payload is the serialized document snapshot.
type Payload struct {
	Version   int            `json:"version"`
	Blocks    []domain.Block `json:"blocks"`
	Font      string         `json:"font"`
	Size      int            `json:"size"`
	Checksum  uint32         `json:"checksum"`
	CreatedAt int64          `json:"createdAt"` // unix seconds
}

// Encode wraps the block sequence in a marker token with a fresh checksum.
func Encode(blocks []domain.Block, font string, size int, createdAt time.Time) (string, error) {
	p := Payload{
		Version:   Version,
		Blocks:    blocks,
		Font:      font,
		Size:      size,
		CreatedAt: createdAt.Unix(),
	}
	p.Checksum = checksum(p)
	raw, err := sonic.Marshal(p)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return markerPrefix + base64.RawURLEncoding.EncodeToString(buf.Bytes()) + markerSuffix, nil
}

// Decode extracts the first marker from text and restores the payload. The
// second return value is false whenever text holds no valid payload: absent
// marker, bad base64, bad compression, bad JSON, unknown version, malformed
// blocks or a checksum mismatch all look the same to the caller.
//
// Legacy fused top-line blocks are split into the canonical two-block form
// on the way in; FuseSceneHeaders re-fuses them at the rendering boundary.
func Decode(text string) (*Payload, bool) {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	packed, err := base64.RawURLEncoding.DecodeString(m[1])
	if err != nil {
		return nil, false
	}
	zr := flate.NewReader(bytes.NewReader(packed))
	raw, err := io.ReadAll(io.LimitReader(zr, 64<<20))
	if err != nil {
		return nil, false
	}
	_ = zr.Close()

	var p Payload
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	if p.Version != Version || p.Size < 0 || p.CreatedAt < 0 {
		return nil, false
	}
	norm := make([]domain.Block, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		f, ok := domain.NormalizeFormatID(string(b.FormatID))
		if !ok {
			return nil, false
		}
		norm = append(norm, domain.Block{FormatID: f, Text: b.Text})
	}
	p.Blocks = norm

	// The checksum was computed over the blocks exactly as encoded, so it
	// must be verified before the fused top lines are split.
	if checksum(p) != p.Checksum {
		return nil, false
	}
	p.Blocks = SplitTopLines(p.Blocks)
	return &p, true
}

// checksum is FNV-1a over the canonical serialization of the unsigned
// payload: version, font, size, creation time and each block's type and
// text, joined with unit separators so field boundaries cannot collide.
func checksum(p Payload) uint32 {
	h := fnv.New32a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0x1f})
	}
	write(strconv.Itoa(p.Version))
	write(p.Font)
	write(strconv.Itoa(p.Size))
	write(strconv.FormatInt(p.CreatedAt, 10))
	for _, b := range p.Blocks {
		write(string(b.FormatID))
		write(b.Text)
		_, _ = h.Write([]byte{0x1e})
	}
	return h.Sum32()
}

// SplitTopLines rewrites every legacy fused top-line block into the
// canonical scene-header-1 + scene-header-2 pair. Blocks whose text does not
// actually split stay top-line typed rather than losing text.
func SplitTopLines(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.FormatID != domain.FormatSceneHeaderTopLine {
			out = append(out, b)
			continue
		}
		scene, rest, ok := pattern.SplitTopLine(b.Text)
		if !ok {
			out = append(out, b)
			continue
		}
		out = append(out,
			domain.Block{FormatID: domain.FormatSceneHeader1, Text: scene},
			domain.Block{FormatID: domain.FormatSceneHeader2, Text: rest},
		)
	}
	return out
}

// FuseSceneHeaders is the rendering-boundary inverse of SplitTopLines: an
// adjacent scene-header-1 + scene-header-2 pair becomes one fused top-line
// block. Canonical storage always keeps the two-block form; fuse only for
// display surfaces that want the single-line convention.
func FuseSceneHeaders(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, 0, len(blocks))
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if b.FormatID == domain.FormatSceneHeader1 && i+1 < len(blocks) &&
			blocks[i+1].FormatID == domain.FormatSceneHeader2 {
			out = append(out, domain.Block{
				FormatID: domain.FormatSceneHeaderTopLine,
				Text:     strings.TrimSpace(b.Text) + " - " + strings.TrimSpace(blocks[i+1].Text),
			})
			i++
			continue
		}
		out = append(out, b)
	}
	return out
}
