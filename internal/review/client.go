/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package review

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xeipuuv/gojsonschema"
)

// DefaultTimeout bounds one review round-trip. The reconciler never retries,
// so this is also the worst-case stall a caller can observe.
const DefaultTimeout = 8 * time.Second

// responseSchema is the shape gate for the service answer. A body that does
// not validate is treated as malformed, not as a partial answer.
const responseSchema = `{
  "type": "object",
  "required": ["status", "decisions"],
  "properties": {
    "status": {"type": "string", "enum": ["applied", "skipped", "warning", "error"]},
    "model": {"type": "string"},
    "message": {"type": "string"},
    "latencyMs": {"type": "integer"},
    "decisions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["itemIndex", "finalType"],
        "properties": {
          "itemIndex": {"type": "integer", "minimum": 0},
          "finalType": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "reason": {"type": "string"}
        }
      }
    },
    "meta": {
      "type": "object",
      "properties": {
        "requestedCount": {"type": "integer"},
        "decisionCount": {"type": "integer"},
        "missingItemIndexes": {"type": "array", "items": {"type": "integer"}},
        "forcedItemIndexes": {"type": "array", "items": {"type": "integer"}},
        "unresolvedForcedItemIndexes": {"type": "array", "items": {"type": "integer"}}
      }
    }
  }
}`

var compiledResponseSchema = gojsonschema.NewStringLoader(responseSchema)

// Client is a minimal HTTP client for the review service. It performs
// exactly one POST per Review call; retry and backoff policy belongs to the
// caller.
type Client struct {
	BaseURL string
	Token   string // bearer token, from the OS keyring via internal/config
	Model   string
	hc      *http.Client
	do      func(*http.Request) (*http.Response, error)
}

// NewClient creates a review client. baseURL may carry a trailing slash; it
// will be normalized. timeout <= 0 falls back to DefaultTimeout.
func NewClient(baseURL, token, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Model:   model,
		hc:      hc,
		do:      hc.Do,
	}
}

// Review sends the batch and returns the validated response. Cancellation of
// ctx abandons the call. Any transport, status or shape failure comes back
// as an error for the reconciler to degrade into a skip.
func (c *Client) Review(ctx context.Context, r Request) (*Response, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("review: no service endpoint configured")
	}
	body, err := sonic.Marshal(struct {
		Request
		Model string `json:"model,omitempty"`
	}{Request: r, Model: c.Model})
	if err != nil {
		return nil, fmt.Errorf("review: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/review", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("review: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("review: transport: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("review: service %s: %s", resp.Status, strings.TrimSpace(string(slurp)))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("review: read response: %w", err)
	}
	if err := validateResponse(raw); err != nil {
		return nil, err
	}
	var out Response
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("review: decode response: %w", err)
	}
	return &out, nil
}

func validateResponse(raw []byte) error {
	res, err := gojsonschema.Validate(compiledResponseSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("review: malformed response: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("review: response failed schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
