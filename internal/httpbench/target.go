// Package httpbench drives HTTP targets with a fixed request budget at a
// configured concurrency level and reduces the collected latencies into
// percentile and throughput metrics.
package httpbench

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// Body is the payload source for a target request. The two variants are
// StaticBody and FactoryBody; using a closed interface instead of an
// untyped field keeps target construction exhaustive at compile time.
type Body interface {
	payload(requestIndex int) any
}

// StaticBody sends the same value on every request.
type StaticBody struct {
	Value any
}

func (b StaticBody) payload(int) any { return b.Value }

// FactoryBody derives the payload from the zero-based request index.
type FactoryBody func(requestIndex int) any

func (f FactoryBody) payload(i int) any { return f(i) }

// Target is one named benchmark endpoint. Name is the identity used in
// reports and rankings.
type Target struct {
	Name    string
	URL     string
	Method  string
	Headers map[string]string
	Body    Body
}

const targetsSchema = `{
  "type": "object",
  "required": ["targets"],
  "properties": {
    "targets": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "url"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1},
          "method": {"type": "string", "enum": ["GET", "POST"]},
          "headers": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "body": {}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

type targetsFile struct {
	Targets []struct {
		Name    string            `json:"name"`
		URL     string            `json:"url"`
		Method  string            `json:"method"`
		Headers map[string]string `json:"headers"`
		Body    json.RawMessage   `json:"body"`
	} `json:"targets"`
}

// LoadTargets reads and validates a targets file. A structurally invalid
// file fails here, before any measurement begins.
func LoadTargets(path string) ([]Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return ParseTargets(raw)
}

// ParseTargets validates raw JSON against the targets schema and rejects
// duplicate target names, which would make the ranking ambiguous.
func ParseTargets(raw []byte) ([]Target, error) {
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(targetsSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, item := range res.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", item.Field(), item.Description()))
		}
		return nil, fmt.Errorf("invalid targets file: %v", msgs)
	}

	var file targetsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode targets file: %w", err)
	}

	seen := make(map[string]bool, len(file.Targets))
	targets := make([]Target, 0, len(file.Targets))
	for _, t := range file.Targets {
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
		method := t.Method
		if method == "" {
			method = "GET"
		}
		target := Target{
			Name:    t.Name,
			URL:     t.URL,
			Method:  method,
			Headers: t.Headers,
		}
		if len(t.Body) > 0 && string(t.Body) != "null" {
			target.Body = StaticBody{Value: json.RawMessage(t.Body)}
		}
		targets = append(targets, target)
	}
	return targets, nil
}
