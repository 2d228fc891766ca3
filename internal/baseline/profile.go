// Package baseline persists multi-round micro-benchmark statistics as a
// flat JSON profile and compares a later run against it. The profile is
// the only artifact with cross-invocation lifetime: written by one run,
// read-only input to another.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/perfgate/perfgate/internal/microbench"
)

// RuntimeInfo stamps the environment that produced a profile. GoRevision
// is the VCS revision from build info, null when built without VCS data.
type RuntimeInfo struct {
	GoVersion  string  `json:"goVersion"`
	GoRevision *string `json:"goRevision"`
	Platform   string  `json:"platform"`
	Arch       string  `json:"arch"`
}

// Options records the round schedule the profile was measured under.
type Options struct {
	WarmupRounds int `json:"warmupRounds"`
	Rounds       int `json:"rounds"`
	IntervalMs   int `json:"intervalMs"`
}

// Metric is one operation's persisted cross-round statistics.
type Metric struct {
	Name                    string  `json:"name"`
	Rounds                  int     `json:"rounds"`
	MedianOpsPerSecond      float64 `json:"medianOpsPerSecond"`
	TrimmedMeanOpsPerSecond float64 `json:"trimmedMeanOpsPerSecond"`
	MinOpsPerSecond         float64 `json:"minOpsPerSecond"`
	MaxOpsPerSecond         float64 `json:"maxOpsPerSecond"`
	CoefficientOfVariation  float64 `json:"coefficientOfVariation"`
}

// Profile is the durable baseline artifact.
type Profile struct {
	GeneratedAt string      `json:"generatedAt"`
	Runtime     RuntimeInfo `json:"runtime"`
	Options     Options     `json:"options"`
	Metrics     []Metric    `json:"metrics"`
}

const profileSchema = `{
  "type": "object",
  "required": ["generatedAt", "runtime", "options", "metrics"],
  "properties": {
    "generatedAt": {"type": "string"},
    "runtime": {
      "type": "object",
      "required": ["goVersion", "platform", "arch"],
      "properties": {
        "goVersion": {"type": "string"},
        "goRevision": {"type": ["string", "null"]},
        "platform": {"type": "string"},
        "arch": {"type": "string"}
      }
    },
    "options": {
      "type": "object",
      "required": ["warmupRounds", "rounds", "intervalMs"],
      "properties": {
        "warmupRounds": {"type": "integer", "minimum": 0},
        "rounds": {"type": "integer", "minimum": 1},
        "intervalMs": {"type": "integer", "minimum": 0}
      }
    },
    "metrics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "rounds", "medianOpsPerSecond", "trimmedMeanOpsPerSecond", "minOpsPerSecond", "maxOpsPerSecond", "coefficientOfVariation"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "rounds": {"type": "integer", "minimum": 1},
          "medianOpsPerSecond": {"type": "number"},
          "trimmedMeanOpsPerSecond": {"type": "number"},
          "minOpsPerSecond": {"type": "number"},
          "maxOpsPerSecond": {"type": "number"},
          "coefficientOfVariation": {"type": "number"}
        }
      }
    }
  }
}`

// CurrentRuntime captures the running toolchain and platform.
func CurrentRuntime() RuntimeInfo {
	info := RuntimeInfo{
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				rev := s.Value
				info.GoRevision = &rev
				break
			}
		}
	}
	return info
}

// FromProfiles builds the durable artifact from a round run's statistics.
func FromProfiles(profiles []microbench.SampleProfile, opts Options) Profile {
	metrics := make([]Metric, 0, len(profiles))
	for _, p := range profiles {
		metrics = append(metrics, Metric{
			Name:                    p.Name,
			Rounds:                  p.MeasuredRounds,
			MedianOpsPerSecond:      p.MedianOpsPerSecond,
			TrimmedMeanOpsPerSecond: p.TrimmedMeanOpsPerSecond,
			MinOpsPerSecond:         p.MinOpsPerSecond,
			MaxOpsPerSecond:         p.MaxOpsPerSecond,
			CoefficientOfVariation:  p.CoefficientOfVariation,
		})
	}
	return Profile{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Runtime:     CurrentRuntime(),
		Options:     opts,
		Metrics:     metrics,
	}
}

// Save writes the profile as indented JSON.
func Save(path string, p Profile) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads and validates a baseline profile, failing before any
// measurement when the file is structurally invalid or in the legacy
// single-sample format.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read baseline profile: %w", err)
	}
	return Decode(raw)
}

// Decode parses a profile from raw JSON. The legacy shape
// {samples:[{name,iterations,durationMs,opsPerSecond}]} is detected and
// rejected with a distinct error: a single-sample report carries no
// cross-round statistics and cannot anchor a regression comparison.
func Decode(raw []byte) (Profile, error) {
	var probe struct {
		Samples []json.RawMessage `json:"samples"`
		Metrics []json.RawMessage `json:"metrics"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Profile{}, fmt.Errorf("parse baseline profile: %w", err)
	}
	if probe.Samples != nil && probe.Metrics == nil {
		return Profile{}, fmt.Errorf("unsupported legacy single-sample report: expected a multi-round baseline profile with a metrics array; regenerate the baseline with a current build")
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(profileSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return Profile{}, fmt.Errorf("validate baseline profile: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, item := range res.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", item.Field(), item.Description()))
		}
		return Profile{}, fmt.Errorf("invalid baseline profile: %v", msgs)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode baseline profile: %w", err)
	}
	return p, nil
}
