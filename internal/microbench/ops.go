// Package microbench times fixed-iteration CPU and file-I/O operations
// across warmup and measured rounds, producing one ops/sec sample per
// round per operation. Every operation validates its own output and fails
// the round on corruption: a corrupt intermediate result cannot be trusted
// statistically, so it is a hard error, not a discarded outlier.
package microbench

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// Operation is one named micro-benchmark: fn is invoked Iterations times
// back-to-back and must return an error if its self-check fails.
type Operation struct {
	Name       string
	Iterations int
	fn         func() error
}

type jsonPayload struct {
	ID      int               `json:"id"`
	Name    string            `json:"name"`
	Tags    []string          `json:"tags"`
	Attrs   map[string]string `json:"attrs"`
	Enabled bool              `json:"enabled"`
}

// JSONRoundTripOp encodes and decodes a fixed document, verifying the
// decoded name field survives the trip.
func JSONRoundTripOp(iterations int) Operation {
	doc := jsonPayload{
		ID:      42,
		Name:    "perfgate-sample",
		Tags:    []string{"bench", "json", "roundtrip"},
		Attrs:   map[string]string{"kind": "micro", "codec": "encoding/json"},
		Enabled: true,
	}
	return Operation{
		Name:       "json-roundtrip",
		Iterations: iterations,
		fn: func() error {
			raw, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal: %w", err)
			}
			var out jsonPayload
			if err := json.Unmarshal(raw, &out); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if out.Name != doc.Name {
				return fmt.Errorf("json roundtrip corrupted: name %q", out.Name)
			}
			return nil
		},
	}
}

// BufferCopyOp copies a raw byte buffer and verifies the copied length.
func BufferCopyOp(iterations, size int) Operation {
	if size <= 0 {
		size = 64 * 1024
	}
	src := make([]byte, size)
	for i := range src {
		src[i] = byte(i % 251)
	}
	return Operation{
		Name:       "buffer-copy",
		Iterations: iterations,
		fn: func() error {
			dst := make([]byte, len(src))
			n := copy(dst, src)
			if n != len(src) {
				return fmt.Errorf("buffer copy corrupted: copied %d of %d bytes", n, len(src))
			}
			return nil
		},
	}
}

// TextRoundTripOp converts text to bytes and back, verifying the decoded
// text is non-empty and valid UTF-8.
func TextRoundTripOp(iterations int) Operation {
	text := bytes.Repeat([]byte("measure twice, gate once — перфгейт 計測 "), 32)
	return Operation{
		Name:       "text-roundtrip",
		Iterations: iterations,
		fn: func() error {
			encoded := []byte(string(text))
			decoded := string(encoded)
			if len(decoded) == 0 {
				return fmt.Errorf("text roundtrip produced empty output")
			}
			if !utf8.ValidString(decoded) {
				return fmt.Errorf("text roundtrip corrupted: invalid utf-8")
			}
			return nil
		},
	}
}

// FileIOOp writes a payload to a fresh file under dir and reads it back,
// verifying the read-back byte length. name distinguishes the disk-backed
// and tmpfs-backed variants of the same operation.
func FileIOOp(name, dir string, iterations, size int) Operation {
	if size <= 0 {
		size = 256 * 1024
	}
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 239)
	}
	return Operation{
		Name:       name,
		Iterations: iterations,
		fn: func() error {
			f, err := os.CreateTemp(dir, "perfgate-io-*.bin")
			if err != nil {
				return fmt.Errorf("create temp file: %w", err)
			}
			path := f.Name()
			defer os.Remove(path)
			if _, err := f.Write(payload); err != nil {
				f.Close()
				return fmt.Errorf("write: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close: %w", err)
			}
			back, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read back: %w", err)
			}
			if len(back) != len(payload) {
				return fmt.Errorf("file io corrupted: read %d of %d bytes", len(back), len(payload))
			}
			return nil
		},
	}
}

// TmpfsDir returns /dev/shm when it is present and writable, falling back
// to the OS temp dir. Losing tmpfs degrades the sample to disk-backed
// rather than aborting the run.
func TmpfsDir() string {
	const shm = "/dev/shm"
	info, err := os.Stat(shm)
	if err != nil || !info.IsDir() {
		return os.TempDir()
	}
	probe, err := os.CreateTemp(shm, "perfgate-probe-*")
	if err != nil {
		return os.TempDir()
	}
	probe.Close()
	os.Remove(probe.Name())
	return shm
}

// DefaultOperations returns the standard operation set. workDir hosts the
// disk-backed file-I/O samples; it is created if missing.
func DefaultOperations(workDir string, iterations int) ([]Operation, error) {
	if iterations < 1 {
		iterations = 1
	}
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "perfgate-bench")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bench work dir: %w", err)
	}
	return []Operation{
		JSONRoundTripOp(iterations),
		BufferCopyOp(iterations, 64*1024),
		TextRoundTripOp(iterations),
		FileIOOp("file-io", workDir, iterations, 256*1024),
		FileIOOp("file-io-tmpfs", TmpfsDir(), iterations, 256*1024),
	}, nil
}
