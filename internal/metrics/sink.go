package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFailure means an observation could not be persisted. The owning
// driver treats it as fatal: a driver that cannot record its own
// measurements provides no value continuing to run.
type WriteFailure struct {
	Path string
	Err  error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("metrics stream %s: %v", e.Path, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

// Stream is an append-only JSON Lines observation stream with a single
// producer. Records are appended in the order Append is called; the
// producer loop being single-threaded makes timestamps strictly
// increasing within one stream.
type Stream struct {
	path string
	f    *os.File
	enc  *json.Encoder
}

// OpenStream opens (or creates) the stream for appending. Existing
// records are never rewritten.
func OpenStream(path string) (*Stream, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &WriteFailure{Path: path, Err: err}
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &WriteFailure{Path: abs, Err: err}
	}
	return &Stream{path: abs, f: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the absolute stream path.
func (s *Stream) Path() string { return s.path }

// Append writes one observation as a single JSON line. A non-nil error
// is always a *WriteFailure.
func (s *Stream) Append(v any) error {
	if err := s.enc.Encode(v); err != nil {
		return &WriteFailure{Path: s.path, Err: err}
	}
	return nil
}

// Close flushes the stream to stable storage and releases the file.
func (s *Stream) Close() error {
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return &WriteFailure{Path: s.path, Err: err}
	}
	if err := s.f.Close(); err != nil {
		return &WriteFailure{Path: s.path, Err: err}
	}
	return nil
}
