// Package artifact writes a run's append-only event streams to disk
// with canonical serialization and emits a manifest of per-stream
// SHA-256 hashes so two runs over identical inputs are byte-for-byte
// reproducible.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"os"
	"path/filepath"
	"sync"
	"time"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// streamNames fixes the iteration and manifest order of every stream a
// writer maintains, independent of map iteration order.
var streamNames = []types.ArtifactEventType{
	types.ArtifactEventOrder,
	types.ArtifactEventFill,
	types.ArtifactEventPositionsSnapshot,
	types.ArtifactEventPnLSnapshot,
	types.ArtifactEventRisk,
	types.ArtifactEventLimitHit,
}

// Manifest records the per-stream running hash and event count at the
// point a run finishes; identical inputs must produce an identical
// manifest.
type Manifest struct {
	Streams map[types.ArtifactEventType]StreamSummary `json:"streams"`
}

// StreamSummary is one stream's entry in the manifest.
type StreamSummary struct {
	EventCount int    `json:"event_count"`
	SHA256     string `json:"sha256"`
}

// Writer maintains one append-only file per stream under a run
// directory and a running SHA-256 digest per stream. crypto/sha256 is
// used directly per the standard library, as running-digest hash
// chaining over a byte stream is not a job any library in the
// retrieval pack specializes in beyond what hash.Hash already gives.
type Writer struct {
	mu      sync.Mutex
	dir     string
	files   map[types.ArtifactEventType]*os.File
	hashers map[types.ArtifactEventType]hash.Hash
	counts  map[types.ArtifactEventType]int
	seq     uint64
}

// New creates (or truncates) one file per stream under dir.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, coreerrors.Wrap(coreerrors.ErrCodeArtifactWrite, "failed to create run directory", err)
	}

	w := &Writer{
		dir:     dir,
		files:   make(map[types.ArtifactEventType]*os.File),
		hashers: make(map[types.ArtifactEventType]hash.Hash),
		counts:  make(map[types.ArtifactEventType]int),
	}

	for _, name := range streamNames {
		file := string(name) + ".jsonl"
		switch name {
		case types.ArtifactEventOrder:
			file = "orders.jsonl"
		case types.ArtifactEventFill:
			file = "fills.jsonl"
		}

		f, err := os.Create(filepath.Join(dir, file))
		if err != nil {
			w.Close()
			return nil, coreerrors.Wrap(coreerrors.ErrCodeArtifactWrite, "failed to create stream file", err)
		}

		w.files[name] = f
		w.hashers[name] = sha256.New()
	}

	return w, nil
}

// Write appends event to its stream in canonical form: a stable field
// order (Go's json.Marshal preserves struct declaration order), RFC-3339
// UTC timestamps truncated to microsecond precision, and no
// environment-dependent fields. The event's running position in the
// stream is assigned here so replays and live runs share one sequence
// space.
func (w *Writer) Write(event types.ArtifactEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	event.SeqNo = w.seq
	event.Ts = canonicalTimestamp(event.Ts)

	file, ok := w.files[event.Type]
	if !ok {
		return coreerrors.Newf(coreerrors.ErrCodeArtifactWrite, "unknown artifact stream %s", event.Type)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeArtifactWrite, "failed to marshal artifact event", err)
	}

	line = append(line, '\n')

	if _, err := file.Write(line); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeArtifactWrite, "failed to write artifact event", err)
	}

	w.hashers[event.Type].Write(line)
	w.counts[event.Type]++

	return nil
}

// canonicalTimestamp truncates to microsecond precision in UTC so two
// runs recording the same logical instant through different clock
// resolutions serialize identically.
func canonicalTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Manifest returns the current per-stream hash summary without closing
// the writer.
func (w *Writer) Manifest() Manifest {
	w.mu.Lock()
	defer w.mu.Unlock()

	streams := make(map[types.ArtifactEventType]StreamSummary, len(streamNames))
	for _, name := range streamNames {
		streams[name] = StreamSummary{
			EventCount: w.counts[name],
			SHA256:     hex.EncodeToString(w.hashers[name].Sum(nil)),
		}
	}

	return Manifest{Streams: streams}
}

// WriteManifest serializes the current manifest to manifest.json in the
// run directory.
func (w *Writer) WriteManifest() error {
	manifest := w.Manifest()

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeManifestHash, "failed to marshal manifest", err)
	}

	if err := os.WriteFile(filepath.Join(w.dir, "manifest.json"), data, 0o644); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeManifestHash, "failed to write manifest", err)
	}

	return nil
}

// Close flushes and closes every stream file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error

	for _, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
