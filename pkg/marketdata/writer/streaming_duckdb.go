package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// StreamingDuckDBWriter implements BarWriter for streaming data with
// append/upsert support. It writes closed bars to a parquet file that
// persists across restarts, named stream_data_{provider}_{interval}.parquet.
type StreamingDuckDBWriter struct {
	db         *sql.DB
	outputPath string
	mu         sync.Mutex
}

// NewStreamingDuckDBWriter creates a new StreamingDuckDBWriter.
func NewStreamingDuckDBWriter(dataDir, providerName, interval string) *StreamingDuckDBWriter {
	filename := fmt.Sprintf("stream_data_%s_%s.parquet", providerName, interval)
	outputPath := filepath.Join(dataDir, filename)

	return &StreamingDuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize opens a DuckDB connection and loads existing data from
// the parquet file if it exists.
func (w *StreamingDuckDBWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to create data directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to open DuckDB connection", err)
	}

	w.db = db

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			id TEXT,
			ts TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, ts)
		)
	`)
	if err != nil {
		w.db.Close()
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to create bars table", err)
	}

	if _, statErr := os.Stat(w.outputPath); statErr == nil {
		_, _ = w.db.Exec(fmt.Sprintf(`
			INSERT INTO bars
			SELECT * FROM read_parquet('%s')
			ON CONFLICT (symbol, ts) DO NOTHING
		`, w.outputPath))
	}

	return nil
}

// Write upserts a single closed bar and re-exports the batch to
// parquet so the file on disk always reflects the latest state.
func (w *StreamingDuckDBWriter) Write(bar types.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return coreerrors.New(coreerrors.ErrCodeStateStoreIO, "writer not initialized")
	}

	open, _ := bar.Open.Float64()
	high, _ := bar.High.Float64()
	low, _ := bar.Low.Float64()
	closePrice, _ := bar.Close.Float64()
	volume, _ := bar.Volume.Float64()

	_, err := w.db.Exec(`
		INSERT INTO bars (id, ts, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, ts) DO UPDATE SET
			id = excluded.id,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`, uuid.NewString(), bar.Ts, bar.Symbol, open, high, low, closePrice, volume)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to upsert bar", err)
	}

	if err := w.exportToParquet(); err != nil {
		return err
	}

	return nil
}

// Flush forces an export to parquet.
func (w *StreamingDuckDBWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return coreerrors.New(coreerrors.ErrCodeStateStoreIO, "writer not initialized")
	}

	return w.exportToParquet()
}

// Finalize exports the data and returns the output path.
func (w *StreamingDuckDBWriter) Finalize() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return "", coreerrors.New(coreerrors.ErrCodeStateStoreIO, "writer not initialized")
	}

	if err := w.exportToParquet(); err != nil {
		return "", err
	}

	return w.outputPath, nil
}

// GetOutputPath returns the parquet file path.
func (w *StreamingDuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

// Close releases database resources.
func (w *StreamingDuckDBWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to close database", err)
		}

		w.db = nil
	}

	return nil
}

func (w *StreamingDuckDBWriter) exportToParquet() error {
	_, err := w.db.Exec(fmt.Sprintf(`
		COPY (SELECT * FROM bars ORDER BY ts ASC)
		TO '%s' (FORMAT PARQUET)
	`, w.outputPath))
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to export bars to parquet", err)
	}

	return nil
}

var _ BarWriter = (*StreamingDuckDBWriter)(nil)
