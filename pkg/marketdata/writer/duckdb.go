package writer

import (
	"database/sql"
	"log"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// DuckDBWriter buffers bars in a single DuckDB transaction, exporting
// the whole batch to one Parquet file on Finalize.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

// NewDuckDBWriter creates a new DuckDBWriter. outputPath is the
// Parquet file Finalize writes to.
func NewDuckDBWriter(outputPath string) BarWriter {
	return &DuckDBWriter{
		outputPath: outputPath,
	}
}

// Initialize opens an in-memory DuckDB database, creates the bars
// table, and prepares the insert statement inside one transaction.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to open DuckDB connection", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			id TEXT,
			ts TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to create bars table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO bars (id, ts, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to prepare insert statement", err)
	}

	return nil
}

// Write persists a single bar using the prepared statement within the
// open transaction.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return coreerrors.New(coreerrors.ErrCodeStateStoreIO, "writer not initialized")
	}

	open, _ := bar.Open.Float64()
	high, _ := bar.High.Float64()
	low, _ := bar.Low.Float64()
	closePrice, _ := bar.Close.Float64()
	volume, _ := bar.Volume.Float64()

	_, err := w.stmt.Exec(uuid.NewString(), bar.Ts, bar.Symbol, open, high, low, closePrice, volume)
	if err != nil {
		return coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to insert bar", err)
	}

	return nil
}

// Finalize commits the transaction and exports the batch to Parquet.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", coreerrors.New(coreerrors.ErrCodeStateStoreIO, "writer not initialized or already finalized")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to commit transaction", err)
	}

	w.tx = nil

	_, err = w.db.Exec(`COPY bars TO '` + w.outputPath + `' (FORMAT PARQUET)`)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to export bars to parquet", err)
	}

	log.Printf("wrote bars to %s", w.outputPath)

	return w.outputPath, nil
}

// Close releases the writer's statement, rolls back any open
// transaction, and closes the database connection.
func (w *DuckDBWriter) Close() error {
	var firstErr error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil && firstErr == nil {
			firstErr = coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to close statement", err)
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			log.Printf("warning: failed to rollback transaction during close: %v", err)
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil && firstErr == nil {
			firstErr = coreerrors.Wrap(coreerrors.ErrCodeStateStoreIO, "failed to close db connection", err)
		}

		w.db = nil
	}

	return firstErr
}

// GetOutputPath returns the configured Parquet output path.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}
