package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gohar/domain/core"
	"gohar/domain/table"
	"gohar/internal/logging"
)

// DataReader reads delimited text and spreadsheet files into tables
type DataReader struct {
	config ReaderConfig
	logger *logging.Logger
}

// NewDataReader creates a reader with the given parsing configuration
func NewDataReader(config ReaderConfig, logger *logging.Logger) *DataReader {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &DataReader{config: config, logger: logger}
}

// SupportedExtensions lists the file types the reader dispatches on
func (r *DataReader) SupportedExtensions() []string {
	return []string{".csv", ".xlsx"}
}

// ReadTable loads one file into a table, dispatching on extension
func (r *DataReader) ReadTable(ctx context.Context, path string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, path)
	}

	start := time.Now()
	var t *table.Table
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		t, err = r.readCSV(path)
	case ".xlsx":
		t, err = r.readExcel(path)
	default:
		return nil, fmt.Errorf("%w: extension %q", core.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("[DataReader] %s read in %.2fms (%d rows, %d columns)",
		filepath.Base(path), float64(time.Since(start).Nanoseconds())/1e6, t.NumRows(), t.NumCols())
	return t, nil
}
