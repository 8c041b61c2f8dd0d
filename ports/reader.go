package ports

import (
	"context"

	"gohar/domain/table"
)

// TableReaderPort ingests a delimited or spreadsheet file into a typed table.
// Missing-value sentinels are mapped at this edge so everything downstream
// sees explicit missing cells, never raw tokens.
type TableReaderPort interface {
	// ReadTable loads the file at path, dispatching on extension
	ReadTable(ctx context.Context, path string) (*table.Table, error)

	// SupportedExtensions lists the formats this reader accepts
	SupportedExtensions() []string
}
