package ingest

// ReaderConfig controls parsing of the two dataset files
type ReaderConfig struct {
	Delimiter     rune
	SheetName     string
	MissingTokens []string
}

// DefaultReaderConfig matches the course data export: comma-delimited, with
// empty cells, literal NA tokens, and spreadsheet division errors all read
// as missing.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Delimiter:     ',',
		SheetName:     "Sheet1",
		MissingTokens: []string{"", "NA", "#DIV/0!"},
	}
}
