package excel

import (
	"dqengine/adapters/coercer"
)

// ReaderConfig holds configuration for spreadsheet and CSV sources
type ReaderConfig struct {
	Sheet          string                 `json:"sheet"` // empty reads the first sheet
	Comma          rune                   `json:"comma"`
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
}

// DefaultReaderConfig returns sensible defaults for file ingestion
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Comma:          ',',
		CoercionConfig: coercer.DefaultCoercionConfig(),
	}
}
