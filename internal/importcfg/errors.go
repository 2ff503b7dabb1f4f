package importcfg

import (
	"fmt"
	"strings"
)

// ConfigurationError is a malformed or structurally incomplete mapping
// document. It is fatal and raised before any network activity.
type ConfigurationError struct {
	Message     string
	Diagnostics []Diagnostic
	Err         error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error: ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n  - ")
		b.WriteString(d.String())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ColumnMismatchError reports configured columns missing from a sheet.
type ColumnMismatchError struct {
	Missing     []string
	Diagnostics []Diagnostic
}

func (e *ColumnMismatchError) Error() string {
	return fmt.Sprintf("column mismatch: %d required column(s) missing from the sheet: %s",
		len(e.Missing), strings.Join(quoteAll(e.Missing), ", "))
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
