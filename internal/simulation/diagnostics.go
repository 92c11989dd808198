package simulation

import "fmt"

// Warning is a non-fatal finding from finalize.
type Warning struct {
	Module  string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Module, w.Message)
}

// Report collects the structured warnings emitted while a simulator
// finalizes. It replaces logging inside the engine: callers decide what
// to surface and where.
type Report struct {
	Warnings []Warning
}

// Warnf records a formatted warning attributed to a module.
func (r *Report) Warnf(module, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Module:  module,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasWarnings reports whether anything was recorded.
func (r *Report) HasWarnings() bool { return len(r.Warnings) > 0 }
