package ual

import "github.com/ualang/ual/ast"

// Result is the outcome of compiling one source unit. It is populated
// by the phases as they run and returned to the caller; callers must
// treat it as read-only.
type Result struct {
	// Success is true only when every enabled phase completed and no
	// errors were recorded.
	Success bool

	// Output is the generated target source. Empty unless Success.
	Output string

	// Errors holds fatal diagnostics: at most one lexer or parser
	// error, or the full accumulated semantic error list.
	Errors []string

	// Warnings never block compilation and may be present on both
	// successful and failed runs.
	Warnings []string

	// AST is the parsed agent, present whenever parsing succeeded
	// even if a later phase failed.
	AST *ast.Agent

	// Metadata carries the compilation id, target, timing, and (with
	// Options.Debug) token and AST dumps.
	Metadata map[string]any
}

// HasErrors reports whether any fatal diagnostic was recorded.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }
