// Package ual compiles UAL (Unified Agent Language) source into target
// language code.
//
// UAL is a small declarative language for defining AI agents: their
// state, resources, capabilities, and event-driven behaviors. This
// package is the compiler driver; the pipeline phases live in the
// lexer, parser, sema, and codegen packages.
//
// # Quick Start
//
// Compile a source string to Python:
//
//	c := ual.New(ual.DefaultOptions())
//	result := c.Compile(src)
//	if !result.Success {
//	    for _, e := range result.Errors {
//	        fmt.Println(e)
//	    }
//	    return
//	}
//	os.WriteFile("agent.py", []byte(result.Output), 0o644)
//
// # Pipeline
//
// Compilation runs a fixed phase sequence over each source unit:
//
//	Lex -> Parse -> SemanticAnalysis -> Optimize -> CodeGen -> RuntimeInclusion
//
// Lexer and parser errors are fatal and abort the run with a single
// error. Semantic errors accumulate; when any are present code
// generation is skipped but warnings are still surfaced. Warnings
// never block compilation.
//
// # Components
//
//   - lexer: indentation-aware scanner producing the token stream
//   - parser: recursive-descent parser producing the agent AST
//   - sema: scope resolution and type checking
//   - codegen: per-target backends behind a registry (Python is the
//     reference backend)
//   - cache: optional SQLite-backed incremental build cache used by
//     the ualc command
//
// # Thread Safety
//
// A Compiler is stateless between calls and safe for concurrent use;
// each Compile call owns all of its intermediate state. Compiling many
// files in parallel requires no synchronization beyond collecting the
// results.
package ual
