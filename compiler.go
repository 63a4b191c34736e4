package ual

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ualang/ual/ast"
	"github.com/ualang/ual/codegen"
	"github.com/ualang/ual/lexer"
	"github.com/ualang/ual/parser"
	"github.com/ualang/ual/sema"
)

// Options configures a Compiler. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// Target selects the code generation backend, e.g. "python".
	Target string

	// TypeCheck enables semantic analysis. When disabled, code is
	// generated straight from the parse tree.
	TypeCheck bool

	// Optimize enables the optimization phase. Currently a no-op
	// hook kept in the phase sequence.
	Optimize bool

	// Warnings surfaces analyzer warnings on the result.
	Warnings bool

	// IncludeRuntime appends a __main__ bootstrap to the generated
	// output so the emitted file is directly runnable.
	IncludeRuntime bool

	// Debug records token and AST dumps in Result.Metadata.
	Debug bool
}

// DefaultOptions returns the options used by ualc without flags:
// Python target, type checking, optimization, and warnings on.
func DefaultOptions() Options {
	return Options{
		Target:    "python",
		TypeCheck: true,
		Optimize:  true,
		Warnings:  true,
	}
}

// Compiler runs the phase pipeline over source units. It holds no
// per-compilation state and is safe for concurrent use.
type Compiler struct {
	opts Options
}

// New creates a Compiler with the given options.
func New(opts Options) *Compiler {
	if opts.Target == "" {
		opts.Target = "python"
	}
	return &Compiler{opts: opts}
}

// Compile runs the full pipeline over one source unit. It never
// panics: any internal failure is recovered and reported as a generic
// compilation error on the result.
func (c *Compiler) Compile(source string) (res *Result) {
	start := time.Now()
	res = &Result{
		Metadata: map[string]any{
			"id":     uuid.New().String()[:8],
			"target": c.opts.Target,
		},
	}
	defer func() {
		res.Metadata["duration_ms"] = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			res.Success = false
			res.Output = ""
			res.Errors = append(res.Errors, fmt.Sprintf("internal compiler error: %v", r))
		}
	}()

	tokens, err := lexer.Tokenize(source)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	if c.opts.Debug {
		dump := make([]string, len(tokens))
		for i, t := range tokens {
			dump[i] = t.String()
		}
		res.Metadata["tokens"] = dump
	}

	agent, err := parser.Parse(tokens)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.AST = agent
	if c.opts.Debug {
		res.Metadata["ast"] = dumpAgent(agent)
	}

	if c.opts.TypeCheck {
		analysis := sema.Analyze(agent)
		if c.opts.Warnings {
			res.Warnings = append(res.Warnings, analysis.Warnings...)
		}
		if analysis.HasErrors() {
			for _, e := range analysis.Errors {
				res.Errors = append(res.Errors, e.Error())
			}
			return res
		}
	}

	if c.opts.Optimize {
		agent = c.optimize(agent)
	}

	gen, err := codegen.Lookup(c.opts.Target)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	output, err := gen.Generate(agent)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("code generation failed: %v", err))
		return res
	}

	if c.opts.IncludeRuntime {
		output += runtimeBootstrap(c.opts.Target, agent)
	}

	res.Success = true
	res.Output = output
	return res
}

// optimize is the optimization phase. It currently performs no
// transformations; the hook keeps the phase sequence stable so
// passes can be added without touching callers.
func (c *Compiler) optimize(agent *ast.Agent) *ast.Agent {
	return agent
}

// runtimeBootstrap returns the entry-point stub appended when
// IncludeRuntime is set. Only the Python backend has one.
func runtimeBootstrap(target string, agent *ast.Agent) string {
	if target != "python" {
		return ""
	}
	return fmt.Sprintf("\n\nif __name__ == \"__main__\":\n    agent = %s()\n    agent.run()\n", agent.Name)
}
