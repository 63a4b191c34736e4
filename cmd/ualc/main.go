// Package main provides the UAL compiler CLI.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ualang/ual"
	"github.com/ualang/ual/cache"
	"github.com/ualang/ual/codegen"
	"github.com/ualang/ual/lexer"
	"github.com/ualang/ual/parser"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "compile":
		compileCmd(args)
	case "check":
		checkCmd(args)
	case "version":
		fmt.Printf("ualc %s (targets: %s)\n", version, strings.Join(codegen.Targets(), ", "))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ualc - UAL agent compiler

Usage:
  ualc <command> [options] <file.ual|directory>...

Commands:
  compile   Compile UAL sources to a target language
  check     Check syntax without generating code
  version   Print version information
  help      Show this help message

Examples:
  ualc compile agent.ual
  ualc compile -t python -o build/ agents/
  ualc check agent.ual

Run 'ualc <command> --help' for more information on a command.`)
}

// compileCmd compiles one or more .ual files or directories.
func compileCmd(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	var (
		output      string
		target      string
		noOptimize  bool
		noTypeCheck bool
		noWarnings  bool
		checkOnly   bool
		verbose     bool
		debug       bool
		withRuntime bool
		noCache     bool
		configPath  string
	)
	fs.StringVar(&output, "o", "", "Output file or directory")
	fs.StringVar(&output, "output", "", "Output file or directory")
	fs.StringVar(&target, "t", "", "Target language: python, javascript, go, rust (default python)")
	fs.StringVar(&target, "target", "", "Target language: python, javascript, go, rust (default python)")
	fs.BoolVar(&noOptimize, "no-optimize", false, "Disable the optimization phase")
	fs.BoolVar(&noTypeCheck, "no-type-check", false, "Disable semantic analysis")
	fs.BoolVar(&noWarnings, "no-warnings", false, "Suppress warnings")
	fs.BoolVar(&checkOnly, "check", false, "Check syntax only, emit nothing")
	fs.BoolVar(&verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	fs.BoolVar(&debug, "debug", false, "Record token and AST dumps")
	fs.BoolVar(&withRuntime, "include-runtime", false, "Append a __main__ bootstrap to the output")
	fs.BoolVar(&noCache, "no-cache", false, "Bypass the build cache")
	fs.StringVar(&configPath, "config", ual.DefaultConfigPath(), "Project config file")

	fs.Usage = func() {
		fmt.Println(`Usage: ualc compile [options] <file.ual|directory>...

Compile UAL sources to a target language.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  ualc compile agent.ual
  ualc compile -t python -o build/ agents/`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input files specified")
		fs.Usage()
		os.Exit(1)
	}

	setupLogging(verbose)

	if checkOnly {
		runCheck(fs.Args())
		return
	}

	cfg, err := ual.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := ual.DefaultOptions()
	cfg.Apply(&opts)
	if target != "" {
		opts.Target = target
	}
	if noOptimize {
		opts.Optimize = false
	}
	if noTypeCheck {
		opts.TypeCheck = false
	}
	if noWarnings {
		opts.Warnings = false
	}
	opts.Debug = debug
	opts.IncludeRuntime = withRuntime
	if output == "" {
		output = cfg.Output
	}

	units, err := collectUnits(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags that change the output for the same source make cached
	// entries unusable; skip the cache for those runs.
	if withRuntime || noTypeCheck {
		noCache = true
	}

	store := openCache(cfg, noCache)
	if store != nil {
		defer store.Close()
	}

	if compileAll(units, opts, output, store) > 0 {
		os.Exit(1)
	}
}

// checkCmd verifies syntax without generating code.
func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Enable verbose output")

	fs.Usage = func() {
		fmt.Println(`Usage: ualc check <file.ual|directory>...

Check UAL sources for syntax errors without generating code.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input files specified")
		fs.Usage()
		os.Exit(1)
	}

	setupLogging(*verbose)
	runCheck(fs.Args())
}

func runCheck(inputs []string) {
	units, err := collectUnits(inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	failed := 0
	for _, u := range units {
		src, err := os.ReadFile(u.path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", u.path, err)
			failed++
			continue
		}
		if err := checkSyntax(string(src)); err != nil {
			fmt.Fprintf(os.Stderr, "%s:%v\n", u.path, err)
			failed++
			continue
		}
		slog.Debug("ualc: syntax ok", "file", u.path)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, len(units))
		os.Exit(1)
	}
	fmt.Printf("%d files OK\n", len(units))
}

func checkSyntax(src string) error {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return err
	}
	_, err = parser.Parse(tokens)
	return err
}

// unit is one source file scheduled for compilation. rel is its path
// relative to the input root, used to mirror directory layouts under
// the output directory.
type unit struct {
	path string
	rel  string
}

func collectUnits(inputs []string) ([]unit, error) {
	var units []unit
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			units = append(units, unit{path: input, rel: filepath.Base(input)})
			continue
		}
		root := input
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".ual" {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			units = append(units, unit{path: path, rel: rel})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no .ual files found")
	}
	return units, nil
}

// compileAll runs one pipeline per unit with no shared mutable state;
// only the cache store and failure count are synchronized. Returns
// the number of failed units.
func compileAll(units []unit, opts ual.Options, output string, store *cache.Store) int {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan unit)
	var (
		mu     sync.Mutex
		failed int
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := ual.New(opts)
			for u := range jobs {
				if err := compileUnit(c, u, opts, output, len(units) > 1, store); err != nil {
					fmt.Fprint(os.Stderr, err.Error())
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	for _, u := range units {
		jobs <- u
	}
	close(jobs)
	wg.Wait()
	return failed
}

func compileUnit(c *ual.Compiler, u unit, opts ual.Options, output string, multi bool, store *cache.Store) error {
	src, err := os.ReadFile(u.path)
	if err != nil {
		return fmt.Errorf("%s: %v\n", u.path, err)
	}

	dest := outputPath(u, output, opts.Target, multi)

	hash := cache.Hash(string(src))
	if store != nil {
		if cached, ok, err := store.Lookup(hash, opts.Target); err == nil && ok {
			slog.Debug("ualc: cache hit", "file", u.path)
			return writeOutput(dest, cached)
		} else if err != nil {
			slog.Warn("ualc: cache lookup failed", "error", err)
		}
	}

	result := c.Compile(string(src))
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", u.path, w)
	}
	if !result.Success {
		var b strings.Builder
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "%s:%s\n", u.path, e)
		}
		return fmt.Errorf("%s", b.String())
	}
	slog.Debug("ualc: compiled", "file", u.path, "id", result.Metadata["id"],
		"duration_ms", result.Metadata["duration_ms"])

	if store != nil {
		if err := store.Put(hash, opts.Target, result.Output); err != nil {
			slog.Warn("ualc: cache write failed", "error", err)
		}
	}
	return writeOutput(dest, result.Output)
}

// outputPath resolves where a unit's generated code goes. A file
// output path is honored only for single-file compiles; directory
// compiles mirror relative paths under the output directory.
func outputPath(u unit, output, target string, multi bool) string {
	ext := codegen.Extension(target)
	generated := strings.TrimSuffix(u.rel, ".ual") + ext
	switch {
	case output == "":
		return strings.TrimSuffix(u.path, ".ual") + ext
	case multi || strings.HasSuffix(output, string(os.PathSeparator)) || isDir(output):
		return filepath.Join(output, generated)
	default:
		return output
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%s: %v\n", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%s: %v\n", path, err)
	}
	return nil
}

func openCache(cfg *ual.Config, noCache bool) *cache.Store {
	if noCache || (cfg.Cache != nil && !*cfg.Cache) {
		return nil
	}
	path := cfg.CachePath
	if path == "" {
		if err := ual.EnsureHome(); err != nil {
			slog.Warn("ualc: cache disabled", "error", err)
			return nil
		}
		path = ual.DefaultCachePath()
	}
	store, err := cache.Open(path)
	if err != nil {
		slog.Warn("ualc: cache disabled", "error", err)
		return nil
	}
	return store
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
