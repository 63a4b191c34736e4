package ual

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validSource = `
agent Greeter {
    state count: integer = 0

    capability greet(name: string) -> string {
        count = count + 1
        return "hello " ++ name
    }
}
`

func TestCompileSuccess(t *testing.T) {
	result := New(DefaultOptions()).Compile(validSource)
	if !result.Success {
		t.Fatalf("Compile() failed: %v", result.Errors)
	}
	if !strings.Contains(result.Output, "class Greeter(Agent):") {
		t.Errorf("output missing class definition:\n%s", result.Output)
	}
	if result.AST == nil || result.AST.Name != "Greeter" {
		t.Errorf("AST = %+v, want agent Greeter", result.AST)
	}
	if result.Metadata["target"] != "python" {
		t.Errorf("metadata target = %v, want python", result.Metadata["target"])
	}
	id, ok := result.Metadata["id"].(string)
	if !ok || len(id) != 8 {
		t.Errorf("metadata id = %v, want 8-character id", result.Metadata["id"])
	}
	if _, ok := result.Metadata["duration_ms"]; !ok {
		t.Error("metadata missing duration_ms")
	}
}

func TestCompileLexError(t *testing.T) {
	result := New(DefaultOptions()).Compile("agent A {\n    state x: integer = #\n}\n")
	if result.Success {
		t.Fatal("Compile() succeeded on lexically invalid input")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "lexical error") {
		t.Errorf("errors = %v, want single lexical error", result.Errors)
	}
	if result.AST != nil {
		t.Error("AST present after lex failure")
	}
}

func TestCompileParseError(t *testing.T) {
	result := New(DefaultOptions()).Compile("agent A {\n    state x integer\n}\n")
	if result.Success {
		t.Fatal("Compile() succeeded on syntactically invalid input")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "parse error") {
		t.Errorf("errors = %v, want single parse error", result.Errors)
	}
}

func TestCompileSemanticErrorsSkipCodegen(t *testing.T) {
	src := `
agent A {
    state x: integer = 0

    @mystery
    capability f() -> void {
        x = "nope"
        y = 1
    }
}
`
	result := New(DefaultOptions()).Compile(src)
	if result.Success {
		t.Fatal("Compile() succeeded despite semantic errors")
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %v, want 2 accumulated semantic errors", result.Errors)
	}
	if result.Output != "" {
		t.Error("output generated despite semantic errors")
	}
	if len(result.Warnings) == 0 {
		t.Error("warnings dropped on semantic failure")
	}
	if result.AST == nil {
		t.Error("AST missing; parse succeeded and should be kept")
	}
}

func TestCompileNoTypeCheck(t *testing.T) {
	src := `
agent A {
    state x: integer = 0

    capability f() -> void {
        x = "nope"
    }
}
`
	opts := DefaultOptions()
	opts.TypeCheck = false
	result := New(opts).Compile(src)
	if !result.Success {
		t.Fatalf("Compile() with type checking disabled failed: %v", result.Errors)
	}
}

func TestCompileUnknownTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.Target = "cobol"
	result := New(opts).Compile(validSource)
	if result.Success {
		t.Fatal("Compile() succeeded with unregistered target")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "no code generator registered") {
		t.Errorf("errors = %v, want unknown-target error", result.Errors)
	}
}

func TestCompileWarningsSuppressed(t *testing.T) {
	src := `
agent A {
    @mystery
    capability f() -> void {
    }
}
`
	opts := DefaultOptions()
	opts.Warnings = false
	result := New(opts).Compile(src)
	if !result.Success {
		t.Fatalf("Compile() failed: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none with warnings disabled", result.Warnings)
	}
}

func TestCompileIncludeRuntime(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeRuntime = true
	result := New(opts).Compile(validSource)
	if !result.Success {
		t.Fatalf("Compile() failed: %v", result.Errors)
	}
	if !strings.Contains(result.Output, `if __name__ == "__main__":`) {
		t.Error("output missing __main__ bootstrap")
	}
	if !strings.Contains(result.Output, "agent = Greeter()") {
		t.Error("bootstrap does not instantiate the agent")
	}
}

func TestCompileDebugMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.Debug = true
	result := New(opts).Compile(validSource)
	if !result.Success {
		t.Fatalf("Compile() failed: %v", result.Errors)
	}
	tokens, ok := result.Metadata["tokens"].([]string)
	if !ok || len(tokens) == 0 {
		t.Error("metadata missing token dump")
	}
	dump, ok := result.Metadata["ast"].(string)
	if !ok || !strings.Contains(dump, "agent Greeter") {
		t.Errorf("metadata ast dump = %q, want agent outline", dump)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ual.yaml")
	content := `
target: javascript
output: build
type_check: false
warnings: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.Target != "javascript" || cfg.Output != "build" {
		t.Errorf("config = %+v, want javascript/build", cfg)
	}

	opts := DefaultOptions()
	cfg.Apply(&opts)
	if opts.Target != "javascript" {
		t.Errorf("Apply() target = %q, want javascript", opts.Target)
	}
	if opts.TypeCheck {
		t.Error("Apply() kept type checking on, config disables it")
	}
	if !opts.Optimize {
		t.Error("Apply() changed optimize, config leaves it unset")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() on missing file returned error: %v", err)
	}
	opts := DefaultOptions()
	cfg.Apply(&opts)
	if opts.Target != "python" || !opts.TypeCheck {
		t.Errorf("empty config changed defaults: %+v", opts)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ual.yaml")
	if err := os.WriteFile(path, []byte("target: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() accepted malformed YAML")
	}
}

func TestHomeOverride(t *testing.T) {
	t.Setenv("UAL_HOME", "/tmp/ual-test-home")
	if got := Home(); got != "/tmp/ual-test-home" {
		t.Errorf("Home() = %q, want env override", got)
	}
	if got := DefaultCachePath(); got != filepath.Join("/tmp/ual-test-home", "cache.db") {
		t.Errorf("DefaultCachePath() = %q", got)
	}
}
