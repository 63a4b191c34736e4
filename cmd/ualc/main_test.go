package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		u      unit
		output string
		target string
		multi  bool
		want   string
	}{
		{
			"default alongside input",
			unit{path: "agents/a.ual", rel: "a.ual"},
			"", "python", false,
			"agents/a.py",
		},
		{
			"explicit file for single input",
			unit{path: "a.ual", rel: "a.ual"},
			"out.py", "python", false,
			"out.py",
		},
		{
			"directory compile mirrors relative path",
			unit{path: "src/sub/a.ual", rel: "sub/a.ual"},
			"build", "python", true,
			filepath.Join("build", "sub", "a.py"),
		},
		{
			"target extension",
			unit{path: "a.ual", rel: "a.ual"},
			"", "rust", false,
			"a.rs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.u, tt.output, tt.target, tt.multi); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectUnits(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.ual", "b.txt", "sub/c.ual"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("agent X {\n}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	units, err := collectUnits([]string{dir})
	if err != nil {
		t.Fatalf("collectUnits() returned error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("collectUnits() found %d units, want 2 (.ual only)", len(units))
	}
	for _, u := range units {
		if filepath.Ext(u.path) != ".ual" {
			t.Errorf("collected non-.ual file %q", u.path)
		}
	}
}

func TestCollectUnitsEmpty(t *testing.T) {
	if _, err := collectUnits([]string{t.TempDir()}); err == nil {
		t.Error("collectUnits() on an empty directory succeeded, want error")
	}
}

func TestCheckSyntax(t *testing.T) {
	if err := checkSyntax("agent A {\n}\n"); err != nil {
		t.Errorf("checkSyntax() on valid source = %v", err)
	}
	if err := checkSyntax("agent A {\n"); err == nil {
		t.Error("checkSyntax() accepted an unterminated agent body")
	}
}
