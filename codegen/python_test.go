package codegen

import (
	"strings"
	"testing"

	"github.com/ualang/ual/lexer"
	"github.com/ualang/ual/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() returned error: %v", err)
	}
	agent, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	out, err := NewPython().Generate(agent)
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	return out
}

func wantLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(out, line) {
			t.Errorf("output missing %q\n---\n%s", line, out)
		}
	}
}

func TestGenerateClassSkeleton(t *testing.T) {
	src := `
agent Greeter {
    version: "2.0"

    capability greet(name: string) -> string {
        return "hello " ++ name
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		`"""Agent Greeter generated from UAL source. Do not edit."""`,
		"from ual_runtime import Agent, capability, behavior",
		"class Greeter(Agent):",
		`VERSION = "2.0"`,
		"def __init__(self, agent_id=None):",
		"super().__init__(agent_id)",
		"@capability",
		"def greet(self, name: str) -> str:",
		`return "hello " + name`,
	)
}

func TestGenerateStateInitializers(t *testing.T) {
	src := `
agent A {
    state count: integer = 0
    state name: string
    state items: array<string>
    state lookup: map<string, integer>
    state ratio: float
    state active: boolean
    state extra: optional<string>
}
`
	out := generate(t, src)
	wantLines(t, out,
		"self._count = 0",
		`self._name = ""`,
		"self._items = []",
		"self._lookup = {}",
		"self._ratio = 0.0",
		"self._active = False",
		"self._extra = None",
	)
	if strings.Contains(out, "self._count = None") {
		t.Error("integer state with initializer 0 emitted None")
	}
}

func TestGenerateProperties(t *testing.T) {
	src := `
agent A {
    state count: integer = 0
    private state secret: string = ""
    persistent state log: array<string>
}
`
	out := generate(t, src)
	wantLines(t, out,
		"@property",
		"def count(self) -> int:",
		"return self._count",
		"@count.setter",
		"def count(self, value: int) -> None:",
		"self._count = value",
		`self._mark_persistent("log")`,
		"@log.setter",
		`self._persist_state("log", value)`,
	)
	if strings.Contains(out, "@secret.setter") {
		t.Error("private state got a setter")
	}
}

func TestGenerateResources(t *testing.T) {
	src := `
agent A {
    resource db: database {
        host: "localhost",
        port: 5432
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		`self._db = self._create_resource("db", "database", {"host": "localhost", "port": 5432})`,
	)
}

func TestGenerateAnnotations(t *testing.T) {
	src := `
agent A {
    @timeout(30)
    @retry(3)
    @cache(60)
    capability f() -> void {
    }

    @custom("x", 1)
    capability g() -> void {
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		"from ual_runtime import Agent, capability, behavior, timeout, retry, cache",
		"@timeout(seconds=30)",
		"@retry(max_attempts=3)",
		"@cache(ttl=60)",
		`@custom("x", 1)`,
	)
}

func TestGenerateBehavior(t *testing.T) {
	src := `
agent A {
    @priority(5)
    behavior on_start() {
        emit("started")
    }

    behavior when_idle() {
        emit("idle", 1)
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		`@behavior("on_start", priority=5)`,
		"def on_start(self) -> None:",
		`self.emit_event("started", None)`,
		`@behavior("when_idle")`,
		`self.emit_event("idle", 1)`,
	)
	if strings.Contains(out, "@priority") {
		t.Error("@priority leaked as its own decorator")
	}
}

func TestGenerateAsyncCapability(t *testing.T) {
	src := `
agent A {
    async capability fetch(url: string) -> string {
        return url
    }

    async capability run() -> void {
        await fetch("u")
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		"async def fetch(self, url: str) -> str:",
		`await self.fetch("u")`,
	)
}

func TestGenerateStateReferences(t *testing.T) {
	src := `
agent A {
    state count: integer = 0

    capability inc(count: integer) -> integer {
        return count
    }

    capability bump() -> void {
        count = count + 1
    }
}
`
	out := generate(t, src)
	wantLines(t, out, "self._count = self._count + 1")
	// The parameter shadows the state inside inc.
	if !strings.Contains(out, "def inc(self, count: int) -> int:\n        return count") {
		t.Errorf("shadowed parameter rewritten to self:\n%s", out)
	}
}

func TestGenerateControlFlow(t *testing.T) {
	src := `
agent A {
    capability f(xs: array<integer>, flag: boolean) -> integer {
        var total = 0
        for (x in xs) {
            total += x
        }
        while (flag) {
            total -= 1
        }
        if (total > 10) {
            return total
        } else if (total > 0) {
            return 1
        } else {
            return 0
        }
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		"total = 0",
		"for x in xs:",
		"total += x",
		"while flag:",
		"total -= 1",
		"if total > 10:",
		"elif total > 0:",
		"else:",
	)
}

func TestGenerateTryCatch(t *testing.T) {
	src := `
agent A {
    capability f() -> void {
        try {
            print("x")
        } catch (ValueError) {
            print(error)
        } catch {
            print(error)
        } finally {
            print("done")
        }
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		"try:",
		"except ValueError as error:",
		"except Exception as error:",
		"finally:",
	)
}

func TestGenerateTemplateString(t *testing.T) {
	src := "agent A {\n    capability f(name: string) -> string {\n        return `hi ${name}!`\n    }\n}\n"
	out := generate(t, src)
	wantLines(t, out, `return f"hi {name}!"`)
}

func TestGenerateTemplateStateReference(t *testing.T) {
	src := "agent A {\n    state count: integer = 0\n\n    capability report() -> string {\n        return `count is ${count}`\n    }\n\n    capability echo(count: integer) -> string {\n        return `got ${count}`\n    }\n}\n"
	out := generate(t, src)
	// The state reference resolves to its backing field; the shadowing
	// parameter stays bare.
	wantLines(t, out,
		`return f"count is {self._count}"`,
		`return f"got {count}"`,
	)
}

func TestGenerateTemplateExpressionInterpolation(t *testing.T) {
	src := "agent A {\n    capability f(a: integer, b: integer) -> string {\n        return `sum: ${a + b}`\n    }\n}\n"
	out := generate(t, src)
	wantLines(t, out, `return f"sum: {a + b}"`)
}

func TestGenerateLambda(t *testing.T) {
	src := `
agent A {
    capability f() -> void {
        let double = x -> x * 2
    }
}
`
	out := generate(t, src)
	wantLines(t, out, "double = lambda x: x * 2")
}

func TestGenerateLiterals(t *testing.T) {
	src := `
agent A {
    capability f() -> void {
        let a = true
        let b = false
        let c = none
        let d = [1, 2]
        let e = {k: 1}
        let g = 2.5
    }
}
`
	out := generate(t, src)
	wantLines(t, out,
		"a = True",
		"b = False",
		"c = None",
		"d = [1, 2]",
		`e = {"k": 1}`,
		"g = 2.5",
	)
}

func TestGeneratePrecedenceParentheses(t *testing.T) {
	src := `
agent A {
    capability f(a: integer, b: integer) -> integer {
        return (a + b) * 2
    }
}
`
	out := generate(t, src)
	wantLines(t, out, "return (a + b) * 2")
}

func TestRegistry(t *testing.T) {
	g, err := Lookup("python")
	if err != nil {
		t.Fatalf("Lookup(python) returned error: %v", err)
	}
	if g.Target() != "python" {
		t.Errorf("Target() = %q, want python", g.Target())
	}

	if _, err := Lookup("cobol"); err == nil {
		t.Error("Lookup(cobol) succeeded, want error")
	}

	if got := Extension("python"); got != ".py" {
		t.Errorf("Extension(python) = %q, want .py", got)
	}
	if got := Extension("rust"); got != ".rs" {
		t.Errorf("Extension(rust) = %q, want .rs", got)
	}
	if got := Extension("brainfuck"); got != ".out" {
		t.Errorf("Extension(unknown) = %q, want .out", got)
	}
}
