package parser

import (
	"strings"
	"testing"

	"github.com/ualang/ual/ast"
	"github.com/ualang/ual/lexer"
	"github.com/ualang/ual/token"
)

func parseSource(t *testing.T, src string) *ast.Agent {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() returned error: %v", err)
	}
	agent, err := Parse(tokens)
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	return agent
}

func parseError(t *testing.T, src string) error {
	t.Helper()
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize() returned error: %v", err)
	}
	agent, err := Parse(tokens)
	if err == nil {
		t.Fatalf("Parse() succeeded, want error (agent %v)", agent.Name)
	}
	if agent != nil {
		t.Fatalf("Parse() returned both an agent and an error")
	}
	return err
}

func TestParseFullAgent(t *testing.T) {
	src := `
agent Monitor {
    version: "1.2.0"
    import utils.time as clock

    state count: integer = 0
    private persistent state last_error: optional<string>

    resource db: database {
        host: "localhost",
        port: 5432
    }

    @timeout(30)
    capability inc(step: integer = 1) -> integer {
        count = count + step
        return count
    }

    async capability fetch(url: string) -> string

    @priority(5)
    behavior on_start() {
        emit("started", count)
    }
}
`
	agent := parseSource(t, src)

	if agent.Name != "Monitor" {
		t.Errorf("Agent.Name = %q, want %q", agent.Name, "Monitor")
	}
	if agent.Version != "1.2.0" {
		t.Errorf("Agent.Version = %q, want %q", agent.Version, "1.2.0")
	}

	if len(agent.Imports) != 1 {
		t.Fatalf("len(Imports) = %d, want 1", len(agent.Imports))
	}
	if agent.Imports[0].Path != "utils.time" || agent.Imports[0].Alias != "clock" {
		t.Errorf("Import = %q as %q, want utils.time as clock",
			agent.Imports[0].Path, agent.Imports[0].Alias)
	}

	if len(agent.States) != 2 {
		t.Fatalf("len(States) = %d, want 2", len(agent.States))
	}
	count := agent.States[0]
	if count.Name != "count" || count.Type.Base != ast.TypeInteger || count.InitialValue == nil {
		t.Errorf("state count = %+v, want integer with initializer", count)
	}
	lastErr := agent.States[1]
	if lastErr.Visibility != ast.Private || !lastErr.IsPersistent {
		t.Errorf("state last_error visibility/persistence = %v/%v, want private persistent",
			lastErr.Visibility, lastErr.IsPersistent)
	}
	if lastErr.Type.Base != ast.TypeOptional || lastErr.Type.TypeParams[0].Base != ast.TypeString {
		t.Errorf("state last_error type = %s, want optional<string>", lastErr.Type)
	}

	if len(agent.Resources) != 1 {
		t.Fatalf("len(Resources) = %d, want 1", len(agent.Resources))
	}
	db := agent.Resources[0]
	if db.Name != "db" || db.ResourceType != "database" {
		t.Errorf("resource = %s: %s, want db: database", db.Name, db.ResourceType)
	}
	if len(db.ConfigKeys) != 2 || db.ConfigKeys[0] != "host" || db.ConfigKeys[1] != "port" {
		t.Errorf("resource config keys = %v, want [host port]", db.ConfigKeys)
	}

	if len(agent.Capabilities) != 2 {
		t.Fatalf("len(Capabilities) = %d, want 2", len(agent.Capabilities))
	}
	inc := agent.Capabilities[0]
	if inc.Name != "inc" || inc.ReturnType.Base != ast.TypeInteger {
		t.Errorf("capability inc signature wrong: %+v", inc)
	}
	if len(inc.Parameters) != 1 || inc.Parameters[0].Default == nil {
		t.Errorf("capability inc parameters = %+v, want one with default", inc.Parameters)
	}
	if len(inc.Annotations) != 1 || inc.Annotations[0].Name != "timeout" {
		t.Errorf("capability inc annotations = %+v, want @timeout", inc.Annotations)
	}
	fetch := agent.Capabilities[1]
	if !fetch.IsAsync || fetch.Body != nil {
		t.Errorf("capability fetch async/body = %v/%v, want async with no body",
			fetch.IsAsync, fetch.Body)
	}

	if len(agent.Behaviors) != 1 {
		t.Fatalf("len(Behaviors) = %d, want 1", len(agent.Behaviors))
	}
	beh := agent.Behaviors[0]
	if beh.Trigger != "on_start" || beh.Priority != 5 {
		t.Errorf("behavior trigger/priority = %q/%d, want on_start/5", beh.Trigger, beh.Priority)
	}
}

func TestParseMetadata(t *testing.T) {
	src := `
agent A {
    metadata {
        author: "team",
        license: "MIT"
    }
}
`
	agent := parseSource(t, src)
	if len(agent.Metadata) != 2 {
		t.Fatalf("len(Metadata) = %d, want 2", len(agent.Metadata))
	}
	if _, ok := agent.Metadata["author"]; !ok {
		t.Error("Metadata missing key author")
	}
}

func TestParseImplicitVoidReturn(t *testing.T) {
	agent := parseSource(t, "agent A {\n    capability f() {\n    }\n}\n")
	if got := agent.Capabilities[0].ReturnType.Base; got != ast.TypeVoid {
		t.Errorf("return type = %v, want void", got)
	}
}

func TestParseStatements(t *testing.T) {
	src := `
agent A {
    capability run(items: array<integer>) -> integer {
        let total: integer = 0
        var i = 0
        for (item in items) {
            total = total + item
        }
        while (i < 10) {
            i += 1
        }
        if (total > 100) {
            emit("big")
        } else if (total > 10) {
            emit("medium")
        } else {
            emit("small")
        }
        try {
            total -= 1
        } catch (ValueError) {
            return 0
        } catch {
            return -1
        } finally {
            print(total)
        }
        return total
    }
}
`
	agent := parseSource(t, src)
	stmts := agent.Capabilities[0].Body.Statements
	if len(stmts) != 7 {
		t.Fatalf("len(Statements) = %d, want 7", len(stmts))
	}

	let, ok := stmts[0].(*ast.Assignment)
	if !ok || !let.IsDeclaration || let.Mutable {
		t.Errorf("statement 0 = %#v, want immutable declaration", stmts[0])
	}
	decl, ok := stmts[1].(*ast.Assignment)
	if !ok || !decl.IsDeclaration || !decl.Mutable {
		t.Errorf("statement 1 = %#v, want mutable declaration", stmts[1])
	}
	if _, ok := stmts[2].(*ast.ForLoop); !ok {
		t.Errorf("statement 2 = %T, want *ast.ForLoop", stmts[2])
	}
	if _, ok := stmts[3].(*ast.WhileLoop); !ok {
		t.Errorf("statement 3 = %T, want *ast.WhileLoop", stmts[3])
	}

	ifStmt, ok := stmts[4].(*ast.IfStatement)
	if !ok {
		t.Fatalf("statement 4 = %T, want *ast.IfStatement", stmts[4])
	}
	elseIf, ok := ifStmt.Else.(*ast.IfStatement)
	if !ok {
		t.Fatalf("else branch = %T, want chained *ast.IfStatement", ifStmt.Else)
	}
	if _, ok := elseIf.Else.(*ast.Block); !ok {
		t.Errorf("final else = %T, want *ast.Block", elseIf.Else)
	}

	try, ok := stmts[5].(*ast.TryCatch)
	if !ok {
		t.Fatalf("statement 5 = %T, want *ast.TryCatch", stmts[5])
	}
	if len(try.Catches) != 2 {
		t.Fatalf("len(Catches) = %d, want 2", len(try.Catches))
	}
	if try.Catches[0].ErrorType != "ValueError" || try.Catches[1].ErrorType != "" {
		t.Errorf("catch error types = %q, %q; want ValueError and untyped",
			try.Catches[0].ErrorType, try.Catches[1].ErrorType)
	}
	if try.Finally == nil {
		t.Error("Finally block missing")
	}

	if _, ok := stmts[6].(*ast.Return); !ok {
		t.Errorf("statement 6 = %T, want *ast.Return", stmts[6])
	}
}

func TestParsePrecedence(t *testing.T) {
	agent := parseSource(t, "agent A {\n    capability f() -> integer {\n        return 1 + 2 * 3\n    }\n}\n")
	ret := agent.Capabilities[0].Body.Statements[0].(*ast.Return)
	add, ok := ret.Value.(*ast.BinaryOp)
	if !ok || add.Op != "+" {
		t.Fatalf("root = %#v, want + at the root", ret.Value)
	}
	mul, ok := add.Right.(*ast.BinaryOp)
	if !ok || mul.Op != "*" {
		t.Errorf("right operand = %#v, want * below +", add.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	agent := parseSource(t, "agent A {\n    capability f() -> integer {\n        return 2 ** 3 ** 2\n    }\n}\n")
	ret := agent.Capabilities[0].Body.Statements[0].(*ast.Return)
	top := ret.Value.(*ast.BinaryOp)
	if top.Op != "**" {
		t.Fatalf("root op = %q, want **", top.Op)
	}
	if _, ok := top.Right.(*ast.BinaryOp); !ok {
		t.Errorf("** is left-associative, want right")
	}
}

func TestParseLogicalKeywordsAndSymbols(t *testing.T) {
	for _, cond := range []string{"a and b or not c", "a && b || !c"} {
		src := "agent A {\n    capability f(a: boolean, b: boolean, c: boolean) -> void {\n" +
			"        if (" + cond + ") {\n        }\n    }\n}\n"
		agent := parseSource(t, src)
		ifStmt := agent.Capabilities[0].Body.Statements[0].(*ast.IfStatement)
		or, ok := ifStmt.Condition.(*ast.BinaryOp)
		if !ok || or.Op != "or" {
			t.Fatalf("cond %q: root = %#v, want or", cond, ifStmt.Condition)
		}
		not, ok := or.Right.(*ast.UnaryOp)
		if !ok || not.Op != "not" {
			t.Errorf("cond %q: right = %#v, want not", cond, or.Right)
		}
	}
}

func TestParseLambdas(t *testing.T) {
	src := `
agent A {
    capability f() -> void {
        let double = x -> x * 2
        let add = (a: integer, b: integer) -> a + b
        let run = (n: integer) -> {
            return n + 1
        }
    }
}
`
	agent := parseSource(t, src)
	stmts := agent.Capabilities[0].Body.Statements

	double := stmts[0].(*ast.Assignment).Value.(*ast.Lambda)
	if len(double.Parameters) != 1 || double.Expr == nil {
		t.Errorf("bare lambda = %+v, want one parameter and expression body", double)
	}
	add := stmts[1].(*ast.Assignment).Value.(*ast.Lambda)
	if len(add.Parameters) != 2 || add.Parameters[0].Type.Base != ast.TypeInteger {
		t.Errorf("typed lambda = %+v, want two integer parameters", add)
	}
	run := stmts[2].(*ast.Assignment).Value.(*ast.Lambda)
	if run.Body == nil || run.Expr != nil {
		t.Errorf("block lambda = %+v, want block body", run)
	}
}

func TestParseCallArguments(t *testing.T) {
	src := `
agent A {
    capability g(a: integer, b: integer = 2) -> void {
    }
    capability f() -> void {
        g(1, b: 2)
    }
}
`
	agent := parseSource(t, src)
	call := agent.Capabilities[1].Body.Statements[0].(*ast.Assignment).Value.(*ast.FunctionCall)
	if len(call.Args) != 1 || len(call.NamedArgs) != 1 {
		t.Fatalf("call args = %d positional, %d named; want 1/1", len(call.Args), len(call.NamedArgs))
	}
	if call.NamedArgs[0].Name != "b" {
		t.Errorf("named argument = %q, want b", call.NamedArgs[0].Name)
	}
}

func TestParsePositionalAfterNamed(t *testing.T) {
	err := parseError(t, "agent A {\n    capability f() -> void {\n        g(b: 2, 1)\n    }\n}\n")
	if !strings.Contains(err.Error(), "positional argument after named argument") {
		t.Errorf("error = %q, want positional-after-named message", err)
	}
}

func TestParseTemplateLiteral(t *testing.T) {
	src := "agent A {\n    capability f(name: string) -> string {\n        return `hi ${name}`\n    }\n}\n"
	agent := parseSource(t, src)
	ret := agent.Capabilities[0].Body.Statements[0].(*ast.Return)
	lit, ok := ret.Value.(*ast.Literal)
	if !ok || lit.Kind != ast.TemplateLit {
		t.Fatalf("return value = %#v, want template literal", ret.Value)
	}
	if len(lit.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(lit.Parts))
	}
	text := lit.Parts[0].(*ast.Literal)
	if text.Kind != ast.StringLit || text.Value != "hi " {
		t.Errorf("Parts[0] = %#v, want string chunk %q", text, "hi ")
	}
	if ident, ok := lit.Parts[1].(*ast.Identifier); !ok || ident.Name != "name" {
		t.Errorf("Parts[1] = %#v, want identifier name", lit.Parts[1])
	}
}

func TestParseTemplateInterpolationExpressions(t *testing.T) {
	src := "agent A {\n    capability f(a: integer, b: integer) -> string {\n        return `sum is ${a + b}!`\n    }\n}\n"
	agent := parseSource(t, src)
	ret := agent.Capabilities[0].Body.Statements[0].(*ast.Return)
	lit := ret.Value.(*ast.Literal)
	if len(lit.Parts) != 3 {
		t.Fatalf("len(Parts) = %d, want 3", len(lit.Parts))
	}
	bin, ok := lit.Parts[1].(*ast.BinaryOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("Parts[1] = %#v, want binary +", lit.Parts[1])
	}
	tail := lit.Parts[2].(*ast.Literal)
	if tail.Value != "!" {
		t.Errorf("Parts[2] value = %#v, want %q", tail.Value, "!")
	}
	if lit.Value != "sum is ${a + b}!" {
		t.Errorf("raw template value = %#v, want markers preserved", lit.Value)
	}
}

func TestParseTemplateBadInterpolation(t *testing.T) {
	for _, body := range []string{"`x ${}`", "`x ${1 +}`"} {
		src := "agent A {\n    capability f() -> string {\n        return " + body + "\n    }\n}\n"
		err := parseError(t, src)
		if !strings.Contains(err.Error(), "parse error") {
			t.Errorf("template %s: error = %q, want parse error", body, err)
		}
	}
}

func TestParseAnnotationOnStateOrResource(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{
			"agent A {\n    @cache(60)\n    state x: integer = 0\n}\n",
			"annotations are not allowed on state declarations",
		},
		{
			"agent A {\n    @retry(3)\n    resource db: database\n}\n",
			"annotations are not allowed on resource declarations",
		},
	}
	for _, tt := range tests {
		err := parseError(t, tt.src)
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("error = %q, want %q", err, tt.want)
		}
	}
}

func TestParseEmptyTokenStream(t *testing.T) {
	for _, tokens := range [][]token.Token{nil, {}} {
		agent, err := Parse(tokens)
		if err == nil {
			t.Fatalf("Parse(%v) succeeded, want error", tokens)
		}
		if agent != nil {
			t.Errorf("Parse() returned an agent alongside the error")
		}
		if !strings.Contains(err.Error(), "empty token stream") {
			t.Errorf("error = %q, want empty token stream message", err)
		}
	}
}

func TestParseCollectionLiterals(t *testing.T) {
	src := `
agent A {
    capability f() -> void {
        let xs = [1, 2, 3]
        let m = {a: 1, b: 2}
        let v = xs[0]
        let w = m.a
    }
}
`
	agent := parseSource(t, src)
	stmts := agent.Capabilities[0].Body.Statements

	arr := stmts[0].(*ast.Assignment).Value.(*ast.Literal)
	if arr.Kind != ast.ArrayLit || len(arr.Elements) != 3 {
		t.Errorf("array literal = %+v, want 3 elements", arr)
	}
	obj := stmts[1].(*ast.Assignment).Value.(*ast.Literal)
	if obj.Kind != ast.ObjectLit || len(obj.FieldKeys) != 2 {
		t.Errorf("object literal = %+v, want 2 fields", obj)
	}
	if _, ok := stmts[2].(*ast.Assignment).Value.(*ast.IndexAccess); !ok {
		t.Errorf("statement 2 value = %T, want *ast.IndexAccess", stmts[2].(*ast.Assignment).Value)
	}
	if _, ok := stmts[3].(*ast.Assignment).Value.(*ast.MemberAccess); !ok {
		t.Errorf("statement 3 value = %T, want *ast.MemberAccess", stmts[3].(*ast.Assignment).Value)
	}
}

func TestParseErrorPositionFormat(t *testing.T) {
	err := parseError(t, "agent A {\n    state x integer\n}\n")
	if !strings.Contains(err.Error(), "parse error:") {
		t.Errorf("error = %q, want parse error prefix with position", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing agent keyword", "Monitor {\n}\n"},
		{"try without catch", "agent A {\n    capability f() -> void {\n        try {\n        }\n    }\n}\n"},
		{"declaration without type or value", "agent A {\n    capability f() -> void {\n        let x\n    }\n}\n"},
		{"assignment to literal", "agent A {\n    capability f() -> void {\n        1 = 2\n    }\n}\n"},
		{"duplicate config key", "agent A {\n    resource r: db {\n        host: \"a\",\n        host: \"b\"\n    }\n}\n"},
		{"trailing garbage", "agent A {\n}\nagent B {\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parseError(t, tt.src)
		})
	}
}

func TestParseInOperator(t *testing.T) {
	src := "agent A {\n    capability f(x: integer, xs: array<integer>) -> boolean {\n        return x in xs\n    }\n}\n"
	agent := parseSource(t, src)
	ret := agent.Capabilities[0].Body.Statements[0].(*ast.Return)
	bin, ok := ret.Value.(*ast.BinaryOp)
	if !ok || bin.Op != "in" {
		t.Fatalf("return value = %#v, want in expression", ret.Value)
	}
}
