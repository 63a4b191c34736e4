package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ualang/ual/ast"
)

// Python is the reference backend. It emits one class per agent on top
// of the ual_runtime base class and decorators.
type Python struct{}

// NewPython creates the Python backend.
func NewPython() *Python { return &Python{} }

// Target implements Generator.
func (p *Python) Target() string { return "python" }

// Generate implements Generator.
func (p *Python) Generate(agent *ast.Agent) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(genBail)
			if !ok {
				panic(r)
			}
			out, err = "", e.err
		}
	}()

	w := newPyWriter(agent)
	w.emitModule()
	return w.buf.String(), nil
}

type genBail struct{ err error }

// pyWriter holds the emission state for one compilation unit.
type pyWriter struct {
	buf    strings.Builder
	indent int
	agent  *ast.Agent

	states       map[string]*ast.State
	resources    map[string]bool
	capabilities map[string]bool

	// locals tracks method-scoped names so state references are not
	// rewritten to self when shadowed.
	locals []map[string]bool
}

func newPyWriter(agent *ast.Agent) *pyWriter {
	w := &pyWriter{
		agent:        agent,
		states:       make(map[string]*ast.State, len(agent.States)),
		resources:    make(map[string]bool, len(agent.Resources)),
		capabilities: make(map[string]bool, len(agent.Capabilities)),
	}
	for _, st := range agent.States {
		w.states[st.Name] = st
	}
	for _, res := range agent.Resources {
		w.resources[res.Name] = true
	}
	for _, c := range agent.Capabilities {
		w.capabilities[c.Name] = true
	}
	return w
}

func (w *pyWriter) failf(format string, args ...any) {
	panic(genBail{fmt.Errorf(format, args...)})
}

func (w *pyWriter) line(format string, args ...any) {
	w.buf.WriteString(strings.Repeat("    ", w.indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *pyWriter) blank() { w.buf.WriteByte('\n') }

func (w *pyWriter) pushLocals(names ...string) {
	scope := make(map[string]bool, len(names))
	for _, n := range names {
		scope[n] = true
	}
	w.locals = append(w.locals, scope)
}

func (w *pyWriter) popLocals() { w.locals = w.locals[:len(w.locals)-1] }

func (w *pyWriter) declareLocal(name string) {
	if len(w.locals) > 0 {
		w.locals[len(w.locals)-1][name] = true
	}
}

func (w *pyWriter) isLocal(name string) bool {
	for i := len(w.locals) - 1; i >= 0; i-- {
		if w.locals[i][name] {
			return true
		}
	}
	return false
}

// --- module layout ---

// runtimeImports lists the ual_runtime names the emitted module uses,
// in a fixed order.
func (w *pyWriter) runtimeImports() []string {
	names := []string{"Agent", "capability", "behavior"}
	seen := map[string]bool{}
	add := func(anns []*ast.Annotation) {
		for _, ann := range anns {
			switch ann.Name {
			case "timeout", "retry", "cache":
				if !seen[ann.Name] {
					seen[ann.Name] = true
					names = append(names, ann.Name)
				}
			}
		}
	}
	for _, c := range w.agent.Capabilities {
		add(c.Annotations)
	}
	for _, b := range w.agent.Behaviors {
		add(b.Annotations)
	}
	return names
}

func (w *pyWriter) emitModule() {
	w.line(`"""Agent %s generated from UAL source. Do not edit."""`, w.agent.Name)
	w.blank()
	w.line("from typing import Any, Dict, List, Optional")
	if usesTemporal(w.agent) {
		w.line("from datetime import datetime, timedelta")
	}
	w.blank()
	w.line("from ual_runtime import %s", strings.Join(w.runtimeImports(), ", "))
	w.blank()
	w.blank()
	w.line("class %s(Agent):", w.agent.Name)
	w.indent++
	if w.agent.Version != "" {
		w.line("VERSION = %s", pyString(w.agent.Version))
		w.blank()
	}

	w.emitConstructor()
	for _, c := range w.agent.Capabilities {
		w.blank()
		w.emitCapability(c)
	}
	for _, b := range w.agent.Behaviors {
		w.blank()
		w.emitBehavior(b)
	}
	for _, st := range w.agent.States {
		w.blank()
		w.emitProperty(st)
	}
	w.indent--
}

func (w *pyWriter) emitConstructor() {
	w.line("def __init__(self, agent_id=None):")
	w.indent++
	w.line("super().__init__(agent_id)")
	for _, st := range w.agent.States {
		if st.InitialValue != nil {
			w.line("self._%s = %s", st.Name, w.expr(st.InitialValue))
		} else {
			w.line("self._%s = %s", st.Name, defaultValue(st.Type))
		}
	}
	for _, res := range w.agent.Resources {
		w.line("self._%s = self._create_resource(%s, %s, %s)",
			res.Name, pyString(res.Name), pyString(res.ResourceType), w.configDict(res))
	}
	for _, st := range w.agent.States {
		if st.IsPersistent {
			w.line("self._mark_persistent(%s)", pyString(st.Name))
		}
	}
	w.indent--
}

func (w *pyWriter) configDict(res *ast.Resource) string {
	if len(res.ConfigKeys) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(res.ConfigKeys))
	for _, key := range res.ConfigKeys {
		parts = append(parts, fmt.Sprintf("%s: %s", pyString(key), w.expr(res.Config[key])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (w *pyWriter) emitCapability(c *ast.Capability) {
	for _, ann := range c.Annotations {
		w.line("%s", w.decorator(ann))
	}
	w.line("@capability")
	def := "def"
	if c.IsAsync {
		def = "async def"
	}
	w.line("%s %s(%s) -> %s:", def, c.Name, w.paramList(c.Parameters), pyType(c.ReturnType))

	w.indent++
	names := make([]string, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		names = append(names, p.Name)
	}
	w.pushLocals(names...)
	if c.Body == nil || len(c.Body.Statements) == 0 {
		w.line("pass")
	} else {
		w.stmts(c.Body)
	}
	w.popLocals()
	w.indent--
}

func (w *pyWriter) emitBehavior(b *ast.Behavior) {
	for _, ann := range b.Annotations {
		if ann.Name == "priority" {
			continue // folded into the behavior decorator
		}
		w.line("%s", w.decorator(ann))
	}
	if b.Priority != 0 {
		w.line("@behavior(%s, priority=%d)", pyString(b.Trigger), b.Priority)
	} else {
		w.line("@behavior(%s)", pyString(b.Trigger))
	}
	w.line("def %s(%s) -> None:", b.Name, w.paramList(b.Parameters))

	w.indent++
	names := make([]string, 0, len(b.Parameters))
	for _, p := range b.Parameters {
		names = append(names, p.Name)
	}
	w.pushLocals(names...)
	if b.Body == nil || len(b.Body.Statements) == 0 {
		w.line("pass")
	} else {
		w.stmts(b.Body)
	}
	w.popLocals()
	w.indent--
}

func (w *pyWriter) emitProperty(st *ast.State) {
	w.line("@property")
	w.line("def %s(self) -> %s:", st.Name, pyType(st.Type))
	w.indent++
	w.line("return self._%s", st.Name)
	w.indent--

	if st.Visibility == ast.Private {
		return
	}
	w.blank()
	w.line("@%s.setter", st.Name)
	w.line("def %s(self, value: %s) -> None:", st.Name, pyType(st.Type))
	w.indent++
	w.line("self._%s = value", st.Name)
	if st.IsPersistent {
		w.line("self._persist_state(%s, value)", pyString(st.Name))
	}
	w.indent--
}

// decorator renders an annotation. timeout, retry and cache get the
// runtime's keyword forms; everything else renders generically.
func (w *pyWriter) decorator(ann *ast.Annotation) string {
	args := make([]string, 0, len(ann.Args))
	for _, arg := range ann.Args {
		args = append(args, w.expr(arg))
	}
	switch ann.Name {
	case "timeout":
		if len(args) == 1 {
			return fmt.Sprintf("@timeout(seconds=%s)", args[0])
		}
	case "retry":
		if len(args) == 1 {
			return fmt.Sprintf("@retry(max_attempts=%s)", args[0])
		}
	case "cache":
		if len(args) == 1 {
			return fmt.Sprintf("@cache(ttl=%s)", args[0])
		}
	}
	if len(args) == 0 {
		return "@" + ann.Name
	}
	return fmt.Sprintf("@%s(%s)", ann.Name, strings.Join(args, ", "))
}

func (w *pyWriter) paramList(params []*ast.Parameter) string {
	parts := []string{"self"}
	for _, p := range params {
		part := fmt.Sprintf("%s: %s", p.Name, pyType(p.Type))
		if p.Default != nil {
			part += " = " + w.expr(p.Default)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// --- statements ---

func (w *pyWriter) stmts(block *ast.Block) {
	if block == nil || len(block.Statements) == 0 {
		w.line("pass")
		return
	}
	for _, stmt := range block.Statements {
		w.stmt(stmt)
	}
}

func (w *pyWriter) stmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		w.assignment(s)
	case *ast.IfStatement:
		w.ifStatement(s, "if")
	case *ast.ForLoop:
		w.pushLocals(s.Variable)
		w.line("for %s in %s:", s.Variable, w.expr(s.Iterable))
		w.indent++
		w.stmts(s.Body)
		w.indent--
		w.popLocals()
	case *ast.WhileLoop:
		w.line("while %s:", w.expr(s.Condition))
		w.indent++
		w.stmts(s.Body)
		w.indent--
	case *ast.Return:
		if s.Value == nil {
			w.line("return")
		} else {
			w.line("return %s", w.expr(s.Value))
		}
	case *ast.Emit:
		data := "None"
		if s.Data != nil {
			data = w.expr(s.Data)
		}
		w.line("self.emit_event(%s, %s)", w.expr(s.Event), data)
	case *ast.Await:
		w.line("await %s", w.expr(s.Expr))
	case *ast.TryCatch:
		w.tryCatch(s)
	case *ast.Block:
		w.stmts(s)
	default:
		w.failf("python backend: unsupported statement %T", stmt)
	}
}

func (w *pyWriter) assignment(s *ast.Assignment) {
	if s.Target == nil {
		w.line("%s", w.expr(s.Value))
		return
	}
	if s.IsDeclaration {
		ident := s.Target.(*ast.Identifier)
		w.declareLocal(ident.Name)
		if s.Value != nil {
			w.line("%s = %s", ident.Name, w.expr(s.Value))
		} else {
			w.line("%s = %s", ident.Name, defaultValue(s.Type))
		}
		return
	}
	w.line("%s %s %s", w.lvalue(s.Target), s.Op, w.expr(s.Value))
}

// lvalue renders an assignment target, routing state and resource
// names through their backing fields.
func (w *pyWriter) lvalue(target ast.Expression) string {
	if ident, ok := target.(*ast.Identifier); ok {
		return w.identifier(ident)
	}
	return w.expr(target)
}

func (w *pyWriter) ifStatement(s *ast.IfStatement, keyword string) {
	w.line("%s %s:", keyword, w.expr(s.Condition))
	w.indent++
	w.stmts(s.Then)
	w.indent--
	switch e := s.Else.(type) {
	case nil:
	case *ast.IfStatement:
		w.ifStatement(e, "elif")
	case *ast.Block:
		w.line("else:")
		w.indent++
		w.stmts(e)
		w.indent--
	}
}

func (w *pyWriter) tryCatch(s *ast.TryCatch) {
	w.line("try:")
	w.indent++
	w.stmts(s.Try)
	w.indent--
	for _, clause := range s.Catches {
		errType := "Exception"
		if clause.ErrorType != "" {
			errType = clause.ErrorType
		}
		w.line("except %s as error:", errType)
		w.indent++
		w.pushLocals("error")
		w.stmts(clause.Body)
		w.popLocals()
		w.indent--
	}
	if s.Finally != nil {
		w.line("finally:")
		w.indent++
		w.stmts(s.Finally)
		w.indent--
	}
}

// --- expressions ---

func (w *pyWriter) expr(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.Identifier:
		return w.identifier(n)
	case *ast.Literal:
		return w.literal(n)
	case *ast.BinaryOp:
		return fmt.Sprintf("%s %s %s", w.operand(n.Left), pyOperator(n.Op), w.operand(n.Right))
	case *ast.UnaryOp:
		if n.Op == "not" {
			return "not " + w.operand(n.Operand)
		}
		return n.Op + w.operand(n.Operand)
	case *ast.MemberAccess:
		return w.operand(n.Object) + "." + n.Member
	case *ast.IndexAccess:
		return fmt.Sprintf("%s[%s]", w.operand(n.Object), w.expr(n.Index))
	case *ast.FunctionCall:
		return w.call(n)
	case *ast.Lambda:
		return w.lambda(n)
	default:
		w.failf("python backend: unsupported expression %T", e)
		return ""
	}
}

// operand wraps nested operator expressions in parentheses so emitted
// precedence always matches the AST.
func (w *pyWriter) operand(e ast.Expression) string {
	switch e.(type) {
	case *ast.BinaryOp, *ast.Lambda:
		return "(" + w.expr(e) + ")"
	case *ast.UnaryOp:
		return "(" + w.expr(e) + ")"
	default:
		return w.expr(e)
	}
}

func (w *pyWriter) identifier(n *ast.Identifier) string {
	if w.isLocal(n.Name) {
		return n.Name
	}
	if _, ok := w.states[n.Name]; ok {
		return "self._" + n.Name
	}
	if w.resources[n.Name] {
		return "self._" + n.Name
	}
	return n.Name
}

func (w *pyWriter) call(n *ast.FunctionCall) string {
	callee := ""
	if ident, ok := n.Callee.(*ast.Identifier); ok {
		if w.capabilities[ident.Name] && !w.isLocal(ident.Name) {
			callee = "self." + ident.Name
		} else {
			callee = w.identifier(ident)
		}
	} else {
		callee = w.operand(n.Callee)
	}

	args := make([]string, 0, len(n.Args)+len(n.NamedArgs))
	for _, arg := range n.Args {
		args = append(args, w.expr(arg))
	}
	for _, named := range n.NamedArgs {
		args = append(args, fmt.Sprintf("%s=%s", named.Name, w.expr(named.Value)))
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(args, ", "))
}

func (w *pyWriter) lambda(n *ast.Lambda) string {
	names := make([]string, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		if p.Default != nil {
			names = append(names, fmt.Sprintf("%s=%s", p.Name, w.expr(p.Default)))
		} else {
			names = append(names, p.Name)
		}
	}
	w.pushLocals()
	for _, p := range n.Parameters {
		w.declareLocal(p.Name)
	}
	defer w.popLocals()

	body := n.Expr
	if body == nil {
		body = singleExpression(n.Body)
		if body == nil {
			w.failf("python backend: lambda bodies must be a single expression or return")
		}
	}
	return fmt.Sprintf("lambda %s: %s", strings.Join(names, ", "), w.expr(body))
}

// singleExpression unwraps a one-statement lambda block.
func singleExpression(block *ast.Block) ast.Expression {
	if block == nil || len(block.Statements) != 1 {
		return nil
	}
	switch s := block.Statements[0].(type) {
	case *ast.Return:
		return s.Value
	case *ast.Assignment:
		if s.Target == nil {
			return s.Value
		}
	}
	return nil
}

func (w *pyWriter) literal(n *ast.Literal) string {
	switch n.Kind {
	case ast.StringLit:
		s, _ := n.Value.(string)
		return pyString(s)
	case ast.TemplateLit:
		return w.fstring(n)
	case ast.IntegerLit:
		return fmt.Sprintf("%d", n.Value)
	case ast.FloatLit:
		f, _ := n.Value.(float64)
		return pyFloat(f)
	case ast.BooleanLit:
		if b, _ := n.Value.(bool); b {
			return "True"
		}
		return "False"
	case ast.NoneLit:
		return "None"
	case ast.ArrayLit:
		parts := make([]string, 0, len(n.Elements))
		for _, e := range n.Elements {
			parts = append(parts, w.expr(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ast.ObjectLit:
		parts := make([]string, 0, len(n.FieldKeys))
		for _, key := range n.FieldKeys {
			parts = append(parts, fmt.Sprintf("%s: %s", pyString(key), w.expr(n.Fields[key])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		w.failf("python backend: unsupported literal kind %d", n.Kind)
		return ""
	}
}

// --- mapping tables ---

var pyOperators = map[string]string{
	"and": "and",
	"or":  "or",
	"in":  "in",
	"++":  "+",
	"==":  "==",
	"!=":  "!=",
	"<":   "<",
	">":   ">",
	"<=":  "<=",
	">=":  ">=",
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "/",
	"%":   "%",
	"**":  "**",
}

func pyOperator(op string) string {
	if mapped, ok := pyOperators[op]; ok {
		return mapped
	}
	return op
}

// pyType maps a UAL type to a Python annotation.
func pyType(t *ast.TypeNode) string {
	if t == nil {
		return "Any"
	}
	switch t.Base {
	case ast.TypeString:
		return "str"
	case ast.TypeInteger:
		return "int"
	case ast.TypeFloat:
		return "float"
	case ast.TypeBoolean:
		return "bool"
	case ast.TypeDatetime:
		return "datetime"
	case ast.TypeDuration:
		return "timedelta"
	case ast.TypeVoid:
		return "None"
	case ast.TypeAny:
		return "Any"
	case ast.TypeArray:
		if len(t.TypeParams) == 1 {
			return "List[" + pyType(t.TypeParams[0]) + "]"
		}
		return "List[Any]"
	case ast.TypeMap:
		if len(t.TypeParams) == 2 {
			return "Dict[" + pyType(t.TypeParams[0]) + ", " + pyType(t.TypeParams[1]) + "]"
		}
		return "Dict[Any, Any]"
	case ast.TypeOptional:
		if len(t.TypeParams) == 1 {
			return "Optional[" + pyType(t.TypeParams[0]) + "]"
		}
		return "Optional[Any]"
	case ast.TypeCustom:
		return t.TypeName
	default:
		return "Any"
	}
}

// defaultValue is the implicit initializer emitted for a declared type
// without one.
func defaultValue(t *ast.TypeNode) string {
	if t == nil {
		return "None"
	}
	switch t.Base {
	case ast.TypeArray:
		return "[]"
	case ast.TypeMap:
		return "{}"
	case ast.TypeString:
		return `""`
	case ast.TypeInteger:
		return "0"
	case ast.TypeFloat:
		return "0.0"
	case ast.TypeBoolean:
		return "False"
	default:
		return "None"
	}
}

func usesTemporal(agent *ast.Agent) bool {
	temporal := func(t *ast.TypeNode) bool {
		return typeMentions(t, ast.TypeDatetime) || typeMentions(t, ast.TypeDuration)
	}
	for _, st := range agent.States {
		if temporal(st.Type) {
			return true
		}
	}
	for _, c := range agent.Capabilities {
		if temporal(c.ReturnType) {
			return true
		}
		for _, p := range c.Parameters {
			if temporal(p.Type) {
				return true
			}
		}
	}
	for _, b := range agent.Behaviors {
		for _, p := range b.Parameters {
			if temporal(p.Type) {
				return true
			}
		}
	}
	return false
}

func typeMentions(t *ast.TypeNode, base ast.BaseType) bool {
	if t == nil {
		return false
	}
	if t.Base == base {
		return true
	}
	for _, p := range t.TypeParams {
		if typeMentions(p, base) {
			return true
		}
	}
	return false
}

// pyString renders a Python string literal.
func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// fstring renders a template literal as a Python f-string. Literal
// braces are doubled; interpolations go through the expression emitter
// so state and resource references resolve to their backing fields.
func (w *pyWriter) fstring(n *ast.Literal) string {
	var b strings.Builder
	b.WriteString(`f"`)
	for _, part := range n.Parts {
		if lit, ok := part.(*ast.Literal); ok && lit.Kind == ast.StringLit {
			s, _ := lit.Value.(string)
			b.WriteString(fstringText(s))
			continue
		}
		b.WriteByte('{')
		b.WriteString(w.expr(part))
		b.WriteByte('}')
	}
	b.WriteByte('"')
	return b.String()
}

func fstringText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			b.WriteString("{{")
		case '}':
			b.WriteString("}}")
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// pyFloat keeps float literals recognizable as floats.
func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
