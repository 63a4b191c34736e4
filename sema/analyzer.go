package sema

import (
	"fmt"
	"strings"

	"github.com/ualang/ual/ast"
)

// Error is a non-fatal semantic violation.
type Error struct {
	Message string
	Pos     ast.Pos
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: semantic error: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Result carries everything analysis found. Errors block code
// generation; warnings never do.
type Result struct {
	Errors   []*Error
	Warnings []string
}

// HasErrors reports whether analysis found any error.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// conventionalCapabilities every agent is expected to declare.
var conventionalCapabilities = []string{"initialize", "terminate", "health_check"}

// knownAnnotations the code generators give dedicated rendering.
var knownAnnotations = map[string]bool{
	"timeout":  true,
	"retry":    true,
	"cache":    true,
	"priority": true,
}

// fixedTriggers valid besides the on_/when_ prefixes.
var fixedTriggers = map[string]bool{
	"initialization": true,
	"termination":    true,
}

type builtinSig struct {
	arity  int // -1 means variadic
	result ast.BaseType
}

var builtins = map[string]builtinSig{
	"print": {arity: -1, result: ast.TypeVoid},
	"len":   {arity: 1, result: ast.TypeInteger},
	"str":   {arity: 1, result: ast.TypeString},
	"int":   {arity: 1, result: ast.TypeInteger},
	"float": {arity: 1, result: ast.TypeFloat},
	"bool":  {arity: 1, result: ast.TypeBoolean},
}

// builtinOrder keeps global-scope population deterministic.
var builtinOrder = []string{"print", "len", "str", "int", "float", "bool"}

// Analyzer walks the AST resolving names and checking types. It owns a
// slice-backed stack of scopes pushed and popped strictly within each
// visit.
type Analyzer struct {
	scopes   []*Scope
	errors   []*Error
	warnings []string

	agent       *ast.Agent
	currentCap  *ast.Capability
	currentBeh  *ast.Behavior
	lambdaDepth int

	// exprType is the out-slot for expression visits; typeOf wraps
	// the Accept round-trip.
	exprType *TypeInfo
}

// Analyze runs semantic analysis over the agent. It returns the
// accumulated errors and warnings; repeated runs over the same AST
// produce identical output.
func Analyze(agent *ast.Agent) *Result {
	a := &Analyzer{}
	a.pushScope("global")
	for _, name := range builtinOrder {
		sig := builtins[name]
		_ = a.topScope().Define(&Symbol{
			Name:        name,
			Kind:        SymbolCapability,
			Type:        typeInfo(sig.result),
			Initialized: true,
			Builtin:     true,
		})
	}
	agent.Accept(a)
	a.popScope()
	return &Result{Errors: a.errors, Warnings: a.warnings}
}

// --- scope stack ---

func (a *Analyzer) pushScope(name string) {
	a.scopes = append(a.scopes, NewScope(name))
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *Analyzer) topScope() *Scope { return a.scopes[len(a.scopes)-1] }

// lookup walks the scope stack from innermost to outermost.
func (a *Analyzer) lookup(name string) *Symbol {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if sym := a.scopes[i].Resolve(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (a *Analyzer) define(pos ast.Pos, sym *Symbol) {
	if err := a.topScope().Define(sym); err != nil {
		a.errorf(pos, "%s", err.Error())
	}
}

func (a *Analyzer) errorf(pos ast.Pos, format string, args ...any) {
	a.errors = append(a.errors, &Error{Message: fmt.Sprintf(format, args...), Pos: pos})
}

func (a *Analyzer) warnf(format string, args ...any) {
	a.warnings = append(a.warnings, fmt.Sprintf(format, args...))
}

// typeOf evaluates an expression's type through the visitor dispatch.
func (a *Analyzer) typeOf(expr ast.Expression) *TypeInfo {
	if expr == nil {
		return typeInfo(ast.TypeAny)
	}
	a.exprType = typeInfo(ast.TypeAny)
	expr.Accept(a)
	return a.exprType
}

// --- declarations ---

func (a *Analyzer) VisitAgent(n *ast.Agent) {
	a.agent = n
	a.define(n.Pos, &Symbol{Name: n.Name, Kind: SymbolAgent, Type: typeInfo(ast.TypeAny), Initialized: true})
	a.pushScope("agent " + n.Name)

	// Declaration order inside the agent body is not significant:
	// pre-declare everything so capabilities can reference states and
	// each other regardless of position.
	for _, st := range n.States {
		a.define(st.Pos, &Symbol{
			Name:        st.Name,
			Kind:        SymbolState,
			Type:        fromTypeNode(st.Type),
			Mutable:     true,
			Initialized: true, // generated constructors default-initialize every state
		})
	}
	for _, res := range n.Resources {
		a.define(res.Pos, &Symbol{
			Name:        res.Name,
			Kind:        SymbolResource,
			Type:        typeInfo(ast.TypeAny),
			Initialized: true,
		})
	}
	for _, c := range n.Capabilities {
		a.define(c.Pos, &Symbol{
			Name:        c.Name,
			Kind:        SymbolCapability,
			Type:        fromTypeNode(c.ReturnType),
			Initialized: true,
			Capability:  c,
		})
	}
	for _, b := range n.Behaviors {
		a.define(b.Pos, &Symbol{
			Name:        b.Name,
			Kind:        SymbolBehavior,
			Type:        typeInfo(ast.TypeVoid),
			Initialized: true,
		})
	}

	for _, st := range n.States {
		st.Accept(a)
	}
	for _, res := range n.Resources {
		res.Accept(a)
	}
	for _, c := range n.Capabilities {
		c.Accept(a)
	}
	for _, b := range n.Behaviors {
		b.Accept(a)
	}

	var missing []string
	declared := make(map[string]bool, len(n.Capabilities))
	for _, c := range n.Capabilities {
		declared[c.Name] = true
	}
	for _, name := range conventionalCapabilities {
		if !declared[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		a.warnf("agent %q does not declare conventional capabilities: %s", n.Name, strings.Join(missing, ", "))
	}

	a.popScope()
	a.agent = nil
}

func (a *Analyzer) VisitImport(n *ast.Import) {}

func (a *Analyzer) VisitState(n *ast.State) {
	if n.InitialValue == nil {
		return
	}
	valueType := a.typeOf(n.InitialValue)
	declared := fromTypeNode(n.Type)
	if !assignable(declared, valueType) {
		a.errorf(n.Pos, "type mismatch: cannot initialize state %q of type %s with %s",
			n.Name, declared, valueType)
	}
}

func (a *Analyzer) VisitResource(n *ast.Resource) {
	for _, key := range n.ConfigKeys {
		a.typeOf(n.Config[key])
	}
}

func (a *Analyzer) VisitCapability(n *ast.Capability) {
	a.checkAnnotations(n.Annotations, "capability", n.Name)
	a.pushScope("capability " + n.Name)
	a.defineParameters(n.Parameters)

	if n.Body != nil {
		prev := a.currentCap
		a.currentCap = n
		n.Body.Accept(a)
		a.currentCap = prev

		if n.ReturnType != nil && n.ReturnType.Base != ast.TypeVoid && !alwaysReturns(n.Body) {
			a.warnf("capability %q declares return type %s but not all paths return a value",
				n.Name, n.ReturnType)
		}
	}
	a.popScope()
}

func (a *Analyzer) VisitBehavior(n *ast.Behavior) {
	a.checkAnnotations(n.Annotations, "behavior", n.Name)
	if !validTrigger(n.Trigger) {
		a.errorf(n.Pos, "invalid trigger %q for behavior: triggers must start with on_ or when_, or be one of initialization, termination", n.Trigger)
	}

	a.pushScope("behavior " + n.Name)
	a.defineParameters(n.Parameters)
	prev := a.currentBeh
	a.currentBeh = n
	n.Body.Accept(a)
	a.currentBeh = prev
	a.popScope()
}

func (a *Analyzer) VisitTypeNode(n *ast.TypeNode) {}

func (a *Analyzer) defineParameters(params []*ast.Parameter) {
	for _, p := range params {
		declared := fromTypeNode(p.Type)
		if p.Default != nil {
			defType := a.typeOf(p.Default)
			if !assignable(declared, defType) {
				a.errorf(p.Pos, "type mismatch: default value of parameter %q is %s, expected %s",
					p.Name, defType, declared)
			}
		}
		a.define(p.Pos, &Symbol{
			Name:        p.Name,
			Kind:        SymbolParameter,
			Type:        declared,
			Mutable:     true,
			Initialized: true,
		})
	}
}

func (a *Analyzer) checkAnnotations(annotations []*ast.Annotation, declKind, declName string) {
	for _, ann := range annotations {
		if !knownAnnotations[ann.Name] {
			a.warnf("unknown annotation @%s on %s %q", ann.Name, declKind, declName)
		}
		for _, arg := range ann.Args {
			a.typeOf(arg)
		}
	}
}

func validTrigger(name string) bool {
	return strings.HasPrefix(name, "on_") || strings.HasPrefix(name, "when_") || fixedTriggers[name]
}

// --- statements ---

func (a *Analyzer) VisitBlock(n *ast.Block) {
	a.pushScope("block")
	for _, stmt := range n.Statements {
		stmt.Accept(a)
	}
	a.popScope()
}

func (a *Analyzer) VisitAssignment(n *ast.Assignment) {
	// Bare expression statement.
	if n.Target == nil {
		a.typeOf(n.Value)
		return
	}

	if n.IsDeclaration {
		ident := n.Target.(*ast.Identifier)
		var declared *TypeInfo
		if n.Type != nil {
			declared = fromTypeNode(n.Type)
		}
		if n.Value != nil {
			valueType := a.typeOf(n.Value)
			if declared == nil {
				declared = valueType
			} else if !assignable(declared, valueType) {
				a.errorf(n.Pos, "type mismatch: cannot assign %s to %q of type %s",
					valueType, ident.Name, declared)
			}
		}
		a.define(n.Pos, &Symbol{
			Name:        ident.Name,
			Kind:        SymbolVariable,
			Type:        declared,
			Mutable:     n.Mutable,
			Initialized: n.Value != nil,
		})
		return
	}

	valueType := a.typeOf(n.Value)
	switch target := n.Target.(type) {
	case *ast.Identifier:
		sym := a.lookup(target.Name)
		if sym == nil {
			a.errorf(target.Pos, "undefined identifier %q", target.Name)
			return
		}
		switch sym.Kind {
		case SymbolVariable:
			if !sym.Mutable {
				a.errorf(target.Pos, "cannot assign to immutable variable %q", target.Name)
			}
		case SymbolCapability, SymbolBehavior, SymbolResource, SymbolAgent:
			a.errorf(target.Pos, "cannot assign to %s %q", sym.Kind, target.Name)
			return
		}
		if n.Op == "+=" || n.Op == "-=" {
			a.checkCompound(n, sym.Type, valueType)
		} else if !assignable(sym.Type, valueType) {
			a.errorf(n.Pos, "type mismatch: cannot assign %s to %q of type %s",
				valueType, target.Name, sym.Type)
		}
		sym.Initialized = true
	case *ast.MemberAccess, *ast.IndexAccess:
		a.typeOf(n.Target)
	}
}

// checkCompound validates += and -= operand types. += also accepts
// string/string for concatenation.
func (a *Analyzer) checkCompound(n *ast.Assignment, targetType, valueType *TypeInfo) {
	if n.Op == "+=" && targetType.isString() && valueType.isString() {
		return
	}
	if !targetType.isNumeric() || !valueType.isNumeric() {
		a.errorf(n.Pos, "operator %q requires numeric operands, got %s and %s", n.Op, targetType, valueType)
	}
}

func (a *Analyzer) VisitIfStatement(n *ast.IfStatement) {
	condType := a.typeOf(n.Condition)
	if !condType.isBoolean() {
		a.errorf(n.Condition.Position(), "if condition must be boolean, got %s", condType)
	}
	n.Then.Accept(a)
	if n.Else != nil {
		n.Else.Accept(a)
	}
}

func (a *Analyzer) VisitForLoop(n *ast.ForLoop) {
	iterType := a.typeOf(n.Iterable)
	elemType := typeInfo(ast.TypeAny)
	switch iterType.Base {
	case ast.TypeArray:
		if len(iterType.Params) == 1 {
			elemType = iterType.Params[0]
		}
	case ast.TypeMap:
		if len(iterType.Params) == 2 {
			elemType = iterType.Params[0]
		}
	case ast.TypeString:
		elemType = typeInfo(ast.TypeString)
	case ast.TypeAny:
	default:
		a.errorf(n.Iterable.Position(), "for loop requires an iterable, got %s", iterType)
	}

	a.pushScope("loop")
	a.define(n.Pos, &Symbol{
		Name:        n.Variable,
		Kind:        SymbolVariable,
		Type:        elemType,
		Mutable:     true,
		Initialized: true,
	})
	n.Body.Accept(a)
	a.popScope()
}

func (a *Analyzer) VisitWhileLoop(n *ast.WhileLoop) {
	condType := a.typeOf(n.Condition)
	if !condType.isBoolean() {
		a.errorf(n.Condition.Position(), "while condition must be boolean, got %s", condType)
	}
	a.pushScope("loop")
	n.Body.Accept(a)
	a.popScope()
}

func (a *Analyzer) VisitReturn(n *ast.Return) {
	// Returns inside lambdas are checked against the lambda, which is
	// untyped; only evaluate the value.
	if a.lambdaDepth > 0 {
		a.typeOf(n.Value)
		return
	}
	if a.currentCap == nil {
		a.errorf(n.Pos, "return is only valid inside a capability")
		a.typeOf(n.Value)
		return
	}

	declared := fromTypeNode(a.currentCap.ReturnType)
	if n.Value == nil {
		if declared.Base != ast.TypeVoid {
			a.errorf(n.Pos, "type mismatch: return without value in capability %q declared to return %s",
				a.currentCap.Name, declared)
		}
		return
	}
	if declared.Base == ast.TypeVoid {
		a.errorf(n.Pos, "capability %q returns void and cannot return a value", a.currentCap.Name)
		a.typeOf(n.Value)
		return
	}
	valueType := a.typeOf(n.Value)
	if !assignable(declared, valueType) {
		a.errorf(n.Value.Position(), "type mismatch: cannot return %s from capability %q declared to return %s",
			valueType, a.currentCap.Name, declared)
	}
}

func (a *Analyzer) VisitEmit(n *ast.Emit) {
	if a.currentCap == nil && a.currentBeh == nil {
		a.errorf(n.Pos, "emit is only valid inside a capability or behavior")
	}
	eventType := a.typeOf(n.Event)
	if !eventType.isString() {
		a.errorf(n.Event.Position(), "emit event name must be a string, got %s", eventType)
	}
	if n.Data != nil {
		a.typeOf(n.Data)
	}
}

func (a *Analyzer) VisitAwait(n *ast.Await) {
	if a.currentCap == nil || !a.currentCap.IsAsync || a.currentBeh != nil {
		a.errorf(n.Pos, "await is only valid inside an async capability")
	}
	a.typeOf(n.Expr)
}

func (a *Analyzer) VisitTryCatch(n *ast.TryCatch) {
	n.Try.Accept(a)
	for _, clause := range n.Catches {
		a.pushScope("catch")
		errType := typeInfo(ast.TypeAny)
		if clause.ErrorType != "" {
			errType = &TypeInfo{Base: ast.TypeCustom, Custom: clause.ErrorType}
		}
		a.define(clause.Pos, &Symbol{
			Name:        "error",
			Kind:        SymbolVariable,
			Type:        errType,
			Initialized: true,
		})
		clause.Body.Accept(a)
		a.popScope()
	}
	if n.Finally != nil {
		n.Finally.Accept(a)
	}
}

// --- expressions ---

func (a *Analyzer) VisitIdentifier(n *ast.Identifier) {
	sym := a.lookup(n.Name)
	if sym == nil {
		a.errorf(n.Pos, "undefined identifier %q", n.Name)
		a.exprType = typeInfo(ast.TypeAny)
		return
	}
	if !sym.Initialized && (sym.Kind == SymbolVariable || sym.Kind == SymbolState) {
		a.errorf(n.Pos, "use of uninitialized variable %q", n.Name)
	}
	a.exprType = sym.Type
}

func (a *Analyzer) VisitLiteral(n *ast.Literal) {
	switch n.Kind {
	case ast.StringLit:
		a.exprType = typeInfo(ast.TypeString)
	case ast.TemplateLit:
		for _, part := range n.Parts {
			a.typeOf(part)
		}
		a.exprType = typeInfo(ast.TypeString)
	case ast.IntegerLit:
		a.exprType = typeInfo(ast.TypeInteger)
	case ast.FloatLit:
		a.exprType = typeInfo(ast.TypeFloat)
	case ast.BooleanLit:
		a.exprType = typeInfo(ast.TypeBoolean)
	case ast.NoneLit:
		a.exprType = &TypeInfo{Base: ast.TypeAny, Nullable: true}
	case ast.ArrayLit:
		elem := a.elementType(n.Elements)
		a.exprType = &TypeInfo{Base: ast.TypeArray, Params: []*TypeInfo{elem}}
	case ast.ObjectLit:
		for _, key := range n.FieldKeys {
			a.typeOf(n.Fields[key])
		}
		a.exprType = &TypeInfo{
			Base:   ast.TypeMap,
			Params: []*TypeInfo{typeInfo(ast.TypeString), typeInfo(ast.TypeAny)},
		}
	default:
		a.exprType = typeInfo(ast.TypeAny)
	}
}

// elementType finds the common element type of an array literal, or
// any when elements disagree.
func (a *Analyzer) elementType(elements []ast.Expression) *TypeInfo {
	if len(elements) == 0 {
		return typeInfo(ast.TypeAny)
	}
	common := a.typeOf(elements[0])
	for _, e := range elements[1:] {
		t := a.typeOf(e)
		if !assignable(common, t) {
			if assignable(t, common) {
				common = t
				continue
			}
			return typeInfo(ast.TypeAny)
		}
	}
	return common
}

func (a *Analyzer) VisitBinaryOp(n *ast.BinaryOp) {
	left := a.typeOf(n.Left)
	right := a.typeOf(n.Right)

	switch n.Op {
	case "+", "-", "*", "/", "%", "**":
		if !left.isNumeric() || !right.isNumeric() {
			a.errorf(n.Pos, "operator %q requires numeric operands, got %s and %s", n.Op, left, right)
		}
		if left.Base == ast.TypeFloat || right.Base == ast.TypeFloat {
			a.exprType = typeInfo(ast.TypeFloat)
		} else if left.Base == ast.TypeAny || right.Base == ast.TypeAny {
			a.exprType = typeInfo(ast.TypeAny)
		} else {
			a.exprType = typeInfo(ast.TypeInteger)
		}
	case "++":
		if !left.isString() || !right.isString() {
			a.errorf(n.Pos, "operator \"++\" requires string operands, got %s and %s", left, right)
		}
		a.exprType = typeInfo(ast.TypeString)
	case "<", ">", "<=", ">=":
		if !comparable(left, right) {
			a.errorf(n.Pos, "operator %q cannot compare %s and %s", n.Op, left, right)
		}
		a.exprType = typeInfo(ast.TypeBoolean)
	case "==", "!=":
		a.exprType = typeInfo(ast.TypeBoolean)
	case "and", "or":
		if !left.isBoolean() || !right.isBoolean() {
			a.errorf(n.Pos, "operator %q requires boolean operands, got %s and %s", n.Op, left, right)
		}
		a.exprType = typeInfo(ast.TypeBoolean)
	case "in":
		switch right.Base {
		case ast.TypeArray, ast.TypeMap, ast.TypeString, ast.TypeAny:
		default:
			a.errorf(n.Pos, "operator \"in\" requires an array, map or string on the right, got %s", right)
		}
		a.exprType = typeInfo(ast.TypeBoolean)
	default:
		a.exprType = typeInfo(ast.TypeAny)
	}
}

// comparable reports whether an ordering comparison between the two
// types makes sense.
func comparable(left, right *TypeInfo) bool {
	if left.Base == ast.TypeAny || right.Base == ast.TypeAny {
		return true
	}
	if left.isNumeric() && right.isNumeric() {
		return true
	}
	if left.Base == right.Base {
		switch left.Base {
		case ast.TypeString, ast.TypeDatetime, ast.TypeDuration:
			return true
		}
	}
	return false
}

func (a *Analyzer) VisitUnaryOp(n *ast.UnaryOp) {
	operand := a.typeOf(n.Operand)
	switch n.Op {
	case "not":
		if !operand.isBoolean() {
			a.errorf(n.Pos, "operator \"not\" requires a boolean operand, got %s", operand)
		}
		a.exprType = typeInfo(ast.TypeBoolean)
	case "-", "+":
		if !operand.isNumeric() {
			a.errorf(n.Pos, "operator %q requires a numeric operand, got %s", n.Op, operand)
		}
		a.exprType = operand
	default:
		a.exprType = typeInfo(ast.TypeAny)
	}
}

func (a *Analyzer) VisitMemberAccess(n *ast.MemberAccess) {
	a.typeOf(n.Object)
	// Member types are not tracked; accesses type as any.
	a.exprType = typeInfo(ast.TypeAny)
}

func (a *Analyzer) VisitIndexAccess(n *ast.IndexAccess) {
	objType := a.typeOf(n.Object)
	idxType := a.typeOf(n.Index)

	switch objType.Base {
	case ast.TypeArray:
		if idxType.Base != ast.TypeInteger && idxType.Base != ast.TypeAny {
			a.errorf(n.Index.Position(), "array index must be integer, got %s", idxType)
		}
		if len(objType.Params) == 1 {
			a.exprType = objType.Params[0]
			return
		}
	case ast.TypeMap:
		if len(objType.Params) == 2 {
			if !assignable(objType.Params[0], idxType) {
				a.errorf(n.Index.Position(), "map key must be %s, got %s", objType.Params[0], idxType)
			}
			a.exprType = objType.Params[1]
			return
		}
	case ast.TypeString:
		a.exprType = typeInfo(ast.TypeString)
		return
	case ast.TypeAny:
	default:
		a.errorf(n.Pos, "type %s is not indexable", objType)
	}
	a.exprType = typeInfo(ast.TypeAny)
}

func (a *Analyzer) VisitFunctionCall(n *ast.FunctionCall) {
	ident, isIdent := n.Callee.(*ast.Identifier)
	if !isIdent {
		a.typeOf(n.Callee)
		for _, arg := range n.Args {
			a.typeOf(arg)
		}
		for _, named := range n.NamedArgs {
			a.typeOf(named.Value)
		}
		a.exprType = typeInfo(ast.TypeAny)
		return
	}

	sym := a.lookup(ident.Name)
	if sym == nil {
		a.errorf(ident.Pos, "undefined identifier %q", ident.Name)
		a.visitArguments(n)
		a.exprType = typeInfo(ast.TypeAny)
		return
	}

	switch {
	case sym.Builtin:
		a.checkBuiltinCall(n, ident.Name)
		a.exprType = sym.Type
	case sym.Kind == SymbolCapability && sym.Capability != nil:
		a.checkCapabilityCall(n, sym.Capability)
		ret := fromTypeNode(sym.Capability.ReturnType)
		a.exprType = &TypeInfo{Base: ret.Base, Custom: ret.Custom, Params: ret.Params, Async: sym.Capability.IsAsync}
	case sym.Kind == SymbolBehavior:
		a.errorf(n.Pos, "behavior %q cannot be called directly; behaviors run on their trigger", ident.Name)
		a.visitArguments(n)
		a.exprType = typeInfo(ast.TypeVoid)
	default:
		// Calling a variable holding a lambda: no signature to check.
		a.visitArguments(n)
		a.exprType = typeInfo(ast.TypeAny)
	}
}

func (a *Analyzer) visitArguments(n *ast.FunctionCall) {
	for _, arg := range n.Args {
		a.typeOf(arg)
	}
	for _, named := range n.NamedArgs {
		a.typeOf(named.Value)
	}
}

func (a *Analyzer) checkBuiltinCall(n *ast.FunctionCall, name string) {
	sig := builtins[name]
	a.visitArguments(n)
	if len(n.NamedArgs) > 0 {
		a.errorf(n.Pos, "built-in %q does not accept named arguments", name)
	}
	if sig.arity >= 0 && len(n.Args) != sig.arity {
		a.errorf(n.Pos, "built-in %q expects %d argument(s), got %d", name, sig.arity, len(n.Args))
	}
}

func (a *Analyzer) checkCapabilityCall(n *ast.FunctionCall, c *ast.Capability) {
	required := 0
	paramIndex := make(map[string]*ast.Parameter, len(c.Parameters))
	for _, p := range c.Parameters {
		paramIndex[p.Name] = p
		if p.Default == nil {
			required++
		}
	}

	total := len(n.Args) + len(n.NamedArgs)
	if total < required {
		a.errorf(n.Pos, "capability %q expects at least %d argument(s), got %d", c.Name, required, total)
	}
	if total > len(c.Parameters) {
		a.errorf(n.Pos, "capability %q expects at most %d argument(s), got %d", c.Name, len(c.Parameters), total)
	}

	for i, arg := range n.Args {
		argType := a.typeOf(arg)
		if i >= len(c.Parameters) {
			continue
		}
		declared := fromTypeNode(c.Parameters[i].Type)
		if !assignable(declared, argType) {
			a.errorf(arg.Position(), "type mismatch: argument %d of capability %q is %s, expected %s",
				i+1, c.Name, argType, declared)
		}
	}
	for _, named := range n.NamedArgs {
		valueType := a.typeOf(named.Value)
		param, ok := paramIndex[named.Name]
		if !ok {
			a.errorf(named.Pos, "capability %q has no parameter named %q", c.Name, named.Name)
			continue
		}
		declared := fromTypeNode(param.Type)
		if !assignable(declared, valueType) {
			a.errorf(named.Value.Position(), "type mismatch: argument %q of capability %q is %s, expected %s",
				named.Name, c.Name, valueType, declared)
		}
	}
}

func (a *Analyzer) VisitLambda(n *ast.Lambda) {
	a.pushScope("lambda")
	a.lambdaDepth++
	a.defineParameters(n.Parameters)
	if n.Expr != nil {
		a.typeOf(n.Expr)
	}
	if n.Body != nil {
		n.Body.Accept(a)
	}
	a.lambdaDepth--
	a.popScope()
	a.exprType = typeInfo(ast.TypeAny)
}

// alwaysReturns reports whether every path through the block ends in a
// return. This is the static heuristic behind the missing-return
// warning; loops and try/catch are treated conservatively.
func alwaysReturns(block *ast.Block) bool {
	if block == nil || len(block.Statements) == 0 {
		return false
	}
	for _, stmt := range block.Statements {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.IfStatement:
			if ifAlwaysReturns(s) {
				return true
			}
		}
	}
	return false
}

func ifAlwaysReturns(s *ast.IfStatement) bool {
	if !alwaysReturns(s.Then) {
		return false
	}
	switch e := s.Else.(type) {
	case *ast.Block:
		return alwaysReturns(e)
	case *ast.IfStatement:
		return ifAlwaysReturns(e)
	default:
		return false
	}
}
