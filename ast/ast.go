// Package ast defines the UAL abstract syntax tree and the visitor
// contract consumed by the semantic analyzer and the code generators.
package ast

// Pos is a source position. Every node carries one for diagnostics;
// nodes never hold parent links, position context is threaded instead.
type Pos struct {
	Line   int
	Column int
}

// Node is implemented by every AST node.
type Node interface {
	Position() Pos
	Accept(v Visitor)
}

// Expression is the marker interface for expression nodes.
type Expression interface {
	Node
	exprNode()
}

// Statement is the marker interface for statement nodes.
type Statement interface {
	Node
	stmtNode()
}

// Visibility of a declaration.
type Visibility string

const (
	Public    Visibility = "public"
	Private   Visibility = "private"
	Protected Visibility = "protected"
)

// BaseType is the closed set of UAL base types.
type BaseType string

const (
	TypeString   BaseType = "string"
	TypeInteger  BaseType = "integer"
	TypeFloat    BaseType = "float"
	TypeBoolean  BaseType = "boolean"
	TypeDatetime BaseType = "datetime"
	TypeDuration BaseType = "duration"
	TypeAny      BaseType = "any"
	TypeVoid     BaseType = "void"
	TypeArray    BaseType = "array"
	TypeMap      BaseType = "map"
	TypeOptional BaseType = "optional"
	TypeCustom   BaseType = "custom"
)

// Visitor is the double-dispatch contract every pipeline phase
// implements. One method per concrete node type; the node set is
// closed.
type Visitor interface {
	VisitAgent(n *Agent)
	VisitImport(n *Import)
	VisitCapability(n *Capability)
	VisitBehavior(n *Behavior)
	VisitState(n *State)
	VisitResource(n *Resource)
	VisitTypeNode(n *TypeNode)
	VisitIdentifier(n *Identifier)
	VisitLiteral(n *Literal)
	VisitBinaryOp(n *BinaryOp)
	VisitUnaryOp(n *UnaryOp)
	VisitMemberAccess(n *MemberAccess)
	VisitIndexAccess(n *IndexAccess)
	VisitFunctionCall(n *FunctionCall)
	VisitLambda(n *Lambda)
	VisitAssignment(n *Assignment)
	VisitIfStatement(n *IfStatement)
	VisitForLoop(n *ForLoop)
	VisitWhileLoop(n *WhileLoop)
	VisitReturn(n *Return)
	VisitEmit(n *Emit)
	VisitAwait(n *Await)
	VisitTryCatch(n *TryCatch)
	VisitBlock(n *Block)
}

// --- Declarations ---

// Agent is the root of every UAL compilation unit.
type Agent struct {
	Pos          Pos
	Name         string
	Version      string
	Metadata     map[string]Expression
	Imports      []*Import
	Capabilities []*Capability
	Behaviors    []*Behavior
	States       []*State
	Resources    []*Resource
}

func (n *Agent) Position() Pos    { return n.Pos }
func (n *Agent) Accept(v Visitor) { v.VisitAgent(n) }

// Import references an external module by dotted path.
type Import struct {
	Pos   Pos
	Path  string
	Alias string
}

func (n *Import) Position() Pos    { return n.Pos }
func (n *Import) Accept(v Visitor) { v.VisitImport(n) }

// Annotation is an @name(args) marker attached to a declaration.
type Annotation struct {
	Pos  Pos
	Name string
	Args []Expression
}

// Parameter is a typed capability/behavior/lambda parameter. A present
// Default makes the parameter optional.
type Parameter struct {
	Pos     Pos
	Name    string
	Type    *TypeNode
	Default Expression
}

// Capability is a named callable operation. Body may be nil for a
// declaration without an implementation.
type Capability struct {
	Pos         Pos
	Name        string
	Parameters  []*Parameter
	ReturnType  *TypeNode
	Body        *Block
	Annotations []*Annotation
	Visibility  Visibility
	IsAsync     bool
}

func (n *Capability) Position() Pos    { return n.Pos }
func (n *Capability) Accept(v Visitor) { v.VisitCapability(n) }

// Behavior is an event-triggered reaction. Trigger equals the declared
// name; Priority comes from an @priority annotation and defaults to 0.
type Behavior struct {
	Pos         Pos
	Name        string
	Trigger     string
	Parameters  []*Parameter
	Body        *Block
	Annotations []*Annotation
	Priority    int
}

func (n *Behavior) Position() Pos    { return n.Pos }
func (n *Behavior) Accept(v Visitor) { v.VisitBehavior(n) }

// State is a typed agent instance variable.
type State struct {
	Pos          Pos
	Name         string
	Type         *TypeNode
	InitialValue Expression
	Visibility   Visibility
	IsPersistent bool
}

func (n *State) Position() Pos    { return n.Pos }
func (n *State) Accept(v Visitor) { v.VisitState(n) }

// Resource binds a named external dependency with configuration.
type Resource struct {
	Pos          Pos
	Name         string
	ResourceType string
	Config       map[string]Expression
	ConfigKeys   []string // declaration order of Config keys
}

func (n *Resource) Position() Pos    { return n.Pos }
func (n *Resource) Accept(v Visitor) { v.VisitResource(n) }

// TypeNode describes a type reference. TypeParams carries the element
// types of array/map/optional; TypeName carries custom type names.
type TypeNode struct {
	Pos        Pos
	Base       BaseType
	TypeName   string
	TypeParams []*TypeNode
}

func (n *TypeNode) Position() Pos    { return n.Pos }
func (n *TypeNode) Accept(v Visitor) { v.VisitTypeNode(n) }

// String renders the type in source form.
func (n *TypeNode) String() string {
	switch n.Base {
	case TypeCustom:
		return n.TypeName
	case TypeArray, TypeOptional:
		if len(n.TypeParams) == 1 {
			return string(n.Base) + "<" + n.TypeParams[0].String() + ">"
		}
	case TypeMap:
		if len(n.TypeParams) == 2 {
			return "map<" + n.TypeParams[0].String() + "," + n.TypeParams[1].String() + ">"
		}
	}
	return string(n.Base)
}

// --- Expressions ---

// Identifier is a bare name reference.
type Identifier struct {
	Pos  Pos
	Name string
}

func (n *Identifier) Position() Pos    { return n.Pos }
func (n *Identifier) Accept(v Visitor) { v.VisitIdentifier(n) }
func (n *Identifier) exprNode()        {}

// LiteralKind distinguishes literal values.
type LiteralKind int

const (
	StringLit LiteralKind = iota
	IntegerLit
	FloatLit
	BooleanLit
	NoneLit
	TemplateLit // backtick string with ${expr} markers preserved
	ArrayLit
	ObjectLit
)

// Literal is a constant value. Elements is set for ArrayLit; Fields
// and FieldKeys for ObjectLit. Parts is set for TemplateLit: text
// chunks as string literals interleaved with parsed interpolation
// expressions, while Value keeps the raw folded text.
type Literal struct {
	Pos       Pos
	Kind      LiteralKind
	Value     any
	Elements  []Expression
	Fields    map[string]Expression
	FieldKeys []string
	Parts     []Expression
}

func (n *Literal) Position() Pos    { return n.Pos }
func (n *Literal) Accept(v Visitor) { v.VisitLiteral(n) }
func (n *Literal) exprNode()        {}

// BinaryOp applies an infix operator.
type BinaryOp struct {
	Pos   Pos
	Op    string
	Left  Expression
	Right Expression
}

func (n *BinaryOp) Position() Pos    { return n.Pos }
func (n *BinaryOp) Accept(v Visitor) { v.VisitBinaryOp(n) }
func (n *BinaryOp) exprNode()        {}

// UnaryOp applies a prefix operator.
type UnaryOp struct {
	Pos     Pos
	Op      string
	Operand Expression
}

func (n *UnaryOp) Position() Pos    { return n.Pos }
func (n *UnaryOp) Accept(v Visitor) { v.VisitUnaryOp(n) }
func (n *UnaryOp) exprNode()        {}

// MemberAccess is obj.member.
type MemberAccess struct {
	Pos    Pos
	Object Expression
	Member string
}

func (n *MemberAccess) Position() Pos    { return n.Pos }
func (n *MemberAccess) Accept(v Visitor) { v.VisitMemberAccess(n) }
func (n *MemberAccess) exprNode()        {}

// IndexAccess is obj[index].
type IndexAccess struct {
	Pos    Pos
	Object Expression
	Index  Expression
}

func (n *IndexAccess) Position() Pos    { return n.Pos }
func (n *IndexAccess) Accept(v Visitor) { v.VisitIndexAccess(n) }
func (n *IndexAccess) exprNode()        {}

// NamedArg is a name: value argument in a call.
type NamedArg struct {
	Pos   Pos
	Name  string
	Value Expression
}

// FunctionCall invokes a callee with positional and named arguments.
type FunctionCall struct {
	Pos       Pos
	Callee    Expression
	Args      []Expression
	NamedArgs []*NamedArg
}

func (n *FunctionCall) Position() Pos    { return n.Pos }
func (n *FunctionCall) Accept(v Visitor) { v.VisitFunctionCall(n) }
func (n *FunctionCall) exprNode()        {}

// Lambda is an anonymous function. Exactly one of Expr or Body is set.
type Lambda struct {
	Pos        Pos
	Parameters []*Parameter
	Expr       Expression
	Body       *Block
}

func (n *Lambda) Position() Pos    { return n.Pos }
func (n *Lambda) Accept(v Visitor) { v.VisitLambda(n) }
func (n *Lambda) exprNode()        {}

// --- Statements ---

// Block is an ordered statement list.
type Block struct {
	Pos        Pos
	Statements []Statement
}

func (n *Block) Position() Pos    { return n.Pos }
func (n *Block) Accept(v Visitor) { v.VisitBlock(n) }
func (n *Block) stmtNode()        {}

// Assignment declares or mutates a variable. IsDeclaration is true for
// let/var statements; Mutable distinguishes var from let. Op is "=",
// "+=" or "-=". A nil Target with an empty Op is a bare expression
// statement: only Value is evaluated.
type Assignment struct {
	Pos           Pos
	Target        Expression
	Op            string
	Value         Expression
	Type          *TypeNode
	IsDeclaration bool
	Mutable       bool
}

func (n *Assignment) Position() Pos    { return n.Pos }
func (n *Assignment) Accept(v Visitor) { v.VisitAssignment(n) }
func (n *Assignment) stmtNode()        {}

// IfStatement with optional else branch. Else is either a *Block or a
// nested *IfStatement for else-if chains.
type IfStatement struct {
	Pos       Pos
	Condition Expression
	Then      *Block
	Else      Statement
}

func (n *IfStatement) Position() Pos    { return n.Pos }
func (n *IfStatement) Accept(v Visitor) { v.VisitIfStatement(n) }
func (n *IfStatement) stmtNode()        {}

// ForLoop iterates a variable over an iterable.
type ForLoop struct {
	Pos      Pos
	Variable string
	Iterable Expression
	Body     *Block
}

func (n *ForLoop) Position() Pos    { return n.Pos }
func (n *ForLoop) Accept(v Visitor) { v.VisitForLoop(n) }
func (n *ForLoop) stmtNode()        {}

// WhileLoop repeats while the condition holds.
type WhileLoop struct {
	Pos       Pos
	Condition Expression
	Body      *Block
}

func (n *WhileLoop) Position() Pos    { return n.Pos }
func (n *WhileLoop) Accept(v Visitor) { v.VisitWhileLoop(n) }
func (n *WhileLoop) stmtNode()        {}

// Return exits the enclosing capability, optionally with a value.
type Return struct {
	Pos   Pos
	Value Expression
}

func (n *Return) Position() Pos    { return n.Pos }
func (n *Return) Accept(v Visitor) { v.VisitReturn(n) }
func (n *Return) stmtNode()        {}

// Emit publishes an event with optional payload.
type Emit struct {
	Pos   Pos
	Event Expression
	Data  Expression
}

func (n *Emit) Position() Pos    { return n.Pos }
func (n *Emit) Accept(v Visitor) { v.VisitEmit(n) }
func (n *Emit) stmtNode()        {}

// Await suspends on an expression inside an async capability.
type Await struct {
	Pos  Pos
	Expr Expression
}

func (n *Await) Position() Pos    { return n.Pos }
func (n *Await) Accept(v Visitor) { v.VisitAwait(n) }
func (n *Await) stmtNode()        {}

// CatchClause handles one error type. ErrorType is empty for a
// catch-all; the caught value is bound as "error" in the clause scope.
type CatchClause struct {
	Pos       Pos
	ErrorType string
	Body      *Block
}

// TryCatch guards a block with one or more catch clauses and an
// optional finally block.
type TryCatch struct {
	Pos     Pos
	Try     *Block
	Catches []*CatchClause
	Finally *Block
}

func (n *TryCatch) Position() Pos    { return n.Pos }
func (n *TryCatch) Accept(v Visitor) { v.VisitTryCatch(n) }
func (n *TryCatch) stmtNode()        {}
