// Package sema resolves identifiers against lexical scopes and checks
// types. Analysis accumulates every error it finds instead of stopping
// at the first one.
package sema

import (
	"fmt"

	"github.com/ualang/ual/ast"
)

// SymbolKind classifies a named program entity.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolParameter
	SymbolCapability
	SymbolBehavior
	SymbolState
	SymbolType
	SymbolResource
	SymbolAgent
)

// String returns the kind name used in diagnostics.
func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolParameter:
		return "parameter"
	case SymbolCapability:
		return "capability"
	case SymbolBehavior:
		return "behavior"
	case SymbolState:
		return "state"
	case SymbolType:
		return "type"
	case SymbolResource:
		return "resource"
	case SymbolAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Symbol is an entry in a scope.
type Symbol struct {
	Name        string
	Kind        SymbolKind
	Type        *TypeInfo
	Mutable     bool
	Initialized bool

	// Capability links capability symbols back to their declaration
	// for call-site arity and type checks. Nil for built-ins.
	Capability *ast.Capability
	Builtin    bool
}

// Scope is a lexical namespace. Scopes never outlive the analysis
// visit that created them; lookup walks the analyzer's scope stack.
type Scope struct {
	Name    string
	symbols map[string]*Symbol
}

// NewScope creates an empty scope.
func NewScope(name string) *Scope {
	return &Scope{Name: name, symbols: make(map[string]*Symbol)}
}

// Define adds a symbol. It fails when the name is already bound in
// this scope; shadowing an outer scope is allowed.
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.symbols[sym.Name]; exists {
		return fmt.Errorf("duplicate symbol %q in %s scope", sym.Name, s.Name)
	}
	s.symbols[sym.Name] = sym
	return nil
}

// Resolve returns the symbol bound to name in this scope, or nil.
func (s *Scope) Resolve(name string) *Symbol {
	return s.symbols[name]
}

// TypeInfo is the analyzer's view of a type.
type TypeInfo struct {
	Base     ast.BaseType
	Custom   string // set when Base is TypeCustom
	Params   []*TypeInfo
	Nullable bool
	Async    bool
}

func typeInfo(base ast.BaseType) *TypeInfo { return &TypeInfo{Base: base} }

// fromTypeNode converts a syntactic type to a TypeInfo.
func fromTypeNode(n *ast.TypeNode) *TypeInfo {
	if n == nil {
		return typeInfo(ast.TypeAny)
	}
	info := &TypeInfo{Base: n.Base, Custom: n.TypeName}
	for _, p := range n.TypeParams {
		info.Params = append(info.Params, fromTypeNode(p))
	}
	if n.Base == ast.TypeOptional {
		info.Nullable = true
	}
	return info
}

// String renders the type for diagnostics.
func (t *TypeInfo) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Base {
	case ast.TypeCustom:
		return t.Custom
	case ast.TypeArray, ast.TypeOptional:
		if len(t.Params) == 1 {
			return string(t.Base) + "<" + t.Params[0].String() + ">"
		}
	case ast.TypeMap:
		if len(t.Params) == 2 {
			return "map<" + t.Params[0].String() + "," + t.Params[1].String() + ">"
		}
	}
	return string(t.Base)
}

func (t *TypeInfo) isNumeric() bool {
	return t.Base == ast.TypeInteger || t.Base == ast.TypeFloat || t.Base == ast.TypeAny
}

func (t *TypeInfo) isBoolean() bool {
	return t.Base == ast.TypeBoolean || t.Base == ast.TypeAny
}

func (t *TypeInfo) isString() bool {
	return t.Base == ast.TypeString || t.Base == ast.TypeAny
}

// assignable implements the type-compatibility rule: any accepts and
// is accepted by everything, a type is assignable to itself, integer
// widens to float, identical custom names match, optional<T> accepts T
// and none.
func assignable(dst, src *TypeInfo) bool {
	if dst == nil || src == nil {
		return true
	}
	if dst.Base == ast.TypeAny || src.Base == ast.TypeAny {
		return true
	}
	if dst.Base == ast.TypeOptional {
		if src.Nullable {
			return true
		}
		if len(dst.Params) == 1 {
			return assignable(dst.Params[0], src)
		}
		return true
	}
	if dst.Base == ast.TypeFloat && src.Base == ast.TypeInteger {
		return true
	}
	if dst.Base != src.Base {
		return false
	}
	switch dst.Base {
	case ast.TypeCustom:
		return dst.Custom == src.Custom
	case ast.TypeArray:
		if len(dst.Params) == 1 && len(src.Params) == 1 {
			return assignable(dst.Params[0], src.Params[0])
		}
		return true
	case ast.TypeMap:
		if len(dst.Params) == 2 && len(src.Params) == 2 {
			return assignable(dst.Params[0], src.Params[0]) && assignable(dst.Params[1], src.Params[1])
		}
		return true
	}
	return true
}
