package ual

import (
	"fmt"
	"strings"

	"github.com/ualang/ual/ast"
)

// dumpAgent renders a declaration-level outline of the AST for debug
// metadata. Bodies are summarized by statement count, not printed.
func dumpAgent(agent *ast.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "agent %s", agent.Name)
	if agent.Version != "" {
		fmt.Fprintf(&b, " v%s", agent.Version)
	}
	b.WriteByte('\n')
	for _, imp := range agent.Imports {
		fmt.Fprintf(&b, "  import %s", imp.Path)
		if imp.Alias != "" {
			fmt.Fprintf(&b, " as %s", imp.Alias)
		}
		b.WriteByte('\n')
	}
	for _, st := range agent.States {
		fmt.Fprintf(&b, "  state %s: %s", st.Name, st.Type.String())
		if st.IsPersistent {
			b.WriteString(" persistent")
		}
		if st.InitialValue != nil {
			b.WriteString(" = <init>")
		}
		b.WriteByte('\n')
	}
	for _, res := range agent.Resources {
		fmt.Fprintf(&b, "  resource %s: %s (%d config keys)\n",
			res.Name, res.ResourceType, len(res.ConfigKeys))
	}
	for _, c := range agent.Capabilities {
		kw := "capability"
		if c.IsAsync {
			kw = "async capability"
		}
		fmt.Fprintf(&b, "  %s %s(%s) -> %s%s\n",
			kw, c.Name, paramSig(c.Parameters), c.ReturnType.String(), bodySize(c.Body))
	}
	for _, beh := range agent.Behaviors {
		fmt.Fprintf(&b, "  behavior %s(%s)", beh.Name, paramSig(beh.Parameters))
		if beh.Priority != 0 {
			fmt.Fprintf(&b, " priority=%d", beh.Priority)
		}
		fmt.Fprintf(&b, "%s\n", bodySize(beh.Body))
	}
	return b.String()
}

func paramSig(params []*ast.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		sig := p.Name + ": " + p.Type.String()
		if p.Default != nil {
			sig += " = <default>"
		}
		parts = append(parts, sig)
	}
	return strings.Join(parts, ", ")
}

func bodySize(block *ast.Block) string {
	if block == nil {
		return ""
	}
	return fmt.Sprintf(" {%d stmts}", len(block.Statements))
}
