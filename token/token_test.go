package token

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{EOF, "EOF"},
		{IDENT, "identifier"},
		{CONCAT, "++"},
		{POWER, "**"},
		{AGENT, "agent"},
		{TYPE_OPTIONAL, "optional"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
	if got := Kind(9999).String(); got != "Kind(9999)" {
		t.Errorf("unknown kind String() = %q", got)
	}
}

func TestIsTypeKeyword(t *testing.T) {
	for _, k := range []Kind{TYPE_STRING, TYPE_INTEGER, TYPE_MAP, TYPE_OPTIONAL} {
		if !k.IsTypeKeyword() {
			t.Errorf("%v.IsTypeKeyword() = false, want true", k)
		}
	}
	for _, k := range []Kind{IDENT, AGENT, STRING, VAR} {
		if k.IsTypeKeyword() {
			t.Errorf("%v.IsTypeKeyword() = true, want false", k)
		}
	}
}

func TestIsLayout(t *testing.T) {
	for _, k := range []Kind{NEWLINE, INDENT, DEDENT} {
		if !k.IsLayout() {
			t.Errorf("%v.IsLayout() = false, want true", k)
		}
	}
	if EOF.IsLayout() {
		t.Error("EOF.IsLayout() = true, want false")
	}
}

func TestKeywordsTable(t *testing.T) {
	if Keywords["agent"] != AGENT {
		t.Error(`Keywords["agent"] != AGENT`)
	}
	if Keywords["true"] != BOOLEAN || Keywords["false"] != BOOLEAN {
		t.Error("boolean literals missing from keyword table")
	}
	if Keywords["none"] != NONE {
		t.Error(`Keywords["none"] != NONE`)
	}
	if _, ok := Keywords["version"]; ok {
		t.Error("version must stay a contextual identifier, not a keyword")
	}
	if _, ok := Keywords["metadata"]; ok {
		t.Error("metadata must stay a contextual identifier, not a keyword")
	}
}
