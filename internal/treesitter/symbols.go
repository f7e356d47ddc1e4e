// Package treesitter provides tree-sitter based code parsing for structural
// symbol extraction. Its project index answers symbol searches when no
// language server is available.
package treesitter

import "strings"

// SymbolKind classifies extracted symbols.
type SymbolKind int

const (
	KindPackage SymbolKind = iota
	KindImport
	KindFunction
	KindMethod
	KindType
	KindStruct
	KindInterface
	KindConst
	KindVar
	KindField
	KindClass
)

// Symbol represents a single extracted code symbol.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Signature string // e.g. "func (p *Proxy) CallTool(ctx context.Context, ...)"
	StartLine int    // 1-indexed
	StartCol  int    // 1-indexed, bytes
	EndLine   int    // 1-indexed
	EndCol    int    // 1-indexed, bytes
	Receiver  string // method receiver type, empty for functions
	Children  []Symbol
}

// String returns the kind label understood by the tag builder.
func (k SymbolKind) String() string {
	switch k {
	case KindPackage:
		return "pkg"
	case KindImport:
		return "import"
	case KindFunction:
		return "func"
	case KindMethod:
		return "method"
	case KindType:
		return "type"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindField:
		return "field"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// searchable reports whether symbols of kind k show up in search results.
func (k SymbolKind) searchable() bool {
	return k != KindImport
}

// container reports whether methods can be nested under a symbol of kind k.
func (k SymbolKind) container() bool {
	switch k {
	case KindType, KindStruct, KindInterface, KindClass:
		return true
	}
	return false
}

// ReceiverType strips pointer and type parameters from a Go receiver type:
// "*Server[T]" becomes "Server".
func ReceiverType(recv string) string {
	recv = strings.TrimSpace(recv)
	recv = strings.TrimLeft(recv, "*")
	if i := strings.IndexByte(recv, '['); i >= 0 {
		recv = recv[:i]
	}
	return strings.TrimSpace(recv)
}
