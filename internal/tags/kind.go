package tags

// Kind is the symbol kind shown next to a tag.
type Kind string

const (
	KindFile          Kind = "file"
	KindModule        Kind = "module"
	KindNamespace     Kind = "namespace"
	KindPackage       Kind = "package"
	KindClass         Kind = "class"
	KindMethod        Kind = "method"
	KindProperty      Kind = "property"
	KindField         Kind = "field"
	KindConstructor   Kind = "constructor"
	KindEnum          Kind = "enum"
	KindInterface     Kind = "interface"
	KindFunction      Kind = "function"
	KindVariable      Kind = "variable"
	KindConstant      Kind = "constant"
	KindString        Kind = "string"
	KindNumber        Kind = "number"
	KindBoolean       Kind = "boolean"
	KindArray         Kind = "array"
	KindObject        Kind = "object"
	KindKey           Kind = "key"
	KindNull          Kind = "null"
	KindEnumMember    Kind = "enum_member"
	KindStruct        Kind = "struct"
	KindEvent         Kind = "event"
	KindOperator      Kind = "operator"
	KindTypeParameter Kind = "type_parameter"
	KindType          Kind = "type"
	KindUnknown       Kind = "unknown"
)

// See: https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#symbolKind
var lspKinds = map[int]Kind{
	1:  KindFile,
	2:  KindModule,
	3:  KindNamespace,
	4:  KindPackage,
	5:  KindClass,
	6:  KindMethod,
	7:  KindProperty,
	8:  KindField,
	9:  KindConstructor,
	10: KindEnum,
	11: KindInterface,
	12: KindFunction,
	13: KindVariable,
	14: KindConstant,
	15: KindString,
	16: KindNumber,
	17: KindBoolean,
	18: KindArray,
	19: KindObject,
	20: KindKey,
	21: KindNull,
	22: KindEnumMember,
	23: KindStruct,
	24: KindEvent,
	25: KindOperator,
	26: KindTypeParameter,
}

// LSPKind returns the Kind for an LSP SymbolKind number.
func LSPKind(kind int) Kind {
	k, ok := lspKinds[kind]
	if !ok {
		return KindUnknown
	}
	return k
}

// ParseKind normalizes a backend kind label. Labels we don't know are kept
// as-is so nothing the backend says is lost.
func ParseKind(s string) Kind {
	switch s {
	case "":
		return KindUnknown
	case "func":
		return KindFunction
	case "var", "let":
		return KindVariable
	case "const":
		return KindConstant
	case "pkg":
		return KindPackage
	case "enum member":
		return KindEnumMember
	case "type parameter":
		return KindTypeParameter
	}
	return Kind(s)
}
