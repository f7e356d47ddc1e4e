package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"
)

type extractor func(root *sitter.Node, src []byte) []Symbol

type grammar struct {
	lang    *sitter.Language
	extract extractor
}

// grammarForExt returns the grammar for a file extension, or false.
func grammarForExt(ext string) (grammar, bool) {
	switch ext {
	case ".go":
		return grammar{golang.GetLanguage(), extractGo}, true
	case ".py", ".pyi":
		return grammar{python.GetLanguage(), extractPython}, true
	default:
		return grammar{}, false
	}
}

// Supported returns true if the file extension has a tree-sitter grammar.
func Supported(path string) bool {
	_, ok := grammarForExt(strings.ToLower(filepath.Ext(path)))
	return ok
}

// ParseFile reads and parses a file, returning its top-level symbols.
func ParseFile(ctx context.Context, path string) ([]Symbol, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSource(ctx, path, src)
}

// ParseSource parses source bytes and returns top-level symbols.
func ParseSource(ctx context.Context, path string, src []byte) ([]Symbol, error) {
	g, ok := grammarForExt(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return g.extract(tree.RootNode(), src), nil
}

// extractGo walks a Go AST root and extracts top-level symbols.
func extractGo(root *sitter.Node, src []byte) []Symbol {
	var syms []Symbol
	count := int(root.ChildCount())

	for i := 0; i < count; i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_clause":
			// package_identifier is a named child, not a field.
			if nc := child.NamedChild(0); nc != nil && nc.Type() == "package_identifier" {
				sym := at(child, KindPackage)
				sym.Name = content(nc, src)
				syms = append(syms, sym)
			}

		case "import_declaration":
			sym := at(child, KindImport)
			sym.Name = strings.TrimSpace(content(child, src))
			syms = append(syms, sym)

		case "function_declaration":
			syms = append(syms, extractFunc(child, src))

		case "method_declaration":
			syms = append(syms, extractMethod(child, src))

		case "type_declaration":
			syms = append(syms, extractTypeDecl(child, src)...)

		case "const_declaration":
			syms = append(syms, extractConstVar(child, src, KindConst)...)

		case "var_declaration":
			syms = append(syms, extractConstVar(child, src, KindVar)...)
		}
	}
	return syms
}

func extractFunc(node *sitter.Node, src []byte) Symbol {
	sym := at(node, KindFunction)
	if name := node.ChildByFieldName("name"); name != nil {
		sym.Name = content(name, src)
	}
	sym.Signature = buildFuncSig("", sym.Name, node.ChildByFieldName("parameters"), node.ChildByFieldName("result"), src)
	return sym
}

func extractMethod(node *sitter.Node, src []byte) Symbol {
	sym := at(node, KindMethod)
	if name := node.ChildByFieldName("name"); name != nil {
		sym.Name = content(name, src)
	}

	var recvStr string
	if receiver := node.ChildByFieldName("receiver"); receiver != nil {
		recvStr = content(receiver, src)
		sym.Receiver = extractReceiverType(receiver, src)
	}
	sym.Signature = buildFuncSig(recvStr, sym.Name, node.ChildByFieldName("parameters"), node.ChildByFieldName("result"), src)
	return sym
}

func extractTypeDecl(node *sitter.Node, src []byte) []Symbol {
	var syms []Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "type_spec" || child.Type() == "type_alias" {
			syms = append(syms, extractTypeSpec(child, src))
		}
	}
	return syms
}

func extractTypeSpec(node *sitter.Node, src []byte) Symbol {
	sym := at(node, KindType)
	if name := node.ChildByFieldName("name"); name != nil {
		sym.Name = content(name, src)
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			sym.Kind = KindStruct
			sym.Children = extractStructFields(typeNode, src)
		case "interface_type":
			sym.Kind = KindInterface
			sym.Children = extractInterfaceMethods(typeNode, src)
		}
		sym.Signature = "type " + sym.Name + " " + typeNode.Type()
	}
	return sym
}

func extractStructFields(node *sitter.Node, src []byte) []Symbol {
	body := node.ChildByFieldName("body")
	if body == nil {
		// struct_type has field_declaration_list as child
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child.Type() == "field_declaration_list" {
				body = child
				break
			}
		}
	}
	if body == nil {
		return nil
	}

	var fields []Symbol
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() != "field_declaration" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		f := at(nameNode, KindField)
		f.Name = content(nameNode, src)
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			f.Signature = f.Name + " " + content(typeNode, src)
		}
		fields = append(fields, f)
	}
	return fields
}

func extractInterfaceMethods(node *sitter.Node, src []byte) []Symbol {
	var methods []Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "method_elem" && child.Type() != "method_spec" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			m := at(child, KindMethod)
			m.Name = content(nameNode, src)
			m.Signature = content(child, src)
			methods = append(methods, m)
		}
	}
	return methods
}

func extractConstVar(node *sitter.Node, src []byte, kind SymbolKind) []Symbol {
	var syms []Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "const_spec" && child.Type() != "var_spec" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			sym := at(child, kind)
			sym.Name = content(nameNode, src)
			syms = append(syms, sym)
		}
	}
	return syms
}

func extractReceiverType(receiver *sitter.Node, src []byte) string {
	// Walk into parameter_list -> parameter_declaration -> type
	for i := 0; i < int(receiver.ChildCount()); i++ {
		child := receiver.Child(i)
		if child.Type() == "parameter_declaration" {
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				return content(typeNode, src)
			}
		}
	}
	return ""
}

func buildFuncSig(receiver, name string, params, result *sitter.Node, src []byte) string {
	var b strings.Builder
	b.WriteString("func ")
	if receiver != "" {
		b.WriteString(receiver)
		b.WriteByte(' ')
	}
	b.WriteString(name)
	if params != nil {
		b.WriteString(content(params, src))
	}
	if result != nil {
		b.WriteByte(' ')
		b.WriteString(content(result, src))
	}
	return b.String()
}

// extractPython collects module-level functions, classes (with their
// methods) and assignments.
func extractPython(root *sitter.Node, src []byte) []Symbol {
	var syms []Symbol
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if sym, ok := pythonSymbol(root.NamedChild(i), src, false); ok {
			syms = append(syms, sym)
		}
	}
	return syms
}

func pythonSymbol(node *sitter.Node, src []byte, inClass bool) (Symbol, bool) {
	switch node.Type() {
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			return pythonSymbol(def, src, inClass)
		}

	case "function_definition":
		kind := KindFunction
		if inClass {
			kind = KindMethod
		}
		sym := at(node, kind)
		if name := node.ChildByFieldName("name"); name != nil {
			sym.Name = content(name, src)
		}
		sym.Signature = "def " + sym.Name
		if params := node.ChildByFieldName("parameters"); params != nil {
			sym.Signature += content(params, src)
		}
		return sym, sym.Name != ""

	case "class_definition":
		sym := at(node, KindClass)
		if name := node.ChildByFieldName("name"); name != nil {
			sym.Name = content(name, src)
		}
		sym.Signature = "class " + sym.Name
		if body := node.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				if child, ok := pythonSymbol(body.NamedChild(i), src, true); ok {
					child.Receiver = sym.Name
					sym.Children = append(sym.Children, child)
				}
			}
		}
		return sym, sym.Name != ""

	case "expression_statement":
		if inClass || node.NamedChildCount() == 0 {
			break
		}
		assign := node.NamedChild(0)
		if assign.Type() != "assignment" {
			break
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			break
		}
		name := content(left, src)
		kind := KindVar
		if name == strings.ToUpper(name) {
			kind = KindConst
		}
		sym := at(node, kind)
		sym.Name = name
		return sym, true
	}
	return Symbol{}, false
}

// helpers

func content(node *sitter.Node, src []byte) string {
	return node.Content(src)
}

// at returns a Symbol of kind spanning node, 1-indexed.
func at(node *sitter.Node, kind SymbolKind) Symbol {
	start, end := node.StartPoint(), node.EndPoint()
	return Symbol{
		Kind:      kind,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}
