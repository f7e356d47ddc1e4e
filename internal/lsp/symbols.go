package lsp

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/xonecas/projsym/internal/navto"
	"github.com/xonecas/projsym/internal/tags"
)

// symbolDeprecated is the LSP SymbolTag for deprecated symbols.
const symbolDeprecated = 1

// symbolInformation covers both SymbolInformation and WorkspaceSymbol; the
// latter may omit the range.
type symbolInformation struct {
	Name          string `json:"name"`
	Kind          int    `json:"kind"`
	Tags          []int  `json:"tags,omitempty"`
	Deprecated    bool   `json:"deprecated,omitempty"`
	ContainerName string `json:"containerName,omitempty"`
	Location      struct {
		URI   string `json:"uri"`
		Range *struct {
			Start position `json:"start"`
			End   position `json:"end"`
		} `json:"range,omitempty"`
	} `json:"location"`
}

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// decodeSymbols converts a workspace/symbol result into navto items with
// 1-based positions.
func decodeSymbols(raw json.RawMessage) ([]navto.Item, error) {
	var syms []symbolInformation
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &syms); err != nil {
		return nil, err
	}

	items := make([]navto.Item, 0, len(syms))
	for _, s := range syms {
		it := navto.Item{
			Name:          s.Name,
			Kind:          string(tags.LSPKind(s.Kind)),
			File:          uriToPath(s.Location.URI),
			ContainerName: s.ContainerName,
			MatchKind:     "substring",
		}
		if s.Deprecated || hasTag(s.Tags, symbolDeprecated) {
			it.KindModifiers = "deprecated"
		}
		if r := s.Location.Range; r != nil {
			it.Start = navto.Location{Line: r.Start.Line + 1, Offset: r.Start.Character + 1}
			it.End = navto.Location{Line: r.End.Line + 1, Offset: r.End.Character + 1}
		}
		items = append(items, it)
	}
	return items, nil
}

func hasTag(ts []int, want int) bool {
	for _, t := range ts {
		if t == want {
			return true
		}
	}
	return false
}

// uriToPath turns a file:// URI into a filesystem path. Other schemes are
// returned unchanged.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	p := u.Path
	// file:///C:/x on Windows.
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

type symbolKey struct {
	file string
	name string
}

// nest groups items under the item named by their ContainerName in the same
// file. Items whose container isn't in the result stay at the top level.
// Order within each level follows the server's order.
func nest(items []navto.Item) navto.Node {
	first := make(map[symbolKey]int, len(items))
	for i, it := range items {
		k := symbolKey{it.File, it.Name}
		if _, ok := first[k]; !ok {
			first[k] = i
		}
	}

	parent := make([]int, len(items))
	for i, it := range items {
		parent[i] = -1
		if it.ContainerName == "" {
			continue
		}
		if p, ok := first[symbolKey{it.File, it.ContainerName}]; ok && p != i {
			parent[i] = p
		}
	}

	// Break cycles (a contains b contains a).
	for i := range parent {
		for p, steps := parent[i], 0; p != -1 && steps <= len(parent); p, steps = parent[p], steps+1 {
			if p == i {
				parent[i] = -1
				break
			}
		}
	}

	children := make([][]int, len(items))
	var roots []int
	for i, p := range parent {
		if p == -1 {
			roots = append(roots, i)
			continue
		}
		items[i].ContainerKind = items[p].Kind
		children[p] = append(children[p], i)
	}

	var build func(i int) navto.Node
	build = func(i int) navto.Node {
		kids := make([]navto.Node, 0, len(children[i]))
		for _, c := range children[i] {
			kids = append(kids, build(c))
		}
		return navto.Entry(items[i], kids...)
	}

	nodes := make([]navto.Node, 0, len(roots))
	for _, r := range roots {
		nodes = append(nodes, build(r))
	}
	return navto.Group(nodes...)
}
