package treesitter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/navto"
)

// Navto matches symbol names case-insensitively against req.SearchValue.
// Fields and interface methods stay under their type; Go methods are
// nested under their receiver type when that type matches too.
func (idx *Index) Navto(ctx context.Context, req navto.Request) (*navto.Response, error) {
	needle := strings.ToLower(req.SearchValue)

	var files []string
	if req.CurrentFileOnly {
		if rel, ok := idx.rel(req.File); ok {
			files = []string{rel}
		}
	} else {
		files = idx.Files()
	}

	var nodes []navto.Node
	count := 0
walk:
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := filepath.Join(idx.Root(), filepath.FromSlash(rel))
		for _, n := range matchFile(abs, idx.Symbols(rel), needle) {
			used := n.Len()
			if req.MaxResults > 0 {
				if count >= req.MaxResults {
					break walk
				}
				n, used = take(n, req.MaxResults-count)
			}
			nodes = append(nodes, n)
			count += used
		}
	}

	log.Debug().Str("query", req.SearchValue).Int("files", len(files)).Int("count", count).Msg("treesitter: navto")

	body := navto.Group(nodes...)
	return &navto.Response{Body: &body}, nil
}

// take prunes n to at most budget entries, keeping them in pre-order.
func take(n navto.Node, budget int) (navto.Node, int) {
	out := navto.Node{Item: n.Item}
	used := 0
	if n.Item != nil {
		used = 1
	}
	for _, c := range n.Children {
		if used >= budget {
			break
		}
		c, k := take(c, budget-used)
		out.Children = append(out.Children, c)
		used += k
	}
	return out, used
}

func matchFile(file string, syms []Symbol, needle string) []navto.Node {
	containers := make(map[string]bool)
	for _, s := range syms {
		if s.Kind.container() && matches(s.Name, needle) {
			containers[s.Name] = true
		}
	}

	var nodes []navto.Node
	byName := make(map[string]int)           // container name -> index in nodes
	methods := make(map[string][]navto.Node) // receiver -> matched methods

	for _, s := range syms {
		if !s.Kind.searchable() {
			continue
		}

		if s.Kind == KindMethod && s.Receiver != "" {
			if !matches(s.Name, needle) {
				continue
			}
			recv := ReceiverType(s.Receiver)
			n := navto.Entry(item(file, s, needle, recv, KindType))
			if containers[recv] {
				methods[recv] = append(methods[recv], n)
				continue
			}
			nodes = append(nodes, n)
			continue
		}

		var kids []navto.Node
		for _, c := range s.Children {
			if matches(c.Name, needle) {
				kids = append(kids, navto.Entry(item(file, c, needle, s.Name, s.Kind)))
			}
		}

		if !matches(s.Name, needle) {
			// Keep matched members visible under their container's name.
			nodes = append(nodes, kids...)
			continue
		}
		if s.Kind.container() {
			if _, dup := byName[s.Name]; !dup {
				byName[s.Name] = len(nodes)
			}
		}
		nodes = append(nodes, navto.Entry(item(file, s, needle, "", 0), kids...))
	}

	for recv, ms := range methods {
		i := byName[recv]
		nodes[i].Children = append(nodes[i].Children, ms...)
	}
	return nodes
}

func matches(name, needle string) bool {
	return strings.Contains(strings.ToLower(name), needle)
}

func matchKind(name, needle string) string {
	lower := strings.ToLower(name)
	switch {
	case lower == needle:
		return "exact"
	case strings.HasPrefix(lower, needle):
		return "prefix"
	default:
		return "substring"
	}
}

func item(file string, s Symbol, needle, container string, containerKind SymbolKind) navto.Item {
	it := navto.Item{
		Name:      s.Name,
		Kind:      s.Kind.String(),
		MatchKind: matchKind(s.Name, needle),
		File:      file,
		Start:     navto.Location{Line: s.StartLine, Offset: s.StartCol},
		End:       navto.Location{Line: s.EndLine, Offset: s.EndCol},
	}
	if container != "" {
		it.ContainerName = container
		it.ContainerKind = containerKind.String()
	}
	return it
}
