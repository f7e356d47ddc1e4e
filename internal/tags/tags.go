// Package tags flattens a navigation result tree into an ordered list of
// selectable tags. Parent links are indices into the same list, so a tag can
// never outlive or cycle back to its parent.
package tags

import (
	"fmt"
	"strings"

	"github.com/xonecas/projsym/internal/navto"
)

// NoParent marks a tag without an enclosing symbol.
const NoParent = -1

// Tag is one matched symbol.
type Tag struct {
	Name          string
	Kind          Kind
	Modifiers     string
	File          string
	Line          int // 1-indexed
	Column        int // 1-indexed
	EndLine       int
	EndColumn     int
	ContainerName string
	Parent        int // index of the enclosing tag, or NoParent
}

// HasParent reports whether t links to an enclosing tag.
func (t Tag) HasParent() bool { return t.Parent != NoParent }

// Location formats t as file:line:col.
func (t Tag) Location() string {
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

// Tags is a flat, pre-ordered tag list. A tag always precedes its descendants.
type Tags []Tag

// Parent returns the enclosing tag of ts[i].
func (ts Tags) Parent(i int) (Tag, bool) {
	if i < 0 || i >= len(ts) || !ts[i].HasParent() {
		return Tag{}, false
	}
	return ts[ts[i].Parent], true
}

// Path returns the breadcrumb for ts[i], outermost first, e.g. "Server.Start".
func (ts Tags) Path(i int) string {
	if i < 0 || i >= len(ts) {
		return ""
	}
	var names []string
	for j := i; j != NoParent; j = ts[j].Parent {
		names = append(names, ts[j].Name)
	}
	for l, r := 0, len(names)-1; l < r; l, r = l+1, r-1 {
		names[l], names[r] = names[r], names[l]
	}
	return strings.Join(names, ".")
}

// Build walks nodes depth-first in pre-order. Every entry becomes a tag whose
// parent is the nearest enclosing entry; groups only contribute their
// children. Sibling order is kept. Callers may pass a bare entry, a group,
// or several of either.
func Build(nodes ...navto.Node) Tags {
	var out Tags
	for _, n := range nodes {
		out = build(n, out, NoParent)
	}
	if out == nil {
		out = Tags{}
	}
	return out
}

func build(n navto.Node, out Tags, parent int) Tags {
	if n.Item != nil {
		out = append(out, newTag(*n.Item, parent))
		parent = len(out) - 1
	}
	for _, child := range n.Children {
		out = build(child, out, parent)
	}
	return out
}

func newTag(it navto.Item, parent int) Tag {
	return Tag{
		Name:          it.Name,
		Kind:          ParseKind(it.Kind),
		Modifiers:     it.KindModifiers,
		File:          it.File,
		Line:          it.Start.Line,
		Column:        it.Start.Offset,
		EndLine:       it.End.Line,
		EndColumn:     it.End.Offset,
		ContainerName: it.ContainerName,
		Parent:        parent,
	}
}
