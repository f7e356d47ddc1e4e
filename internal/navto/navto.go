// Package navto defines the request/response shapes of a project-wide
// symbol search and the session interfaces a backend must provide.
package navto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoSession is returned by a Resolver that has no backend for a file.
var ErrNoSession = errors.New("navto: no session for file")

// Session is a persistent analysis session able to answer navto requests.
type Session interface {
	// Open makes sure the file is loaded. Calling it repeatedly is fine.
	Open(ctx context.Context, file string) error
	// Navto searches the project for symbols matching req.SearchValue.
	Navto(ctx context.Context, req Request) (*Response, error)
}

// Resolver finds (or starts) the session responsible for a file.
type Resolver interface {
	Session(ctx context.Context, file string) (Session, error)
}

// Request scopes a search to a file's project.
type Request struct {
	File            string `json:"file"`
	SearchValue     string `json:"searchValue"`
	CurrentFileOnly bool   `json:"currentFileOnly"`
	MaxResults      int    `json:"maxResultCount,omitempty"`
}

// Response wraps the navigation result. Body is nil when the backend
// answered with a null or absent payload.
type Response struct {
	Body *Node `json:"body"`
}

// Location is a 1-based line/offset pair.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// Item is a single symbol entry.
type Item struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers,omitempty"`
	MatchKind     string   `json:"matchKind,omitempty"`
	File          string   `json:"file"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	ContainerName string   `json:"containerName,omitempty"`
	ContainerKind string   `json:"containerKind,omitempty"`
}

// Node is either a single entry (Item set, Children nested under it) or a
// group of siblings (Item nil). Groups may nest to any depth.
type Node struct {
	Item     *Item
	Children []Node
}

// Entry returns an entry node.
func Entry(it Item, children ...Node) Node {
	return Node{Item: &it, Children: children}
}

// Group returns a group node.
func Group(children ...Node) Node {
	return Node{Children: children}
}

// IsEntry reports whether n carries an Item.
func (n Node) IsEntry() bool { return n.Item != nil }

// Len counts the entries in n, recursively.
func (n Node) Len() int {
	count := 0
	if n.Item != nil {
		count++
	}
	for _, c := range n.Children {
		count += c.Len()
	}
	return count
}

type entryJSON struct {
	Item
	ChildItems []Node `json:"childItems,omitempty"`
}

// UnmarshalJSON accepts an entry object, an array of nodes, or null.
func (n *Node) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*n = Node{}
		return nil
	case data[0] == '[':
		var children []Node
		if err := json.Unmarshal(data, &children); err != nil {
			return fmt.Errorf("navto: decode group: %w", err)
		}
		*n = Node{Children: children}
		return nil
	case data[0] == '{':
		var e entryJSON
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("navto: decode entry: %w", err)
		}
		item := e.Item
		*n = Node{Item: &item, Children: e.ChildItems}
		return nil
	}
	return fmt.Errorf("navto: unexpected node %.20q", data)
}

// MarshalJSON writes entries as objects and groups as arrays.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Item == nil {
		children := n.Children
		if children == nil {
			children = []Node{}
		}
		return json.Marshal(children)
	}
	return json.Marshal(entryJSON{Item: *n.Item, ChildItems: n.Children})
}
