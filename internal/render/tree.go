package render

import (
	"context"
	"fmt"
	"strings"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// TreeOptions control tree labels and array expansion.
type TreeOptions struct {
	// CompactOptionalType shows `name?` instead of `T | undefined` members.
	CompactOptionalType bool
	// CompactPropertyLength truncates descriptions; 0 disables it.
	CompactPropertyLength int
	// DirectExpandArray lists an array element's children directly under
	// the array.
	DirectExpandArray bool
}

// Node is one row of the type tree.
type Node struct {
	Label       string
	Description string
	Tooltip     string
	Expandable  bool
	Type        to.TypeObject
}

// Tree builds expandable tree rows, fetching object members on demand.
type Tree struct {
	fetcher PropertyFetcher
	opts    TreeOptions
}

// NewTree returns a Tree over fetcher.
func NewTree(fetcher PropertyFetcher, opts TreeOptions) *Tree {
	return &Tree{fetcher: fetcher, opts: opts}
}

type nodeMeta struct {
	name string
	desc string
}

// Root returns the top row for a declaration. name may be empty.
func (tr *Tree) Root(name string, t to.TypeObject) Node {
	return tr.node(t, nodeMeta{name: name})
}

func (tr *Tree) node(t to.TypeObject, meta nodeMeta) Node {
	n := Node{Type: t, Expandable: Expandable(t), Tooltip: Label(t)}
	switch {
	case meta.name != "" && n.Expandable:
		n.Label = meta.name
	case meta.name != "":
		n.Label = meta.name + ": " + Truncate(Label(t), tr.opts.CompactPropertyLength)
	default:
		n.Label = Truncate(Label(t), tr.opts.CompactPropertyLength)
	}

	var desc []string
	if meta.desc != "" {
		desc = append(desc, meta.desc)
	}
	if k := KindOf(t); k != "" {
		desc = append(desc, string(k))
	}
	if arr, ok := t.(*to.Array); ok && tr.opts.DirectExpandArray {
		if k := KindOf(arr.Child); k != "" {
			desc = append(desc, string(k))
		}
	}
	n.Description = strings.Join(desc, " ")
	return n
}

// Children returns the rows under n.
func (tr *Tree) Children(ctx context.Context, n Node) ([]Node, error) {
	switch v := n.Type.(type) {
	case *to.Callable:
		out := make([]Node, 0, len(v.ArgTypes)+1)
		for i, a := range v.ArgTypes {
			out = append(out, tr.node(a.Type, nodeMeta{name: a.Name, desc: fmt.Sprintf("Arg%d", i)}))
		}
		return append(out, tr.node(v.ReturnType, nodeMeta{desc: "ReturnType"})), nil
	case *to.Array:
		child := tr.node(v.Child, nodeMeta{})
		if tr.opts.DirectExpandArray {
			return tr.Children(ctx, child)
		}
		return []Node{child}, nil
	case *to.Enum:
		out := make([]Node, 0, len(v.Enums))
		for _, m := range v.Enums {
			out = append(out, tr.node(m.Type, nodeMeta{desc: m.Name}))
		}
		return out, nil
	case *to.Union:
		out := make([]Node, 0, len(v.Unions))
		for _, u := range v.Unions {
			out = append(out, tr.node(u, nodeMeta{}))
		}
		return out, nil
	case *to.Object:
		if tr.fetcher == nil {
			return nil, nil
		}
		props, err := tr.fetcher.Properties(ctx, v.StoreKey)
		if err != nil {
			return nil, fmt.Errorf("render: children of %s: %w", v.TypeName, err)
		}
		out := make([]Node, 0, len(props))
		for _, p := range props {
			name, t := p.Name, p.Type
			if tr.opts.CompactOptionalType {
				name, t = compactOptional(name, t)
			}
			out = append(out, tr.node(t, nodeMeta{name: name}))
		}
		return out, nil
	case *to.Promise:
		return []Node{tr.node(v.Child, nodeMeta{})}, nil
	case *to.PromiseLike:
		return []Node{tr.node(v.Child, nodeMeta{})}, nil
	}
	return nil, nil
}

// compactOptional turns `name: T | undefined` into `name?: T`.
func compactOptional(name string, t to.TypeObject) (string, to.TypeObject) {
	u, ok := t.(*to.Union)
	if !ok {
		return name, t
	}
	others := make([]to.TypeObject, 0, len(u.Unions))
	for _, m := range u.Unions {
		if s, ok := m.(*to.Special); ok && s.Kind == to.SpecialUndefined {
			continue
		}
		others = append(others, m)
	}
	switch len(others) {
	case len(u.Unions):
		return name, t
	case 1:
		return name + "?", others[0]
	}
	return name + "?", &to.Union{
		TypeName: strings.Replace(u.TypeName, " | undefined", "", 1),
		Unions:   others,
	}
}
