package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	tsexpand "github.com/d-kimuson/ts-type-expand"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Classify every exported declaration of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, decls, err := a.extract(ctx, args[0])
			if err != nil {
				return a.outputError("extract", err)
			}
			defer e.Close()

			out := make([]CLIDeclaration, 0, len(decls))
			for _, d := range decls {
				cd, err := describe(ctx, e, d.DeclaredName, d.Type)
				if err != nil {
					return a.outputError("extract", err)
				}
				out = append(out, cd)
			}
			n := len(out)
			return a.outputResult(CLIResult{Command: "extract", Results: out, TotalCount: &n})
		},
	}
}

func newAtCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "at <file> <line> <col>",
		Short: "Classify the type of the node at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, line, col, err := parsePosition(args)
			if err != nil {
				return a.outputError("at", err)
			}
			e, err := a.loadEngine(ctx, false)
			if err != nil {
				return a.outputError("at", err)
			}
			defer e.Close()

			res, err := e.ClassifyAtPosition(ctx, path, line, col)
			if err != nil {
				return a.outputError("at", err)
			}
			cd, err := describe(ctx, e, res.DeclaredName, res.Type)
			if err != nil {
				return a.outputError("at", err)
			}
			return a.outputResult(CLIResult{Command: "at", Results: cd})
		},
	}
}

func newPropsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "props <file> <name[.member...]>",
		Short: "List the members of an exported object type",
		Long:  "Expands the exported declaration <name> of <file> and lists its members. Each dotted segment descends into the member of that name; arrays descend into their element type.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, decls, err := a.extract(ctx, args[0])
			if err != nil {
				return a.outputError("props", err)
			}
			defer e.Close()

			segments := strings.Split(args[1], ".")
			t, err := lookupDeclaration(decls, segments[0])
			if err != nil {
				return a.outputError("props", err)
			}
			for _, seg := range segments[1:] {
				if t, err = member(ctx, e, t, seg); err != nil {
					return a.outputError("props", err)
				}
			}
			obj, ok := objectOf(t)
			if !ok {
				return a.outputError("props", fmt.Errorf("%s is %s, not an object", args[1], t.Variant()))
			}

			props := e.GetProperties(ctx, obj.StoreKey)
			out := make([]CLIProperty, 0, len(props))
			for _, p := range props {
				cd, err := describe(ctx, e, p.Name, p.Type)
				if err != nil {
					return a.outputError("props", err)
				}
				out = append(out, CLIProperty(cd))
			}
			n := len(out)
			return a.outputResult(CLIResult{Command: "props", Results: out, TotalCount: &n})
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree <file> <name>",
		Short: "Print the expandable tree of an exported declaration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, decls, err := a.extract(ctx, args[0])
			if err != nil {
				return a.outputError("tree", err)
			}
			defer e.Close()

			t, err := lookupDeclaration(decls, args[1])
			if err != nil {
				return a.outputError("tree", err)
			}
			tree := e.Tree()
			node, err := buildTree(ctx, tree, tree.Root(args[1], t), depth)
			if err != nil {
				return a.outputError("tree", err)
			}
			return a.outputResult(CLIResult{Command: "tree", Results: node})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "levels to expand below the root")
	return cmd
}

// extract loads the project and extracts the declarations of file. The
// caller closes the engine.
func (a *app) extract(ctx context.Context, file string) (*tsexpand.Engine, []to.Declaration, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return nil, nil, err
	}
	e, err := a.loadEngine(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	decls, err := e.ExtractDeclaredTypes(ctx, path)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, decls, nil
}

func parsePosition(args []string) (string, int, int, error) {
	path, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 0 {
		return "", 0, 0, fmt.Errorf("invalid line %q", args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 0 {
		return "", 0, 0, fmt.Errorf("invalid column %q", args[2])
	}
	return path, line, col, nil
}

func describe(ctx context.Context, e *tsexpand.Engine, name string, t to.TypeObject) (CLIDeclaration, error) {
	data, err := to.Marshal(t)
	if err != nil {
		return CLIDeclaration{}, err
	}
	text, err := e.RenderType(ctx, t)
	if err != nil {
		return CLIDeclaration{}, err
	}
	return CLIDeclaration{Name: name, Variant: string(t.Variant()), Text: text, Type: data}, nil
}

func lookupDeclaration(decls []to.Declaration, name string) (to.TypeObject, error) {
	for _, d := range decls {
		if d.DeclaredName == name {
			return d.Type, nil
		}
	}
	return nil, fmt.Errorf("no exported declaration named %q", name)
}

// objectOf returns the object t denotes, looking through arrays.
func objectOf(t to.TypeObject) (*to.Object, bool) {
	for {
		switch v := t.(type) {
		case *to.Object:
			return v, true
		case *to.Array:
			t = v.Child
		default:
			return nil, false
		}
	}
}

func member(ctx context.Context, e *tsexpand.Engine, t to.TypeObject, name string) (to.TypeObject, error) {
	obj, ok := objectOf(t)
	if !ok {
		return nil, fmt.Errorf("cannot descend into %s member %q", t.Variant(), name)
	}
	for _, p := range e.GetProperties(ctx, obj.StoreKey) {
		if p.Name == name {
			return p.Type, nil
		}
	}
	return nil, fmt.Errorf("%s has no member %q", obj.TypeName, name)
}

func buildTree(ctx context.Context, tree *render.Tree, n render.Node, depth int) (CLITreeNode, error) {
	out := CLITreeNode{Label: n.Label, Description: n.Description}
	if depth <= 0 || !n.Expandable {
		return out, nil
	}
	kids, err := tree.Children(ctx, n)
	if err != nil {
		return out, err
	}
	for _, k := range kids {
		child, err := buildTree(ctx, tree, k, depth-1)
		if err != nil {
			return out, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}
