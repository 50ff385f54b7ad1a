package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatDeclarationsText formats declarations as aligned columns.
func formatDeclarationsText(w io.Writer, decls []CLIDeclaration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVARIANT\tTYPE")
	for _, d := range decls {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Variant, d.Text)
	}
	tw.Flush()
}

func formatPropertiesText(w io.Writer, props []CLIProperty) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tVARIANT\tTYPE")
	for _, p := range props {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Variant, p.Text)
	}
	tw.Flush()
}

// formatTreeText prints one row per node, indented by depth.
func formatTreeText(w io.Writer, n CLITreeNode, depth int) {
	line := strings.Repeat("  ", depth) + n.Label
	if n.Description != "" {
		line += "  (" + n.Description + ")"
	}
	fmt.Fprintln(w, line)
	for _, c := range n.Children {
		formatTreeText(w, c, depth+1)
	}
}

func formatIndexResultText(w io.Writer, r CLIIndexResult) {
	fmt.Fprintf(w, "Indexed: %d\nSkipped: %d\nRemoved: %d\n", r.Indexed, r.Skipped, r.Removed)
	if len(r.Changes) == 0 {
		return
	}
	paths := make([]string, 0, len(r.Changes))
	for p := range r.Changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fmt.Fprintln(w, "\nChanges:")
	for _, p := range paths {
		c := r.Changes[p]
		fmt.Fprintf(w, "  %s\n", p)
		for _, n := range c.Added {
			fmt.Fprintf(w, "    + %s\n", n)
		}
		for _, n := range c.Removed {
			fmt.Fprintf(w, "    - %s\n", n)
		}
		for _, n := range c.Changed {
			fmt.Fprintf(w, "    ~ %s\n", n)
		}
	}
}

func formatIndexedText(w io.Writer, decls []CLIIndexedDeclaration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVARIANT\tTYPE\tFILE\tLINE")
	for _, d := range decls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", d.Name, d.Kind, d.Variant, d.Text, d.File, d.StartLine)
	}
	tw.Flush()
}

// outputResultText dispatches to the text formatter of the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDeclaration:
		formatDeclarationsText(w, v)
	case CLIDeclaration:
		formatDeclarationsText(w, []CLIDeclaration{v})
	case []CLIProperty:
		formatPropertiesText(w, v)
	case CLITreeNode:
		formatTreeText(w, v, 0)
	case CLIIndexResult:
		formatIndexResultText(w, v)
	case []CLIIndexedDeclaration:
		formatIndexedText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
