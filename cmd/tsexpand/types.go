package main

import (
	"encoding/json"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIDeclaration is one classified declaration or node.
type CLIDeclaration struct {
	Name    string          `json:"name,omitempty"`
	Variant string          `json:"variant"`
	Text    string          `json:"text"`
	Type    json.RawMessage `json:"type"`
}

// CLIProperty is one expanded member.
type CLIProperty struct {
	Name    string          `json:"name"`
	Variant string          `json:"variant"`
	Text    string          `json:"text"`
	Type    json.RawMessage `json:"type"`
}

// CLITreeNode is one row of a rendered tree.
type CLITreeNode struct {
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
	Children    []CLITreeNode `json:"children,omitempty"`
}

// CLIIndexResult summarizes an index run.
type CLIIndexResult struct {
	Indexed int                       `json:"indexed"`
	Skipped int                       `json:"skipped"`
	Removed int                       `json:"removed"`
	Changes map[string]CLIFileChanges `json:"changes,omitempty"`
}

type CLIFileChanges struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// CLIIndexedDeclaration is one row returned by find.
type CLIIndexedDeclaration struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Variant   string `json:"variant"`
	TypeName  string `json:"type_name,omitempty"`
	Text      string `json:"text"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
}
