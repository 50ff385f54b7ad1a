package tsparse

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language names. LanguageID returns the editor language id for each.
const (
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

// extToLanguage maps file extensions to grammar names. Declaration files
// (".d.ts") share the ".ts" extension.
var extToLanguage = map[string]string{
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// langToGrammar is initialized on first use.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			LangTypeScript: ts.GetLanguage(),
			LangTSX:        tsx.GetLanguage(),
		}
	})
}

// LanguageForFile returns the grammar name for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter Language for a grammar name.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// LanguageID maps a grammar name to the editor language identifier
// ("typescript", "typescriptreact").
func LanguageID(lang string) string {
	if lang == LangTSX {
		return "typescriptreact"
	}
	return "typescript"
}
