package highlighter

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/ionut-t/kokona/internal/cachemanager"
)

// grammarEntry wraps a lexer so "no grammar" can be cached as well.
type grammarEntry struct {
	lexer chroma.Lexer
}

// GrammarCache memoizes grammar lookups by file extension.
type GrammarCache = cachemanager.InMemoryCacheManager[string, grammarEntry]

// NewGrammarCache returns an empty grammar cache whose entries never expire.
func NewGrammarCache() *GrammarCache {
	return cachemanager.NewInMemoryCacheManager[string, grammarEntry]("grammars", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval)
}

var defaultGrammars = NewGrammarCache()

// grammarKey is the lowercased extension including the dot, or the base name
// for files without one (Makefile, Dockerfile).
func grammarKey(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.ToLower(ext)
	}
	return base
}

func lookupGrammar(cache *GrammarCache, filename string) chroma.Lexer {
	if filename == "" {
		return nil
	}

	key := grammarKey(filename)
	if cache == nil {
		return matchGrammar(key).lexer
	}
	return cache.GetOrLoad(key, matchGrammar).lexer
}

func matchGrammar(key string) grammarEntry {
	pattern := key
	if strings.HasPrefix(key, ".") {
		pattern = "file" + key
	}

	lexer := lexers.Match(pattern)
	if lexer == nil {
		return grammarEntry{}
	}
	return grammarEntry{lexer: chroma.Coalesce(lexer)}
}

func lookupLanguage(language string) chroma.Lexer {
	if language == "" {
		return nil
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}
