package highlighter

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/ionut-t/kokona/internal/log"
)

const (
	DefaultLargeFileLines = 500
	DefaultDebounce       = 500 * time.Millisecond
	DefaultTheme          = "catppuccin-mocha"
)

var (
	errTokenMismatch = errors.New("token stream does not reproduce input")
	errTokenizer     = errors.New("tokenizer failed")
)

// fallbackForeground is used when a theme defines no text colour.
var fallbackForeground = Color{R: 0xcd, G: 0xd6, B: 0xf4}

// Engine turns a text buffer into styled spans and caches the result for the
// last buffer it saw. Buffers above the large-file threshold are not
// re-tokenized on every change: they render as one plain span until the text
// has been stable for the debounce interval.
type Engine struct {
	mu sync.Mutex

	lexer      chroma.Lexer
	style      *chroma.Style
	styleCache map[chroma.TokenType]Style
	font       Font

	largeFileLines int
	debounce       time.Duration
	now            func() time.Time
	grammars       *GrammarCache

	spans  []Span
	source string
	valid  bool

	pending    string
	dirty      bool
	dirtySince time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithTheme selects a chroma style by name. Unknown names use chroma's fallback style.
// For a full list of available themes, see: https://github.com/alecthomas/chroma/blob/master/styles
func WithTheme(name string) Option {
	return func(e *Engine) {
		e.style = styles.Get(name)
	}
}

// WithFont sets the initial font.
func WithFont(font Font) Option {
	return func(e *Engine) {
		e.font = font
	}
}

// WithLargeFileLines sets the line count above which highlighting is debounced.
// Zero disables the large-file policy.
func WithLargeFileLines(n int) Option {
	return func(e *Engine) {
		e.largeFileLines = n
	}
}

// WithDebounce sets how long a large buffer must be unchanged before it is re-tokenized.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithClock replaces the monotonic clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithGrammarCache shares a grammar lookup cache between engines.
func WithGrammarCache(cache *GrammarCache) Option {
	return func(e *Engine) {
		e.grammars = cache
	}
}

// New creates a new highlight engine with no grammar.
func New(opts ...Option) *Engine {
	e := &Engine{
		style:          styles.Get(DefaultTheme),
		styleCache:     make(map[chroma.TokenType]Style),
		font:           Font{Family: "monospace", Size: 12},
		largeFileLines: DefaultLargeFileLines,
		debounce:       DefaultDebounce,
		now:            time.Now,
		grammars:       defaultGrammars,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SetGrammar selects a grammar for filename by best-effort extension match.
// It reports whether one was found; without a grammar every buffer is one
// default-styled span.
func (e *Engine) SetGrammar(filename string) bool {
	lexer := lookupGrammar(e.grammars, filename)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lexer = lexer
	e.invalidateLocked()

	if lexer == nil {
		log.Debug(log.CatHighlight, "no grammar for file", "file", filename)
		return false
	}
	log.Debug(log.CatHighlight, "grammar selected", "file", filename, "grammar", lexer.Config().Name)
	return true
}

// SetLanguage selects a grammar by chroma name or alias, e.g. "go" or "markdown".
// An empty or unknown name disables highlighting.
func (e *Engine) SetLanguage(language string) bool {
	lexer := lookupLanguage(language)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lexer = lexer
	e.invalidateLocked()
	return lexer != nil
}

// Grammar returns the selected grammar's name, or "" when none is selected.
func (e *Engine) Grammar() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lexer == nil {
		return ""
	}
	return e.lexer.Config().Name
}

// SetTheme switches the chroma style. The next read recomputes.
func (e *Engine) SetTheme(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.style = styles.Get(name)
	e.styleCache = make(map[chroma.TokenType]Style)
	e.invalidateLocked()
}

// SetFont updates the font. A different font invalidates the cache so the
// next read recomputes with it.
func (e *Engine) SetFont(font Font) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if font == e.font {
		return
	}
	e.font = font
	e.styleCache = make(map[chroma.TokenType]Style)
	e.invalidateLocked()
}

// SetLargeFileLines changes the large-file threshold. It applies from the next
// changed buffer; zero disables the policy.
func (e *Engine) SetLargeFileLines(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.largeFileLines = n
}

// SetDebounce changes the debounce interval, including for a buffer that is
// already waiting.
func (e *Engine) SetDebounce(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debounce = d
}

// Invalidate forgets the cached source; the next read recomputes.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked()
}

func (e *Engine) invalidateLocked() {
	e.valid = false
	e.spans = nil
	e.source = ""
}

// DefaultStyle is the style of unhighlighted text.
func (e *Engine) DefaultStyle() Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.defaultStyleLocked()
}

func (e *Engine) defaultStyleLocked() Style {
	fg := fallbackForeground
	if entry := e.style.Get(chroma.Text); entry.Colour.IsSet() {
		fg = fromChroma(entry.Colour)
	}
	return Style{Foreground: fg, Font: e.font}
}

// Spans returns the styled spans for text. Reading the text the cache was
// built from is a pure read. A changed small buffer is re-tokenized
// synchronously; a changed large buffer yields a single plain span until it
// has stayed unchanged for the debounce interval.
func (e *Engine) Spans(text string) []Span {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.valid && text == e.source {
		// A large edit reverted back to the cached text needs no deferred pass.
		e.dirty = false
		return e.spans
	}

	if e.largeFileLines > 0 && LineCount(text) > e.largeFileLines {
		now := e.now()
		if !e.dirty || text != e.pending {
			e.pending = text
			e.dirty = true
			e.dirtySince = now
		}
		if now.Sub(e.dirtySince) < e.debounce {
			return e.plainLocked(text)
		}
	}

	return e.recomputeLocked(text)
}

// Tick performs the deferred recomputation of a large buffer once it has been
// unchanged for the debounce interval. It reports whether spans changed.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty || e.now().Sub(e.dirtySince) < e.debounce {
		return false
	}
	e.recomputeLocked(e.pending)
	return true
}

// Pending reports whether a large buffer is waiting for its debounce interval.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Recompute tokenizes text synchronously regardless of size, e.g. right after a save.
func (e *Engine) Recompute(text string) []Span {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recomputeLocked(text)
}

func (e *Engine) recomputeLocked(text string) []Span {
	start := e.now()
	spans := e.tokenizeLocked(text)

	e.spans = spans
	e.source = text
	e.valid = true
	e.dirty = false
	e.pending = ""

	log.Debug(log.CatHighlight, "recomputed spans", "bytes", len(text), "spans", len(spans), "took", e.now().Sub(start))
	return spans
}

func (e *Engine) plainLocked(text string) []Span {
	return []Span{{Style: e.defaultStyleLocked(), Text: text}}
}

func (e *Engine) tokenizeLocked(text string) []Span {
	if e.lexer == nil || text == "" {
		return e.plainLocked(text)
	}

	spans, err := e.tokenizeText(text)
	if err == nil {
		return spans
	}
	log.Debug(log.CatHighlight, "whole-buffer tokenization failed, falling back to lines", "error", err)

	spans = nil
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		lineSpans, err := e.tokenizeText(line)
		if err != nil {
			spans = appendSpan(spans, Span{Style: e.defaultStyleLocked(), Text: line})
			continue
		}
		for _, sp := range lineSpans {
			spans = appendSpan(spans, sp)
		}
	}
	return spans
}

// tokenizeText runs the lexer over text and checks the tokens reproduce it
// exactly. Lexers that append a final newline have the excess trimmed.
func (e *Engine) tokenizeText(text string) (spans []Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
			err = fmt.Errorf("%w: %v", errTokenizer, r)
		}
	}()

	iterator, err := e.lexer.Tokenise(&chroma.TokeniseOptions{State: "root", EnsureLF: false}, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTokenizer, err)
	}

	consumed := 0
	for token := iterator(); token != chroma.EOF; token = iterator() {
		value := token.Value
		if value == "" {
			continue
		}

		rest := text[consumed:]
		if !strings.HasPrefix(rest, value) {
			if !strings.HasPrefix(value, rest) {
				return nil, errTokenMismatch
			}
			value = rest
		}
		if value == "" {
			continue
		}

		consumed += len(value)
		spans = appendSpan(spans, Span{Style: e.styleForLocked(token.Type), Text: value})
	}

	if consumed != len(text) {
		return nil, errTokenMismatch
	}
	return spans, nil
}

// styleForLocked converts a chroma token type to a span style.
func (e *Engine) styleForLocked(tokenType chroma.TokenType) Style {
	if style, ok := e.styleCache[tokenType]; ok {
		return style
	}

	entry := e.style.Get(tokenType)

	style := e.defaultStyleLocked()
	if entry.Colour.IsSet() {
		style.Foreground = fromChroma(entry.Colour)
	}
	style.Bold = entry.Bold == chroma.Yes
	style.Italic = entry.Italic == chroma.Yes
	style.Underline = entry.Underline == chroma.Yes

	e.styleCache[tokenType] = style

	return style
}

// LineCount counts logical lines the way the editor numbers them: a buffer
// without newlines is one line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}
