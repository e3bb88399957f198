package highlighter

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const goSource = `package main

import "fmt"

// main prints a greeting.
func main() {
	fmt.Println("hello")
}
`

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func largeGoSource(lines int) string {
	var b strings.Builder
	b.WriteString("package main\n\n")
	for strings.Count(b.String(), "\n") < lines {
		b.WriteString("var x = \"value\" // comment\n")
	}
	return b.String()
}

func TestEngine_RecognizedGrammarYieldsColoredSpans(t *testing.T) {
	e := New(WithGrammarCache(NewGrammarCache()))
	require.True(t, e.SetGrammar("main.go"))
	require.Equal(t, "Go", e.Grammar())

	spans := e.Spans(goSource)
	require.Greater(t, len(spans), 1)
	require.Equal(t, goSource, Concat(spans))

	def := e.DefaultStyle()
	colored := false
	for _, sp := range spans {
		if sp.Style.Foreground != def.Foreground {
			colored = true
			break
		}
	}
	require.True(t, colored, "expected at least one non-default colour")
}

func TestEngine_UnknownExtensionYieldsSingleDefaultSpan(t *testing.T) {
	e := New(WithGrammarCache(NewGrammarCache()))
	require.False(t, e.SetGrammar("notes.zzzunknown"))
	require.Equal(t, "", e.Grammar())

	spans := e.Spans(goSource)
	require.Len(t, spans, 1)
	require.Equal(t, goSource, spans[0].Text)
	require.Equal(t, e.DefaultStyle(), spans[0].Style)
}

func TestEngine_NoGrammarEmptyBuffer(t *testing.T) {
	e := New()
	spans := e.Spans("")
	require.Len(t, spans, 1)
	require.Equal(t, "", Concat(spans))
}

func TestEngine_CacheHitReturnsSameSpans(t *testing.T) {
	e := New()
	e.SetGrammar("main.go")

	first := e.Spans(goSource)
	second := e.Spans(goSource)
	require.Equal(t, first, second)
	require.Same(t, &first[0], &second[0])
}

func TestEngine_PreservesCRLF(t *testing.T) {
	e := New()
	require.True(t, e.SetGrammar("main.go"))

	text := "package main\r\n\r\nfunc main() {\r\n\tprintln(1)\r\n}\r\n"
	require.Equal(t, text, Concat(e.Spans(text)))
}

func TestEngine_NoTrailingNewline(t *testing.T) {
	e := New()
	require.True(t, e.SetGrammar("main.py"))

	text := "def f():\n    return 1"
	require.Equal(t, text, Concat(e.Spans(text)))
}

func TestEngine_ConcatenationReproducesBuffer(t *testing.T) {
	for _, name := range []string{"main.go", "script.py", "index.html", "data.json", "unknown.zzzunknown"} {
		t.Run(name, func(t *testing.T) {
			e := New(WithLargeFileLines(0))
			e.SetGrammar(name)

			rapid.Check(t, func(t *rapid.T) {
				text := rapid.String().Draw(t, "text")
				require.Equal(t, text, Concat(e.Spans(text)))
			})
		})
	}
}

func TestEngine_BinaryInputDoesNotPanic(t *testing.T) {
	e := New(WithLargeFileLines(0))
	e.SetGrammar("main.go")

	rapid.Check(t, func(t *rapid.T) {
		text := string(rapid.SliceOf(rapid.Byte()).Draw(t, "bytes"))
		require.NotPanics(t, func() {
			require.Equal(t, text, Concat(e.Spans(text)))
		})
	})
}

func TestEngine_SpansNeverHaveEmptyText(t *testing.T) {
	e := New()
	e.SetGrammar("main.go")

	for _, sp := range e.Spans(goSource) {
		require.NotEmpty(t, sp.Text)
	}
}

func TestEngine_LargeBufferDebounce(t *testing.T) {
	clock := newClock()
	e := New(
		WithLargeFileLines(10),
		WithDebounce(500*time.Millisecond),
		WithClock(clock.now),
	)
	require.True(t, e.SetGrammar("main.go"))

	text := largeGoSource(20)
	require.Greater(t, LineCount(text), 10)

	// Repeated edits inside the debounce window keep the plain span.
	for i := range 5 {
		text += "var y = 1\n"
		spans := e.Spans(text)
		require.Len(t, spans, 1, "edit %d", i)
		require.Equal(t, text, spans[0].Text)
		require.Equal(t, e.DefaultStyle(), spans[0].Style)
		require.True(t, e.Pending())
		clock.advance(300 * time.Millisecond)
	}

	// Stable but not long enough.
	spans := e.Spans(text)
	require.Len(t, spans, 1)

	clock.advance(200 * time.Millisecond)
	spans = e.Spans(text)
	require.Greater(t, len(spans), 1)
	require.Equal(t, text, Concat(spans))
	require.False(t, e.Pending())
}

func TestEngine_TickPerformsDeferredRecompute(t *testing.T) {
	clock := newClock()
	e := New(WithLargeFileLines(10), WithClock(clock.now))
	e.SetGrammar("main.go")

	text := largeGoSource(20)
	require.Len(t, e.Spans(text), 1)

	clock.advance(100 * time.Millisecond)
	require.False(t, e.Tick())
	require.True(t, e.Pending())

	clock.advance(DefaultDebounce)
	require.True(t, e.Tick())
	require.False(t, e.Pending())
	require.False(t, e.Tick())

	spans := e.Spans(text)
	require.Greater(t, len(spans), 1)
	require.Equal(t, text, Concat(spans))
}

func TestEngine_RevertToCachedTextClearsPending(t *testing.T) {
	clock := newClock()
	e := New(WithLargeFileLines(10), WithClock(clock.now))
	e.SetGrammar("main.go")

	text := largeGoSource(20)
	colored := e.Recompute(text)
	require.Greater(t, len(colored), 1)

	require.Len(t, e.Spans(text+"x"), 1)
	require.True(t, e.Pending())

	require.Equal(t, colored, e.Spans(text))
	require.False(t, e.Pending())
}

func TestEngine_RecomputeBypassesDebounce(t *testing.T) {
	clock := newClock()
	e := New(WithLargeFileLines(10), WithClock(clock.now))
	e.SetGrammar("main.go")

	text := largeGoSource(20)
	require.Len(t, e.Spans(text), 1)

	spans := e.Recompute(text)
	require.Greater(t, len(spans), 1)
	require.False(t, e.Pending())
	require.Equal(t, spans, e.Spans(text))
}

func TestEngine_SetLargeFileLinesAppliesToNextEdit(t *testing.T) {
	clock := newClock()
	e := New(WithLargeFileLines(10), WithClock(clock.now))
	e.SetGrammar("main.go")

	text := largeGoSource(20)
	require.Len(t, e.Spans(text), 1)
	require.True(t, e.Pending())

	e.SetLargeFileLines(0)
	spans := e.Spans(text + "var y = 1\n")
	require.Greater(t, len(spans), 1)
	require.False(t, e.Pending())
}

func TestEngine_SetDebounceShortensWaitingBuffer(t *testing.T) {
	clock := newClock()
	e := New(WithLargeFileLines(10), WithDebounce(time.Minute), WithClock(clock.now))
	e.SetGrammar("main.go")

	text := largeGoSource(20)
	require.Len(t, e.Spans(text), 1)

	clock.advance(time.Second)
	require.False(t, e.Tick())

	e.SetDebounce(500 * time.Millisecond)
	require.True(t, e.Tick())
	require.Greater(t, len(e.Spans(text)), 1)
}

func TestEngine_SetFontInvalidates(t *testing.T) {
	e := New(WithFont(Font{Family: "monospace", Size: 12}))
	e.SetGrammar("main.go")

	for _, sp := range e.Spans(goSource) {
		require.Equal(t, 12.0, sp.Style.Font.Size)
	}

	e.SetFont(Font{Family: "monospace", Size: 16})
	for _, sp := range e.Spans(goSource) {
		require.Equal(t, 16.0, sp.Style.Font.Size)
	}
}

func TestEngine_SetThemeChangesColours(t *testing.T) {
	e := New(WithTheme("monokai"))
	e.SetGrammar("main.go")
	before := e.Spans(goSource)

	e.SetTheme("github")
	after := e.Spans(goSource)

	require.Equal(t, goSource, Concat(after))
	require.NotEqual(t, before, after)
}

func TestEngine_SetLanguage(t *testing.T) {
	e := New()
	require.True(t, e.SetLanguage("go"))
	require.Equal(t, "Go", e.Grammar())
	require.False(t, e.SetLanguage(""))
	require.Equal(t, "", e.Grammar())
}

func TestGrammarKey(t *testing.T) {
	require.Equal(t, ".go", grammarKey("/tmp/Main.GO"))
	require.Equal(t, ".rs", grammarKey("src/lib.rs"))
	require.Equal(t, "Makefile", grammarKey("/repo/Makefile"))
}

func TestGrammarCache_MemoizesMisses(t *testing.T) {
	cache := NewGrammarCache()
	e := New(WithGrammarCache(cache))

	require.False(t, e.SetGrammar("a.zzzunknown"))
	require.False(t, e.SetGrammar("b.zzzunknown"))
	require.True(t, e.SetGrammar("c.go"))
	require.Equal(t, 2, cache.Len())
}

func TestRestyle(t *testing.T) {
	red := Style{Foreground: Color{R: 255}}
	blue := Style{Foreground: Color{B: 255}}
	spans := []Span{{Style: red, Text: "hello "}, {Style: blue, Text: "world"}}

	mark := func(s Style) Style {
		s.HasBackground = true
		s.Background = Color{R: 255, G: 255}
		return s
	}

	out := Restyle(spans, 3, 8, mark)
	require.Equal(t, "hello world", Concat(out))
	require.Equal(t, []Span{
		{Style: red, Text: "hel"},
		{Style: mark(red), Text: "lo "},
		{Style: mark(blue), Text: "wo"},
		{Style: blue, Text: "rld"},
	}, out)

	require.Equal(t, spans, Restyle(spans, 4, 4, mark))
}

func TestRestyle_Concatenation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.StringN(1, 8, -1), 1, 8).Draw(t, "parts")
		spans := make([]Span, len(parts))
		for i, p := range parts {
			spans[i] = Span{Style: Style{Foreground: Color{R: uint8(i)}}, Text: p}
		}
		text := Concat(spans)
		start := rapid.IntRange(0, len(text)).Draw(t, "start")
		end := rapid.IntRange(start, len(text)).Draw(t, "end")

		out := Restyle(spans, start, end, func(s Style) Style { s.Bold = true; return s })
		require.Equal(t, text, Concat(out))
	})
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#FFFFB4")
	require.NoError(t, err)
	require.Equal(t, Color{R: 255, G: 255, B: 180}, c)
	require.Equal(t, "#ffffb4", c.Hex())

	_, err = ParseColor("not a colour")
	require.Error(t, err)
}

func TestRender_PlainProfile(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(termenv.TrueColor) })

	e := New()
	e.SetGrammar("main.py")
	text := "x = 1\r\ny = 2\n"

	require.Equal(t, "x = 1\ny = 2\n", Render(e.Spans(text)))
}

func TestLineCount(t *testing.T) {
	require.Equal(t, 1, LineCount(""))
	require.Equal(t, 2, LineCount("a\n"))
	require.Equal(t, 3, LineCount("a\nb\nc"))
}
