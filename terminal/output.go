package terminal

import (
	"strings"
	"sync"
)

// Output is the append-only text of a session. The reader goroutine appends
// child output and the UI appends echoed input, so every access is locked.
type Output struct {
	mu sync.Mutex
	b  strings.Builder
}

func (o *Output) Append(s string) {
	if s == "" {
		return
	}
	o.mu.Lock()
	o.b.WriteString(s)
	o.mu.Unlock()
}

func (o *Output) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.b.String()
}

func (o *Output) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.b.Len()
}
