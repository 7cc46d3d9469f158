package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/org/rfidconsole/internal/console"
)

// termNotifier prints console notifications to stderr so they never mix
// with command output.
type termNotifier struct {
	w     io.Writer
	quiet bool // suppress info-level chatter
}

func (n termNotifier) Notify(level console.Level, message string) {
	if n.quiet && level == console.LevelInfo {
		return
	}
	fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}

// lineField is a console.Field backed by a string.
type lineField struct {
	mu       sync.Mutex
	value    string
	editable bool
}

func (f *lineField) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *lineField) SetValue(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func (f *lineField) SetEditable(editable bool) {
	f.mu.Lock()
	f.editable = editable
	f.mu.Unlock()
}

// promptConfirmer asks a yes/no question on the terminal.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, title, message string) (bool, error) {
	fmt.Fprintf(p.out, "%s: %s [y/N] ", title, message)
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line, err}
	}()
	select {
	case a := <-ch:
		if a.err != nil && a.line == "" {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *promptConfirmer) Dismiss() {}
