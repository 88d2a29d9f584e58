package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/term"
)

// lineWidth is the width the progress line is padded to, so a shorter
// message fully overwrites the previous one.
const lineWidth = 80

// Progress prints a single, continuously rewritten status line of the form
// "label: 42.00% (file)". It is safe for concurrent use.
type Progress struct {
	mu     sync.Mutex
	writer io.Writer
	tty    bool
	last   string
}

// NewProgress returns a progress printer writing to w. When w is a terminal
// the line is rewritten in place, otherwise each report goes on its own line.
func NewProgress(w io.Writer) *Progress {
	p := &Progress{writer: w}
	if f, ok := w.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Report prints the completion percentage of current out of total.
func (p *Progress) Report(label string, current, total int, context string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var perc float64
	if total > 0 {
		perc = 100 * float64(current) / float64(total)
	}
	line := fmt.Sprintf("%s: %.2f%%", label, perc)
	if context != "" {
		line += fmt.Sprintf(" (%s)", filepath.Base(context))
	}

	if !p.tty {
		fmt.Fprintln(p.writer, line)
		p.last = line
		return
	}
	if n := utf8.RuneCountInString(line); n < lineWidth {
		line += strings.Repeat(" ", lineWidth-n)
	}
	fmt.Fprintf(p.writer, "\r%s%s%s", StatusColor, line, DefaultColor)
	p.last = line
}

// Done terminates the current progress line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty && p.last != "" {
		fmt.Fprintln(p.writer)
	}
	p.last = ""
}

// Last returns the most recently printed line, without padding.
func (p *Progress) Last() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return strings.TrimRight(p.last, " ")
}
