// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, key/value listings, markdown rendering) for keepsake CLI
// commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	SkipMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("–")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// spinner redraws one status line until stop is called.
type spinner struct {
	w    io.Writer
	msg  string
	quit chan struct{}
	done sync.WaitGroup
}

func startSpinner(w io.Writer, msg string) *spinner {
	s := &spinner{w: w, msg: msg, quit: make(chan struct{})}
	s.done.Add(1)
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer s.done.Done()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		fmt.Fprintf(s.w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), s.msg)
		select {
		case <-s.quit:
			return
		case <-ticker.C:
		}
	}
}

func (s *spinner) stop() {
	close(s.quit)
	s.done.Wait()
}

// isTerminal reports whether w is an interactive terminal. Buffers, pipes
// and files get no spinner.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Step runs fn and prints msg with a ✓ or ✗ and the elapsed time. On a
// terminal a spinner is shown while fn runs.
func Step(w io.Writer, msg string, fn func() error) error {
	var sp *spinner
	if isTerminal(w) {
		sp = startSpinner(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	prefix := ""
	if sp != nil {
		sp.stop()
		prefix = "\r"
	}
	fmt.Fprintf(w, "%s  %s %s %s\n", prefix, Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d at a precision that suits its size: "12ms",
// "3.2s", "4m05s" or "26h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

// FormatBytes formats a byte count with a binary unit ("512 B", "1.5 KiB").
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// KV is one row of a key/value listing.
type KV struct {
	Key   string
	Value string
}

// KeyValues writes rows with keys padded to a common width.
func KeyValues(w io.Writer, rows []KV) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.Key))
	}
	for _, r := range rows {
		pad := strings.Repeat(" ", width-len(r.Key))
		fmt.Fprintf(w, "  %s%s  %s\n", KeyStyle.Render(r.Key), pad, r.Value)
	}
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
