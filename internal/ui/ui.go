// Package ui holds the collaborators the view state machines talk to:
// a confirmation gate, a notifier and a navigator. The CLI wires terminal
// implementations; tests wire scripted ones.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Intent describes what the user is asked to confirm.
type Intent struct {
	Title   string
	Text    string
	Confirm string
	Cancel  string
}

type Decision int

const (
	Decline Decision = iota
	Accept
)

// Confirmer is the two-phase gate: requestConfirmation(intent) -> decision.
type Confirmer interface {
	Confirm(ctx context.Context, in Intent) (Decision, error)
}

type Notifier interface {
	Success(title, text string)
	Error(title, text string)
	Info(title, text string)
}

type Navigator interface {
	Navigate(path string)
}

// AutoConfirm answers every intent with the same decision (--yes).
type AutoConfirm Decision

func (a AutoConfirm) Confirm(context.Context, Intent) (Decision, error) {
	return Decision(a), nil
}

// Terminal prompts on Out and reads y/N answers from In.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	Out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), Out: out}
}

func (t *Terminal) Confirm(ctx context.Context, in Intent) (Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	yes := in.Confirm
	if yes == "" {
		yes = "Yes"
	}
	fmt.Fprintf(t.Out, "%s\n", in.Title)
	if in.Text != "" {
		fmt.Fprintf(t.Out, "  %s\n", in.Text)
	}
	fmt.Fprintf(t.Out, "%s? [y/N] ", yes)

	line, err := t.readLine(ctx)
	if err != nil && line == "" {
		if err == io.EOF {
			return Decline, nil
		}
		return Decline, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return Accept, nil
	}
	return Decline, nil
}

// ReadLine reads one answer line. EOF with no input is returned as io.EOF.
func (t *Terminal) ReadLine(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readLine(ctx)
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := t.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.err != nil && a.line != "" {
			return a.line, nil
		}
		return a.line, a.err
	}
}

func (t *Terminal) Success(title, text string) { t.print("✔", title, text) }
func (t *Terminal) Error(title, text string)   { t.print("✖", title, text) }
func (t *Terminal) Info(title, text string)    { t.print("ℹ", title, text) }

func (t *Terminal) print(mark, title, text string) {
	if text == "" {
		fmt.Fprintf(t.Out, "%s %s\n", mark, title)
		return
	}
	fmt.Fprintf(t.Out, "%s %s: %s\n", mark, title, text)
}

// Navigate prints where the browser UI would have gone.
func (t *Terminal) Navigate(path string) {
	fmt.Fprintf(t.Out, "→ %s\n", path)
}

var printer = message.NewPrinter(language.English)

// FormatCount groups digits (12,345) like Intl.NumberFormat.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// Stars renders a 0..5 rating as five glyphs, rounded to the nearest star.
func Stars(rating float64) string {
	n := int(math.Round(rating))
	n = max(0, min(5, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}
