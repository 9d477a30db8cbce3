package ui

import (
	"context"
	"sync"
)

// Recorder is a scripted Confirmer + Notifier + Navigator for tests and
// non-interactive runs. Answers are consumed in order; once exhausted the
// Default decision is returned.
type Recorder struct {
	mu         sync.Mutex
	Answers    []Decision
	Default    Decision
	Intents    []Intent
	Notes      []Note
	Visited    []string
	ConfirmErr error
}

type Note struct {
	Kind  string
	Title string
	Text  string
}

func (r *Recorder) Confirm(_ context.Context, in Intent) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Intents = append(r.Intents, in)
	if r.ConfirmErr != nil {
		return Decline, r.ConfirmErr
	}
	if len(r.Answers) == 0 {
		return r.Default, nil
	}
	d := r.Answers[0]
	r.Answers = r.Answers[1:]
	return d, nil
}

func (r *Recorder) note(kind, title, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notes = append(r.Notes, Note{Kind: kind, Title: title, Text: text})
}

func (r *Recorder) Success(title, text string) { r.note("success", title, text) }
func (r *Recorder) Error(title, text string)   { r.note("error", title, text) }
func (r *Recorder) Info(title, text string)    { r.note("info", title, text) }

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Visited = append(r.Visited, path)
}

// Last returns the most recent notification, or the zero Note.
func (r *Recorder) Last() Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Notes) == 0 {
		return Note{}
	}
	return r.Notes[len(r.Notes)-1]
}

func (r *Recorder) Asked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Intents)
}
