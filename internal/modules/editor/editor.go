package editor

import (
	"sync"

	"github.com/mx-space/paste-uploader/internal/models"
)

// Position addresses a document location. Ch is a byte offset within the line.
type Position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// Editor is the capability set the paste workflow needs from a host editor.
type Editor interface {
	ActivePath() string
	ReplaceSelection(text string)
	LineCount() int
	Line(n int) string
	ReplaceRange(text string, from, to Position)
}

// Event is a clipboard paste carrying file attachments.
type Event struct {
	Files []*models.Attachment

	mu        sync.Mutex
	prevented bool
	waits     []func()
}

func NewEvent(files ...*models.Attachment) *Event {
	return &Event{Files: files}
}

// PreventDefault suppresses the host's own paste handling for the whole event.
func (e *Event) PreventDefault() {
	e.mu.Lock()
	e.prevented = true
	e.mu.Unlock()
}

func (e *Event) DefaultPrevented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevented
}

// Track registers work started for this event. wait must block until it settles.
func (e *Event) Track(wait func()) {
	e.mu.Lock()
	e.waits = append(e.waits, wait)
	e.mu.Unlock()
}

// Wait blocks until all work tracked for this event has settled.
func (e *Event) Wait() {
	e.mu.Lock()
	waits := append([]func(){}, e.waits...)
	e.mu.Unlock()
	for _, wait := range waits {
		wait()
	}
}

// PasteHandler reacts to a paste into ed.
type PasteHandler func(evt *Event, ed Editor)

// Workspace dispatches editor paste events to subscribed handlers.
type Workspace struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]PasteHandler
	order    []int
}

func NewWorkspace() *Workspace {
	return &Workspace{handlers: make(map[int]PasteHandler)}
}

// OnEditorPaste subscribes h and returns a function that unsubscribes it.
func (w *Workspace) OnEditorPaste(h PasteHandler) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = h
	w.order = append(w.order, id)
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.handlers, id)
			for i, v := range w.order {
				if v == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Paste delivers evt to every handler in subscription order and reports
// whether the default paste behavior was suppressed.
func (w *Workspace) Paste(evt *Event, ed Editor) bool {
	w.mu.RLock()
	handlers := make([]PasteHandler, 0, len(w.order))
	for _, id := range w.order {
		handlers = append(handlers, w.handlers[id])
	}
	w.mu.RUnlock()

	for _, h := range handlers {
		h(evt, ed)
	}
	return evt.DefaultPrevented()
}

func (w *Workspace) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}
