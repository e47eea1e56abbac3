package paste

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/mx-space/paste-uploader/internal/modules/editor"
	"github.com/mx-space/paste-uploader/internal/modules/processing/markdown"
)

// ErrInactive is returned when pasting while image hosting is not configured.
var ErrInactive = errors.New(SetupNotice)

// Result describes a document after a paste has settled.
type Result struct {
	Path      string                 `json:"path"`
	Prevented bool                   `json:"prevented"`
	Text      string                 `json:"text"`
	Pending   []markdown.Placeholder `json:"pending"`
}

// Session pastes files into documents of a vault through a workspace.
type Session struct {
	vault string
	ws    *editor.Workspace
	ic    *Interceptor

	mu     sync.Mutex
	active bool
	locks  map[string]*sync.Mutex
}

func NewSession(vault string, ws *editor.Workspace, ic *Interceptor) *Session {
	return &Session{vault: vault, ws: ws, ic: ic, locks: make(map[string]*sync.Mutex)}
}

// Activate subscribes the interceptor unless it already is. It is retried on
// every paste so that settings saved later take effect; the setup notice is
// only sent by the first failed attempt.
func (s *Session) Activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.active = s.ic.Setup(s.ws)
	}
	return s.active
}

// Close unsubscribes the interceptor and waits for in-flight uploads.
func (s *Session) Close() {
	s.mu.Lock()
	if s.active {
		s.ic.Close()
		s.active = false
	}
	s.mu.Unlock()
	s.ic.Wait()
}

// Paste inserts files at cursor (end of document when nil), waits for the
// uploads and saves the document if the paste was handled.
func (s *Session) Paste(relPath string, cursor *editor.Position, files []*models.Attachment) (*Result, error) {
	if !s.Activate() {
		return nil, ErrInactive
	}

	unlock, err := s.lockPath(relPath)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := editor.Open(s.vault, relPath)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		doc.SetCursor(*cursor)
	}

	evt := editor.NewEvent(files...)
	prevented := s.ws.Paste(evt, doc)
	evt.Wait()

	if prevented {
		if err := doc.Save(); err != nil {
			return nil, fmt.Errorf("save %s: %w", doc.ActivePath(), err)
		}
	}
	text := doc.Text()
	return &Result{
		Path:      doc.ActivePath(),
		Prevented: prevented,
		Text:      text,
		Pending:   markdown.PendingPlaceholders([]byte(text)),
	}, nil
}

// Pending lists upload placeholders left in a vault document.
func (s *Session) Pending(relPath string) ([]markdown.Placeholder, error) {
	doc, err := editor.Open(s.vault, relPath)
	if err != nil {
		return nil, err
	}
	return markdown.PendingPlaceholders([]byte(doc.Text())), nil
}

func (s *Session) lockPath(relPath string) (func(), error) {
	clean, err := editor.CleanPath(relPath)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	l, ok := s.locks[clean]
	if !ok {
		l = &sync.Mutex{}
		s.locks[clean] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}
