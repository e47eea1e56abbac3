package editor

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ErrOutsideVault is returned for document paths that escape the vault root.
var ErrOutsideVault = errors.New("document path escapes the vault")

// Document is an in-memory Markdown buffer with a single selection.
// It is safe for concurrent use.
type Document struct {
	mu     sync.Mutex
	path   string
	file   string
	text   string
	anchor int
	head   int
}

// NewDocument creates an unsaved document whose active path is activePath.
// The cursor starts at the end of the text.
func NewDocument(activePath, text string) *Document {
	return &Document{
		path:   activePath,
		text:   text,
		anchor: len(text),
		head:   len(text),
	}
}

// Open loads relPath (slash-delimited) from the vault. A missing file opens as
// an empty document that Save will create.
func Open(vault, relPath string) (*Document, error) {
	clean, err := CleanPath(relPath)
	if err != nil {
		return nil, err
	}
	file := filepath.Join(vault, filepath.FromSlash(clean))

	content, err := os.ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open document %q: %w", clean, err)
	}
	doc := NewDocument(clean, string(content))
	doc.file = file
	return doc, nil
}

// CleanPath normalizes a vault-relative document path.
func CleanPath(relPath string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(relPath, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("document path is required")
	}
	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrOutsideVault
	}
	return p, nil
}

// Save writes the document back to the vault file it was opened from.
func (d *Document) Save() error {
	d.mu.Lock()
	file, text := d.file, d.text
	d.mu.Unlock()

	if file == "" {
		return fmt.Errorf("document %q was not opened from a vault", d.path)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(text), 0o644)
}

func (d *Document) ActivePath() string { return d.path }

func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

func (d *Document) LineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Count(d.text, "\n") + 1
}

// Line returns line n without its newline, or "" when n is out of range.
func (d *Document) Line(n int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	lines := strings.Split(d.text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

func (d *Document) SetCursor(pos Position) {
	d.SetSelection(pos, pos)
}

func (d *Document) SetSelection(from, to Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.anchor = d.offset(from)
	d.head = d.offset(to)
}

func (d *Document) Cursor() Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position(d.head)
}

// ReplaceSelection replaces the selection with text and leaves the cursor after it.
func (d *Document) ReplaceSelection(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	from, to := d.anchor, d.head
	if from > to {
		from, to = to, from
	}
	d.text = d.text[:from] + text + d.text[to:]
	d.anchor = from + len(text)
	d.head = d.anchor
}

// ReplaceRange replaces [from, to) with text and maps the selection through the edit.
func (d *Document) ReplaceRange(text string, from, to Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start, end := d.offset(from), d.offset(to)
	if start > end {
		start, end = end, start
	}
	d.text = d.text[:start] + text + d.text[end:]
	d.anchor = mapOffset(d.anchor, start, end, len(text))
	d.head = mapOffset(d.head, start, end, len(text))
}

func mapOffset(off, start, end, inserted int) int {
	switch {
	case off <= start:
		return off
	case off >= end:
		return off + inserted - (end - start)
	default:
		return start + inserted
	}
}

// offset converts pos to a byte offset, clamping to the document.
func (d *Document) offset(pos Position) int {
	lines := strings.Split(d.text, "\n")
	line := min(max(pos.Line, 0), len(lines)-1)
	off := 0
	for i := 0; i < line; i++ {
		off += len(lines[i]) + 1
	}
	return off + min(max(pos.Ch, 0), len(lines[line]))
}

func (d *Document) position(off int) Position {
	before := d.text[:off]
	line := strings.Count(before, "\n")
	return Position{Line: line, Ch: off - (strings.LastIndex(before, "\n") + 1)}
}
