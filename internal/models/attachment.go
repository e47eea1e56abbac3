package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Attachment is a pasted file: name, MIME type, modification time and raw content.
// It is immutable once built; Rename and WithContent return copies.
type Attachment struct {
	Name         string
	Type         string
	LastModified time.Time

	data []byte
}

// NewAttachment builds an attachment from in-memory content. An empty contentType
// is resolved from the file extension and then by sniffing the content.
func NewAttachment(name, contentType string, lastModified time.Time, data []byte) *Attachment {
	if strings.TrimSpace(contentType) == "" {
		contentType = detectContentType(name, data)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Attachment{
		Name:         name,
		Type:         contentType,
		LastModified: lastModified,
		data:         buf,
	}
}

// OpenAttachment reads a file from disk.
func OpenAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return NewAttachment(filepath.Base(path), "", info.ModTime(), data), nil
}

// ReadAttachment drains r into a new attachment.
func ReadAttachment(name, contentType string, lastModified time.Time, r io.Reader) (*Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	a := NewAttachment(name, contentType, lastModified, nil)
	a.data = data
	if strings.TrimSpace(a.Type) == "" || a.Type == "application/octet-stream" {
		a.Type = detectContentType(name, data)
	}
	return a, nil
}

// IsImage reports whether the MIME type starts with "image".
func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.Type, "image")
}

func (a *Attachment) Size() int64 { return int64(len(a.data)) }

// Open returns a reader over the content. The attachment is not consumed.
func (a *Attachment) Open() io.Reader { return bytes.NewReader(a.data) }

// Bytes returns a copy of the content.
func (a *Attachment) Bytes() []byte {
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out
}

// DataURL renders the content as a base64 data URL.
func (a *Attachment) DataURL() string {
	contentType := a.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(a.data)
}

// Rename returns a copy with a new name and the same content, type and modification time.
func (a *Attachment) Rename(name string) *Attachment {
	return &Attachment{
		Name:         name,
		Type:         a.Type,
		LastModified: a.LastModified,
		data:         a.data,
	}
}

// WithContent returns a copy carrying new content under the given name and type.
func (a *Attachment) WithContent(name, contentType string, data []byte) *Attachment {
	return &Attachment{
		Name:         name,
		Type:         contentType,
		LastModified: a.LastModified,
		data:         data,
	}
}

func detectContentType(name string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return strings.SplitN(byExt, ";", 2)[0]
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(data)
}
