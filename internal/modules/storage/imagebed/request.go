package imagebed

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/models"
)

const (
	FieldSource    = "source"
	FieldKey       = "key"
	FieldAlbumName = "album_name"
)

// BuildQueryEncoded builds urlencoded upload params. The image travels as the
// bare base64 payload of its data URL.
func BuildQueryEncoded(file *models.Attachment, settings config.Settings, activePath string) (url.Values, error) {
	params := url.Values{}
	params.Add(FieldKey, settings.Token)
	params.Add(FieldSource, base64Payload(file.DataURL()))

	body, err := settings.BodyParams()
	if err != nil {
		return nil, err
	}
	for _, p := range body {
		params.Add(p.Key, p.Value)
	}

	if settings.EnableUploadToAlbum {
		if album := qualifyAlbum(rootAlbum(activePath), settings); album != "" {
			params.Set(FieldAlbumName, album)
		}
	}
	return params, nil
}

// BuildMultipart builds the multipart form used by the paste flow. With album
// upload enabled, folders below the album are folded into the file name.
func BuildMultipart(file *models.Attachment, settings config.Settings, activePath string) (*Form, error) {
	form := &Form{}

	body, err := settings.BodyParams()
	if err != nil {
		return nil, err
	}
	for _, p := range body {
		form.Add(p.Key, p.Value)
	}

	if settings.EnableUploadToAlbum {
		raw, rest := folderAlbum(activePath)
		if album := qualifyAlbum(raw, settings); album != "" {
			form.Set(FieldAlbumName, album)
		}
		if len(rest) > 0 {
			file = file.Rename(renamedFileName(rest, file.Name))
		}
	}

	form.Add(FieldKey, settings.Token)
	form.SetFile(FieldSource, file)
	return form, nil
}

// NewQueryRequest wraps urlencoded params into a POST request.
func NewQueryRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func base64Payload(dataURL string) string {
	_, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return ""
	}
	return strings.Trim(payload, `"`)
}

// Field is one text part of a multipart form.
type Field struct {
	Name  string
	Value string
}

// Form is an ordered multipart form with at most one file part, written last.
type Form struct {
	fields    []Field
	fileField string
	file      *models.Attachment
}

func (f *Form) Add(name, value string) {
	f.fields = append(f.fields, Field{Name: name, Value: value})
}

// Set replaces the first field with this name in place and drops later ones,
// or appends when the name is new.
func (f *Form) Set(name, value string) {
	out := f.fields[:0]
	replaced := false
	for _, field := range f.fields {
		if field.Name != name {
			out = append(out, field)
			continue
		}
		if !replaced {
			out = append(out, Field{Name: name, Value: value})
			replaced = true
		}
	}
	f.fields = out
	if !replaced {
		f.Add(name, value)
	}
}

// Get returns the first value for name, or "".
func (f *Form) Get(name string) string {
	for _, field := range f.fields {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

func (f *Form) Has(name string) bool {
	for _, field := range f.fields {
		if field.Name == name {
			return true
		}
	}
	return name == f.fileField && f.file != nil
}

func (f *Form) Fields() []Field {
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

func (f *Form) SetFile(name string, file *models.Attachment) {
	f.fileField = name
	f.file = file
}

// File returns the file part and its field name.
func (f *Form) File() (string, *models.Attachment) {
	return f.fileField, f.file
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode writes the form to mw and closes it.
func (f *Form) Encode(mw *multipart.Writer) error {
	for _, field := range f.fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return err
		}
	}
	if f.file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.fileField), quoteEscaper.Replace(f.file.Name)))
		contentType := f.file.Type
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.file.Open()); err != nil {
			return err
		}
	}
	return mw.Close()
}

// Reader streams the encoded form through a pipe and returns its content type.
func (f *Form) Reader() (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(f.Encode(mw))
	}()
	return pr, mw.FormDataContentType()
}

// NewRequest wraps the form into a POST request.
func (f *Form) NewRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	body, contentType := f.Reader()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		if rc, ok := body.(io.Closer); ok {
			rc.Close()
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}
