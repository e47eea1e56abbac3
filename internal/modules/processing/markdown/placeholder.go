package markdown

import (
	"bytes"
	"math"
	"math/rand"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// UploadingAlt is the alt text of an image that is still being uploaded.
	UploadingAlt = "uploading..."

	tokenLength = 8
	tokenScale  = 10086
)

// NewToken returns a short random placeholder token: a random fraction scaled
// by 10086, written in base 36 and cut to 8 characters. Collisions are possible.
func NewToken() string {
	return formatBase36(rand.Float64()*tokenScale, tokenLength)
}

// formatBase36 writes a non-negative float in base 36, stopping at limit characters.
func formatBase36(v float64, limit int) string {
	intPart, frac := math.Modf(v)
	out := strconv.FormatInt(int64(intPart), 36)
	if len(out) >= limit || frac == 0 {
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	}
	buf := []byte(out + ".")
	for len(buf) < limit && frac > 0 {
		frac *= 36
		digit, rest := math.Modf(frac)
		buf = append(buf, strconv.FormatInt(int64(digit), 36)...)
		frac = rest
	}
	return string(buf)
}

// PlaceholderText is the line inserted at the cursor while an image uploads.
func PlaceholderText(token string) string {
	return "![" + UploadingAlt + "](" + token + ")\n"
}

// ImageLink is the final Markdown for a hosted image.
func ImageLink(url string) string {
	return "![](" + url + ")"
}

// Placeholder is an unresolved upload placeholder found in a document.
type Placeholder struct {
	Token string `json:"token"`
	Line  int    `json:"line"`
}

var parser = goldmark.New()

// PendingPlaceholders lists upload placeholders still present in source, in
// document order. Lines are zero-based.
func PendingPlaceholders(source []byte) []Placeholder {
	doc := parser.Parser().Parse(text.NewReader(source))

	var found []Placeholder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		alt, start := altText(img, source)
		if alt != UploadingAlt {
			return ast.WalkSkipChildren, nil
		}
		found = append(found, Placeholder{
			Token: string(img.Destination),
			Line:  bytes.Count(source[:start], []byte("\n")),
		})
		return ast.WalkSkipChildren, nil
	})
	return found
}

func altText(img *ast.Image, source []byte) (string, int) {
	var (
		buf   bytes.Buffer
		start = -1
	)
	for c := img.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if start < 0 {
			start = t.Segment.Start
		}
		buf.Write(t.Segment.Value(source))
	}
	if start < 0 {
		start = 0
	}
	return buf.String(), start
}
