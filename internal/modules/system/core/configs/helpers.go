package configs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mx-space/paste-uploader/internal/config"
)

// Settings form field names.
const (
	FieldAPIEndpoint         = "api_endpoint"
	FieldToken               = "token"
	FieldBody                = "body"
	FieldEnableUploadToAlbum = "enable_upload_to_album"
	FieldDefaultUploadAlbum  = "default_upload_album"
	FieldEnableResize        = "enable_resize"
	FieldMaxWidth            = "max_width"
)

var (
	ErrUnknownField = errors.New("unknown settings field")
	ErrInvalidValue = errors.New("invalid settings value")
)

// MaskToken hides all but the first and last two characters of a token.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return token[:2] + strings.Repeat("*", len(token)-4) + token[len(token)-2:]
}

// Fields lists the settings fields in form order.
func Fields() []string {
	return []string{
		FieldAPIEndpoint,
		FieldToken,
		FieldBody,
		FieldEnableUploadToAlbum,
		FieldDefaultUploadAlbum,
		FieldEnableResize,
		FieldMaxWidth,
	}
}

func setField(cfg *config.Settings, field, value string) error {
	switch normalizeFieldName(field) {
	case FieldAPIEndpoint:
		cfg.APIEndpoint = value
	case FieldToken:
		cfg.Token = value
	case FieldBody:
		if _, err := config.ParseBody(value); err != nil {
			return err
		}
		cfg.Body = value
	case FieldEnableUploadToAlbum:
		b, ok := parseBool(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, FieldEnableUploadToAlbum, value)
		}
		cfg.EnableUploadToAlbum = b
	case FieldDefaultUploadAlbum:
		cfg.DefaultUploadAlbum = value
	case FieldEnableResize:
		b, ok := parseBool(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, FieldEnableResize, value)
		}
		cfg.EnableResize = b
	case FieldMaxWidth:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s expects a positive integer, got %q", ErrInvalidValue, FieldMaxWidth, value)
		}
		cfg.MaxWidth = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// normalizeFieldName accepts snake, kebab and camel case field names.
func normalizeFieldName(field string) string {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r == '-':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseBool(value string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
