package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	DefaultMaxWidth = 4096
)

// ErrInvalidBody is returned when the extra body parameters are not a flat JSON object.
var ErrInvalidBody = errors.New("invalid post body")

// Settings is the user-facing image hosting configuration. It is persisted in
// full after every field change and read as a snapshot at the start of each upload.
type Settings struct {
	APIEndpoint         string `yaml:"api_endpoint" json:"api_endpoint"`
	Token               string `yaml:"token" json:"token"`
	MaxWidth            int    `yaml:"max_width" json:"max_width"`
	EnableResize        bool   `yaml:"enable_resize" json:"enable_resize"`
	EnableUploadToAlbum bool   `yaml:"enable_upload_to_album" json:"enable_upload_to_album"`
	DefaultUploadAlbum  string `yaml:"default_upload_album" json:"default_upload_album"`
	// Body is a JSON object whose pairs are sent as extra form fields.
	Body string `yaml:"body" json:"body"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxWidth:            DefaultMaxWidth,
		EnableResize:        false,
		EnableUploadToAlbum: true,
	}
}

// Ready reports whether both the endpoint and the token are configured.
func (s Settings) Ready() bool {
	return strings.TrimSpace(s.APIEndpoint) != "" && strings.TrimSpace(s.Token) != ""
}

// BodyParam is one extra form field, in document order.
type BodyParam struct {
	Key   string
	Value string
}

// BodyParams parses Body. An empty body yields no params.
func (s Settings) BodyParams() ([]BodyParam, error) {
	return ParseBody(s.Body)
}

// ParseBody parses a JSON object of scalar values into ordered form params.
// Numbers, booleans and null are kept as their literal text. A repeated key
// keeps its first position and its last value.
func ParseBody(body string) ([]BodyParam, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidBody)
	}
	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidBody)
	}

	var (
		params []BodyParam
		index  = map[string]int{}
		err    error
	)
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			err = fmt.Errorf("%w: value of %q must be a string, number or boolean", ErrInvalidBody, key.String())
			return false
		}
		v := value.String()
		if value.Type != gjson.String {
			v = value.Raw
		}
		if i, ok := index[key.String()]; ok {
			params[i].Value = v
			return true
		}
		index[key.String()] = len(params)
		params = append(params, BodyParam{Key: key.String(), Value: v})
		return true
	})
	if err != nil {
		return nil, err
	}
	return params, nil
}
