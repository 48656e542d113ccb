package status

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// maxComponentDepth stops pathological chat component nesting.
const maxComponentDepth = 32

type chatComponent struct {
	Text  string            `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// FlattenDescription converts a status "description" field into one string.
// The field is either a plain JSON string or a chat component tree whose
// "text" and "extra" parts are concatenated in order. Formatting codes
// embedded in the text are preserved.
func FlattenDescription(raw json.RawMessage) string {
	var sb strings.Builder
	flattenInto(&sb, raw, 0)
	return sb.String()
}

func flattenInto(sb *strings.Builder, raw json.RawMessage, depth int) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || depth > maxComponentDepth {
		return
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			sb.WriteString(s)
		}
	case '[':
		var parts []json.RawMessage
		if json.Unmarshal(raw, &parts) == nil {
			for _, p := range parts {
				flattenInto(sb, p, depth+1)
			}
		}
	case '{':
		var c chatComponent
		if json.Unmarshal(raw, &c) == nil {
			sb.WriteString(c.Text)
			for _, p := range c.Extra {
				flattenInto(sb, p, depth+1)
			}
		}
	}
}

// DecodeFavicon decodes a "data:image/png;base64,..." favicon string.
func DecodeFavicon(s string) (image.Image, error) {
	if s == "" {
		return nil, errors.New("empty favicon")
	}
	_, data, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(s, "data:") {
		return nil, errors.New("favicon is not a data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("decode favicon base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode favicon png: %w", err)
	}
	return img, nil
}
