package codec

import (
	"bytes"
	"fmt"
	"strings"

	"fhir-engine/internal/match"
	"fhir-engine/model"
	"fhir-engine/schema"
)

// Wire format names.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Codec converts instances to and from one wire format.
type Codec interface {
	// Encode writes inst in the wire format.
	Encode(inst *model.Instance) ([]byte, error)
	// Decode reads data as an instance of rt. The returned error, when
	// not nil, is DecodeErrors unless the document could not be read.
	Decode(data []byte, rt *schema.ResourceType) (*model.Instance, error)
	// DecodeResource reads a resource whose type is named in the document.
	DecodeResource(data []byte) (*model.Instance, error)
	// Format returns the wire format name.
	Format() string
}

var (
	_ Codec = (*JSON)(nil)
	_ Codec = (*XML)(nil)
)

// Formats lists the supported wire format names.
func Formats() []string {
	return []string{FormatJSON, FormatXML}
}

// ForFormat returns the codec for a wire format name.
func ForFormat(name string, reg *schema.Registry, opts ...Option) (Codec, error) {
	switch strings.ToLower(name) {
	case FormatJSON:
		return NewJSON(reg, opts...), nil
	case FormatXML:
		return NewXML(reg, opts...), nil
	}

	if suggestions := match.Suggest(name, Formats(), 1); len(suggestions) > 0 {
		return nil, fmt.Errorf("unknown format %q (did you mean %s?)", name, suggestions[0])
	}

	return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(Formats(), ", "))
}

// Detect guesses the wire format of a document from its first significant
// byte. It returns "" when the document is neither JSON nor XML.
func Detect(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")

	switch {
	case len(trimmed) == 0:
		return ""
	case trimmed[0] == '{':
		return FormatJSON
	case trimmed[0] == '<':
		return FormatXML
	default:
		return ""
	}
}
