package markup

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultXMLIndent matches the indentation used for XML code blocks
const DefaultXMLIndent = 2

var (
	ErrEmptyXML  = errors.New("empty XML document")
	ErrEmptyJSON = errors.New("empty JSON document")
)

// PrettyXML re-indents an XML document. Malformed input returns an error and
// callers are expected to fall back to the raw text.
func PrettyXML(input string, indent int) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyXML
	}
	if indent < 0 {
		indent = 0
	}

	dec := xml.NewDecoder(strings.NewReader(input))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", strings.Repeat(" ", indent))

	tokens := 0
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse XML: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			if len(bytes.TrimSpace(cd)) == 0 {
				continue
			}
			tok = xml.CharData(bytes.TrimSpace(cd))
		}
		if err := enc.EncodeToken(flattenNames(xml.CopyToken(tok))); err != nil {
			return "", fmt.Errorf("failed to format XML: %w", err)
		}
		tokens++
	}
	if tokens == 0 {
		return "", ErrEmptyXML
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to format XML: %w", err)
	}
	return buf.String(), nil
}

// PrettyJSON re-indents a JSON document with two spaces
func PrettyJSON(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrEmptyJSON
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}
	return buf.String(), nil
}

// flattenNames folds raw namespace prefixes into local names so the encoder
// writes "soap:Envelope" back instead of inventing xmlns attributes.
func flattenNames(tok xml.Token) xml.Token {
	switch t := tok.(type) {
	case xml.StartElement:
		t.Name = flatName(t.Name)
		attrs := make([]xml.Attr, len(t.Attr))
		for i, a := range t.Attr {
			attrs[i] = xml.Attr{Name: flatName(a.Name), Value: a.Value}
		}
		t.Attr = attrs
		return t
	case xml.EndElement:
		t.Name = flatName(t.Name)
		return t
	default:
		return tok
	}
}

func flatName(n xml.Name) xml.Name {
	if n.Space == "" {
		return n
	}
	return xml.Name{Local: n.Space + ":" + n.Local}
}
