package categories

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Marshal encodes categories as a JSON object of name -> keyword array,
// preserving registry order, indented by two spaces.
func Marshal(cats []Category) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cats {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeValue(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		kws := c.Keywords
		if kws == nil {
			kws = []string{}
		}
		if err := encodeValue(&buf, kws); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Unmarshal decodes a JSON object of name -> keyword array, keeping the
// document order. Any other shape is rejected.
func Unmarshal(data []byte) ([]Category, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("categories must be a JSON object")
	}

	var cats []Category
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading category name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true

		var kws []string
		if err := dec.Decode(&kws); err != nil {
			return nil, fmt.Errorf("category %q: keywords must be an array of strings: %w", name, err)
		}
		if kws == nil {
			kws = []string{}
		}
		cats = append(cats, Category{Name: name, Keywords: kws})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after categories object")
	}
	return cats, nil
}
