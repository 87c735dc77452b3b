// Package codec serializes reports for export and for the HTTP transport.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format accepted by --format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts a format name case-insensitively. "yml" is an alias
// for yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
}

func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes v to w as JSON or YAML, followed by a newline.
func Encode(w io.Writer, f Format, v any) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatJSON:
		data, err = MarshalJSON(v)
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = MarshalYAML(v)
	default:
		return fmt.Errorf("format %q is not a serialization format", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	_, err = w.Write(data)
	return err
}
