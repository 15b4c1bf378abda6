package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
)

// Format is the encoding of a problem file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from the file extension; anything but .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseFormat converts an output format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q, expected yaml or json", name)
	}
}

// LoadProblemFile reads and validates a problem file.
func LoadProblemFile(path string) (*config.ProblemData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening problem file: %w", err)
	}
	defer f.Close()

	data, err := ReadProblem(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Log().V(logging.DEBUG).Info("Loaded problem file",
		"path", path,
		"agents", len(data.Agents),
		"resources", len(data.Resources),
		"rules", len(data.Rules))
	return data, nil
}

// ReadProblem decodes a problem in the given format. Unknown fields are rejected.
func ReadProblem(r io.Reader, format Format) (*config.ProblemData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading problem: %w", err)
	}
	return ParseProblem(raw, format)
}

// ParseProblem decodes a problem in the given format. Unknown fields are rejected.
func ParseProblem(raw []byte, format Format) (*config.ProblemData, error) {
	data := &config.ProblemData{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(data); err != nil {
			return nil, fmt.Errorf("decoding JSON problem: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(data); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding YAML problem: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// Encode writes v in the given format.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
