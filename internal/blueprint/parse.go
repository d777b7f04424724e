// SPDX-License-Identifier: MPL-2.0

package blueprint

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thresh/thresh/internal/cueutil"
)

const (
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"

	// MaxFileSize bounds blueprint files.
	MaxFileSize = 1 << 20

	schemaPath = "#Blueprint"
)

//go:embed blueprint_schema.cue
var blueprintSchema []byte

// Format is a blueprint file encoding.
type Format string

// Extensions lists the file extensions recognized as blueprints, in lookup
// order.
var Extensions = []string{".json", ".cue", ".yaml", ".yml", ".toml"}

// FormatFromPath picks the format from a file extension. Unknown extensions
// are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// Parse decodes data in the given format, checks it against the blueprint
// schema and validates it. source names the input in error messages.
func Parse(data []byte, format Format, source string) (*Blueprint, error) {
	if err := cueutil.CheckFileSize(data, MaxFileSize, source); err != nil {
		return nil, err
	}

	doc, err := toCUE(data, format)
	if err != nil {
		return nil, &InvalidBlueprintError{Source: source, Errs: []error{err}}
	}

	result, err := cueutil.ParseAndDecode[Blueprint](blueprintSchema, doc, schemaPath,
		cueutil.WithFilename(source), cueutil.WithMaxFileSize(0))
	if err != nil {
		var verrs cueutil.ValidationErrors
		if errors.As(err, &verrs) {
			errs := make([]error, len(verrs))
			for i, ve := range verrs {
				errs[i] = ve
			}
			return nil, &InvalidBlueprintError{Source: source, Errs: errs}
		}
		return nil, &InvalidBlueprintError{Source: source, Errs: []error{err}}
	}

	bp := result.Value
	if ok, errs := bp.IsValid(); !ok {
		return nil, &InvalidBlueprintError{Source: source, Errs: errs}
	}
	return bp, nil
}

// LoadFile reads and parses a blueprint file, picking the format from its
// extension.
func LoadFile(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint: %w", err)
	}
	return Parse(data, FormatFromPath(path), path)
}

// toCUE converts data into something the CUE compiler accepts. JSON is
// valid CUE; YAML and TOML are re-encoded as JSON.
func toCUE(data []byte, format Format) ([]byte, error) {
	var doc map[string]any
	switch format {
	case FormatJSON, FormatCUE:
		return data, nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported blueprint format %q", format)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert %s to JSON: %w", format, err)
	}
	return out, nil
}
