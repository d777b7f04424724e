// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ErrFileTooLarge is wrapped when input exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

type (
	// ParseResult holds a decoded value and the unified CUE value it came from.
	ParseResult[T any] struct {
		Value   *T
		Unified cue.Value
	}

	// ValidationError is a single schema violation.
	ValidationError struct {
		// FilePath is the file being validated.
		FilePath string
		// CUEPath is the JSON path to the invalid value (e.g., "scripts.setup").
		CUEPath string
		// Message is the validation error message.
		Message string
	}

	// ValidationErrors collects every violation reported for one document.
	ValidationErrors []*ValidationError
)

// ParseAndDecode compiles schema, unifies data with the definition at
// schemaPath, validates the result and decodes it into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	def := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if !def.Exists() {
		return nil, fmt.Errorf("internal error: schema has no %s definition", schemaPath)
	}

	var compileOpts []cue.BuildOption
	if o.filename != "" {
		compileOpts = append(compileOpts, cue.Filename(o.filename))
	}
	userValue := ctx.CompileBytes(data, compileOpts...)
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), o.filename)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}

	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}

// ParseAndDecodeString is ParseAndDecode with a string schema.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}

// CheckFileSize fails when data exceeds maxSize. A non-positive maxSize
// disables the check.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if maxSize <= 0 || int64(len(data)) <= maxSize {
		return nil
	}
	name := filename
	if name == "" {
		name = "input"
	}
	return fmt.Errorf("%s: size %d bytes exceeds maximum of %d bytes: %w", name, len(data), maxSize, ErrFileTooLarge)
}

// FormatError flattens a CUE error into ValidationErrors carrying JSON-style
// paths, e.g. "blueprint.json: scripts.setup: conflicting values".
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	list := cueerrors.Errors(err)
	if len(list) == 0 {
		if filePath == "" {
			return err
		}
		return fmt.Errorf("%s: %w", filePath, err)
	}

	out := make(ValidationErrors, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		format, args := e.Msg()
		ve := &ValidationError{
			FilePath: filePath,
			CUEPath:  formatPath(e.Path()),
			Message:  fmt.Sprintf(format, args...),
		}
		key := ve.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ve)
	}
	return out
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.FilePath != "" {
		sb.WriteString(e.FilePath)
		sb.WriteString(": ")
	}
	if e.CUEPath != "" {
		sb.WriteString(e.CUEPath)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// formatPath converts ["scripts", "0", "setup"] into "scripts[0].setup".
// Definition selectors such as "#Blueprint" are dropped.
func formatPath(path []string) string {
	var sb strings.Builder
	for _, p := range path {
		if strings.HasPrefix(p, "#") {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			sb.WriteString("[" + p + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(p)
	}
	return sb.String()
}
