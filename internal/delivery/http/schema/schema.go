// Package schema validates request bodies against embedded JSON Schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "cryptosniper/internal/errors"
)

// Schema names
const (
	Signup               = "signup"
	VerifyOTP            = "verify_otp"
	CompleteRegistration = "complete_registration"
	SignIn               = "signin"
	StrategyCreate       = "strategy_create"
	StrategyPatch        = "strategy_patch"
	PositionCreate       = "position_create"
	PositionPatch        = "position_patch"
	SnapshotCreate       = "snapshot_create"
)

//go:embed schemas/*.json
var files embed.FS

// Validator holds the compiled schemas
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(files, "schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		raw, err := files.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(entry.Name(), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", entry.Name(), err)
		}
		names = append(names, entry.Name())
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, file := range names {
		compiled, err := compiler.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", file, err)
		}
		v.schemas[strings.TrimSuffix(file, ".json")] = compiled
	}
	return v, nil
}

// MustNew is New that panics; the schemas are embedded so failure is a build defect
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks body against the named schema. Failures are returned as a
// validation *apperrors.Error whose details map field paths to messages.
func (v *Validator) Validate(name string, body []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return apperrors.NewInternalError("Unknown request schema", fmt.Errorf("schema %q not registered", name))
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return apperrors.NewValidationError("Invalid JSON body", err)
	}

	err := s.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return apperrors.NewInternalError("Failed to validate request", err)
	}

	fields := make(map[string]string)
	collectLeaves(verr, fields)
	return apperrors.NewFieldValidationError(summary(fields), fields)
}

// collectLeaves flattens the cause tree into field path -> message
func collectLeaves(e *jsonschema.ValidationError, fields map[string]string) {
	if len(e.Causes) > 0 {
		for _, cause := range e.Causes {
			collectLeaves(cause, fields)
		}
		return
	}

	if missing, ok := missingProperties(e.Message); ok {
		for _, prop := range missing {
			fields[fieldPath(e.InstanceLocation, prop)] = "required"
		}
		return
	}

	field := fieldPath(e.InstanceLocation, "")
	if _, seen := fields[field]; !seen {
		fields[field] = e.Message
	}
}

// missingProperties parses "missing properties: 'a', 'b'"
func missingProperties(msg string) ([]string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(msg, "missing properties: "):
		rest = strings.TrimPrefix(msg, "missing properties: ")
	case strings.HasPrefix(msg, "missing property: "):
		rest = strings.TrimPrefix(msg, "missing property: ")
	default:
		return nil, false
	}
	var props []string
	for _, part := range strings.Split(rest, ",") {
		props = append(props, strings.Trim(strings.TrimSpace(part), "'"))
	}
	return props, true
}

// fieldPath turns "/assets/BTC" plus prop into "assets.BTC.prop"
func fieldPath(location, prop string) string {
	parts := strings.Split(strings.Trim(location, "/"), "/")
	if prop != "" {
		parts = append(parts, prop)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "body"
	}
	return strings.Join(out, ".")
}

func summary(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "Invalid request: " + strings.Join(names, ", ")
}
