// Package payload builds the request bodies of the CloudWorks and flow
// endpoints from loosely typed maps. Input keys may be snake_case or
// camelCase; output keys are always camelCase and empty optional fields are
// left out.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPayload reports input that does not satisfy the payload's shape.
var ErrInvalidPayload = errors.New("payload: invalid input")

// validator is implemented by every input type.
type validator interface {
	validate() error
}

// ID is an integer identifier that accepts JSON numbers or digit strings and
// is emitted as a decimal string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (i *ID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))

	if s == "null" || s == "" {
		*i = ""
		return nil
	}

	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("identifier %s is not an integer", b)
	}

	*i = ID(s)

	return nil
}

// Build validates v and renders it as a camelCase map.
func Build(v validator) (map[string]any, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}

	return toMap(v)
}

// decode renames the keys of in to camelCase and decodes the result into out.
func decode(in map[string]any, out any) error {
	if in == nil {
		return fmt.Errorf("%w: empty input", ErrInvalidPayload)
	}

	raw, err := json.Marshal(camelKeys(in))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return out, nil
}

// field pairs a JSON field name with whether it is present.
type field struct {
	name string
	ok   bool
}

func present(name, v string) field { return field{name, v != ""} }

// requireFields reports every missing field of kind in one error.
func requireFields(kind string, fields ...field) error {
	var missing []string

	for _, f := range fields {
		if !f.ok {
			missing = append(missing, f.name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %s is missing %s", ErrInvalidPayload, kind, strings.Join(missing, ", "))
}

func oneOf(kind, name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}

	return fmt.Errorf("%w: %s %s %q is not one of %s", ErrInvalidPayload, kind, name, v, strings.Join(allowed, ", "))
}

// InsertionResult is the merged outcome of list item insertions.
type InsertionResult struct {
	Added    int              `json:"added"`
	Ignored  int              `json:"ignored"`
	Total    int              `json:"total"`
	Failures []map[string]any `json:"failures"`
}

// MergeInsertions sums the counters of several insertion responses and
// concatenates their failures.
func MergeInsertions(results ...InsertionResult) InsertionResult {
	out := InsertionResult{Failures: []map[string]any{}}

	for _, r := range results {
		out.Added += r.Added
		out.Ignored += r.Ignored
		out.Total += r.Total
		out.Failures = append(out.Failures, r.Failures...)
	}

	return out
}
