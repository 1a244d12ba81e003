package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ParseError indicates a proposed document could not be parsed into the
// canonical Node model — spec §4.1's "unresolved refs are surfaced as a
// parse error" and malformed-document cases generally. Callers (the impact
// analyzer, the publish coordinator) map this to the BrokenContract error
// kind (spec §7).
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a raw JSON Schema document into the canonical Node model.
// It uses google/jsonschema-go's Schema type to validate that the document
// is structurally well-formed JSON Schema, then resolves local $ref entries
// against the document's own "$defs"/"definitions" table before converting
// to Node. A $ref that cannot be resolved locally is a *ParseError.
func Parse(raw json.RawMessage) (*Node, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &Node{}, nil
	}

	var doc jsonschema.Schema
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("decoding json schema: %w", err)}
	}

	defs := doc.Defs
	if defs == nil {
		defs = doc.Definitions
	}

	c := &converter{defs: defs, seen: map[string]bool{}}
	return c.convert(&doc, "$")
}

// converter carries the local definitions table through a recursive
// conversion pass and detects $ref cycles.
type converter struct {
	defs map[string]*jsonschema.Schema
	seen map[string]bool
}

func (c *converter) convert(s *jsonschema.Schema, path string) (*Node, error) {
	if s == nil {
		return &Node{}, nil
	}

	if s.Ref != "" {
		name := refName(s.Ref)
		if name == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported $ref %q: only local #/$defs and #/definitions refs are resolved", s.Ref)}
		}
		if c.seen[name] {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("cyclic $ref at %q", s.Ref)}
		}
		target, ok := c.defs[name]
		if !ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("unresolved $ref %q", s.Ref)}
		}
		c.seen[name] = true
		defer delete(c.seen, name)
		return c.convert(target, path)
	}

	n := &Node{
		Types:            collectTypes(s),
		Required:         append([]string(nil), s.Required...),
		Enum:             s.Enum,
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
		ExclusiveMinimum: s.ExclusiveMinimum,
		ExclusiveMaximum: s.ExclusiveMaximum,
		MinLength:        intPtr(s.MinLength),
		MaxLength:        intPtr(s.MaxLength),
		MinItems:         intPtr(s.MinItems),
		MaxItems:         intPtr(s.MaxItems),
		Pattern:          s.Pattern,
		Format:           s.Format,
		Description:      s.Description,
	}

	if s.Default != nil {
		n.Default = s.Default
		n.HasDefault = true
	}

	for _, t := range n.Types {
		if t == TypeNull {
			n.Nullable = true
		}
	}

	if len(s.Properties) > 0 {
		n.Properties = make(map[string]*Node, len(s.Properties))
		for name, child := range s.Properties {
			cn, err := c.convert(child, path+".properties."+name)
			if err != nil {
				return nil, err
			}
			n.Properties[name] = cn
		}
	}

	if s.Items != nil {
		items, err := c.convert(s.Items, path+".items")
		if err != nil {
			return nil, err
		}
		n.Items = items
	}

	return n, nil
}

// collectTypes normalizes jsonschema.Schema's dual representation (the
// singular Type string and the plural Types slice some drafts emit) into one
// ordered slice.
func collectTypes(s *jsonschema.Schema) []string {
	var out []string
	seen := map[string]bool{}
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	if s.Type != "" {
		add(s.Type)
	}
	for _, t := range s.Types {
		add(t)
	}
	return out
}

func refName(ref string) string {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix)
		}
	}
	return ""
}

func intPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
