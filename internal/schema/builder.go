// Package schema infers a JSON Schema document from sample values.
//
// Samples are JSON-like Go values: maps, slices, strings, numbers, booleans
// and nil. Object samples are merged property by property; a property is
// required when every object sample carries it. Array items are merged into a
// single items schema. Whole numbers are integers, any fractional sample widens
// the type to number.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// SchemaType names the dialect of the generated document.
type SchemaType string

const (
	Draft07 SchemaType = "JSONSchema-Draft-07"

	schemaURI = "http://json-schema.org/schema#"
)

var ErrUnsupportedSchemaType = errors.New("unsupported schema type")

// Builder accumulates samples. It is not safe for concurrent use.
type Builder struct {
	root    *node
	samples int
}

func NewBuilder() *Builder {
	return &Builder{root: newNode()}
}

// Add merges one sample into the schema.
func (b *Builder) Add(sample any) error {
	value, err := normalize(sample)
	if err != nil {
		return err
	}
	b.root.add(value)
	b.samples++
	return nil
}

func (b *Builder) Samples() int { return b.samples }

// Schema renders the merged schema. The result always has a "type" key.
func (b *Builder) Schema(schemaType SchemaType) (map[string]any, error) {
	if schemaType != Draft07 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSchemaType, schemaType)
	}
	out := b.root.schema()
	out["$schema"] = schemaURI
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out, nil
}

type node struct {
	scalars map[string]struct{}
	object  *objectNode
	array   *arrayNode
}

type objectNode struct {
	samples    int
	seen       map[string]int
	properties map[string]*node
}

type arrayNode struct {
	items *node
}

func newNode() *node {
	return &node{scalars: map[string]struct{}{}}
}

func (n *node) add(value any) {
	switch v := value.(type) {
	case nil:
		n.scalars["null"] = struct{}{}
	case bool:
		n.scalars["boolean"] = struct{}{}
	case string:
		n.scalars["string"] = struct{}{}
	case json.Number:
		if _, err := v.Int64(); err == nil {
			n.scalars["integer"] = struct{}{}
			return
		}
		f, err := v.Float64()
		if err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			n.scalars["integer"] = struct{}{}
			return
		}
		n.scalars["number"] = struct{}{}
	case map[string]any:
		if n.object == nil {
			n.object = &objectNode{seen: map[string]int{}, properties: map[string]*node{}}
		}
		n.object.samples++
		for key, child := range v {
			prop, ok := n.object.properties[key]
			if !ok {
				prop = newNode()
				n.object.properties[key] = prop
			}
			prop.add(child)
			n.object.seen[key]++
		}
	case []any:
		if n.array == nil {
			n.array = &arrayNode{}
		}
		for _, item := range v {
			if n.array.items == nil {
				n.array.items = newNode()
			}
			n.array.items.add(item)
		}
	}
}

func (n *node) schema() map[string]any {
	var parts []map[string]any
	if types := n.scalarTypes(); len(types) == 1 {
		parts = append(parts, map[string]any{"type": types[0]})
	} else if len(types) > 1 {
		parts = append(parts, map[string]any{"type": types})
	}
	if n.object != nil {
		parts = append(parts, n.object.schema())
	}
	if n.array != nil {
		parts = append(parts, n.array.schema())
	}
	switch len(parts) {
	case 0:
		return map[string]any{}
	case 1:
		return parts[0]
	default:
		anyOf := make([]any, 0, len(parts))
		for _, part := range parts {
			anyOf = append(anyOf, part)
		}
		return map[string]any{"anyOf": anyOf}
	}
}

func (n *node) scalarTypes() []string {
	_, hasNumber := n.scalars["number"]
	types := make([]string, 0, len(n.scalars))
	for name := range n.scalars {
		// number already covers integer samples
		if name == "integer" && hasNumber {
			continue
		}
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

func (o *objectNode) schema() map[string]any {
	out := map[string]any{"type": "object"}
	if len(o.properties) == 0 {
		return out
	}
	properties := make(map[string]any, len(o.properties))
	var required []string
	for key, prop := range o.properties {
		properties[key] = prop.schema()
		if o.seen[key] == o.samples {
			required = append(required, key)
		}
	}
	out["properties"] = properties
	if len(required) > 0 {
		sort.Strings(required)
		out["required"] = required
	}
	return out
}

func (a *arrayNode) schema() map[string]any {
	out := map[string]any{"type": "array"}
	if a.items != nil {
		out["items"] = a.items.schema()
	}
	return out
}

// normalize brings arbitrary Go values into the JSON value space the node
// understands.
func normalize(sample any) (any, error) {
	switch v := sample.(type) {
	case nil, bool, string, json.Number:
		return v, nil
	case float64:
		return floatNumber(v), nil
	case float32:
		return floatNumber(float64(v)), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return json.Number(fmt.Sprint(v)), nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			norm, err := normalize(child)
			if err != nil {
				return nil, err
			}
			out[key] = norm
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			norm, err := normalize(child)
			if err != nil {
				return nil, err
			}
			out = append(out, norm)
		}
		return out, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("sample is not JSON-encodable: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
		return normalize(out)
	}
}

func floatNumber(f float64) json.Number {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return json.Number(fmt.Sprintf("%.0f", f))
	}
	return json.Number(fmt.Sprint(f))
}
