package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/streamvisit/jsonvisit"
)

// schemaNode is the YAML description of one point in a jsonvisit.Schema
// tree. Exactly one of Leaf, Array, or Fields should be set; Leaf takes
// precedence if more than one is present.
type schemaNode struct {
	Leaf   bool                   `yaml:"leaf,omitempty"`
	Array  *schemaNode            `yaml:"array,omitempty"`
	Fields map[string]*schemaNode `yaml:"fields,omitempty"`
}

// loadSchemaFile reads a YAML schema description from path and compiles
// it into a jsonvisit.Schema whose leaves call emit with the dotted
// path of the matched key and its decoded value.
func loadSchemaFile(path string, emit func(path string, value any)) (jsonvisit.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root schemaNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	return compileSchemaNode(&root, "$", emit), nil
}

func compileSchemaNode(n *schemaNode, path string, emit func(string, any)) jsonvisit.Schema {
	switch {
	case n.Leaf:
		return jsonvisit.Leaf(func(v any) error {
			emit(path, v)
			return nil
		})
	case n.Array != nil:
		return jsonvisit.Array(compileSchemaNode(n.Array, path+"[]", emit))
	case n.Fields != nil:
		fields := make(jsonvisit.Fields, len(n.Fields))
		for key, child := range n.Fields {
			fields[key] = compileSchemaNode(child, path+"."+key, emit)
		}
		return fields
	default:
		// An empty node matches nothing useful; treat it as a leaf so the
		// schema file still compiles rather than panicking deep inside Visit.
		return jsonvisit.Leaf(func(v any) error { return nil })
	}
}
