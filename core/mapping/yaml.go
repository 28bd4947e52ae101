package mapping

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEndPoint and fileRelation mirror the mapping file layout:
//
//	relations:
//	  - id: Order:Customer
//	    endpoints:
//	      - {class: Order, property: Customer, mandatory: true}
//	      - {class: Customer, property: Orders, cardinality: many, virtual: true}
type fileEndPoint struct {
	Class       string `yaml:"class"`
	Property    string `yaml:"property"`
	Cardinality string `yaml:"cardinality"`
	Virtual     bool   `yaml:"virtual"`
	Mandatory   bool   `yaml:"mandatory"`
}

type fileRelation struct {
	ID        string         `yaml:"id"`
	EndPoints []fileEndPoint `yaml:"endpoints"`
}

type file struct {
	Relations []fileRelation `yaml:"relations"`
}

// LoadYAML builds a Configuration from a YAML mapping document.
func LoadYAML(r io.Reader) (*Configuration, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewConfiguration(), nil
		}
		return nil, fmt.Errorf("parse mapping: %w", err)
	}

	cfg := NewConfiguration()
	for _, rel := range doc.Relations {
		if len(rel.EndPoints) != 2 {
			return nil, fmt.Errorf("relation %q: expected 2 endpoints, got %d", rel.ID, len(rel.EndPoints))
		}
		first, err := rel.EndPoints[0].definition()
		if err != nil {
			return nil, fmt.Errorf("relation %q: %w", rel.ID, err)
		}
		second, err := rel.EndPoints[1].definition()
		if err != nil {
			return nil, fmt.Errorf("relation %q: %w", rel.ID, err)
		}
		if _, err := cfg.AddRelation(rel.ID, first, second); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadYAMLFile reads a mapping document from disk.
func LoadYAMLFile(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func (e fileEndPoint) definition() (*EndPointDefinition, error) {
	cardinality, err := ParseCardinality(e.Cardinality)
	if err != nil {
		return nil, err
	}
	return &EndPointDefinition{
		ClassID:      e.Class,
		PropertyName: e.Property,
		Cardinality:  cardinality,
		IsVirtual:    e.Virtual,
		IsMandatory:  e.Mandatory,
	}, nil
}
