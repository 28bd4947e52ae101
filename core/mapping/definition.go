package mapping

import "fmt"

// Cardinality is the number of opposite objects an end-point can hold.
type Cardinality int

const (
	CardinalityOne Cardinality = iota
	CardinalityMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "one"
	case CardinalityMany:
		return "many"
	default:
		return "unknown"
	}
}

// ParseCardinality converts the mapping file representation to a Cardinality.
func ParseCardinality(s string) (Cardinality, error) {
	switch s {
	case "one", "":
		return CardinalityOne, nil
	case "many":
		return CardinalityMany, nil
	default:
		return CardinalityOne, fmt.Errorf("unknown cardinality %q", s)
	}
}

// EndPointDefinition describes one side of a relation. Definitions are
// read-only once added to a Configuration.
type EndPointDefinition struct {
	ClassID      string
	PropertyName string
	Cardinality  Cardinality
	// IsVirtual is false for the side that physically stores the foreign key.
	IsVirtual bool
	// IsMandatory requires a non-null opposite object at commit time.
	IsMandatory bool

	relation *RelationDefinition
}

// IsAnonymous reports whether this is the property-less side of a
// unidirectional relation.
func (d *EndPointDefinition) IsAnonymous() bool {
	return d.PropertyName == ""
}

// RelationDefinition returns the relation this end-point belongs to.
func (d *EndPointDefinition) RelationDefinition() *RelationDefinition {
	return d.relation
}

// OppositeEndPointDefinition returns the other side of the relation.
func (d *EndPointDefinition) OppositeEndPointDefinition() *EndPointDefinition {
	if d.relation == nil {
		return nil
	}
	if d.relation.endPoints[0] == d {
		return d.relation.endPoints[1]
	}
	return d.relation.endPoints[0]
}

func (d *EndPointDefinition) String() string {
	if d.IsAnonymous() {
		return d.ClassID + ".<anonymous>"
	}
	return d.ClassID + "." + d.PropertyName
}

// RelationDefinition pairs two end-point definitions. Exactly one of them is real.
type RelationDefinition struct {
	ID        string
	endPoints [2]*EndPointDefinition
}

// EndPointDefinitions returns both sides of the relation.
func (r *RelationDefinition) EndPointDefinitions() [2]*EndPointDefinition {
	return r.endPoints
}

// IsUnidirectional reports whether one side of the relation is anonymous.
func (r *RelationDefinition) IsUnidirectional() bool {
	return r.endPoints[0].IsAnonymous() || r.endPoints[1].IsAnonymous()
}

// RealEndPointDefinition returns the foreign-key holding side.
func (r *RelationDefinition) RealEndPointDefinition() *EndPointDefinition {
	if !r.endPoints[0].IsVirtual {
		return r.endPoints[0]
	}
	return r.endPoints[1]
}
