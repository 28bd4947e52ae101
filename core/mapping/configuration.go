package mapping

import (
	"fmt"
	"sort"
)

type endPointKey struct {
	classID      string
	propertyName string
}

// Configuration is the registry of relation definitions consulted by the
// transaction. It is built once and then only read.
type Configuration struct {
	relations map[string]*RelationDefinition
	endPoints map[endPointKey]*EndPointDefinition
	byClass   map[string][]*EndPointDefinition
}

// NewConfiguration creates an empty mapping configuration.
func NewConfiguration() *Configuration {
	return &Configuration{
		relations: make(map[string]*RelationDefinition),
		endPoints: make(map[endPointKey]*EndPointDefinition),
		byClass:   make(map[string][]*EndPointDefinition),
	}
}

// AddRelation validates and registers a relation between two end-points.
// The definitions are owned by the configuration afterwards.
func (c *Configuration) AddRelation(id string, first, second *EndPointDefinition) (*RelationDefinition, error) {
	if id == "" {
		return nil, fmt.Errorf("relation id is required")
	}
	if _, exists := c.relations[id]; exists {
		return nil, fmt.Errorf("relation %q is already defined", id)
	}
	if first == nil || second == nil {
		return nil, fmt.Errorf("relation %q: both end-points are required", id)
	}
	if err := validatePair(id, first, second); err != nil {
		return nil, err
	}
	for _, ep := range []*EndPointDefinition{first, second} {
		if ep.IsAnonymous() {
			continue
		}
		if _, exists := c.endPoints[endPointKey{ep.ClassID, ep.PropertyName}]; exists {
			return nil, fmt.Errorf("relation %q: property %s is already mapped", id, ep)
		}
	}

	rel := &RelationDefinition{ID: id, endPoints: [2]*EndPointDefinition{first, second}}
	for _, ep := range rel.endPoints {
		ep.relation = rel
		if ep.IsAnonymous() {
			continue
		}
		c.endPoints[endPointKey{ep.ClassID, ep.PropertyName}] = ep
		c.byClass[ep.ClassID] = append(c.byClass[ep.ClassID], ep)
		sort.Slice(c.byClass[ep.ClassID], func(i, j int) bool {
			return c.byClass[ep.ClassID][i].PropertyName < c.byClass[ep.ClassID][j].PropertyName
		})
	}
	c.relations[id] = rel
	return rel, nil
}

func validatePair(id string, first, second *EndPointDefinition) error {
	if first.ClassID == "" || second.ClassID == "" {
		return fmt.Errorf("relation %q: end-point class is required", id)
	}
	if first.IsVirtual == second.IsVirtual {
		return fmt.Errorf("relation %q: exactly one end-point must be real", id)
	}
	if first.IsAnonymous() && second.IsAnonymous() {
		return fmt.Errorf("relation %q: at most one end-point can be anonymous", id)
	}
	for _, ep := range []*EndPointDefinition{first, second} {
		if !ep.IsVirtual && ep.Cardinality != CardinalityOne {
			return fmt.Errorf("relation %q: real end-point %s must have cardinality one", id, ep)
		}
		if ep.IsAnonymous() && !ep.IsVirtual {
			return fmt.Errorf("relation %q: anonymous end-point must be virtual", id)
		}
	}
	return nil
}

// Relation returns the relation with the given id.
func (c *Configuration) Relation(id string) (*RelationDefinition, bool) {
	rel, ok := c.relations[id]
	return rel, ok
}

// EndPoint returns the definition of a mapped relation property.
func (c *Configuration) EndPoint(classID, propertyName string) (*EndPointDefinition, bool) {
	ep, ok := c.endPoints[endPointKey{classID, propertyName}]
	return ep, ok
}

// EndPointsForClass returns the relation properties of a class ordered by name.
func (c *Configuration) EndPointsForClass(classID string) []*EndPointDefinition {
	return c.byClass[classID]
}

// Classes returns the ids of all classes taking part in a relation.
func (c *Configuration) Classes() []string {
	classes := make([]string, 0, len(c.byClass))
	for classID := range c.byClass {
		classes = append(classes, classID)
	}
	sort.Strings(classes)
	return classes
}
