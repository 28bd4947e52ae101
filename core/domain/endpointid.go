package domain

import "fmt"

// RelationEndPointID identifies one relation property of one object. It is a
// comparable value and is used as the key of the transaction's end-point map.
type RelationEndPointID struct {
	ObjectID     ObjectID
	PropertyName string
}

// NewRelationEndPointID creates the id of the given property of the given object.
func NewRelationEndPointID(objectID ObjectID, propertyName string) RelationEndPointID {
	return RelationEndPointID{ObjectID: objectID, PropertyName: propertyName}
}

// IsAnonymous reports whether the id denotes the property-less side of a
// unidirectional relation. Anonymous end-points are never registered.
func (id RelationEndPointID) IsAnonymous() bool {
	return id.PropertyName == ""
}

// IsZero reports whether the id is the zero value.
func (id RelationEndPointID) IsZero() bool {
	return id == RelationEndPointID{}
}

func (id RelationEndPointID) String() string {
	return fmt.Sprintf("%s/%s", id.ObjectID, id.PropertyName)
}
