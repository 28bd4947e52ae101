package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectID identifies one entity instance. The zero value is the null object.
type ObjectID struct {
	ClassID string
	Value   uuid.UUID
}

// NilObjectID is the null object reference.
var NilObjectID ObjectID

// NewObjectID creates a fresh identity for an object of the given class.
func NewObjectID(classID string) ObjectID {
	return ObjectID{ClassID: classID, Value: uuid.New()}
}

// ParseObjectID parses the "Class|uuid" text form produced by String.
// The literal "null" parses to NilObjectID.
func ParseObjectID(s string) (ObjectID, error) {
	if s == "" || s == "null" {
		return NilObjectID, nil
	}
	classID, value, ok := strings.Cut(s, "|")
	if !ok || classID == "" {
		return NilObjectID, fmt.Errorf("invalid object id %q: expected Class|uuid", s)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return NilObjectID, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return ObjectID{ClassID: classID, Value: id}, nil
}

// IsNil reports whether the id is the null object reference.
func (id ObjectID) IsNil() bool {
	return id == NilObjectID
}

func (id ObjectID) String() string {
	if id.IsNil() {
		return "null"
	}
	return id.ClassID + "|" + id.Value.String()
}

// MarshalText implements encoding.TextMarshaler so ids can be used as JSON
// values and map keys.
func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
