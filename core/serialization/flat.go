// Package serialization implements the flattened serialization contract used
// to transplant a unit of work: stateful components write primitive values in
// a fixed order plus "handles" for shared objects, and read them back in the
// same order. Field order is part of the contract and must stay stable.
package serialization

import (
	"fmt"
	"reflect"
)

const nilHandle = -1

// Flattened is the output of a FlatWriter: primitive values in write order and
// the table of shared objects referenced by handle.
type Flattened struct {
	Values  []any
	Handles []any
}

// Serializable is implemented by every stateful component that can be
// flattened.
type Serializable interface {
	SerializeIntoFlatStructure(w *FlatWriter)
}

// FlatWriter collects values and handles. Writing the same shared object twice
// yields the same handle.
type FlatWriter struct {
	values      []any
	handles     []any
	handleIndex map[any]int
}

// NewFlatWriter creates an empty writer.
func NewFlatWriter() *FlatWriter {
	return &FlatWriter{handleIndex: make(map[any]int)}
}

func (w *FlatWriter) AddBool(v bool)     { w.values = append(w.values, v) }
func (w *FlatWriter) AddInt(v int)       { w.values = append(w.values, v) }
func (w *FlatWriter) AddString(v string) { w.values = append(w.values, v) }

// AddValue appends an arbitrary value type (ids, enums). Values are copied,
// never shared.
func (w *FlatWriter) AddValue(v any) { w.values = append(w.values, v) }

// AddHandle appends a reference to a shared object. A nil object is encoded
// as the nil handle.
func (w *FlatWriter) AddHandle(obj any) {
	if obj == nil || isNilPointer(obj) {
		w.values = append(w.values, nilHandle)
		return
	}
	if reflect.TypeOf(obj).Comparable() {
		if idx, ok := w.handleIndex[obj]; ok {
			w.values = append(w.values, idx)
			return
		}
		w.handleIndex[obj] = len(w.handles)
	}
	w.values = append(w.values, len(w.handles))
	w.handles = append(w.handles, obj)
}

// AddObject serializes a nested component in place, prefixed by a presence flag.
func (w *FlatWriter) AddObject(obj Serializable) {
	if obj == nil || isNilPointer(obj) {
		w.AddBool(false)
		return
	}
	w.AddBool(true)
	obj.SerializeIntoFlatStructure(w)
}

// Flattened returns the collected values and handle table.
func (w *FlatWriter) Flattened() Flattened {
	return Flattened{Values: w.values, Handles: w.handles}
}

// HandleMapper retargets a deserialized handle, e.g. at a new owning
// transaction.
type HandleMapper func(handle any) any

// ReaderOption configures a FlatReader.
type ReaderOption func(*FlatReader)

// WithHandleMapper installs a mapper applied to every handle read.
func WithHandleMapper(mapper HandleMapper) ReaderOption {
	return func(r *FlatReader) { r.mapper = mapper }
}

// FlatReader reads a Flattened structure back in write order.
type FlatReader struct {
	data   Flattened
	pos    int
	mapper HandleMapper
	mapped map[int]any
}

// NewFlatReader creates a reader positioned at the first value.
func NewFlatReader(data Flattened, opts ...ReaderOption) *FlatReader {
	r := &FlatReader{data: data, mapped: make(map[int]any)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *FlatReader) next() (any, error) {
	if r.pos >= len(r.data.Values) {
		return nil, fmt.Errorf("flat structure exhausted at position %d", r.pos)
	}
	v := r.data.Values[r.pos]
	r.pos++
	return v, nil
}

// GetValue reads the next value and asserts its type.
func GetValue[T any](r *FlatReader) (T, error) {
	var zero T
	pos := r.pos
	v, err := r.next()
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("flat structure position %d: expected %T, got %T", pos, zero, v)
	}
	return typed, nil
}

func (r *FlatReader) GetBool() (bool, error)     { return GetValue[bool](r) }
func (r *FlatReader) GetInt() (int, error)       { return GetValue[int](r) }
func (r *FlatReader) GetString() (string, error) { return GetValue[string](r) }

// GetHandle reads the next handle and resolves it through the handle table
// (and the mapper, if any). The nil handle yields the zero value of T.
func GetHandle[T any](r *FlatReader) (T, error) {
	var zero T
	pos := r.pos
	idx, err := GetValue[int](r)
	if err != nil {
		return zero, err
	}
	if idx == nilHandle {
		return zero, nil
	}
	if idx < 0 || idx >= len(r.data.Handles) {
		return zero, fmt.Errorf("flat structure position %d: handle %d out of range", pos, idx)
	}
	obj, ok := r.mapped[idx]
	if !ok {
		obj = r.data.Handles[idx]
		if r.mapper != nil {
			obj = r.mapper(obj)
		}
		r.mapped[idx] = obj
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("flat structure position %d: handle %d is %T, expected %T", pos, idx, obj, zero)
	}
	return typed, nil
}

// GetObject reads a nested component written with AddObject. The read
// function is only called when the component was present.
func GetObject[T any](r *FlatReader, read func(*FlatReader) (T, error)) (T, error) {
	var zero T
	present, err := r.GetBool()
	if err != nil {
		return zero, err
	}
	if !present {
		return zero, nil
	}
	return read(r)
}

// Remaining returns the number of unread values.
func (r *FlatReader) Remaining() int {
	return len(r.data.Values) - r.pos
}

// Done returns an error unless every value has been consumed.
func (r *FlatReader) Done() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("flat structure has %d unread values", n)
	}
	return nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
