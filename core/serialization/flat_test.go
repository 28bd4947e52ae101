package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct{ name string }

type point struct {
	x, y  int
	label string
	owner *owner
}

func (p *point) SerializeIntoFlatStructure(w *FlatWriter) {
	w.AddInt(p.x)
	w.AddInt(p.y)
	w.AddString(p.label)
	w.AddHandle(p.owner)
}

func readPoint(r *FlatReader) (*point, error) {
	p := &point{}
	var err error
	if p.x, err = r.GetInt(); err != nil {
		return nil, err
	}
	if p.y, err = r.GetInt(); err != nil {
		return nil, err
	}
	if p.label, err = r.GetString(); err != nil {
		return nil, err
	}
	if p.owner, err = GetHandle[*owner](r); err != nil {
		return nil, err
	}
	return p, nil
}

func TestFlatRoundTripSharesHandles(t *testing.T) {
	shared := &owner{name: "tx"}
	w := NewFlatWriter()
	w.AddObject(&point{x: 1, y: 2, label: "a", owner: shared})
	w.AddObject(&point{x: 3, y: 4, label: "b", owner: shared})
	w.AddObject((*point)(nil))
	w.AddBool(true)

	flat := w.Flattened()
	require.Len(t, flat.Handles, 1)

	r := NewFlatReader(flat)
	a, err := GetObject(r, readPoint)
	require.NoError(t, err)
	b, err := GetObject(r, readPoint)
	require.NoError(t, err)
	missing, err := GetObject(r, readPoint)
	require.NoError(t, err)
	flag, err := r.GetBool()
	require.NoError(t, err)
	require.NoError(t, r.Done())

	assert.Equal(t, "a", a.label)
	assert.Equal(t, 4, b.y)
	assert.Nil(t, missing)
	assert.True(t, flag)
	assert.Same(t, a.owner, b.owner)
}

func TestFlatReaderHandleMapper(t *testing.T) {
	oldOwner := &owner{name: "old"}
	newOwner := &owner{name: "new"}

	w := NewFlatWriter()
	w.AddHandle(oldOwner)
	w.AddHandle(nil)

	r := NewFlatReader(w.Flattened(), WithHandleMapper(func(h any) any {
		if h == oldOwner {
			return newOwner
		}
		return h
	}))
	got, err := GetHandle[*owner](r)
	require.NoError(t, err)
	assert.Same(t, newOwner, got)

	none, err := GetHandle[*owner](r)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFlatReaderErrors(t *testing.T) {
	w := NewFlatWriter()
	w.AddString("x")

	r := NewFlatReader(w.Flattened())
	_, err := r.GetInt()
	require.Error(t, err)

	_, err = r.GetInt()
	require.Error(t, err, "reading past the end must fail")

	r = NewFlatReader(Flattened{Values: []any{5}})
	_, err = GetHandle[*owner](r)
	require.Error(t, err)

	r = NewFlatReader(Flattened{Values: []any{1, 2}})
	_, err = r.GetInt()
	require.NoError(t, err)
	require.Error(t, r.Done())
}
