package interceptors

import (
	"context"

	"github.com/joshuapare/hklmshim/internal/merge"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// BufferRequest describes the caller's output-buffer contract for a
// single call: HasBuffer is false when the caller passed a NULL buffer
// pointer (asking only for the required size); Capacity is the buffer's
// size in bytes when HasBuffer is true.
type BufferRequest struct {
	HasBuffer bool
	Capacity  int
}

// ResolveBuffer applies the three-way buffer-size contract every
// Query/Get/Enum-style call must honor: a NULL buffer returns the
// required size with success; a too-small buffer returns ErrMoreData with
// the required size; an adequate buffer returns the data with success.
func ResolveBuffer(req BufferRequest, data []byte) (toWrite []byte, requiredLen int, err error) {
	requiredLen = len(data)
	if !req.HasBuffer {
		return nil, requiredLen, nil
	}
	if req.Capacity < requiredLen {
		return nil, requiredLen, regtypes.ErrMoreData
	}
	return data, requiredLen, nil
}

// QueryValue resolves a single (path, name) lookup against the merged
// view and applies the buffer contract. A tombstoned or wholly absent
// value reports ErrNotFound.
func (d *Dispatcher) QueryValue(ctx context.Context, path, name string, req BufferRequest) (typ regtypes.Type, toWrite []byte, requiredLen int, err error) {
	v, err := d.Engine.Value(ctx, path, name)
	if err != nil {
		return 0, nil, 0, err
	}
	if v == nil {
		return 0, nil, 0, regtypes.ErrNotFound
	}
	toWrite, requiredLen, err = ResolveBuffer(req, v.Data)
	return v.Type, toWrite, requiredLen, err
}

// EnumValue resolves the idx'th entry of the merged value set and applies
// the buffer contract to its name. ErrNoMoreItems is returned once idx
// runs past the merged set's end.
func (d *Dispatcher) EnumValue(ctx context.Context, path string, idx int, nameReq BufferRequest) (name string, typ regtypes.Type, data []byte, err error) {
	v, ok, err := d.Engine.ValueAtOrdinal(ctx, path, idx)
	if err != nil {
		return "", 0, nil, err
	}
	if !ok {
		return "", 0, nil, regtypes.ErrNoMoreItems
	}
	toWrite, _, err := ResolveBuffer(nameReq, []byte(v.Name))
	if err != nil {
		return "", 0, nil, err
	}
	if toWrite != nil {
		return v.Name, v.Type, v.Data, nil
	}
	return "", v.Type, v.Data, nil
}

// EnumKey resolves the idx'th entry of the merged subkey set, applying
// the buffer contract to its name.
func (d *Dispatcher) EnumKey(ctx context.Context, path string, idx int, nameReq BufferRequest) (name string, err error) {
	s, ok, err := d.Engine.SubkeyAtOrdinal(ctx, path, idx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", regtypes.ErrNoMoreItems
	}
	if _, _, err := ResolveBuffer(nameReq, []byte(s)); err != nil {
		return "", err
	}
	return s, nil
}

// QueryInfo reports merged counts/max-lengths for a key.
func (d *Dispatcher) QueryInfo(ctx context.Context, path string) (merge.Info, error) {
	return d.Engine.QueryInfo(ctx, path)
}
