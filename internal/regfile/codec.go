package regfile

import (
	"context"
	"fmt"

	"github.com/joshuapare/hklmshim/internal/overlay"
)

// Apply executes ops against store in order. Each op maps directly onto
// one overlay.Store call.
func Apply(ctx context.Context, store *overlay.Store, ops []Op) error {
	for _, op := range ops {
		var err error
		switch o := op.(type) {
		case OpCreateKey:
			err = store.PutKey(ctx, o.Path)
		case OpDeleteKeyTree:
			err = store.DeleteKeyTree(ctx, o.Path)
		case OpSetValue:
			err = store.PutValue(ctx, o.Path, o.Name, o.Type, o.Data)
		case OpDeleteValue:
			err = store.DeleteValue(ctx, o.Path, o.Name)
		default:
			err = fmt.Errorf("regfile: unknown op %T", op)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Import parses data as .reg text and applies it to store in one pass.
func Import(ctx context.Context, store *overlay.Store, data []byte) error {
	ops, err := Parse(data)
	if err != nil {
		return err
	}
	return Apply(ctx, store, ops)
}

// Export renders the store's full contents as .reg text.
func Export(ctx context.Context, store *overlay.Store, opts ExportOptions) ([]byte, error) {
	rows, err := store.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	return Emit(rows, opts), nil
}
