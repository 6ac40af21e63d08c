package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

var (
	dumpKey   string
	dumpStats bool
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVar(&dumpKey, "key", "", "Dump only this subtree")
	cmd.Flags().BoolVar(&dumpStats, "stats", false, "Print row-count diagnostics instead of contents")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Human-readable dump of the store's contents",
		Long: `The dump command prints every live key and value in the store in a
readable form. --stats prints row-count diagnostics (live/tombstoned
keys and values) instead.

Example:
  hklmctl dump
  hklmctl dump --key "HKLM\Software\MyApp"
  hklmctl dump --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump()
		},
	}
}

func runDump() error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if dumpStats {
		st2, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("live keys:        %d\n", st2.LiveKeys)
		fmt.Printf("tombstoned keys:  %d\n", st2.TombstonedKeys)
		fmt.Printf("live values:      %d\n", st2.LiveValues)
		fmt.Printf("tombstoned values:%d\n", st2.TombstonedValues)
		return nil
	}

	rows, err := st.ExportAll(ctx)
	if err != nil {
		return err
	}
	if dumpKey != "" {
		rows = filterSubtree(rows, keypath.Canonicalize(dumpKey))
	}

	var currentKey string
	haveKey := false
	for _, r := range rows {
		if !haveKey || r.KeyPath != currentKey {
			fmt.Printf("[%s]\n", r.KeyPath)
			currentKey = r.KeyPath
			haveKey = true
		}
		if r.KeyOnly {
			continue
		}
		name := r.ValueName
		if name == "" {
			name = "(Default)"
		}
		fmt.Printf("  %s = %s\n", name, formatDumpValue(r.Type, r.Data))
	}
	return nil
}

func formatDumpValue(typ regtypes.Type, data []byte) string {
	switch typ {
	case regtypes.DWORD:
		var v uint32
		if len(data) >= 4 {
			v = uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
		}
		return fmt.Sprintf("REG_DWORD 0x%08x", v)
	case regtypes.QWORD:
		var v uint64
		for i := 0; i < len(data) && i < 8; i++ {
			v |= uint64(data[i]) << (8 * i)
		}
		return fmt.Sprintf("REG_QWORD 0x%016x", v)
	default:
		if len(data) > 32 {
			return fmt.Sprintf("type=%d %s... (%d bytes)", typ, hex.EncodeToString(data[:32]), len(data))
		}
		return fmt.Sprintf("type=%d %s", typ, hex.EncodeToString(data))
	}
}
