package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hklmshim/internal/cliout"
	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regfile"
)

var exportKey string

func init() {
	cmd := newExportCmd()
	cmd.Flags().StringVar(&exportKey, "key", "", "Export only this subtree")
	rootCmd.AddCommand(cmd)
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [output.reg]",
		Short: "Export the store to Windows Registry Editor text format",
		Long: `The export command renders the live (non-tombstoned) contents of the
store as .reg text. Output goes to stdout by default; give a path to
write a file instead. A real console gets wide characters directly; a
file or redirected stream gets UTF-16LE with a byte-order mark.

Example:
  hklmctl export system.reg
  hklmctl export --key "HKLM\Software\MyApp" > subset.reg`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args)
		},
	}
}

func runExport(args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.ExportAll(ctx)
	if err != nil {
		return err
	}
	if exportKey != "" {
		rows = filterSubtree(rows, keypath.Canonicalize(exportKey))
	}

	text := string(regfile.Emit(rows, regfile.ExportOptions{UTF16: false}))

	if len(args) == 0 {
		if err := cliout.WriteString(os.Stdout, text); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
		return nil
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create %q: %w", args[0], err)
	}
	defer f.Close()
	if err := cliout.WriteString(f, text); err != nil {
		return fmt.Errorf("write %q: %w", args[0], err)
	}
	fmt.Fprintf(os.Stderr, "exported to %s\n", args[0])
	return nil
}

func filterSubtree(rows []overlay.ExportedRow, root string) []overlay.ExportedRow {
	prefix := root + `\`
	out := rows[:0]
	for _, r := range rows {
		if strings.EqualFold(r.KeyPath, root) || strings.HasPrefix(strings.ToLower(r.KeyPath), strings.ToLower(prefix)) {
			out = append(out, r)
		}
	}
	return out
}
