package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hklmshim/internal/regfile"
)

func init() {
	rootCmd.AddCommand(newImportCmd())
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <input.reg>",
		Short: "Apply a .reg file's directives to the store",
		Long: `The import command parses a Windows Registry Editor text file and
applies its key/value/delete directives to the store. Both UTF-16LE
(with or without byte-order mark) and UTF-8 input are accepted.

Example:
  hklmctl import changes.reg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args)
		},
	}
}

func runImport(args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := regfile.Import(context.Background(), st, data); err != nil {
		return fmt.Errorf("import %q: %w", path, err)
	}
	fmt.Printf("imported: %s\n", path)
	return nil
}
