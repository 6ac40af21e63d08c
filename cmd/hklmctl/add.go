package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addType string

func init() {
	cmd := newAddCmd()
	cmd.Flags().StringVar(&addType, "type", "sz", "Value type (sz, expand_sz, multi_sz, dword, qword, binary)")
	rootCmd.AddCommand(cmd)
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path> [name] [value]",
		Short: "Create a key, or set a value under one",
		Long: `The add command un-tombstones (creating if absent) the key at <path>.
Given a value name and a value too, it also sets that value.

Example:
  hklmctl add "HKLM\Software\MyApp"
  hklmctl add "HKLM\Software\MyApp" "Version" "1.0.0"
  hklmctl add "HKLM\Software\MyApp" "Enabled" "1" --type dword`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(args)
		},
	}
}

func runAdd(args []string) error {
	path := args[0]
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		if err := st.PutKey(ctx, path); err != nil {
			return err
		}
		fmt.Printf("key added: %s\n", path)
		return nil
	}

	if len(args) != 3 {
		return usageErrf("add <path> <name> <value>: a value name requires a value")
	}
	name, value := args[1], args[2]
	typ, data, err := parseValueString(addType, value)
	if err != nil {
		return usageErrf("%v", err)
	}
	if err := st.PutValue(ctx, path, name, typ, data); err != nil {
		return err
	}
	fmt.Printf("value added: %s \\ %q\n", path, name)
	return nil
}
