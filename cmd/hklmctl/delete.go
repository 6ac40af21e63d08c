package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteValueName string

func init() {
	cmd := newDeleteCmd()
	cmd.Flags().StringVar(&deleteValueName, "value", "", "Delete only this value instead of the whole key tree")
	rootCmd.AddCommand(cmd)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Tombstone a key tree, or a single value under it",
		Long: `The delete command tombstones <path> and everything under it. With
--value, it tombstones only that one value and leaves the key and its
other values untouched.

Example:
  hklmctl delete "HKLM\Software\OldApp"
  hklmctl delete "HKLM\Software\MyApp" --value "Debug"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args)
		},
	}
}

func runDelete(args []string) error {
	path := args[0]
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if deleteValueName != "" {
		if err := st.DeleteValue(ctx, path, deleteValueName); err != nil {
			return err
		}
		fmt.Printf("value deleted: %s \\ %q\n", path, deleteValueName)
		return nil
	}

	if err := st.DeleteKeyTree(ctx, path); err != nil {
		return err
	}
	fmt.Printf("key tree deleted: %s\n", path)
	return nil
}
