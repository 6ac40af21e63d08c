package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/hklmshim/internal/keypath"
)

func init() {
	rootCmd.AddCommand(newKeysCmd())
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys [path]",
		Short: "List immediate subkeys of a path",
		Long: `The keys command lists the immediate subkeys of path as the store
currently sees them, live and tombstoned alike marked. Omit path to
list the root's immediate children. This is a read-only convenience
wrapper, not a distinct operation over the store.

Example:
  hklmctl keys
  hklmctl keys "HKLM\Software"`,
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(args)
		},
	}
}

func runKeys(args []string) error {
	path := keypath.Root
	if len(args) == 1 {
		path = keypath.Canonicalize(args[0])
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	subkeys, err := st.ListImmediateSubkeys(context.Background(), path)
	if err != nil {
		return err
	}
	for _, sk := range subkeys {
		if sk.IsDeleted {
			fmt.Printf("%s  (deleted)\n", sk.Name)
		} else {
			fmt.Println(sk.Name)
		}
	}
	return nil
}
