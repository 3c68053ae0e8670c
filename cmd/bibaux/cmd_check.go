package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/drgo/bibaux"
	"github.com/spf13/cobra"
)

var errDuplicateKeys = errors.New("duplicate citation keys found")

var checkCmd = &cobra.Command{
	Use:   "check <file.bib>...",
	Short: "Report citation keys defined more than once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return check(cmd, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func check(cmd *cobra.Command, files []string, w io.Writer) error {
	opts := bibaux.Options{Logger: logger}
	dbs := make([]*bibaux.Database, 0, len(files))
	for _, name := range files {
		db, err := bibaux.LoadDatabase(cmd.Context(), opts, name)
		if err != nil {
			return err
		}
		dbs = append(dbs, db)
	}
	_, dr, err := bibaux.Deduplicate(dbs, nil, bibaux.SetNoAction)
	if err != nil {
		fmt.Fprintln(w, "no entries")
		return nil
	}
	if dr.DuplicateSetCount == 0 {
		fmt.Fprintln(w, "no duplicate keys")
		return nil
	}
	if err := dr.Print(w); err != nil {
		return err
	}
	return errDuplicateKeys
}
