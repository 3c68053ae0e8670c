package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/drgo/bibaux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errEmptyLibrary = errors.New("empty library: none of the cited keys was found")

// generateFlags are shared by generate and watch.
type generateFlags struct {
	bib         []string
	output      string
	sort        string
	showMissing bool
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate <file.aux>",
	Short: "Write the sub-library cited by an aux file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := genFlags.withConfig(cmd)
		return g.run(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&genFlags.bib, "bib", "b", nil, "reference bib file(s); defaults to the aux file's \\bibdata")
	cmd.Flags().StringVarP(&genFlags.output, "output", "o", "", "output bib file (default stdout)")
	cmd.Flags().StringVar(&genFlags.sort, "sort", "", "sort entries: key or type,-year")
	cmd.Flags().BoolVar(&genFlags.showMissing, "missing", false, "list keys that were not found")
}

// withConfig fills in every flag the user did not set from the config file.
func (g generateFlags) withConfig(cmd *cobra.Command) generateFlags {
	flags := cmd.Flags()
	if !flags.Changed("bib") {
		g.bib = cfg.Bib
	}
	if !flags.Changed("output") {
		g.output = cfg.Output
	}
	if !flags.Changed("sort") {
		g.sort = cfg.Sort
	}
	if !flags.Changed("missing") {
		g.showMissing = cfg.Report.ShowMissing
	}
	return g
}

func (g generateFlags) run(ctx context.Context, auxPath string, stdout, stderr io.Writer) error {
	_, err := g.generate(ctx, auxPath, stdout, stderr)
	return err
}

// generate writes the sub-library for auxPath. The aux result is returned whenever
// the aux file could be read, even if writing failed afterwards.
func (g generateFlags) generate(ctx context.Context, auxPath string, stdout, stderr io.Writer) (*bibaux.AuxResult, error) {
	opts := bibaux.Options{Logger: logger}
	bibs := g.bib
	if len(bibs) == 0 {
		var err error
		if bibs, err = bibDataFiles(ctx, opts, auxPath); err != nil {
			return nil, err
		}
	}
	ref, err := bibaux.LoadDatabase(ctx, opts, bibs...)
	if err != nil {
		return nil, err
	}
	if dr := bibaux.DuplicateKeys(ref); dr.DuplicateSetCount > 0 {
		logger.Warn("reference database has duplicate keys, using the first of each",
			zap.Strings("keys", dr.DuplicateTerms()))
	}

	res, ok := bibaux.NewAuxParser(ref, opts).Parse(ctx, auxPath)
	if !ok {
		return nil, fmt.Errorf("cannot read aux file %s", auxPath)
	}
	if err := res.Print(stderr, g.showMissing); err != nil {
		return res, err
	}
	if res.IsEmpty() {
		return res, errEmptyLibrary
	}
	gen := res.GeneratedDatabase()
	if err := bibaux.Sort(gen, g.sort); err != nil {
		return res, err
	}
	if g.output == "" {
		return res, bibaux.Print(stdout, gen)
	}
	if err := bibaux.SaveDatabase(ctx, opts, gen, g.output); err != nil {
		return res, err
	}
	logger.Info("sub-library written",
		zap.String("file", g.output),
		zap.Int("entries", gen.EntryCount()),
		zap.Int("strings", gen.StringCount()))
	return res, nil
}

// bibDataFiles returns the \bibdata files of the aux file, resolved next to it.
func bibDataFiles(ctx context.Context, opts bibaux.Options, auxPath string) ([]string, error) {
	res, ok := bibaux.NewAuxParser(nil, opts).Parse(ctx, auxPath)
	if !ok {
		return nil, fmt.Errorf("cannot read aux file %s", auxPath)
	}
	names := res.BibDataFiles()
	if len(names) == 0 {
		return nil, errors.New("no --bib given and the aux file has no \\bibdata")
	}
	dir := filepath.Dir(auxPath)
	files := make([]string, len(names))
	for i, name := range names {
		if filepath.Ext(name) != ".bib" {
			name += ".bib"
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		files[i] = name
	}
	return files, nil
}
