// Command bibaux generates a BibTeX sub-library holding only the entries a LaTeX
// document cites.
//
//	bibaux generate paper.aux --bib refs.bib -o paper-refs.bib
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "devel"

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "bibaux: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
