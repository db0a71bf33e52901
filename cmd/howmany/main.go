// Command howmany tells how many of one thing fit inside another, judged by a
// measurable property such as area or length.
//
//	howmany compare Germany "football pitch"
//	howmany compare -c Germany -c Luxembourg -e "football pitch" --locale en
//	howmany resolve Q8524 "square metre"
//	howmany units
//	howmany load dataset.yaml
//
// Quantities are read from the knowledge store selected by the configuration
// (Wikidata by default). See package config for the available settings.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		if hint := errors.FlattenHints(err); hint != "" {
			pterm.Info.Println(hint)
		}
		stop()
		os.Exit(1)
	}
}
