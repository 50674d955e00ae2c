package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/pvineet44/mm-invite/internal/dispatch"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// DefaultPrefix is the honorific added by the prefix command.
const DefaultPrefix = "Devanupriya "

func runPrefix(args []string, env *Environment) error {
	fs := flag.NewFlagSet("invite-dispatch prefix", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	prefix := fs.String("prefix", DefaultPrefix, "text prepended to every PDF file name")
	dryRun := fs.BoolP("dry-run", "n", false, "show planned renames without touching files")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	u.InitConsoleLogger(env.Stderr, "info")

	dir := "pdfs"
	switch fs.NArg() {
	case 0:
	case 1:
		dir = fs.Arg(0)
	default:
		return fmt.Errorf("%w: prefix takes at most one directory", ErrUsage)
	}

	res, err := dispatch.PrefixPDFs(dir, *prefix, *dryRun)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "Renamed: %d, already prefixed: %d, conflicts: %d\n", res.Renamed, res.Skipped, res.Conflict)
	return nil
}
