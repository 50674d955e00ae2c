// Command invite-dispatch sends each person in a CSV their invite PDF over
// WhatsApp. "invite-dispatch prefix DIR" renames a folder of PDFs instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], DefaultEnv())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, env *Environment) int {
	var err error
	if len(args) > 0 && args[0] == "prefix" {
		err = runPrefix(args[1:], env)
	} else {
		err = runDispatch(ctx, args, env)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(env.Stderr, err)
	}
	return exitCodeFor(err)
}
