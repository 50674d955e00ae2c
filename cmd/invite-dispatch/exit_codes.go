package main

import (
	"errors"

	flag "github.com/spf13/pflag"
)

// Exit codes: 0=all sent, 1=some rows failed or a general error, 2=usage.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
)

var (
	ErrUsage        = errors.New("usage")
	ErrSendFailures = errors.New("some invites failed")
)

func exitCodeFor(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}
	return ExitGeneral
}
