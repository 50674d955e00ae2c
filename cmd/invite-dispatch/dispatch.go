package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/pvineet44/mm-invite/internal/dispatch"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

func runDispatch(ctx context.Context, args []string, env *Environment) error {
	var f dispatchFlags
	fs := newDispatchFlagSet(&f, env.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	u.InitConsoleLogger(env.Stderr, f.logLevel)

	vars, err := loadLookup(env.Getenv, f.envFile)
	if err != nil {
		u.Warn("Unable to read env file", "path", f.envFile, "error", err)
	}
	if err := applyEnv(fs, vars); err != nil {
		return err
	}
	if err := f.validate(); err != nil {
		return err
	}

	apiKey := strings.TrimSpace(vars.get("WHATSAPP_API_KEY"))
	if apiKey == "" && !f.dryRun {
		return fmt.Errorf("%w: WHATSAPP_API_KEY must be set unless --dry-run is enabled", ErrUsage)
	}

	invitees, err := dispatch.ReadInviteesFile(f.csvPath)
	if err != nil {
		return err
	}
	if len(invitees) == 0 {
		u.Info("No rows found in CSV", "path", f.csvPath)
		return nil
	}

	client := dispatch.NewInteraktClient(apiKey)
	client.Endpoint = f.endpoint
	runner := &dispatch.Runner{
		Source: newSource(f),
		Sender: client,
		Options: dispatch.Options{
			Send:         f.send,
			DryRun:       f.dryRun,
			ResumeFrom:   strings.TrimSpace(f.resumeFrom),
			Message:      strings.TrimSpace(f.message),
			CallbackData: strings.TrimSpace(f.callbackData),
			CampaignID:   strings.TrimSpace(f.campaignID),
			Template: dispatch.TemplateOptions{
				Name:         strings.TrimSpace(f.templateName),
				Language:     f.templateLanguage,
				Header:       f.templateHeader,
				BodyValues:   parseBodyValues(f.bodyValues),
				ButtonValues: parseButtonValues(f.buttonValues),
				HeaderURL:    strings.TrimSpace(f.headerURL),
				Caption:      strings.TrimSpace(f.headerCaption),
			},
		},
	}

	summary, err := runner.Run(ctx, invitees)
	printSummary(env, summary)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSendFailures, summary.Failed, summary.Total)
	}
	return nil
}

func newSource(f dispatchFlags) dispatch.Source {
	switch f.source {
	case dispatch.ModeAPI:
		api := dispatch.NewPDFAPI(strings.TrimSpace(f.pdfAPIURL))
		api.APIKey = strings.TrimSpace(f.pdfAPIKey)
		return &dispatch.APISource{API: api}
	case dispatch.ModeStatic:
		return dispatch.NewStaticSource(strings.TrimSpace(f.fileURL), strings.TrimSpace(f.fileName))
	default:
		return dispatch.NewLocalSource(f.pdfDir, f.mediaBaseURL)
	}
}

func printSummary(env *Environment, s dispatch.Summary) {
	fmt.Fprintf(env.Stdout, "\nSummary\n=======\n")
	fmt.Fprintf(env.Stdout, "Total rows: %d\n", s.Total)
	fmt.Fprintf(env.Stdout, "Processed : %d\n", s.Processed)
	fmt.Fprintf(env.Stdout, "Sent      : %d\n", s.Sent)
	fmt.Fprintf(env.Stdout, "Skipped   : %d\n", s.Skipped)
	fmt.Fprintf(env.Stdout, "Failed    : %d\n", s.Failed)
}
