package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/fleetsignup/internal/adapter/fsm"
	"github.com/neomorfeo/fleetsignup/internal/adapter/sqlite"
	"github.com/neomorfeo/fleetsignup/internal/app"
	"github.com/neomorfeo/fleetsignup/internal/config"
	"github.com/neomorfeo/fleetsignup/internal/domain"
)

func newValidateCmd() *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:   "validate field=value...",
		Short: "Check field values against the signup rules",
		Long: "Runs the signup validators offline. Every given field is checked with the\n" +
			"other values as context; with --step the whole step is checked instead.",
		Example: "  fleetsignup validate email=jane@x.com phone=555-0100\n" +
			"  fleetsignup validate --step 3 role=dispatcher password=secret1 confirm_password=secret1",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), form, step, args)
		},
	}

	cmd.Flags().IntVar(&step, "step", 0, "validate every field of this step (1-3)")
	return cmd
}

func parseAssignments(args []string) (domain.FormState, error) {
	form := domain.NewFormState()
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return form, fmt.Errorf("argument %q: want field=value", arg)
		}
		field := domain.Field(name)
		if !domain.IsField(field) {
			return form, &domain.UnknownFieldError{Field: field}
		}
		form.Values[field] = value
	}
	return form, nil
}

func runValidate(w io.Writer, form domain.FormState, step int, args []string) error {
	var errs domain.FieldErrors

	if step != 0 {
		s := domain.Step(step)
		if s < domain.FirstStep || s > domain.LastStep {
			return fmt.Errorf("--step must be between %d and %d", domain.FirstStep, domain.LastStep)
		}
		errs = domain.ValidateStep(s, form)
	} else {
		errs = make(domain.FieldErrors)
		for _, arg := range args {
			name, _, _ := strings.Cut(arg, "=")
			field := domain.Field(name)
			if msg := domain.ValidateField(field, form.Get(field), form); msg != "" {
				errs[field] = msg
			}
		}
	}

	failed := 0
	for _, field := range domain.AllFields() {
		if msg := errs[field]; msg != "" {
			fmt.Fprintf(w, "%s: %s\n", field, msg)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d field(s) invalid", failed)
	}

	fmt.Fprintln(w, "ok")
	return nil
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete signup sessions idle for longer than SESSION_TTL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			repo, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer repo.Close()

			svc := app.NewSignupService(repo, &logPublisher{}, fsm.New(), newRegistrar(cfg))
			n, err := svc.ExpireIdle(cmd.Context(), cfg.SessionTTL)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d idle session(s)\n", n)
			return nil
		},
	}
}

// logPublisher writes wizard events to the process log. The one-shot
// commands have no job queue running.
type logPublisher struct{}

func (p *logPublisher) Publish(_ context.Context, event domain.Event, s domain.Session) error {
	log.Printf("event: %s session=%s (%s)", event, s.ID, s.State)
	return nil
}
