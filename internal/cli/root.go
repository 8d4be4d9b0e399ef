package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"flatsheet/internal"
	"flatsheet/internal/config"
	"flatsheet/internal/pipeline"
	"flatsheet/internal/storage"
)

const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitValidation = 2
)

// exitError carries the process exit code. Silent errors were already
// reported on stdout as part of the console protocol.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps an Execute error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsage
}

type app struct {
	cfg config.Config
	db  *storage.DB
}

// openDB opens the run database once. Commands that only record history
// when asked pass required=false and get nil unless RECORD_RUNS is set.
func (a *app) openDB(required bool) (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if !required && !a.cfg.RecordRuns {
		return nil, nil
	}
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.DBPath, err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

// Execute runs the command line and returns the exit code.
func Execute(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) int {
	a := &app{cfg: cfg}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || (!ee.silent && ee.err != nil) {
			_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}
	return ExitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "flatsheet <identifier>",
		Short:         "Validate a residential complex workbook and export it as CSV",
		Long:          "Reads ./<identifier>.xlsx (Area, Apartment, FlatOwner), normalizes its headers, cross-checks flats against owners and writes three CSV files when the workbook is consistent.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}
			return a.runWorkbook(cmd, identifier)
		},
	}

	root.AddCommand(
		newHistoryCmd(a),
		newReportCmd(a),
		newMailFetchCmd(a),
		newMailProcessCmd(a),
		newMailListenCmd(a),
	)
	return root
}

func (a *app) runWorkbook(cmd *cobra.Command, identifier string) error {
	out := cmd.OutOrStdout()

	db, err := a.openDB(false)
	if err != nil {
		return &exitError{code: ExitUsage, err: err}
	}

	svc := pipeline.NewProcessingService(db, a.cfg, out)
	res, err := svc.Run(cmd.Context(), identifier)
	switch {
	case errors.Is(err, internal.ErrMissingIdentifier):
		_, _ = fmt.Fprintln(out, "Filename is mandatory")
		return &exitError{code: ExitUsage, err: err, silent: true}
	case errors.Is(err, internal.ErrSourceNotFound):
		_, _ = fmt.Fprintf(out, "File %s.xlsx does not exist\n", identifier)
		return &exitError{code: ExitUsage, err: err, silent: true}
	case err != nil:
		return &exitError{code: ExitUsage, err: err}
	case res.Failed():
		return &exitError{code: ExitValidation, silent: true}
	}
	return nil
}
