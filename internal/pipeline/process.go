package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"flatsheet/internal"
	"flatsheet/internal/catalog"
	"flatsheet/internal/config"
	"flatsheet/internal/storage"
)

type ProcessingService struct {
	db         *storage.DB
	cfg        config.Config
	normalizer *Normalizer
	out        io.Writer
}

// NewProcessingService wires the pipeline. db may be nil, in which case runs
// are not recorded and mail processing is unavailable. Console lines go to out.
func NewProcessingService(db *storage.DB, cfg config.Config, out io.Writer) *ProcessingService {
	if out == nil {
		out = io.Discard
	}
	return &ProcessingService{
		db:         db,
		cfg:        cfg,
		normalizer: NewNormalizer(catalog.DefaultSchema()),
		out:        out,
	}
}

type RunResult struct {
	RunID      string
	Identifier string
	Report     Report
	Outputs    []string
}

func (r RunResult) Failed() bool {
	return r.Report.Failed()
}

// Run processes ./{identifier}.xlsx (relative to the input dir): load,
// normalize, validate, then either print the errors or export three CSV files
// and print one line per file.
func (s *ProcessingService) Run(ctx context.Context, identifier string) (RunResult, error) {
	if strings.TrimSpace(identifier) == "" {
		return RunResult{}, internal.ErrMissingIdentifier
	}

	path := filepath.Join(s.cfg.InputDir, identifier+".xlsx")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RunResult{}, fmt.Errorf("%w: %s", internal.ErrSourceNotFound, path)
		}
		return RunResult{}, err
	}

	source := "file:" + path
	set, err := LoadWorkbook(path, s.cfg.SheetResolution)
	if err != nil {
		res := RunResult{RunID: uuid.NewString(), Identifier: identifier}
		s.record(res, source, err)
		return res, err
	}

	res, err := s.process(ctx, identifier, source, set, s.cfg.OutputDir)
	if err != nil {
		return res, err
	}

	if res.Failed() {
		PrintErrors(s.out, res.Report.Errors)
	} else {
		PrintCreated(s.out, res.Outputs)
	}
	return res, nil
}

func (s *ProcessingService) process(ctx context.Context, identifier, source string, set internal.SheetSet, outDir string) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString(), Identifier: identifier}
	err := s.runStages(ctx, &res, set, outDir)
	s.record(res, source, err)
	return res, err
}

func (s *ProcessingService) runStages(ctx context.Context, res *RunResult, set internal.SheetSet, outDir string) error {
	for _, id := range internal.SheetIdentities {
		if err := ctx.Err(); err != nil {
			return err
		}
		sheet := set[id]
		if sheet == nil {
			return &internal.SchemaError{Sheet: id, Reason: "sheet not loaded"}
		}
		if err := s.normalizer.NormalizeSheet(sheet); err != nil {
			return fmt.Errorf("normalize %s: %w", id, err)
		}
	}

	report, err := Validate(set)
	if err != nil {
		return err
	}
	res.Report = report
	if report.Failed() {
		slog.Info("validation failed", "run", res.RunID, "identifier", res.Identifier, "errors", len(report.Errors))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	ApplySentinels(set, s.cfg.ExportBHKSentinel)
	outputs, err := ExportSheets(set, res.Identifier, outDir)
	res.Outputs = outputs
	if err != nil {
		return err
	}
	slog.Info("workbook exported", "run", res.RunID, "identifier", res.Identifier, "dir", outDir)
	return nil
}

func (s *ProcessingService) record(res RunResult, source string, runErr error) {
	if s.db == nil {
		return
	}

	run := internal.RunRecord{
		ID:         res.RunID,
		Identifier: res.Identifier,
		Source:     source,
		Outputs:    res.Outputs,
	}
	switch {
	case runErr != nil:
		run.Status = internal.RunError
		run.Detail = runErr.Error()
	case res.Failed():
		run.Status = internal.RunFailed
	default:
		run.Status = internal.RunExported
	}

	if err := s.db.InsertRun(run, res.Report.Errors); err != nil {
		slog.Error("record run", "run", res.RunID, "err", err)
	}
}

// Email statuses after fetching.
const (
	EmailFetched   = "fetched"
	EmailProcessed = "processed"
	EmailFailed    = "failed"
	EmailSkipped   = "skipped"
	EmailError     = "error"
)

type MailResult struct {
	EmailID   int
	Workbooks int
	Exported  int
	Failed    int
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (MailResult, error) {
	if s.db == nil {
		return MailResult{}, errors.New("mail processing needs a database")
	}
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return MailResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending runs the oldest fetched emails of provider ("" for all). An
// email that cannot be processed is marked "error" and the batch moves on;
// only cancellation or a database failure stops it.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	if s.db == nil {
		return 0, 0, errors.New("mail processing needs a database")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	pending, err := s.db.ListEmailsByStatus(EmailFetched, provider, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedWorkbooks := 0
	for _, email := range pending {
		if err := ctx.Err(); err != nil {
			return processedEmails, processedWorkbooks, err
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return processedEmails, processedWorkbooks, ctxErr
			}
			slog.Error("email processing failed", "email", email.ID, "provider", email.Provider, "message_id", email.MessageID, "err", err)
			if err := s.db.UpdateEmailStatus(email.ID, EmailError); err != nil {
				return processedEmails, processedWorkbooks, fmt.Errorf("mark email %d: %w", email.ID, err)
			}
		}
		processedEmails++
		processedWorkbooks += res.Workbooks
	}
	return processedEmails, processedWorkbooks, nil
}

// ProcessEmail runs every workbook attached to a stored email. Outputs land in
// MAIL_OUTPUT_DIR/<email id>/; a rejected workbook gets an error report
// workbook there instead of CSV files.
func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow) (MailResult, error) {
	if s.db == nil {
		return MailResult{}, errors.New("mail processing needs a database")
	}
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return MailResult{}, err
	}

	attachments, subject, err := ExtractWorkbookAttachments(raw)
	if err != nil {
		return MailResult{}, fmt.Errorf("parse email %d: %w", email.ID, err)
	}

	result := MailResult{EmailID: email.ID, Workbooks: len(attachments)}
	if len(attachments) == 0 {
		slog.Info("email has no workbook", "email", email.ID, "subject", subject)
		return result, s.db.UpdateEmailStatus(email.ID, EmailSkipped)
	}

	outDir := filepath.Join(s.cfg.MailOutputDir, strconv.Itoa(email.ID))
	source := fmt.Sprintf("mail:%s:%s", email.Provider, email.MessageID)
	for _, att := range attachments {
		identifier := IdentifierFromFileName(att.FileName)
		if identifier == "" {
			identifier = fmt.Sprintf("email-%d", email.ID)
		}

		set, err := ReadWorkbook(bytes.NewReader(att.Content), s.cfg.SheetResolution)
		if err != nil {
			s.record(RunResult{RunID: uuid.NewString(), Identifier: identifier}, source, err)
			slog.Warn("workbook rejected", "email", email.ID, "attachment", att.FileName, "err", err)
			result.Failed++
			continue
		}

		res, err := s.process(ctx, identifier, source, set, outDir)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			slog.Warn("workbook rejected", "email", email.ID, "attachment", att.FileName, "err", err)
			result.Failed++
			continue
		}
		if res.Failed() {
			reportPath := filepath.Join(outDir, identifier+" - errors.xlsx")
			if err := ExportErrorsToXLSX(res.Report.Errors, reportPath); err != nil {
				return result, fmt.Errorf("write error report: %w", err)
			}
			result.Failed++
			continue
		}
		result.Exported++
	}

	status := EmailProcessed
	if result.Failed > 0 {
		status = EmailFailed
	}
	return result, s.db.UpdateEmailStatus(email.ID, status)
}
