package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"flatsheet/internal/connectors"
	"flatsheet/internal/listener"
	"flatsheet/internal/pipeline"
)

func newMailFetchCmd(a *app) *cobra.Command {
	var (
		provider string
		label    string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "mail:fetch",
		Short: "Fetch new mail and store it for processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			conn, err := connectors.ForProvider(a.cfg, provider)
			if err != nil {
				return err
			}
			res, err := connectors.NewFetchService(db, a.cfg.RawMailDir, conn).FetchAndStore(cmd.Context(), label, limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n", provider, res.Fetched, res.Stored)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", a.cfg.MailListenerProvider, "gmail|imap")
	cmd.Flags().StringVar(&label, "label", a.cfg.MailListenerLabel, "Mailbox or label")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum messages to fetch")
	return cmd
}

func newMailProcessCmd(a *app) *cobra.Command {
	var (
		provider  string
		messageID string
		batch     int
	)

	cmd := &cobra.Command{
		Use:   "mail:process",
		Short: "Run the workbook pipeline on stored mail attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			processor := pipeline.NewProcessingService(db, a.cfg, nil)
			out := cmd.OutOrStdout()

			if strings.TrimSpace(messageID) != "" {
				res, err := processor.ProcessByProviderMessageID(cmd.Context(), provider, messageID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "processed email id=%d workbooks=%d exported=%d failed=%d\n", res.EmailID, res.Workbooks, res.Exported, res.Failed)
				return nil
			}

			emails, workbooks, err := processor.ProcessPending(cmd.Context(), batch, provider)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "processed pending emails=%d workbooks=%d\n", emails, workbooks)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", a.cfg.MailListenerProvider, "gmail|imap")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Process one stored message")
	cmd.Flags().IntVar(&batch, "batch", 20, "Batch size")
	return cmd
}

func newMailListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mail:listen",
		Short: "Poll the mailbox and process workbooks until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB(true)
			if err != nil {
				return err
			}
			return listener.NewService(db, a.cfg).Run(cmd.Context())
		},
	}
}
