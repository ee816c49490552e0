package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediatree/mediatree-server/internal/tabular"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the campaign as an archive or CSV table",
	}

	var output string

	archive := &cobra.Command{
		Use:   "archive",
		Short: "Write a zip with the document and every referenced media file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = "campaign_" + time.Now().Format("20060102_150405") + ".zip"
			}
			w, closeFn, err := openOutput(cmd, path)
			if err != nil {
				return err
			}
			counts, err := svc.ExportArchive(commandCtx(cmd), w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s: %d ad sets, %d ads, %d media files (%d missing)\n",
					path, counts.AdSets, counts.Ads, counts.Media, counts.Skipped)
			}
			return nil
		},
	}
	archive.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default: campaign_<timestamp>.zip)")

	table := &cobra.Command{
		Use:   "table",
		Short: "Write one CSV row per ad",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			err = svc.ExportTable(w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			return err
		},
	}
	table.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Write one CSV row per ad set with counts by media category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			err = svc.ExportSummary(w)
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			return err
		},
	}
	summary.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	cmd.AddCommand(archive, table, summary)
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV table or a JSON document",
	}

	var mode string
	table := &cobra.Command{
		Use:   "table <file.csv>",
		Short: "Import a CSV table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := tabular.ParseMode(mode)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			result, err := svc.ImportTable(commandCtx(cmd), f, m)
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d rows: %d ad sets and %d ads created\n", result.Rows, result.AdSetsCreated, result.AdsCreated)
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "  row %d: %s\n", w.Row, w.Message)
			}
			return nil
		},
	}
	table.Flags().StringVar(&mode, "mode", "merge", "merge keeps existing ad sets; replace clears them first")

	document := &cobra.Command{
		Use:   "document <file.json>",
		Short: "Replace the document with a JSON metadata export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			doc, err := svc.ImportDocument(commandCtx(cmd), raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q: %d ad sets, %d ads\n", doc.Campaign.Name, doc.AdSets.Len(), doc.AdCount())
			return nil
		},
	}

	cmd.AddCommand(table, document)
	return cmd
}
