package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backups",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Archive the document and its media into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			result, err := svc.CreateBackup(commandCtx(cmd))
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s, %d ads, %d media files) in %s\n",
				result.ID, humanize.Bytes(uint64(result.Size)), result.Counts.Ads, result.Counts.Media, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			backups, err := svc.ListBackups(commandCtx(cmd))
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, backups)
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups")
				return nil
			}
			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				rows = append(rows, []string{b.ID, humanize.Bytes(uint64(b.Size)), humanize.Time(b.CreatedAt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Size", "Created"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the document with the one in a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			result, err := svc.RestoreBackup(commandCtx(cmd), args[0])
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s: %d ad sets, %d ads\n", result.ID, result.AdSets, result.Ads)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteBackup(commandCtx(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, list, restore, remove)
	return cmd
}
