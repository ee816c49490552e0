package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mediatree/mediatree-server/internal/domain"
)

func newCampaignCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Show or change the campaign settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			return printCampaign(cmd, ctx, svc.Campaign())
		},
	}

	var name, objective string
	set := &cobra.Command{
		Use:   "set",
		Short: "Overwrite the campaign name and objective",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			current := svc.Campaign()
			if !cmd.Flags().Changed("name") {
				name = current.Name
			}
			if !cmd.Flags().Changed("objective") {
				objective = current.Objective
			}
			c, err := svc.SaveCampaign(commandCtx(cmd), name, objective)
			if err != nil {
				return err
			}
			return printCampaign(cmd, ctx, c)
		},
	}
	set.Flags().StringVar(&name, "name", "", "Campaign name")
	set.Flags().StringVar(&objective, "objective", "", "Campaign objective")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default campaign name and objective",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			c, err := svc.ResetCampaign(commandCtx(cmd))
			if err != nil {
				return err
			}
			return printCampaign(cmd, ctx, c)
		},
	}

	cmd.AddCommand(set, reset)
	return cmd
}

func printCampaign(cmd *cobra.Command, ctx *commandContext, c domain.Campaign) error {
	if ctx.flags.json {
		return writeJSON(cmd, c)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:      %s\n", c.Name)
	fmt.Fprintf(out, "Objective: %s\n", c.Objective)
	fmt.Fprintf(out, "Created:   %s\n", c.CreatedAt.String())
	return nil
}

func newAdSetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adset",
		Short: "Manage ad sets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List ad sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			doc, err := svc.Document()
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, doc.AdSets)
			}
			rows := make([][]string, 0, doc.AdSets.Len())
			for name, set := range doc.AdSets.All() {
				rows = append(rows, []string{name, strconv.Itoa(set.Ads.Len()), set.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Ads", "Description"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty ad set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			set, err := svc.CreateAdSet(commandCtx(cmd), args[0], description)
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, set)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created ad set %q\n", set.Name)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "Ad set description")

	remove := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an empty ad set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteAdSet(commandCtx(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted ad set %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, remove)
	return cmd
}

func newAdCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ad",
		Short: "Manage ads",
	}

	var (
		description string
		tags        string
		url         string
		schedule    string
	)
	add := &cobra.Command{
		Use:   "add <ad-set> <name>",
		Short: "Add an ad without media",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			fields := domain.AdFields{
				Name:        args[1],
				Description: description,
				Tags:        domain.ParseTagList(tags),
				URL:         url,
			}
			if schedule != "" {
				fields.ScheduleDate = &schedule
			}
			ad, err := svc.CreateAd(commandCtx(cmd), args[0], fields)
			if err != nil {
				return err
			}
			return printAd(cmd, ctx, "Created", ad)
		},
	}
	add.Flags().StringVarP(&description, "description", "d", "", "Ad description")
	add.Flags().StringVarP(&tags, "tags", "t", "", "Comma-separated tags")
	add.Flags().StringVar(&url, "url", "", "Landing page URL")
	add.Flags().StringVar(&schedule, "schedule", "", "Scheduled date (YYYY-MM-DD)")

	var uploadTags string
	upload := &cobra.Command{
		Use:   "upload <ad-set> <file>",
		Short: "Copy a media file into the store and create an ad for it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			ad, err := svc.Upload(commandCtx(cmd), args[0], args[1], data, domain.ParseTagList(uploadTags))
			if err != nil {
				return err
			}
			if !ctx.flags.json {
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (%s)\n", ad.FilePath, humanize.Bytes(uint64(len(data))))
			}
			return printAd(cmd, ctx, "Created", ad)
		},
	}
	upload.Flags().StringVarP(&uploadTags, "tags", "t", "", "Comma-separated tags")

	var cascade bool
	remove := &cobra.Command{
		Use:   "delete <ad-set> <ad-id>",
		Short: "Delete an ad",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			if err := svc.DeleteAd(commandCtx(cmd), args[0], args[1], cascade); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted ad %s (media removed: %s)\n", args[1], yesNo(cascade))
			return nil
		},
	}
	remove.Flags().BoolVar(&cascade, "cascade", false, "Also delete the media file and thumbnail")

	move := &cobra.Command{
		Use:   "move <from> <to> <ad-id>",
		Short: "Move an ad to another ad set",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			if err := svc.MoveAd(commandCtx(cmd), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved ad %s to %q\n", args[2], args[1])
			return nil
		},
	}

	cmd.AddCommand(add, upload, remove, move)
	return cmd
}

func printAd(cmd *cobra.Command, ctx *commandContext, verb string, ad domain.Ad) error {
	if ctx.flags.json {
		return writeJSON(cmd, ad)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s ad %s %q [%s]\n", verb, ad.ID, ad.Name, strings.Join(ad.Tags, ", "))
	return nil
}

func newTagsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
	}

	add := &cobra.Command{
		Use:   "add <ad-set> <tag>...",
		Short: "Add tags to every ad in an ad set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			n, err := svc.BulkAddTags(commandCtx(cmd), args[0], args[1:])
			if err != nil {
				return err
			}
			if ctx.flags.json {
				return writeJSON(cmd, map[string]int{"updated": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d ads\n", n)
			return nil
		},
	}

	cmd.AddCommand(add)
	return cmd
}
