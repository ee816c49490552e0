package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/media/classify"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ad counts by media category and ad set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			stats := svc.Statistics()
			if ctx.flags.json {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Campaign: %s\n", svc.Campaign().Name)
			fmt.Fprintf(out, "Ad sets:  %d\n", stats.TotalAdSets)
			fmt.Fprintf(out, "Ads:      %d\n\n", stats.TotalAds)

			rows := make([][]string, 0, len(stats.ByCategory))
			for _, cat := range slices.Sorted(maps.Keys(stats.ByCategory)) {
				rows = append(rows, []string{cat, strconv.Itoa(stats.ByCategory[cat])})
			}
			fmt.Fprintln(out, renderTable([]string{"Category", "Ads"}, rows, []columnAlignment{alignLeft, alignRight}))

			doc, err := svc.Document()
			if err != nil {
				return err
			}
			rows = rows[:0]
			for _, name := range doc.AdSets.Keys() {
				rows = append(rows, []string{name, strconv.Itoa(stats.BySet[name])})
			}
			fmt.Fprintln(out, renderTable([]string{"Ad set", "Ads"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var mediaType string

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find ads by name, description or tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var category classify.Category
			if mediaType != "all" {
				c, ok := classify.ParseCategory(mediaType)
				if !ok {
					return fmt.Errorf("unknown media type %q (use all, images, videos or audio)", mediaType)
				}
				category = c
			}

			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			results := svc.Search(args[0], category)
			if ctx.flags.json {
				return writeJSON(cmd, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching ads")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.AdSetName, r.AdID, r.Ad.Name, strings.Join(r.Ad.Tags, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Ad set", "ID", "Name", "Tags"}, rows, nil))
			return nil
		},
	}
	search.Flags().StringVar(&mediaType, "type", "all", "Only ads of this media type (all, images, videos, audio)")
	return search
}

func newTreeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the campaign hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.campaign(cmd)
			if err != nil {
				return err
			}
			tree := svc.Tree()
			if ctx.flags.json {
				return writeJSON(cmd, tree)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTree(tree, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
}

// renderTree draws the tree with box-drawing guides. Nodes are printed in
// edge order, which follows document order.
func renderTree(tree domain.Tree, colorize bool) string {
	nodes := make(map[string]domain.TreeNode, len(tree.Nodes))
	children := make(map[string][]string)
	for _, n := range tree.Nodes {
		nodes[n.ID] = n
	}
	for _, e := range tree.Edges {
		children[e.From] = append(children[e.From], e.To)
	}

	var b strings.Builder
	var walk func(id, prefix string)
	walk = func(id, prefix string) {
		kids := children[id]
		for i, kid := range kids {
			branch, next := "├── ", "│   "
			if i == len(kids)-1 {
				branch, next = "└── ", "    "
			}
			b.WriteString(prefix + branch + nodeLabel(nodes[kid], colorize) + "\n")
			walk(kid, prefix+next)
		}
	}

	for _, n := range tree.Nodes {
		if n.Kind == domain.NodeCampaign {
			b.WriteString(nodeLabel(n, colorize) + "\n")
			walk(n.ID, "")
		}
	}
	return b.String()
}

func nodeLabel(n domain.TreeNode, colorize bool) string {
	switch n.Kind {
	case domain.NodeCampaign:
		return paint(n.Label, ansiBold, colorize)
	case domain.NodeAdSet:
		return paint(n.Label, ansiGreen, colorize)
	default:
		if n.Category == "" {
			return n.Label
		}
		return n.Label + " " + paint("("+n.Category+")", ansiDim, colorize)
	}
}
