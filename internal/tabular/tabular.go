// Package tabular flattens the campaign tree into CSV rows and rebuilds tree
// structure from such rows.
//
// Tags inside a cell are joined with TagDelimiter ("|"). This is a different
// convention from the comma-separated tag text fields handled by
// domain.ParseTagList; the two are never mixed.
package tabular

import (
	"strings"

	"github.com/mediatree/mediatree-server/internal/errors"
)

// TagDelimiter separates tags inside a single table cell.
const TagDelimiter = "|"

// Column names of the flattened table.
const (
	ColCampaignName      = "campaign_name"
	ColCampaignObjective = "campaign_objective"
	ColCampaignCreatedAt = "campaign_created_at"
	ColAdSetName         = "ad_set_name"
	ColAdSetDescription  = "ad_set_description"
	ColAdSetCreatedAt    = "ad_set_created_at"
	ColAdID              = "ad_id"
	ColAdName            = "ad_name"
	ColAdDescription     = "ad_description"
	ColAdTags            = "ad_tags"
	ColAdURL             = "ad_url"
	ColAdScheduleDate    = "ad_schedule_date"
	ColAdCreatedAt       = "ad_created_at"
	ColAdFilePath        = "ad_file_path"
	ColAdMimeType        = "ad_mime_type"
)

// Columns is the header written by Export, in order.
var Columns = []string{
	ColCampaignName,
	ColCampaignObjective,
	ColCampaignCreatedAt,
	ColAdSetName,
	ColAdSetDescription,
	ColAdSetCreatedAt,
	ColAdID,
	ColAdName,
	ColAdDescription,
	ColAdTags,
	ColAdURL,
	ColAdScheduleDate,
	ColAdCreatedAt,
	ColAdFilePath,
	ColAdMimeType,
}

// RequiredColumns must all be present in an imported header.
var RequiredColumns = []string{ColCampaignName, ColAdSetName, ColAdName}

// SummaryColumns is the header of the per-ad-set summary export.
var SummaryColumns = []string{
	"ad_set_name",
	"description",
	"created_at",
	"ad_count",
	"images",
	"videos",
	"audio",
	"other",
}

// Mode selects how an import treats the existing tree.
type Mode string

// Import modes.
const (
	// ModeMerge keeps existing ad sets and ads and adds to them.
	ModeMerge Mode = "merge"
	// ModeReplace removes every ad set before processing rows.
	ModeReplace Mode = "replace"
)

// ParseMode parses an import mode. An empty string means ModeMerge.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", errors.Validationf("unknown import mode %q (want merge or replace)", s)
	}
}

func joinTags(tags []string) string {
	return strings.Join(tags, TagDelimiter)
}

func splitTags(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return strings.Split(cell, TagDelimiter)
}
