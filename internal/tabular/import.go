package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mediatree/mediatree-server/internal/domain"
	"github.com/mediatree/mediatree-server/internal/errors"
	"github.com/mediatree/mediatree-server/internal/id"
)

// scheduleLayouts are accepted for ad_schedule_date; values are stored as
// YYYY-MM-DD.
var scheduleLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// RowWarning reports a row that was imported with a coercion problem or
// skipped. Row numbers are 1-based and count the header as row 1.
type RowWarning struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Rows          int          `json:"rows"`
	AdSetsCreated int          `json:"ad_sets_created"`
	AdsCreated    int          `json:"ads_created"`
	Warnings      []RowWarning `json:"warnings"`
}

// Importer rebuilds tree structure from a flattened table.
type Importer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewImporter creates an Importer. A nil now uses time.Now.
func NewImporter(logger *slog.Logger, now func() time.Time) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Importer{logger: logger, now: now}
}

// Import applies the table in r to doc.
//
// The whole table is read and its header checked before doc is touched: a
// missing required column or malformed CSV fails with errors.ErrSchema and
// leaves doc unchanged. Each row then overwrites the campaign name and
// objective when non-empty, creates its ad set if needed, and always creates
// a new ad with a fresh id. Unparseable schedule dates are kept verbatim and
// reported as warnings.
func (im *Importer) Import(doc *domain.Document, r io.Reader, mode Mode) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSchema, "malformed table")
	}
	if len(records) == 0 {
		return nil, errors.Schemaf("table is empty; required columns: %s", strings.Join(RequiredColumns, ", "))
	}

	index := headerIndex(records[0])
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Schemaf("table is missing required columns: %s", strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing})
	}

	if mode == ModeReplace {
		doc.ClearAdSets()
	}

	result := &ImportResult{Warnings: []RowWarning{}}
	now := im.now()

	for i, record := range records[1:] {
		rowNum := i + 2
		row := rowReader{index: index, record: record}
		if row.blank() {
			continue
		}
		result.Rows++

		if v := row.get(ColCampaignName); v != "" {
			doc.Campaign.Name = v
		}
		if v := row.get(ColCampaignObjective); v != "" {
			doc.Campaign.Objective = v
		}

		setName := row.get(ColAdSetName)
		if setName == "" {
			result.warn(rowNum, ColAdSetName, "empty ad set name; row skipped")
			continue
		}
		if !doc.AdSets.Has(setName) {
			if _, err := doc.AddAdSet(setName, row.get(ColAdSetDescription), now); err != nil {
				result.warn(rowNum, ColAdSetName, err.Error())
				continue
			}
			result.AdSetsCreated++
		}

		fields := domain.AdFields{
			Name:        row.get(ColAdName),
			Description: row.get(ColAdDescription),
			Tags:        splitTags(row.get(ColAdTags)),
			URL:         row.get(ColAdURL),
			FilePath:    row.get(ColAdFilePath),
			MimeType:    row.get(ColAdMimeType),
		}
		if raw := row.get(ColAdScheduleDate); raw != "" {
			date, ok := coerceDate(raw)
			if !ok {
				result.warn(rowNum, ColAdScheduleDate, fmt.Sprintf("unrecognized date %q stored as-is", raw))
			}
			fields.ScheduleDate = &date
		}

		adID := id.UniqueAdID(doc.HasAd)
		if err := doc.InsertAd(setName, domain.NewAd(adID, fields, now)); err != nil {
			result.warn(rowNum, "", err.Error())
			continue
		}
		result.AdsCreated++
	}

	for _, w := range result.Warnings {
		im.logger.Debug("table import warning", "row", w.Row, "column", w.Column, "message", w.Message)
	}
	return result, nil
}

func (r *ImportResult) warn(row int, column, msg string) {
	r.Warnings = append(r.Warnings, RowWarning{Row: row, Column: column, Message: msg})
}

// headerIndex maps normalized column names to their position. The first
// occurrence of a duplicated column wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}

type rowReader struct {
	index  map[string]int
	record []string
}

// get returns the trimmed cell for col, or "" when the column is absent or
// the row is short.
func (r rowReader) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r rowReader) blank() bool {
	for _, cell := range r.record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// coerceDate normalizes raw to YYYY-MM-DD. When no layout matches it returns
// raw unchanged and false.
func coerceDate(raw string) (string, bool) {
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return raw, false
}
