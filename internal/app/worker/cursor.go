package worker

import (
	"time"

	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/platform/judgeapi"
)

// Cursor walks the submission feed forward from a watermark.
//
// The feed's from parameter is inclusive, so each page repeats the
// submissions sharing the watermark second. The cursor remembers which of
// those it already handled and filters them out.
type Cursor struct {
	watermark time.Time
	bumped    bool // next request starts one second past the watermark

	seen    map[int64]time.Time // committed ids at or after the watermark
	skipped map[int64]struct{}  // malformed ids, kept for the whole run
	rawSeen map[string]struct{} // malformed records without a usable id
}

func NewCursor(watermark time.Time) *Cursor {
	return &Cursor{
		watermark: watermark,
		seen:      make(map[int64]time.Time),
		skipped:   make(map[int64]struct{}),
		rawSeen:   make(map[string]struct{}),
	}
}

func (c *Cursor) Watermark() time.Time { return c.watermark }

func (c *Cursor) NextPage() judgeapi.PageRequest {
	var from int64
	if !c.watermark.IsZero() {
		from = c.watermark.Unix()
	}
	if c.bumped {
		from++
	}
	return judgeapi.PageRequest{FromEpochSecond: from}
}

// Saturated reports whether a page holds nothing but records from the
// watermark second. The time-only cursor cannot page past such a page.
func (c *Cursor) Saturated(records []judgeapi.Record) bool {
	if len(records) == 0 || c.bumped || c.watermark.IsZero() {
		return false
	}
	second := c.watermark.Unix()
	for _, rec := range records {
		if rec.EpochSecond == nil || *rec.EpochSecond != second {
			return false
		}
	}
	return true
}

// SkipSecond makes the next request start after the watermark second.
// Submissions from that second beyond the saturated page are not fetched.
func (c *Cursor) SkipSecond() { c.bumped = true }

// Fresh drops records older than the watermark and records already handled
// this run. When the page itself repeats an id, the later record replaces
// the earlier one in place.
func (c *Cursor) Fresh(records []judgeapi.Record) []judgeapi.Record {
	fresh := make([]judgeapi.Record, 0, len(records))
	inPage := make(map[int64]int, len(records)) // id -> index in fresh
	for _, rec := range records {
		if rec.ID == nil {
			key := string(rec.Raw)
			if _, ok := c.rawSeen[key]; ok {
				continue
			}
			c.rawSeen[key] = struct{}{}
			fresh = append(fresh, rec)
			continue
		}
		id := *rec.ID
		if _, ok := c.seen[id]; ok {
			continue
		}
		if _, ok := c.skipped[id]; ok {
			continue
		}
		if rec.EpochSecond != nil && time.Unix(*rec.EpochSecond, 0).Before(c.watermark) {
			continue
		}
		if i, ok := inPage[id]; ok {
			fresh[i] = rec
			continue
		}
		inPage[id] = len(fresh)
		fresh = append(fresh, rec)
	}
	return fresh
}

// Advance moves the watermark to the latest committed submission time. It
// must only be called after the page is durably committed. The watermark
// never decreases.
func (c *Cursor) Advance(committed []model.Submission, skipped []judgeapi.Record) time.Time {
	for _, sub := range committed {
		c.seen[sub.ID] = sub.SubmittedAt
		if sub.SubmittedAt.After(c.watermark) {
			c.watermark = sub.SubmittedAt
			c.bumped = false
		}
	}
	for _, rec := range skipped {
		if rec.ID != nil {
			c.skipped[*rec.ID] = struct{}{}
		}
	}
	for id, at := range c.seen {
		if at.Before(c.watermark) {
			delete(c.seen, id)
		}
	}
	return c.watermark
}
