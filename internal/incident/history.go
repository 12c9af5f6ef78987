package incident

import (
	"sort"

	"pingguard/internal/models"
)

// HistoryView is one fetched snapshot of the user's reports. Filtering and
// truncation are pure functions over the snapshot; they never re-fetch.
type HistoryView struct {
	reports []models.EmergencyReport
}

func NewHistoryView(reports []models.EmergencyReport) *HistoryView {
	return &HistoryView{reports: reports}
}

// Filter returns the reports matching the status (models.StatusAll selects
// everything), always sorted descending by creation time. The sort is
// recomputed on every call so reapplying StatusAll after a narrower filter
// reproduces the full list.
func (v *HistoryView) Filter(status models.Status) []models.EmergencyReport {
	out := make([]models.EmergencyReport, 0, len(v.reports))
	for _, r := range v.reports {
		if status == models.StatusAll || r.Status == status {
			out = append(out, r)
		}
	}
	sortByCreatedDesc(out)
	return out
}

// Recent returns the newest limit reports and the total count, so the caller
// can offer the full history when more exist.
func (v *HistoryView) Recent(limit int) ([]models.EmergencyReport, int) {
	all := v.Filter(models.StatusAll)
	if limit < len(all) {
		return all[:limit], len(all)
	}
	return all, len(all)
}

// Len is the snapshot size.
func (v *HistoryView) Len() int { return len(v.reports) }

func sortByCreatedDesc(reports []models.EmergencyReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
