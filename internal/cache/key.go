package cache

import (
	"fmt"
	"strings"
	"time"

	"milestonesvc/internal/model"
)

// Keys must be canonical: the same logical query always serializes to
// the same string, so repeated requests hit the same entry. Search keys
// fold in the scope version counter; bumping the counter on a mutation
// orphans every cached page for that scope at once, and the TTL reaps
// the orphans.

func ProgressKey(milestoneID int64) string {
	return fmt.Sprintf("progress:%d", milestoneID)
}

func scopeVersionKey(scope model.Scope) string {
	return "scopever:" + scope.Key()
}

func SearchKey(scope model.Scope, version int64, q model.SearchQuery) string {
	dir := "asc"
	if q.SortDesc {
		dir = "desc"
	}
	return fmt.Sprintf("search:%s:v%d:q=%s|state=%s|from=%s|to=%s|sort=%s,%s|page=%d|size=%d",
		scope.Key(),
		version,
		strings.ToLower(q.Text),
		q.State,
		dateOrEmpty(q.From),
		dateOrEmpty(q.To),
		q.SortBy,
		dir,
		q.Page,
		q.Size,
	)
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
