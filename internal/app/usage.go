package app

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"dictation/internal/config"
)

// UsageSummary is the one-line usage text shown from the tray.
func UsageSummary(st config.UsageStats, enhance bool) string {
	cost := st.EstimatedCost(enhance)
	return fmt.Sprintf("%s words, %s requests, %.1f min (session %.1f min). Est. cost $%.2f",
		humanize.Comma(int64(st.TotalWords)),
		humanize.Comma(int64(st.TotalRequests)),
		st.TotalMinutes, st.SessionMinutes, cost.Total)
}
