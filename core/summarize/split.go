package summarize

import "strings"

// actionItemsMarker 用于切分摘要与行动项
const actionItemsMarker = "Action Items:"

// SplitSummary splits raw model output into a summary portion and an
// action-items portion on the first "Action Items:" marker. The marker
// is requested by the prompt but not guaranteed by the model; when it is
// absent the whole output becomes the summary and action items are empty.
func SplitSummary(raw string) (summary, actionItems string) {
	before, after, found := strings.Cut(raw, actionItemsMarker)
	summary = strings.TrimSpace(before)
	if found {
		actionItems = strings.TrimSpace(after)
	}
	return summary, actionItems
}
