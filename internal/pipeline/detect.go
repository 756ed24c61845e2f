package pipeline

import "strings"

type DetectResult struct {
	IsLeadList bool
	Score      float64
	Reason     string
}

var detectKeywords = []string{"lead", "suppression", "scrub", "screen", "prospect", "contact list", "check against"}

// DetectLeadList scores whether an inbound message is a lead-list
// submission, from subject/body keywords, attachment types and whether a
// table was actually extracted. Non-submissions are marked skipped without
// ever touching the suppression store.
func DetectLeadList(subject, text string, attachmentNames []string, hasTable bool) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".csv") {
			score += 0.25
			break
		}
		if strings.HasSuffix(ln, ".pdf") {
			score += 0.15
			break
		}
	}

	if hasTable {
		score += 0.35
	}
	if score > 1 {
		score = 1
	}

	isLeadList := score >= 0.45
	reason := "rules_negative"
	if isLeadList {
		reason = "rules_positive"
	}
	return DetectResult{IsLeadList: isLeadList, Score: score, Reason: reason}
}
