package pipeline

import "testing"

func TestDetectLeadListPositive(t *testing.T) {
	res := DetectLeadList("Lead list for suppression check", "please screen the attached contacts", []string{"leads.xlsx"}, true)
	if !res.IsLeadList {
		t.Errorf("expected positive detection, score=%f", res.Score)
	}
	if res.Reason != "rules_positive" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestDetectLeadListNegative(t *testing.T) {
	res := DetectLeadList("Lunch on Friday?", "see you at noon", nil, false)
	if res.IsLeadList {
		t.Errorf("expected negative detection, score=%f", res.Score)
	}
}

func TestDetectLeadListTableAlone(t *testing.T) {
	// A resolvable table plus a spreadsheet attachment clears the bar even
	// with a bland subject.
	res := DetectLeadList("FW: file", "", []string{"contacts.csv"}, true)
	if !res.IsLeadList {
		t.Errorf("expected positive detection, score=%f", res.Score)
	}
}
