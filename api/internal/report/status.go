package report

import "strings"

// Status is the three-way inspection verdict.
type Status string

const (
	StatusPassed Status = "Bestanden"
	StatusRework Status = "Nacharbeit"
	StatusFailed Status = "Abgelehnt"
)

// statusRule maps conclusion keywords onto a verdict. Rules are checked in order and the
// first hit wins: fail beats rework, rework beats pass.
type statusRule struct {
	status   Status
	keywords []string
}

var statusRules = []statusRule{
	{status: StatusFailed, keywords: []string{"nicht bestanden", "abgelehnt"}},
	{status: StatusRework, keywords: []string{"nacharbeit", "bedingt"}},
}

// DeriveStatus inspects the conclusion text case-insensitively. Passed when no rule matches.
func DeriveStatus(conclusion string) Status {
	lc := strings.ToLower(conclusion)
	for _, rule := range statusRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lc, kw) {
				return rule.status
			}
		}
	}
	return StatusPassed
}

// ParseStatus accepts the literal spellings a model may use for a verdict field.
func ParseStatus(s string) (Status, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.Trim(v, ".!*\"' ")
	switch v {
	case "bestanden", "passed", "pass", "ok", "i.o.", "in ordnung":
		return StatusPassed, true
	case "nacharbeit", "nacharbeit erforderlich", "bedingt bestanden", "bedingt", "rework",
		"reworkrequired", "rework required", "rework_required":
		return StatusRework, true
	case "abgelehnt", "nicht bestanden", "failed", "fail", "rejected", "n.i.o.":
		return StatusFailed, true
	}
	return "", false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPassed, StatusRework, StatusFailed:
		return true
	}
	return false
}
