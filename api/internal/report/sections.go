package report

import (
	"regexp"
	"strings"
)

// Section names as they appear in model output.
const (
	SectionAnamnese  = "ANAMNESE"
	SectionDiagnose  = "DIAGNOSE"
	SectionConclusio = "CONCLUSIO"
)

// sectionStrategy returns the body of the named section or "".
type sectionStrategy struct {
	name  string
	start func(name string) *regexp.Regexp
	next  *regexp.Regexp

	// the next heading may follow on the heading's own line
	inline bool
}

var sectionNames = regexp.QuoteMeta(SectionAnamnese) + "|" + regexp.QuoteMeta(SectionDiagnose) + "|" + regexp.QuoteMeta(SectionConclusio)

// Both strategies are kept: model output varies between bold and line headings.
var sectionStrategies = []sectionStrategy{
	{
		// **NAME**: ... up to the next bold section heading (anywhere) or bold all-caps heading line
		name: "bold",
		start: func(name string) *regexp.Regexp {
			return regexp.MustCompile(`(?i)\*\*[ \t]*` + regexp.QuoteMeta(name) + `[ \t]*:?[ \t]*\*\*[ \t]*:?`)
		},
		next: regexp.MustCompile(`(?m)\*\*[ \t]*(?i:` + sectionNames + `)[ \t]*:?[ \t]*\*\*` +
			`|^[ \t]*(?:#{1,6}[ \t]*)?\*\*[ \t]*[A-ZÄÖÜ][A-ZÄÖÜ \t/-]*[A-ZÄÖÜ][ \t]*:?[ \t]*\*\*[ \t]*(?::|$)`),
		inline: true,
	},
	{
		// NAME: ... (or "## NAME") up to the next all-caps heading line
		name: "line",
		start: func(name string) *regexp.Regexp {
			return regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]*)?` + regexp.QuoteMeta(name) + `[ \t]*(?::|$)`)
		},
		next: regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}[ \t]*)?[A-ZÄÖÜ][A-ZÄÖÜ \t/-]*[A-ZÄÖÜ][ \t]*(?::|$)`),
	},
}

// compiled start patterns per section, built once.
var startPatterns = func() map[string][]*regexp.Regexp {
	out := map[string][]*regexp.Regexp{}
	for _, name := range []string{SectionAnamnese, SectionDiagnose, SectionConclusio} {
		for _, s := range sectionStrategies {
			out[name] = append(out[name], s.start(name))
		}
	}
	return out
}()

// extractSection tries every strategy in order; the first non-empty capture wins.
func extractSection(text, name string) string {
	starts, ok := startPatterns[name]
	if !ok {
		return ""
	}
	for i, s := range sectionStrategies {
		if body := s.capture(text, starts[i]); body != "" {
			return body
		}
	}
	return ""
}

func (s sectionStrategy) capture(text string, start *regexp.Regexp) string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]

	// Line headings: the heading's own line never terminates the section.
	from := 0
	if !s.inline {
		from = strings.IndexByte(rest, '\n')
		if from < 0 {
			return strings.TrimSpace(rest)
		}
	}
	if end := s.next.FindStringIndex(rest[from:]); end != nil {
		rest = rest[:from+end[0]]
	}
	return strings.TrimSpace(rest)
}
