package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gutachten-api/api/internal/reference"
	"gutachten-api/api/internal/util"
)

// Mode records how the sections were obtained.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeHeadings   Mode = "headings"
	ModeRaw        Mode = "raw"
)

// DetectedDefect is a catalog entry whose code was found in the response.
type DetectedDefect struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Kritisch bool   `json:"kritisch"`
}

// Report is built once per response and never persisted here.
type Report struct {
	Anamnese            string           `json:"anamnese"`
	Diagnose            string           `json:"diagnose"`
	Conclusio           string           `json:"conclusio"`
	Status              Status           `json:"status"`
	ErkannteFehlercodes []DetectedDefect `json:"erkannteFehlercodes"`
	KritischeFehler     bool             `json:"kritischeFehler"`
	Extraction          Mode             `json:"extraction"`
	NeedsReview         bool             `json:"needsReview"`
	FullText            string           `json:"fullText"`
}

type Extractor struct {
	tables *reference.Tables
}

func NewExtractor(tables *reference.Tables) *Extractor {
	return &Extractor{tables: tables}
}

// Extract never fails. Structured JSON is tried first, then headings; if both yield nothing the
// raw text becomes the findings and the report is flagged for human review.
func (e *Extractor) Extract(raw string) Report {
	rep := Report{FullText: raw}

	if s, ok := parseStructured(raw); ok {
		rep.Anamnese, rep.Diagnose, rep.Conclusio = s.sections()
		rep.Extraction = ModeStructured
		if st, ok := ParseStatus(s.verdict()); ok {
			rep.Status = st
		} else {
			rep.Status = DeriveStatus(rep.Conclusio)
		}
	} else {
		rep.Anamnese = extractSection(raw, SectionAnamnese)
		rep.Diagnose = extractSection(raw, SectionDiagnose)
		rep.Conclusio = extractSection(raw, SectionConclusio)
		rep.Extraction = ModeHeadings
		rep.Status = DeriveStatus(rep.Conclusio)

		if rep.Anamnese == "" && rep.Diagnose == "" && rep.Conclusio == "" {
			rep.Anamnese = strings.TrimSpace(raw)
			rep.Extraction = ModeRaw
			rep.Status = StatusRework
			rep.NeedsReview = true
		}
	}

	rep.ErkannteFehlercodes = e.scanDefects(rep.Diagnose, raw)
	for _, d := range rep.ErkannteFehlercodes {
		if d.Kritisch {
			rep.KritischeFehler = true
			break
		}
	}
	return rep
}

// scanDefects is a substring heuristic: a code counts as detected wherever its literal text
// appears, so numbers that merely contain a code produce false positives.
func (e *Extractor) scanDefects(classification, full string) []DetectedDefect {
	out := []DetectedDefect{}
	if e == nil || e.tables == nil {
		return out
	}
	for _, code := range e.tables.DefectCodes() {
		if !strings.Contains(classification, code) && !strings.Contains(full, code) {
			continue
		}
		d := e.tables.Defects[code]
		out = append(out, DetectedDefect{Code: code, Name: d.Name, Kritisch: d.Kritisch})
	}
	return out
}

// structured is the JSON object the model is asked to emit. English keys are accepted as aliases.
type structured struct {
	Anamnese  flexText `json:"anamnese"`
	Diagnose  flexText `json:"diagnose"`
	Conclusio flexText `json:"conclusio"`
	Status    flexText `json:"status"`
	Ergebnis  flexText `json:"ergebnis"`

	Findings       flexText `json:"findings"`
	Classification flexText `json:"classification"`
	Conclusion     flexText `json:"conclusion"`
	Verdict        flexText `json:"verdict"`
}

func (s structured) sections() (string, string, string) {
	return firstText(s.Anamnese, s.Findings), firstText(s.Diagnose, s.Classification), firstText(s.Conclusio, s.Conclusion)
}

func (s structured) verdict() string {
	return firstText(s.Status, s.Verdict, s.Ergebnis)
}

// parseStructured succeeds only when the first balanced object parses and carries a section.
func parseStructured(raw string) (structured, bool) {
	obj := firstBalancedObject(util.StripCodeFences(raw))
	if obj == "" {
		return structured{}, false
	}
	var s structured
	if err := json.Unmarshal([]byte(obj), &s); err != nil {
		return structured{}, false
	}
	a, d, c := s.sections()
	if a == "" && d == "" && c == "" {
		return structured{}, false
	}
	return s, true
}

// firstBalancedObject returns the first {...} whose braces balance, ignoring braces in strings.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// flexText accepts a string, a number, or a list of those (joined by newlines).
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexText(s)
	case '[':
		var items []flexText
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(string(it)); s != "" {
				parts = append(parts, s)
			}
		}
		*f = flexText(strings.Join(parts, "\n"))
	case '{':
		// nested objects are kept verbatim
		*f = flexText(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("unsupported value %s", util.TruncateBytes(b, 32))
		}
		*f = flexText(n.String())
	}
	return nil
}

func firstText(vals ...flexText) string {
	for _, v := range vals {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}
