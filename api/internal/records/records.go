package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/util"
)

// Auftragsstatus eines Gutachtens
const (
	StatusOffen          = "Offen"
	StatusInBearbeitung  = "In Bearbeitung"
	StatusAbgeschlossen  = "Abgeschlossen"
	StatusVerrechnet     = "Verrechnet"
	StatusBezahlt        = "Bezahlt"
	DefaultStundensatz   = 120.0
	MaxBeschreibungRunes = 2000
)

var Statuses = []string{StatusOffen, StatusInBearbeitung, StatusAbgeschlossen, StatusVerrechnet, StatusBezahlt}

// ValidStatus matches the record status exactly (Notion select names are case-sensitive).
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Gutachten is one persisted inspection record.
type Gutachten struct {
	ID               string   `json:"id"`
	Nummer           string   `json:"gutachtenNr"`
	Kunde            string   `json:"kunde"`
	Datum            string   `json:"datum"`
	Status           string   `json:"status"`
	Stunden          float64  `json:"stunden"`
	Stundensatz      float64  `json:"stundensatz"`
	Umsatz           float64  `json:"umsatz"`
	Beschreibung     string   `json:"beschreibung"`
	Bezahlt          bool     `json:"bezahlt"`
	FotoURLs         []string `json:"fotoUrls,omitempty"`
	Werkstoff        string   `json:"werkstoff,omitempty"`
	Bewertungsgruppe string   `json:"bewertungsgruppe,omitempty"`
	Ergebnis         string   `json:"ergebnis,omitempty"`
	URL              string   `json:"url"`
}

// Saved identifies a created record.
type Saved struct {
	ID  string `json:"pageId"`
	URL string `json:"url"`
}

// Store is the structured-record collaborator.
type Store interface {
	Name() string
	Configured() bool
	Create(ctx context.Context, g Gutachten) (Saved, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]Gutachten, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Number accepts 3, 3.5, "3,5" or "3.5"; anything unparsable is 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
		if err != nil {
			f = 0
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("not a number: %s", util.TruncateBytes(b, 32))
	}
	*n = Number(f)
	return nil
}

// CreateInput is the body of POST /save-gutachten.
type CreateInput struct {
	Nummer           string   `json:"gutachtenNr"`
	Kunde            string   `json:"kunde"`
	Status           string   `json:"status"`
	Stunden          Number   `json:"stunden"`
	Stundensatz      Number   `json:"stundensatz"`
	Beschreibung     string   `json:"beschreibung"`
	FotoURL          string   `json:"fotoUrl"`
	FotoURLs         []string `json:"fotoUrls"`
	Werkstoff        string   `json:"werkstoff"`
	Bewertungsgruppe string   `json:"bewertungsgruppe"`
	Ergebnis         string   `json:"ergebnis"`
}

// NewGutachten applies the creation defaults.
func NewGutachten(in CreateInput, now time.Time) (Gutachten, error) {
	const op = "records.new"
	g := Gutachten{
		Nummer:           strings.TrimSpace(in.Nummer),
		Kunde:            strings.TrimSpace(in.Kunde),
		Datum:            now.UTC().Format(time.DateOnly),
		Status:           strings.TrimSpace(in.Status),
		Stunden:          float64(in.Stunden),
		Stundensatz:      float64(in.Stundensatz),
		Beschreibung:     util.ClampRunes(in.Beschreibung, MaxBeschreibungRunes),
		Werkstoff:        strings.TrimSpace(in.Werkstoff),
		Bewertungsgruppe: strings.TrimSpace(in.Bewertungsgruppe),
		Ergebnis:         strings.TrimSpace(in.Ergebnis),
	}
	if g.Nummer == "" {
		g.Nummer = fmt.Sprintf("GA-%d", now.UnixMilli())
	}
	if g.Status == "" {
		g.Status = StatusOffen
	}
	if !ValidStatus(g.Status) {
		return Gutachten{}, apperr.Validation(op, fmt.Sprintf("Unbekannter Status %q", g.Status))
	}
	if g.Stundensatz == 0 {
		g.Stundensatz = DefaultStundensatz
	}
	if g.Stunden < 0 || g.Stundensatz < 0 {
		return Gutachten{}, apperr.Validation(op, "Stunden und Stundensatz dürfen nicht negativ sein")
	}
	g.Umsatz = g.Stunden * g.Stundensatz

	if u := strings.TrimSpace(in.FotoURL); u != "" {
		g.FotoURLs = append(g.FotoURLs, u)
	}
	for _, u := range in.FotoURLs {
		if u = strings.TrimSpace(u); u != "" && u != strings.TrimSpace(in.FotoURL) {
			g.FotoURLs = append(g.FotoURLs, u)
		}
	}
	return g, nil
}
