package records

// StatusVerteilung counts records per status.
type StatusVerteilung struct {
	Offen         int `json:"offen"`
	InBearbeitung int `json:"inBearbeitung"`
	Abgeschlossen int `json:"abgeschlossen"`
	Verrechnet    int `json:"verrechnet"`
	Bezahlt       int `json:"bezahlt"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalAuftraege          int              `json:"totalAuftraege"`
	OffeneAuftraege         int              `json:"offeneAuftraege"`
	AbgeschlosseneAuftraege int              `json:"abgeschlosseneAuftraege"`
	GesamtStunden           float64          `json:"gesamtStunden"`
	GesamtUmsatz            float64          `json:"gesamtUmsatz"`
	BezahlterUmsatz         float64          `json:"bezahlterUmsatz"`
	OffenerUmsatz           float64          `json:"offenerUmsatz"`
	StatusVerteilung        StatusVerteilung `json:"statusVerteilung"`
}

// Aggregate sums hours and revenue; revenue is always Stunden*Stundensatz.
// Records with a missing or unknown status count as Offen.
func Aggregate(list []Gutachten) Stats {
	var s Stats
	s.TotalAuftraege = len(list)
	for _, g := range list {
		umsatz := g.Stunden * g.Stundensatz
		s.GesamtStunden += g.Stunden
		s.GesamtUmsatz += umsatz
		if g.Bezahlt {
			s.BezahlterUmsatz += umsatz
		}

		switch g.Status {
		case StatusInBearbeitung:
			s.StatusVerteilung.InBearbeitung++
		case StatusAbgeschlossen:
			s.StatusVerteilung.Abgeschlossen++
		case StatusVerrechnet:
			s.StatusVerteilung.Verrechnet++
		case StatusBezahlt:
			s.StatusVerteilung.Bezahlt++
		default:
			s.StatusVerteilung.Offen++
		}
	}
	v := s.StatusVerteilung
	s.OffeneAuftraege = v.Offen + v.InBearbeitung
	s.AbgeschlosseneAuftraege = v.Abgeschlossen + v.Verrechnet + v.Bezahlt
	s.OffenerUmsatz = s.GesamtUmsatz - s.BezahlterUmsatz
	return s
}
