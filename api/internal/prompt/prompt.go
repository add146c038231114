package prompt

import (
	"fmt"
	"strings"

	"gutachten-api/api/internal/reference"
)

// ImageLabels are the positional perspectives of the first four photos.
var ImageLabels = []string{"Draufsicht", "Wurzelseite", "Seitenansicht", "Detailaufnahme"}

// Input is what the composer needs; it is validated upstream.
type Input struct {
	ImageCount      int
	Material        string
	AcceptanceClass string
	WallThickness   string

	// Structured asks for a single JSON object instead of bold headings.
	Structured bool
}

// Prompt is the pair sent to the vision model.
type Prompt struct {
	System string
	User   string
	Labels []string
}

type Composer struct {
	tables *reference.Tables
}

func NewComposer(tables *reference.Tables) *Composer {
	return &Composer{tables: tables}
}

// Labels returns one label per image: the fixed perspectives first, "Bild N" after.
func Labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(ImageLabels) {
			out[i] = ImageLabels[i]
		} else {
			out[i] = fmt.Sprintf("Bild %d", i+1)
		}
	}
	return out
}

func (c *Composer) Compose(in Input) Prompt {
	labels := Labels(in.ImageCount)
	th := c.tables.Thresholds(in.Material)

	wall := strings.TrimSpace(in.WallThickness)
	if wall == "" {
		wall = "nicht angegeben"
	} else if !strings.HasSuffix(strings.ToLower(wall), "mm") {
		wall += " mm"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Du bist ein erfahrener Schweißfachingenieur und Sachverständiger für Schweißtechnik.\n")
	fmt.Fprintf(&sb, "Analysiere die %d Bilder der Schweißnaht nach ISO 5817 und ISO 17637.\n", in.ImageCount)
	fmt.Fprintf(&sb, "Die Bilder zeigen verschiedene Perspektiven: %s.\n\n", strings.Join(labels, ", "))

	sb.WriteString("Prüfparameter:\n")
	fmt.Fprintf(&sb, "- Werkstoff: %s (Werkstoffgruppe %s nach ISO/TR 15608", th.Material, th.Group)
	if th.GroupDescription != "" {
		fmt.Fprintf(&sb, ", %s", th.GroupDescription)
	}
	sb.WriteString(")\n")
	fmt.Fprintf(&sb, "- Bewertungsgruppe nach ISO 5817: %s\n", in.AcceptanceClass)
	fmt.Fprintf(&sb, "- Wandstärke: %s\n", wall)
	fmt.Fprintf(&sb, "- Härtegrenzwert (ISO 15614-1): %s\n", th.HardnessText())
	fmt.Fprintf(&sb, "- Mindestzugfestigkeit: %s\n", th.TensileText())
	if th.Standard != "" {
		fmt.Fprintf(&sb, "- Maßgebliche Werkstoffnorm: %s\n", th.Standard)
	}

	sb.WriteString(`
Berücksichtige alle Bilder für eine umfassende Beurteilung:
- Draufsicht: Nahtbreite, Schuppenbildung, Spritzer, Oberflächenqualität
- Wurzelseite: Durchschweißung, Wurzelfehler, Wurzelüberhöhung
- Seitenansicht: Nahtüberhöhung, Einbrandkerben, Nahtgeometrie
- Detailaufnahme: Poren, Risse, Oberflächenfehler

Inhalt der Abschnitte:

ANAMNESE
- Nahttyp identifizieren (BW, FW, etc.) und Schweißposition schätzen
- Oberflächenzustand aus allen Perspektiven beschreiben, sichtbare Befunde je Bild auflisten
- Maße schätzen (Nahtbreite, Überhöhung, Durchschweißung, etc.)

DIAGNOSE
- Befunde nach ISO 6520-1 mit Fehlernummer klassifizieren (z. B. 2011 Pore, 5011 Einbrandkerbe)
- Grenzwerte der Bewertungsgruppe anwenden und Normkonformität bewerten
- Ursachenanalyse bei Fehlern, Kritikalität einschätzen

CONCLUSIO
- Ergebnis: genau eines von BESTANDEN / NACHARBEIT ERFORDERLICH / ABGELEHNT
- Empfehlung und erforderliche Maßnahmen, weitere ZfP-Empfehlungen (PT, MT, UT, RT falls nötig), Priorität
`)

	if in.Structured {
		sb.WriteString(`
Antworte ausschließlich mit genau einem JSON-Objekt ohne Text davor oder danach:
{"anamnese": "...", "diagnose": "...", "conclusio": "...", "status": "BESTANDEN|NACHARBEIT ERFORDERLICH|ABGELEHNT", "fehlercodes": ["2011"]}
`)
	} else {
		sb.WriteString(`
Gliedere die Antwort mit den fett gesetzten Überschriften **ANAMNESE**:, **DIAGNOSE**: und **CONCLUSIO**:.
`)
	}
	sb.WriteString("\nSei präzise und fachlich korrekt. Verwende die korrekte schweißtechnische Terminologie.")

	user := fmt.Sprintf("Bitte analysiere diese %d Bilder der Schweißnaht gemäß ISO 5817 (Bewertungsgruppe %s) und ISO 17637.\n"+
		"Die Bilder zeigen: %s.\n"+
		"Führe eine vollständige Sichtprüfung (VT) durch und berücksichtige alle Perspektiven für eine umfassende Beurteilung.",
		in.ImageCount, in.AcceptanceClass, strings.Join(labels, ", "))

	return Prompt{System: sb.String(), User: user, Labels: labels}
}
