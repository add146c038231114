package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gutachten-api/api/internal/reference"
)

func TestLabels(t *testing.T) {
	require.Equal(t, []string{"Draufsicht"}, Labels(1))
	require.Equal(t,
		[]string{"Draufsicht", "Wurzelseite", "Seitenansicht", "Detailaufnahme", "Bild 5", "Bild 6"},
		Labels(6))
	require.Empty(t, Labels(0))
}

func TestComposeInterpolatesThresholds(t *testing.T) {
	c := NewComposer(reference.Default())
	p := c.Compose(Input{ImageCount: 2, Material: "S460M", AcceptanceClass: "B", WallThickness: "12", Structured: true})

	require.Contains(t, p.System, "Analysiere die 2 Bilder")
	require.Contains(t, p.System, "Draufsicht, Wurzelseite.")
	require.Contains(t, p.System, "Werkstoffgruppe 2.1")
	require.Contains(t, p.System, "Bewertungsgruppe nach ISO 5817: B")
	require.Contains(t, p.System, "Wandstärke: 12 mm")
	require.Contains(t, p.System, "max. 380 HV10")
	require.Contains(t, p.System, "min. 540 MPa")
	require.Contains(t, p.System, `"fehlercodes"`)
	require.Contains(t, p.User, "Bewertungsgruppe B")
	require.Equal(t, []string{"Draufsicht", "Wurzelseite"}, p.Labels)
}

func TestComposeNotApplicableAndDefaults(t *testing.T) {
	c := NewComposer(reference.Default())
	p := c.Compose(Input{ImageCount: 1, Material: "1.4301", AcceptanceClass: "C"})

	require.Contains(t, p.System, "Härtegrenzwert (ISO 15614-1): nicht anwendbar")
	require.Contains(t, p.System, "Wandstärke: nicht angegeben")
	require.Contains(t, p.System, "**ANAMNESE**")
	require.NotContains(t, p.System, `"fehlercodes"`)
}

func TestComposeUnknownMaterialUsesDefaultGroup(t *testing.T) {
	c := NewComposer(reference.Default())
	p := c.Compose(Input{ImageCount: 1, Material: "Sonderwerkstoff", AcceptanceClass: "C", WallThickness: "6 mm"})

	require.Contains(t, p.System, "Sonderwerkstoff (Werkstoffgruppe 1.2")
	require.Contains(t, p.System, "Wandstärke: 6 mm\n")
}
