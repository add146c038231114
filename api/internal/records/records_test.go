package records

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gutachten-api/api/internal/apperr"
)

var fixedNow = time.Date(2025, 3, 14, 23, 30, 0, 0, time.FixedZone("CET", 3600))

func TestNewGutachtenDefaults(t *testing.T) {
	g, err := NewGutachten(CreateInput{Kunde: " Müller GmbH ", Beschreibung: strings.Repeat("ä", 2500)}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, "GA-1741991400000", g.Nummer)
	require.Equal(t, "Müller GmbH", g.Kunde)
	require.Equal(t, "2025-03-14", g.Datum)
	require.Equal(t, StatusOffen, g.Status)
	require.Equal(t, DefaultStundensatz, g.Stundensatz)
	require.Len(t, []rune(g.Beschreibung), MaxBeschreibungRunes)
	require.Empty(t, g.FotoURLs)
}

func TestNewGutachtenFromJSON(t *testing.T) {
	var in CreateInput
	body := `{"gutachtenNr":"GA-1","status":"In Bearbeitung","stunden":"2,5","stundensatz":100,
		"fotoUrl":"https://a","fotoUrls":["https://a","https://b"," "]}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	g, err := NewGutachten(in, fixedNow)
	require.NoError(t, err)
	require.Equal(t, 2.5, g.Stunden)
	require.Equal(t, 100.0, g.Stundensatz)
	require.Equal(t, 250.0, g.Umsatz)
	require.Equal(t, []string{"https://a", "https://b"}, g.FotoURLs)
}

func TestNewGutachtenRejectsUnknownStatus(t *testing.T) {
	_, err := NewGutachten(CreateInput{Status: "erledigt"}, fixedNow)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestNumberUnmarshal(t *testing.T) {
	var n Number
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &n))
	require.Zero(t, n)
	require.NoError(t, json.Unmarshal([]byte(`null`), &n))
	require.Zero(t, n)
	require.NoError(t, json.Unmarshal([]byte(`4`), &n))
	require.EqualValues(t, 4, n)
	require.Error(t, json.Unmarshal([]byte(`true`), &n))
}

func TestAggregate(t *testing.T) {
	list := []Gutachten{
		{Status: StatusOffen, Stunden: 2, Stundensatz: 120},
		{Status: StatusInBearbeitung, Stunden: 1, Stundensatz: 100},
		{Status: StatusAbgeschlossen, Stunden: 3, Stundensatz: 120},
		{Status: StatusVerrechnet, Stunden: 1.5, Stundensatz: 100},
		{Status: StatusBezahlt, Stunden: 4, Stundensatz: 120, Bezahlt: true},
		{Status: "", Stunden: 0, Stundensatz: 120},
		{Status: "Archiv", Stunden: 1, Stundensatz: 0},
	}
	s := Aggregate(list)

	require.Equal(t, 7, s.TotalAuftraege)
	require.Equal(t, StatusVerteilung{Offen: 3, InBearbeitung: 1, Abgeschlossen: 1, Verrechnet: 1, Bezahlt: 1}, s.StatusVerteilung)
	require.Equal(t, 4, s.OffeneAuftraege)
	require.Equal(t, 3, s.AbgeschlosseneAuftraege)
	require.InDelta(t, 12.5, s.GesamtStunden, 1e-9)
	require.InDelta(t, 240+100+360+150+480, s.GesamtUmsatz, 1e-9)
	require.InDelta(t, 480, s.BezahlterUmsatz, 1e-9)
	require.InDelta(t, s.GesamtUmsatz-480, s.OffenerUmsatz, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	require.Equal(t, Stats{}, Aggregate(nil))
}
