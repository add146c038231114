package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"gutachten-api/api/internal/apperr"
	"gutachten-api/api/internal/vision"
)

func TestGenerateWithoutKey(t *testing.T) {
	eng := New("  ", "gemini-2.5-flash")
	require.Equal(t, "gemini", eng.Name())
	require.Equal(t, "gemini-2.5-flash", eng.GetModel())
	require.False(t, eng.Configured())

	_, err := eng.Generate(context.Background(), vision.Request{User: "u"})
	require.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestPartsKeepImageOrder(t *testing.T) {
	got := parts(vision.Request{
		User: "prüfen",
		Images: []vision.Image{
			{Data: []byte{1}, MediaType: "image/png"},
			{Data: []byte{2}, MediaType: "image/jpeg"},
		},
	})
	require.Len(t, got, 3)
	require.Equal(t, "image/png", got[0].(*genai.Blob).MIMEType)
	require.Equal(t, "image/jpeg", got[1].(*genai.Blob).MIMEType)
	require.Equal(t, genai.Text("prüfen"), got[2])
}

func TestFirstText(t *testing.T) {
	require.Equal(t, "", firstText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("**ANAMNESE**: "), genai.Text("a")}}},
	}}
	require.Equal(t, "**ANAMNESE**: a", firstText(resp))
}
