package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name string
	key  string
}

func (f fakeEngine) Name() string     { return f.name }
func (f fakeEngine) GetModel() string { return "fake-1" }
func (f fakeEngine) Configured() bool { return f.key != "" }
func (f fakeEngine) Generate(context.Context, Request) (string, error) {
	return "ok", nil
}

func TestGetEngine(t *testing.T) {
	engs := NewEngines("anthropic", fakeEngine{name: "anthropic", key: "k"}, fakeEngine{name: "gemini"}, nil)

	eng, err := engs.GetEngine("")
	require.NoError(t, err)
	require.Equal(t, "anthropic", eng.Name())

	eng, err = engs.GetEngine("Claude")
	require.NoError(t, err)
	require.Equal(t, "anthropic", eng.Name())

	eng, err = engs.GetEngine("gemini")
	require.NoError(t, err)
	require.Equal(t, "gemini", eng.Name())

	_, err = engs.GetEngine("gpt")
	require.ErrorContains(t, err, "anthropic, gemini")

	require.Equal(t, map[string]bool{"anthropic": true, "gemini": false}, engs.Status())
}
