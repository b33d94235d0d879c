package openapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, doc.Paths.Find("/ingest"))
	assert.NotNil(t, doc.Paths.Find("/ask"))

	ask := doc.Components.Schemas["AskRequest"].Value
	require.NotNil(t, ask)
	k := ask.Properties["k"].Value
	require.NotNil(t, k.Max)
	assert.Equal(t, float64(15), *k.Max)
}
