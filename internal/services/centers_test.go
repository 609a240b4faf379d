package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kentra/backoffice/internal/config"
)

func TestCenters_Normalize(t *testing.T) {
	c := NewCenters([]config.CenterConfig{
		{Code: "Giannitsa", Label: "Γιαννιτσά"},
		{Code: "KryaVrisi", Label: "Κρύα Βρύση", Aliases: []string{"Krya Vrisi"}},
	})

	assert.Equal(t, "Giannitsa", c.Default())
	assert.Equal(t, "KryaVrisi", c.Normalize("KryaVrisi"))
	assert.Equal(t, "KryaVrisi", c.Normalize(" Krya Vrisi "))
	assert.Equal(t, "Giannitsa", c.Normalize("Athens"))
	assert.Equal(t, "Giannitsa", c.Normalize(""))
	assert.Equal(t, "Κρύα Βρύση", c.Label("KryaVrisi"))
	assert.Equal(t, "Nowhere", c.Label("Nowhere"))
}
