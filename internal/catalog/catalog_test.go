package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupHandlesPluralsAndSynonyms(t *testing.T) {
	p := Default()

	item, ok := p.Lookup("Burgers")
	require.True(t, ok)
	assert.Equal(t, "Burger", item.Name)

	item, ok = p.Lookup("coke")
	require.True(t, ok)
	assert.Equal(t, "Cola", item.Name)

	item, ok = p.Lookup("French Fries")
	require.True(t, ok)
	assert.Equal(t, "Fries", item.Name)

	_, ok = p.Lookup("sushi")
	assert.False(t, ok)
}

func TestLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Test Grill
hours: "10:00 - 22:00"
menu:
  - name: Steak
    category: Mains
    price: 2000
`), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "PKR", p.Currency)
	assert.Equal(t, []string{"Steak"}, p.Names())

	h := NewHolder(path, p)
	require.NoError(t, os.WriteFile(path, []byte("name: Test Grill 2\n"), 0o600))
	reloaded, err := h.Reload()
	require.NoError(t, err)
	assert.Equal(t, "Test Grill 2", h.Profile().Name)
	assert.Same(t, reloaded, h.Profile())
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hours: never\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestFormatMenuGroupsByCategory(t *testing.T) {
	out := Default().FormatMenu()
	assert.Contains(t, out, "*Mains*")
	assert.Contains(t, out, "• Burger - PKR 550")
}
