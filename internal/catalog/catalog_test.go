package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	body := `[{"test_code":"cbc","test_name":"Complete Blood Count","base_price":350},{"test_code":"VITD","test_name":"Vitamin D","base_price":1199.6}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c := Load(path)
	require.Equal(t, StatusLoaded, c.Status())
	assert.NoError(t, c.Err())
	assert.Equal(t, 2, c.Len())

	cbc, ok := c.Lookup("CBC")
	require.True(t, ok)
	assert.Equal(t, "Complete Blood Count", cbc.Name)
	assert.Equal(t, 350, cbc.BasePrice)

	vitd, ok := c.Lookup("vitd")
	require.True(t, ok)
	assert.Equal(t, 1200, vitd.BasePrice)
}

func TestLoad_MissingFileIsUnavailable(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, StatusUnavailable, c.Status())
	assert.True(t, errors.Is(c.Err(), ErrUnavailable))
	_, ok := c.Lookup("CBC")
	assert.False(t, ok)
}

func TestParse_EmptyArrayIsLoaded(t *testing.T) {
	c := Parse([]byte(`[]`))
	assert.Equal(t, StatusLoaded, c.Status())
	assert.Zero(t, c.Len())
}

func TestParse_GarbageIsUnavailable(t *testing.T) {
	c := Parse([]byte(`{not json`))
	assert.Equal(t, StatusUnavailable, c.Status())
	assert.Error(t, c.Err())
}

func TestNilCatalogIsSafe(t *testing.T) {
	var c *Catalog
	assert.Equal(t, StatusUnavailable, c.Status())
	assert.Zero(t, c.Len())
	_, ok := c.Lookup("CBC")
	assert.False(t, ok)
}

func TestShippedCatalogCoversAliases(t *testing.T) {
	c := Load(filepath.Join("..", "..", "data", "test_catalog.json"))
	require.Equal(t, StatusLoaded, c.Status(), "err: %v", c.Err())
	for _, alias := range TestAliases {
		_, ok := c.Lookup(alias.Code)
		assert.True(t, ok, "catalog missing %s", alias.Code)
	}
}

func TestFixedSlots(t *testing.T) {
	require.Len(t, FixedSlots, 6)
	assert.Equal(t, "6-8", FixedSlots[0].ID)
	assert.Equal(t, "16-18", FixedSlots[5].ID)
	assert.Equal(t, "10 AM - 12 PM", FixedSlots[2].Label)
	assert.Equal(t, "2 PM - 4 PM", FixedSlots[4].Label)

	slot, ok := SlotByID("14-16")
	require.True(t, ok)
	assert.Equal(t, "14:00", slot.StartTime())
	assert.True(t, slot.Contains(15*60))
	assert.False(t, slot.Contains(16*60))
	assert.True(t, slot.Overlaps(13*60, 15*60))
	assert.False(t, slot.Overlaps(16*60, 17*60))

	_, ok = SlotByID("9-11")
	assert.False(t, ok)
}

func TestTotalPrice(t *testing.T) {
	assert.Equal(t, 650, TotalPrice(350, HomeCollection))
	assert.Equal(t, 350, TotalPrice(350, LabVisit))
	assert.Equal(t, 350, TotalPrice(350, ""))
}
