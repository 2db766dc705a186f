package tryon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWardrobe(t *testing.T) {
	w := DefaultWardrobe()
	require.NoError(t, w.Validate())
	assert.Len(t, w, 30)

	for _, c := range Categories {
		assert.NotEmpty(t, w.ByCategory(c), "category %s", c)
	}

	item, ok := w.Find("blue-jeans-1")
	require.True(t, ok)
	assert.Equal(t, CategoryBottom, item.Category)
	assert.True(t, strings.HasPrefix(item.URL, "/"))

	_, ok = w.Find("missing")
	assert.False(t, ok)
}

func TestParseWardrobe_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":         "items: [",
		"missing id":       "items:\n  - {name: Tee, category: top}\n",
		"duplicate id":     "items:\n  - {id: a, name: A, category: top}\n  - {id: a, name: B, category: top}\n",
		"missing name":     "items:\n  - {id: a, category: top}\n",
		"unknown category": "items:\n  - {id: a, name: A, category: hat}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWardrobe([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidWardrobe)
		})
	}
}

func TestLoadWardrobe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wardrobe.yaml")
	doc := "items:\n  - {id: scarf-1, name: Red scarf, url: /assets/scarf.png, category: accessory}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	w, err := LoadWardrobe(path)
	require.NoError(t, err)
	assert.Equal(t, Wardrobe{{ID: "scarf-1", Name: "Red scarf", URL: "/assets/scarf.png", Category: CategoryAccessory}}, w)

	w, err = LoadWardrobe("")
	require.NoError(t, err)
	assert.Len(t, w, 30)

	_, err = LoadWardrobe(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWardrobe_Describe(t *testing.T) {
	w := Wardrobe{
		{ID: "1", Name: "White tee", Category: CategoryTop},
		{ID: "2", Name: "Black jeans", Category: CategoryBottom},
		{ID: "3", Name: "Grey hoodie", Category: CategoryTop},
	}
	assert.Equal(t, "- top: White tee, Grey hoodie\n- bottom: Black jeans\n", w.describe())
	assert.Empty(t, Wardrobe(nil).describe())
}
