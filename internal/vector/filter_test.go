package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterResults(t *testing.T) {
	results := []Result{
		{ID: "a", Score: 0.95},
		{ID: "b", Score: 0.85},
		{ID: "c", Score: 0.72},
		{ID: "d", Score: 0.69},
		{ID: "e", Score: 0.40},
	}

	t.Run("drops below threshold", func(t *testing.T) {
		kept := FilterResults(results, 0.7, 10)
		require.Len(t, kept, 3)
		assert.Equal(t, "a", kept[0].ID)
		assert.Equal(t, "c", kept[2].ID)
	})

	t.Run("truncates to topK preserving order", func(t *testing.T) {
		kept := FilterResults(results, 0.7, 2)
		require.Len(t, kept, 2)
		assert.Equal(t, []string{"a", "b"}, []string{kept[0].ID, kept[1].ID})
	})

	t.Run("all filtered", func(t *testing.T) {
		kept := FilterResults(results, 0.99, 5)
		assert.Empty(t, kept)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, FilterResults(nil, 0.7, 5))
	})
}
