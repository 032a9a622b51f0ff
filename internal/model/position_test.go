package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePosition(t *testing.T) {
	t.Run("pixel coordinates divide by extent", func(t *testing.T) {
		p := NormalizePosition(200, 150, 800, 600)
		assert.Equal(t, 0.25, p.X)
		assert.Equal(t, 0.25, p.Y)
	})

	t.Run("normalized values pass through", func(t *testing.T) {
		p := NormalizePosition(0.5, 0.75, 800, 600)
		assert.Equal(t, 0.5, p.X)
		assert.Equal(t, 0.75, p.Y)
	})

	t.Run("axes are independent", func(t *testing.T) {
		p := NormalizePosition(0.5, 300, 800, 600)
		assert.Equal(t, 0.5, p.X)
		assert.Equal(t, 0.5, p.Y)
	})

	t.Run("boundary value 1.0 is not treated as pixels", func(t *testing.T) {
		p := NormalizePosition(1.0, 1.0, 800, 600)
		assert.Equal(t, 1.0, p.X)
		assert.Equal(t, 1.0, p.Y)
	})

	t.Run("negative values clamp to zero", func(t *testing.T) {
		p := NormalizePosition(-3, -0.1, 800, 600)
		assert.Equal(t, 0.0, p.X)
		assert.Equal(t, 0.0, p.Y)
	})

	t.Run("pixels beyond the extent clamp to one", func(t *testing.T) {
		p := NormalizePosition(900, 700, 800, 600)
		assert.Equal(t, 1.0, p.X)
		assert.Equal(t, 1.0, p.Y)
	})

	t.Run("non-positive extent falls back to default canvas", func(t *testing.T) {
		p := NormalizePosition(400, 300, 0, -1)
		assert.Equal(t, 0.5, p.X)
		assert.Equal(t, 0.5, p.Y)
	})
}
