package model

// Reference extent of the legacy floor-plan canvas.  Older clients send
// pixel coordinates measured against this canvas size; newer clients send
// coordinates already normalized to the unit square.
const (
	DefaultCanvasWidth  = 800.0
	DefaultCanvasHeight = 600.0
)

// Position is a normalized floor-plan coordinate in [0,1]×[0,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizePosition converts an incoming coordinate pair to the normalized
// unit square.  Each axis value greater than 1.0 is treated as a pixel
// coordinate against the given reference extent and divided out; values
// already within [0,1] pass through unchanged.  Non-positive extents fall
// back to the default canvas size.  The result is clamped into [0,1] on
// both axes.
func NormalizePosition(x, y, extentW, extentH float64) Position {
	if extentW <= 0 {
		extentW = DefaultCanvasWidth
	}
	if extentH <= 0 {
		extentH = DefaultCanvasHeight
	}
	if x > 1.0 {
		x = x / extentW
	}
	if y > 1.0 {
		y = y / extentH
	}
	return Position{X: clamp01(x), Y: clamp01(y)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
