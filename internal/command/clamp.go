package command

import "math"

const (
	MinScale       = 0.05
	MaxScale       = 10.0
	MinFontSize    = 8.0
	MaxFontSize    = 200.0
	EdgeInset      = 20.0
	DefaultSpacing = 20.0
	MaxSpacing     = 400.0

	defaultStrokeWidth = 2.0
	defaultNudge       = 10.0
	growScale          = 1.2
	shrinkScale        = 0.8

	defaultTextFontSize   = 24.0
	defaultTextFontFamily = "Inter"
	defaultTextFill       = "#111111"
)

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampOpacity(v float64) float64 {
	return clampFloat(v, 0, 1)
}

func clampScale(v float64) float64 {
	return clampFloat(v, MinScale, MaxScale)
}

func clampFontSize(v float64) float64 {
	return clampFloat(v, MinFontSize, MaxFontSize)
}

func clampSpacing(v float64) float64 {
	return clampFloat(v, 0, MaxSpacing)
}

// clampPosition keeps an object of the given size inside the canvas. The
// upper bound never drops below zero, so oversized objects pin to the origin.
func clampPosition(left, top, width, height, canvasW, canvasH float64) (float64, float64) {
	return clampFloat(left, 0, math.Max(0, canvasW-width)),
		clampFloat(top, 0, math.Max(0, canvasH-height))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
