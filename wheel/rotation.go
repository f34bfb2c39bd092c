package wheel

import (
	"fmt"
	"math"
)

// DefaultFullRotations is the number of whole turns added to every spin.
const DefaultFullRotations = 20

// mod360 normalises a to [0, 360).
func mod360(a float64) float64 {
	m := math.Mod(a, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// PlanRotation returns the absolute rotation, in degrees, that stops the wheel with the
// midpoint of segment winningIndex under the fixed pointer at 0 degrees.
//
// The current rotation's remainder is stripped, fullRotations whole turns are added and
// the landing offset is applied, so the result is always greater than current and the
// wheel keeps turning forward from wherever it last stopped.
func PlanRotation(current float64, segmentCount, winningIndex, fullRotations int) (float64, error) {
	if segmentCount < 1 {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("segment count %d must be at least 1", segmentCount)}
	}
	if winningIndex < 0 || winningIndex >= segmentCount {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("winning index %d outside [0, %d)", winningIndex, segmentCount)}
	}
	if fullRotations < 1 {
		return 0, &ConfigurationError{Reason: fmt.Sprintf("full rotations %d must be at least 1", fullRotations)}
	}
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return 0, &ConfigurationError{Reason: "current rotation is not finite"}
	}
	segment := 360 / float64(segmentCount)
	landing := -(float64(winningIndex)*segment + segment/2)
	base := current - mod360(current)
	return base + float64(fullRotations)*360 + mod360(360+landing), nil
}

// SegmentUnderPointer returns the index of the segment sitting under the pointer when
// the wheel is turned to rotation.
func SegmentUnderPointer(rotation float64, segmentCount int) int {
	if segmentCount < 1 {
		return -1
	}
	segment := 360 / float64(segmentCount)
	idx := int(mod360(-rotation) / segment)
	if idx >= segmentCount {
		idx = segmentCount - 1
	}
	return idx
}

// SegmentBounds returns the start and end angle of segment i on the unrotated wheel.
func SegmentBounds(i, segmentCount int) (start, end float64) {
	segment := 360 / float64(segmentCount)
	return float64(i) * segment, float64(i+1) * segment
}
