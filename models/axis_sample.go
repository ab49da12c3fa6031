package models

// AxisSample holds one 3-axis accelerometer reading, either raw from the
// sensor or averaged by the producer.
type AxisSample struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// AxisSum accumulates raw readings without overflowing int32.
type AxisSum struct {
	X, Y, Z int64
	N       int64
}

// Add folds one reading into the running sum.
func (s *AxisSum) Add(a AxisSample) {
	s.X += int64(a.X)
	s.Y += int64(a.Y)
	s.Z += int64(a.Z)
	s.N++
}

// Mean returns the per-axis mean using truncating integer division.
// Precision loss is intended: 250/100 yields 2, -250/100 yields -2.
func (s AxisSum) Mean() AxisSample {
	if s.N == 0 {
		return AxisSample{}
	}
	return AxisSample{
		X: int32(s.X / s.N),
		Y: int32(s.Y / s.N),
		Z: int32(s.Z / s.N),
	}
}
