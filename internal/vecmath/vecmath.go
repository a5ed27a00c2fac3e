// Package vecmath holds the small set of fixed-width vector types the wire
// protocol and world model share, plus the pitch/yaw -> look-direction
// conversion spec.md's open questions pin down explicitly.
package vecmath

import (
	"math"

	"github.com/weqqr/mtt-go/internal/codec"
)

// BS is the server's block-scale factor; world coordinates are server
// coordinates divided by BS.
const BS = 10.0

// Vec3I16 is a signed 16-bit 3D vector, used for block coordinates.
type Vec3I16 struct {
	X, Y, Z int16
}

// ReadVec3I16 decodes three big-endian int16 components in XYZ order.
func ReadVec3I16(r *codec.Reader) (Vec3I16, error) {
	x, err := r.I16()
	if err != nil {
		return Vec3I16{}, err
	}
	y, err := r.I16()
	if err != nil {
		return Vec3I16{}, err
	}
	z, err := r.I16()
	if err != nil {
		return Vec3I16{}, err
	}
	return Vec3I16{X: x, Y: y, Z: z}, nil
}

// Write appends the vector as three big-endian int16 components.
func (v Vec3I16) Write(w *codec.Writer) {
	w.I16(v.X)
	w.I16(v.Y)
	w.I16(v.Z)
}

// Vec3F32 is a float vector in server units (scaled by BS).
type Vec3F32 struct {
	X, Y, Z float32
}

// ReadVec3F32 decodes three big-endian float32 components in XYZ order.
func ReadVec3F32(r *codec.Reader) (Vec3F32, error) {
	x, err := r.F32()
	if err != nil {
		return Vec3F32{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Vec3F32{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Vec3F32{}, err
	}
	return Vec3F32{X: x, Y: y, Z: z}, nil
}

// Write appends the vector as three big-endian float32 components.
func (v Vec3F32) Write(w *codec.Writer) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

// World converts a server-unit position into world units (divides by BS).
func (v Vec3F32) World() Vec3F32 {
	return Vec3F32{X: v.X / BS, Y: v.Y / BS, Z: v.Z / BS}
}

// LookDir computes the Cartesian look direction from server pitch/yaw
// (degrees), following the source's documented FIXME-resolved formula:
// pitch negated, yaw offset by +90 degrees, both converted to radians,
// then (cos(yaw)cos(pitch), sin(pitch), sin(yaw)cos(pitch)), normalized.
func LookDir(pitchDeg, yawDeg float32) Vec3F32 {
	pitch := float64(-pitchDeg) * math.Pi / 180
	yaw := float64(yawDeg+90) * math.Pi / 180

	x := math.Cos(yaw) * math.Cos(pitch)
	y := math.Sin(pitch)
	z := math.Sin(yaw) * math.Cos(pitch)

	length := math.Sqrt(x*x + y*y + z*z)
	if length == 0 {
		return Vec3F32{}
	}
	return Vec3F32{
		X: float32(x / length),
		Y: float32(y / length),
		Z: float32(z / length),
	}
}
