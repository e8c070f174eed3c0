package exr

import "github.com/x448/float16"

// Half is the 16-bit floating-point storage type for PixelHalf channels.
type Half = float16.Float16

// HalfFromFloat32 rounds a float32 to the nearest Half (ties to even).
func HalfFromFloat32(f float32) Half { return float16.Fromfloat32(f) }

// HalfToFloat32 widens a Half to float32.
func HalfToFloat32(h Half) float32 { return h.Float32() }
