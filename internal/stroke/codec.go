package stroke

import (
	"encoding/base64"
	"fmt"
)

// Encode serialises a Stroke to the wire format: base64 of a
// byte array whose length is a multiple of 4; each 4-byte tuple is
// (x, y, t, alpha), each channel quantized to a signed byte in [-100, 100]
// representing the value times 100.
func Encode(s Stroke) string {
	buf := make([]byte, 0, len(s.points)*4)
	for _, p := range s.points {
		buf = append(buf, quantize(p.X), quantize(p.Y), quantize(p.T), quantize(p.Alpha))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func quantize(v float64) byte {
	scaled := v * 100
	if scaled > 100 {
		scaled = 100
	}
	if scaled < -100 {
		scaled = -100
	}
	return byte(int8(scaled))
}

func dequantize(b byte) float64 {
	return float64(int8(b)) / 100
}

// Decode parses the base64 wire format back into a Stroke. Returns an
// error if the decoded length is not a multiple of 4.
func Decode(encoded string) (Stroke, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Stroke{}, fmt.Errorf("stroke: decode base64: %w", err)
	}
	if len(raw)%4 != 0 {
		return Stroke{}, fmt.Errorf("stroke: byte length %d is not a multiple of 4", len(raw))
	}
	points := make([]Sample, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		points = append(points, Sample{
			X:     dequantize(raw[i]),
			Y:     dequantize(raw[i+1]),
			T:     dequantize(raw[i+2]),
			Alpha: dequantize(raw[i+3]),
		})
	}
	return Stroke{points: points}, nil
}
