package stroke

import (
	"math"
	"testing"

	"github.com/libgrip/libgrip/internal/geom"
)

func TestEncodeDecodeRoundTripsWithinQuantizationError(t *testing.T) {
	s := New([]geom.Point{
		{X: 1, Y: 0},
		{X: 0, Y: 1},
		{X: -1, Y: 0},
		{X: 0, Y: -1},
	})

	encoded := Encode(s)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode returned an error: %v", err)
	}
	if len(decoded.Points()) != len(s.Points()) {
		t.Fatalf("decoded length = %d, want %d", len(decoded.Points()), len(s.Points()))
	}

	const maxErr = 1.0 / 100 // one quantization step
	for i, want := range s.Points() {
		got := decoded.Points()[i]
		if math.Abs(got.X-want.X) > maxErr || math.Abs(got.Y-want.Y) > maxErr ||
			math.Abs(got.T-want.T) > maxErr {
			t.Fatalf("point %d: got %+v, want %+v within %v", i, got, want, maxErr)
		}
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	// 3 bytes base64-encoded: not a multiple of 4.
	if _, err := Decode("YWJj"); err == nil {
		t.Error("Decode should reject a byte length that is not a multiple of 4")
	}
}

func TestDecodeRejectsInvalidBase64(t *testing.T) {
	if _, err := Decode("not valid base64!!"); err == nil {
		t.Error("Decode should reject invalid base64")
	}
}

func TestQuantizeClampsToSignedByteRange(t *testing.T) {
	if got := quantize(5); got != 100 {
		t.Errorf("quantize(5) = %v, want clamped to 100", got)
	}
	if got := quantize(-5); int8(got) != -100 {
		t.Errorf("quantize(-5) = %v, want clamped to -100", got)
	}
}
