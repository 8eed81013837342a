package embedding

import (
	"fmt"
	"math"
)

// New builds the encoder named by cfg.Kind. KindNone returns a nil encoder.
func New(cfg Config) (Encoder, error) {
	switch cfg.Kind {
	case KindNone, "":
		return nil, nil
	case KindHashing:
		h, err := NewHashing(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return h, nil
	case KindOllama:
		o, err := NewOllama(cfg)
		if err != nil {
			return nil, err
		}
		return o, nil
	case KindOpenAI:
		o, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown encoder kind %q", cfg.Kind)
	}
}

// Normalize scales v to unit L2 norm in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
