package selector

// #region config
// Config holds the answer-quality adjustments applied within the near-tie band.
type Config struct {
	BandFactor       float64 // candidates scoring >= threshold*BandFactor compete
	MediumLen        int     // runes
	MediumBonus      float64
	LongLen          int // runes
	LongBonus        float64
	ExplanatoryBonus float64
	ColonPenalty     float64
	MinWords         int
	FragmentPenalty  float64
}

// DefaultConfig returns the standard adjustments.
func DefaultConfig() Config {
	return Config{
		BandFactor:       0.95,
		MediumLen:        80,
		MediumBonus:      0.03,
		LongLen:          150,
		LongBonus:        0.02,
		ExplanatoryBonus: 0.02,
		ColonPenalty:     0.10,
		MinWords:         6,
		FragmentPenalty:  0.05,
	}
}

// #endregion config
