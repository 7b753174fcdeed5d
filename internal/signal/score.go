package signal

import "math"

// clampScore bounds a signal score to [0,100] and rounds to 2 decimals.
func clampScore(s float64) float64 {
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	return round2(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
