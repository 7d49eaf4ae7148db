package utils

// Fraction returns num/den, or 0 when den is 0.
func Fraction(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
