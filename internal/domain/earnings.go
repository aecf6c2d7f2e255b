package domain

const secondsPerHour = 3600

// Earnings returns the cents earned for elapsedSeconds at hourlyRateCents,
// rounded to the nearest cent with halves rounded up. A zero rate (no
// category) earns nothing and is not an error.
func Earnings(elapsedSeconds, hourlyRateCents int64) int64 {
	if elapsedSeconds <= 0 || hourlyRateCents <= 0 {
		return 0
	}
	// floor(x + 0.5) where x = s*r/3600, kept in integers.
	return (2*elapsedSeconds*hourlyRateCents + secondsPerHour) / (2 * secondsPerHour)
}
