package currency

// Conversions allows conversion rate retrieval. Pricing floors and offered
// prices may be quoted in different currencies; every floor comparison goes
// through this interface first.
type Conversions interface {
	GetRate(from string, to string) (float64, error)
	GetRates() *map[string]map[string]float64
}
