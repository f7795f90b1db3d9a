package coingecko

// marketChartResponse maps the /coins/{id}/market_chart response. Each entry in
// Prices is a [timestampMillis, price] pair.
type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// coinListEntry is one row of /coins/list?include_platform=true. Platforms maps
// a platform identifier (e.g., "aptos") to the asset's contract address there.
type coinListEntry struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	Name      string            `json:"name"`
	Platforms map[string]string `json:"platforms"`
}

// simplePriceResponse maps /simple/price: feed id -> currency -> price.
type simplePriceResponse map[string]map[string]float64
