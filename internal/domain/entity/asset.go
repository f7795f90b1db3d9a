package entity

import "github.com/shopspring/decimal"

// AptosCoinType is the reserved asset type of the chain's native coin.
const AptosCoinType = "0x1::aptos_coin::AptosCoin"

// AptosFeedID is the price-feed id of the native coin in the provider universe.
const AptosFeedID = "aptos"

// OctasDecimals is the decimal shift of the native coin (base unit "octa").
const OctasDecimals = 8

// AssetBalance is a single raw balance entry as returned by the balance source.
// Balance is already converted from base units to human units; the struct is
// immutable after the initial fetch.
type AssetBalance struct {
	AssetType string          `json:"assetType"`
	Symbol    string          `json:"symbol"`
	Decimals  uint8           `json:"decimals"`
	Balance   decimal.Decimal `json:"balance"`
}

// ResolvedAsset is a deduplicated, priceable holding produced by the asset
// resolver. AssetTypes keeps every on-chain identifier that collapsed into this
// feed id (with its decimal shift) so the flow source can be restricted to them
// and flow amounts converted to human units.
type ResolvedAsset struct {
	FeedID     string           `json:"feedId"`
	Symbol     string           `json:"symbol"`
	Balance    decimal.Decimal  `json:"balance"`
	IsNative   bool             `json:"isNative"`
	IsStable   bool             `json:"isStable"`
	AssetTypes map[string]uint8 `json:"-"`
}

// AssetValuation is a resolved holding priced at the current moment. Used by the
// balances endpoint, not by the history engine itself.
type AssetValuation struct {
	FeedID   string  `json:"feedId"`
	Symbol   string  `json:"symbol"`
	Balance  string  `json:"balance"`
	PriceUSD float64 `json:"priceUSD"`
	ValueUSD float64 `json:"valueUSD"`
}
