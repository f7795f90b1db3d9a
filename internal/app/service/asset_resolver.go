package service

import (
	"context"
	"sort"
	"strings"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
	// Add other stablecoin symbols if needed, ensure they are uppercase
)

// stablecoinFeedIDs maps the fixed stable-symbol allow-list to price-feed ids.
// Stables are additive on dedup: re-issued and bridged variants of the same
// dollar claim are distinct holdings, unlike wrapped duplicates of one asset.
var stablecoinFeedIDs = map[string]string{
	stablecoinUSDCSymbol: "usd-coin",
	stablecoinUSDTSymbol: "tether",
	stablecoinDAISymbol:  "dai",
}

// AssetResolver maps raw balance entries to canonical pricing identifiers and
// deduplicates economically-equivalent entries.
type AssetResolver struct {
	catalogue port.AssetCatalogue
	logger    port.Logger
}

// NewAssetResolver creates a new AssetResolver.
func NewAssetResolver(catalogue port.AssetCatalogue, logger port.Logger) *AssetResolver {
	return &AssetResolver{
		catalogue: catalogue,
		logger:    logger,
	}
}

// Resolve classifies each balance entry, resolves a feed id for it and groups
// duplicates. Unpriceable and zero-balance entries are dropped. A catalogue
// failure degrades to native + stable resolution only, it never fails the
// request.
func (r *AssetResolver) Resolve(ctx context.Context, balances []entity.AssetBalance) []entity.ResolvedAsset {
	var mapping map[string]string
	if needsCatalogue(balances) {
		var err error
		mapping, err = r.catalogue.GetPlatformMapping(ctx)
		if err != nil {
			r.logger.Warn("Platform catalogue unavailable, only native and stable assets will be priced", "error", err)
			mapping = nil
		}
	}

	resolved := make(map[string]*entity.ResolvedAsset)
	for _, b := range balances {
		if b.Balance.IsZero() || b.Balance.IsNegative() {
			continue
		}

		feedID, isNative, isStable := r.classify(b, mapping)
		if feedID == "" {
			r.logger.Debug("Dropping unpriceable asset", "assetType", b.AssetType, "symbol", b.Symbol)
			continue
		}

		existing, ok := resolved[feedID]
		if !ok {
			resolved[feedID] = &entity.ResolvedAsset{
				FeedID:     feedID,
				Symbol:     b.Symbol,
				Balance:    b.Balance,
				IsNative:   isNative,
				IsStable:   isStable,
				AssetTypes: map[string]uint8{b.AssetType: b.Decimals},
			}
			continue
		}

		if isStable {
			// Stable variants are independent claims: sum them.
			existing.Balance = existing.Balance.Add(b.Balance)
			existing.AssetTypes[b.AssetType] = b.Decimals
			continue
		}

		// Duplicates of any other class are the same legal claim surfaced via
		// more than one balance-tracking mechanism: keep the maximum, and only
		// that entry's asset type, so flows are not double counted either.
		if b.Balance.GreaterThan(existing.Balance) {
			existing.Balance = b.Balance
			existing.Symbol = b.Symbol
			existing.AssetTypes = map[string]uint8{b.AssetType: b.Decimals}
		}
	}

	out := make([]entity.ResolvedAsset, 0, len(resolved))
	for _, a := range resolved {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})

	r.logger.Debug("Resolved priceable assets", "rawCount", len(balances), "resolvedCount", len(out))
	return out
}

// classify determines the pricing class and feed id of one balance entry.
func (r *AssetResolver) classify(b entity.AssetBalance, mapping map[string]string) (feedID string, isNative, isStable bool) {
	if b.AssetType == entity.AptosCoinType {
		return entity.AptosFeedID, true, false
	}

	if id, ok := stablecoinFeedIDs[strings.ToUpper(b.Symbol)]; ok {
		return id, false, true
	}

	if mapping == nil {
		return "", false, false
	}

	// The catalogue keys some assets by their full on-chain type and others by
	// the publishing account address alone; try both.
	if id, ok := mapping[strings.ToLower(b.AssetType)]; ok {
		return id, false, false
	}
	if addr, _, found := strings.Cut(b.AssetType, "::"); found {
		if id, ok := mapping[strings.ToLower(addr)]; ok {
			return id, false, false
		}
	}
	return "", false, false
}

// needsCatalogue reports whether any entry requires a catalogue lookup, so the
// (potentially large) coin list is not fetched for native-and-stable wallets.
func needsCatalogue(balances []entity.AssetBalance) bool {
	for _, b := range balances {
		if b.Balance.IsZero() || b.Balance.IsNegative() {
			continue
		}
		if b.AssetType == entity.AptosCoinType {
			continue
		}
		if _, ok := stablecoinFeedIDs[strings.ToUpper(b.Symbol)]; ok {
			continue
		}
		return true
	}
	return false
}
