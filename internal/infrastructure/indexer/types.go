package indexer

import stdjson "encoding/json"

// graphQLRequest is the request envelope for the indexer's GraphQL endpoint.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLError is a single error entry in a GraphQL response.
type graphQLError struct {
	Message string `json:"message"`
}

// balancesResponse maps the current_fungible_asset_balances query result.
type balancesResponse struct {
	Data struct {
		Balances []fungibleAssetBalance `json:"current_fungible_asset_balances"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// fungibleAssetBalance is one raw balance row. Amount arrives as a JSON number
// in base units; stdjson.Number keeps full integer precision.
type fungibleAssetBalance struct {
	AssetType string         `json:"asset_type"`
	Amount    stdjson.Number `json:"amount"`
	Metadata  struct {
		Symbol   string `json:"symbol"`
		Decimals uint8  `json:"decimals"`
	} `json:"metadata"`
}

// activitiesResponse maps the fungible_asset_activities query result.
type activitiesResponse struct {
	Data struct {
		Activities []fungibleAssetActivity `json:"fungible_asset_activities"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// fungibleAssetActivity is one signed balance-changing event row.
type fungibleAssetActivity struct {
	AssetType            string         `json:"asset_type"`
	Amount               stdjson.Number `json:"amount"`
	Type                 string         `json:"type"`
	TransactionTimestamp string         `json:"transaction_timestamp"`
}
