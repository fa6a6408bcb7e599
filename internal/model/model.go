// Package model defines the wire shapes served by the API. All monetary
// fields travel as decimal strings; nothing in this package performs
// arithmetic.
package model

// TokenEntry is one element of the /api/tokens payload.
type TokenEntry struct {
	ID   string    `json:"id"`
	Data TokenData `json:"data"`
}

// TokenData carries the per-token vault state, each field a decimal string in
// the token's native on-chain scale.
type TokenData struct {
	PoolAmount       string `json:"poolAmount"`
	ReservedAmount   string `json:"reservedAmount"`
	RedemptionAmount string `json:"redemptionAmount"`
	Weight           string `json:"weight"`
	MinPrice         string `json:"minPrice"`
	MaxPrice         string `json:"maxPrice"`
	GuaranteedUsd    string `json:"guaranteedUsd"`
	MaxPrimaryPrice  string `json:"maxPrimaryPrice"`
	MinPrimaryPrice  string `json:"minPrimaryPrice"`
}

// FeesSummary is the /api/fees_summary payload. The timestamp field name
// matches the consumer dashboard's expectation, typo included.
type FeesSummary struct {
	LastUpdatedAt int64  `json:"lastUpdatedtotalFeesAt"`
	TotalFees     string `json:"totalFees"`
}

// VolumeEntry is one element of the volume endpoints' payloads.
type VolumeEntry struct {
	ID   string     `json:"id"`
	Data VolumeData `json:"data"`
}

// VolumeData mirrors one subgraph volume row.
type VolumeData struct {
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
	Group     string `json:"group"`
	Volume    string `json:"volume"`
	Action    string `json:"action"`
}

// ActionEntry is one element of the /api/actions payload.
type ActionEntry struct {
	ID   string     `json:"id"`
	Data ActionData `json:"data"`
}

// ActionData mirrors one subgraph action row.
type ActionData struct {
	Params      string `json:"params"`
	Timestamp   int64  `json:"timestamp"`
	Account     string `json:"account"`
	TxHash      string `json:"txhash"`
	Action      string `json:"action"`
	BlockNumber int64  `json:"blockNumber"`
}

// Candle is one open/high/low/close bucket of a price series.
type Candle struct {
	Time  int64  `json:"t"`
	Open  string `json:"o"`
	High  string `json:"h"`
	Low   string `json:"l"`
	Close string `json:"c"`
}

// CandleResponse is the /api/candles payload.
type CandleResponse struct {
	Prices    []Candle `json:"prices"`
	Period    string   `json:"period"`
	UpdatedAt int64    `json:"updatedAt"`
}

// PositionStats is the static /api/position_stats payload.
type PositionStats struct {
	TotalShortPositionCollaterals string `json:"totalShortPositionCollaterals"`
	TotalLongPositionCollaterals  string `json:"totalLongPositionCollaterals"`
	TotalActivePositions          int    `json:"totalActivePositions"`
	TotalShortPositionSizes       string `json:"totalShortPositionSizes"`
	TotalLongPositionSizes        string `json:"totalLongPositionSizes"`
}

// OrderIndices is the static /api/orders_indices payload.
type OrderIndices struct {
	Swap     []string `json:"Swap"`
	Increase []string `json:"Increase"`
	Decrease []string `json:"Decrease"`
}
