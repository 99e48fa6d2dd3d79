package server

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

// Amounts are decimal strings in token units, e.g. "100000.5".
type AddRequest struct {
	Amount     string   `json:"amount"`
	Coins      []string `json:"coins"`
	Slippage   string   `json:"slippage"`
	PreferMint bool     `json:"prefer_mint"`
}

type MintRequest struct {
	Amount string   `json:"amount"`
	Coins  []string `json:"coins"`
}

type RemoveRequest struct {
	// LpAmount empty burns the whole position.
	LpAmount     string `json:"lp_amount"`
	Slippage     string `json:"slippage"`
	ToUnderlying bool   `json:"to_underlying"`
}

type RedeemRequest struct {
	PtAmount     string `json:"pt_amount"`
	YtAmount     string `json:"yt_amount"`
	Slippage     string `json:"slippage"`
	ToUnderlying bool   `json:"to_underlying"`
}

type SwapRequest struct {
	Side         string   `json:"side"`
	Amount       string   `json:"amount"`
	Coins        []string `json:"coins"`
	Slippage     string   `json:"slippage"`
	ToUnderlying bool     `json:"to_underlying"`
}
