package model

import "yieldScope/internal/amount"

// PyPosition is a user-owned PT/YT position object.
type PyPosition struct {
	ID                string          `json:"id"`
	PoolID            string          `json:"pool_id"`
	MaturityMs        int64           `json:"maturity_ms"`
	PtBalance         amount.Quantity `json:"pt_balance"`
	YtBalance         amount.Quantity `json:"yt_balance"`
	UnclaimedInterest bool            `json:"unclaimed_interest"`
}

// LPPosition is a user-owned liquidity position object.
type LPPosition struct {
	ID               string          `json:"id"`
	PoolID           string          `json:"pool_id"`
	MaturityMs       int64           `json:"maturity_ms"`
	LpAmount         amount.Quantity `json:"lp_amount"`
	UnclaimedRewards []string        `json:"unclaimed_rewards,omitempty"`
}

// SameMaturity returns the LP positions matching maturityMs, preserving order.
func SameMaturity(positions []LPPosition, maturityMs int64) []LPPosition {
	out := make([]LPPosition, 0, len(positions))
	for _, p := range positions {
		if p.MaturityMs == maturityMs {
			out = append(out, p)
		}
	}
	return out
}

// PendingRewardTokens returns the distinct reward token types with unclaimed
// rewards across positions, in first-seen order.
func PendingRewardTokens(positions []LPPosition) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range positions {
		for _, token := range p.UnclaimedRewards {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}
	return out
}
