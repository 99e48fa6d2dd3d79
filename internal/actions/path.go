package actions

import (
	"github.com/shopspring/decimal"
)

// AddPath is the route an add-liquidity action takes.
type AddPath int

const (
	PathSeed AddPath = iota
	PathMint
	PathSwapAndAdd
)

func (p AddPath) String() string {
	switch p {
	case PathSeed:
		return "seed"
	case PathMint:
		return "mint"
	case PathSwapAndAdd:
		return "swap-and-add"
	default:
		return "unknown"
	}
}

// MintThreshold is the deposit share of total SY above which minting
// replaces swapping.
var MintThreshold = decimal.RequireFromString("0.4")

type pathInput struct {
	lpSupply   decimal.Decimal
	totalSy    decimal.Decimal
	deposit    decimal.Decimal
	preferMint bool
}

type pathRule struct {
	path AddPath
	when func(pathInput) bool
}

// First matching rule wins.
var pathRules = []pathRule{
	{PathSeed, func(in pathInput) bool { return !in.lpSupply.IsPositive() }},
	{PathMint, func(in pathInput) bool { return in.preferMint }},
	{PathMint, func(in pathInput) bool { return in.deposit.GreaterThan(in.totalSy.Mul(MintThreshold)) }},
}

// SelectAddPath chooses the add-liquidity route from pool depth, deposit
// size and the caller's preference.
func SelectAddPath(lpSupply, totalSy, deposit decimal.Decimal, preferMint bool) AddPath {
	in := pathInput{lpSupply: lpSupply, totalSy: totalSy, deposit: deposit, preferMint: preferMint}
	for _, rule := range pathRules {
		if rule.when(in) {
			return rule.path
		}
	}
	return PathSwapAndAdd
}
