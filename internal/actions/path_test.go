package actions

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSelectAddPath(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		name       string
		lpSupply   string
		totalSy    string
		deposit    string
		preferMint bool
		want       AddPath
	}{
		{"empty pool seeds", "0", "0", "100", false, PathSeed},
		{"empty pool seeds even when mint preferred", "0", "1000", "100", true, PathSeed},
		{"small deposit swaps", "900000", "1000000", "100000", false, PathSwapAndAdd},
		{"threshold itself swaps", "900000", "1000000", "400000", false, PathSwapAndAdd},
		{"above threshold mints", "900000", "1000000", "400000.000001", false, PathMint},
		{"preference mints", "900000", "1000000", "1", true, PathMint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectAddPath(d(tc.lpSupply), d(tc.totalSy), d(tc.deposit), tc.preferMint)
			if got != tc.want {
				t.Fatalf("want %s, got %s", tc.want, got)
			}
		})
	}
}
