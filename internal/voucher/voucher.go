// Package voucher appends the oracle calls that produce a price voucher.
package voucher

import (
	"fmt"

	"yieldScope/internal/model"
	"yieldScope/internal/txb"
)

// Provider appends the steps producing a price voucher for pool and returns
// the voucher argument. Vouchers belong to the intent they were built in.
type Provider interface {
	AppendVoucher(b *txb.Builder, pool model.PoolDescriptor) (txb.Arg, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(b *txb.Builder, pool model.PoolDescriptor) (txb.Arg, error)

func (f ProviderFunc) AppendVoucher(b *txb.Builder, pool model.PoolDescriptor) (txb.Arg, error) {
	return f(b, pool)
}

// OracleProvider requests a price ticket and exchanges it for a voucher.
type OracleProvider struct{}

func (OracleProvider) AppendVoucher(b *txb.Builder, pool model.PoolDescriptor) (txb.Arg, error) {
	if pool.OraclePackageID == "" || pool.Objects.OracleConfig == "" || pool.Objects.OracleFeed == "" {
		return txb.Arg{}, fmt.Errorf("pool %s has no oracle configured", pool.ID)
	}
	typeArgs := []string{pool.Types.SY}
	clock := txb.Object(pool.ClockID())
	feed := txb.Object(pool.Objects.OracleFeed)

	ticket := b.MoveCall(pool.OraclePackageID, txb.RequestPriceTicket, typeArgs,
		txb.Object(pool.Objects.OracleConfig), feed, clock)
	voucher := b.MoveCall(pool.OraclePackageID, txb.GetPriceVoucher, typeArgs,
		ticket.Out("ticket"), feed, clock)
	return voucher.Out("voucher"), nil
}
