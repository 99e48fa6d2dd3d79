package txb

import (
	"fmt"
	"sort"
)

// ParamKind is the declared kind of an entry-point parameter.
type ParamKind uint8

const (
	ParamPure ParamKind = iota
	ParamObject
)

type Param struct {
	Name string
	Kind ParamKind
	// Type is the pure value type, checked against pure literals.
	Type string
}

type Output struct {
	Name string
	Type string
}

// EntryPoint is the fixed shape of a contract function the builder may call.
type EntryPoint struct {
	Name       string
	Module     string
	Function   string
	Params     []Param
	TypeParams int
	Outputs    []Output
}

func (e EntryPoint) Target(pkg string) string {
	return fmt.Sprintf("%s::%s::%s", pkg, e.Module, e.Function)
}

func (e EntryPoint) outputIndex(name string) (int, bool) {
	for i, out := range e.Outputs {
		if out.Name == name {
			return i, true
		}
	}
	return 0, false
}

func pure(name, typ string) Param { return Param{Name: name, Kind: ParamPure, Type: typ} }
func obj(name string) Param       { return Param{Name: name, Kind: ParamObject} }
func u64Out(name string) Output   { return Output{Name: name, Type: "u64"} }
func objOut(name string) Output   { return Output{Name: name, Type: "object"} }

// Contract entry points, by module.
var (
	RequestPriceTicket = EntryPoint{
		Name: "request-price-ticket", Module: "oracle", Function: "request_price_ticket",
		Params:     []Param{obj("oracle_config"), obj("oracle_feed"), obj("clock")},
		TypeParams: 1,
		Outputs:    []Output{objOut("ticket")},
	}
	GetPriceVoucher = EntryPoint{
		Name: "get-price-voucher", Module: "oracle", Function: "get_price_voucher",
		Params:     []Param{obj("ticket"), obj("oracle_feed"), obj("clock")},
		TypeParams: 1,
		Outputs:    []Output{objOut("voucher")},
	}

	PositionInit = EntryPoint{
		Name: "position-init", Module: "py", Function: "init_py_position",
		Params:     []Param{obj("version"), obj("py_state"), obj("clock")},
		TypeParams: 1,
		Outputs:    []Output{objOut("py_position")},
	}

	DepositForWrapper = EntryPoint{
		Name: "deposit-for-wrapper", Module: "sy", Function: "deposit",
		Params:     []Param{obj("version"), obj("coin"), pure("min_sy_out", "u64"), obj("sy_state")},
		TypeParams: 2,
		Outputs:    []Output{objOut("sy_coin")},
	}
	RedeemWrapper = EntryPoint{
		Name: "redeem-wrapper", Module: "sy", Function: "redeem",
		Params:     []Param{obj("version"), obj("sy_coin"), pure("min_out", "u64"), obj("sy_state")},
		TypeParams: 2,
		Outputs:    []Output{objOut("coin")},
	}

	MintPrincipalAndYield = EntryPoint{
		Name: "mint-principal-and-yield", Module: "yield_factory", Function: "mint_py",
		Params: []Param{
			obj("version"), obj("sy_coin"), obj("price_voucher"), obj("py_position"),
			obj("py_state"), obj("yield_factory_config"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("pt_amount")},
	}
	RedeemPrincipalAndYield = EntryPoint{
		Name: "redeem-principal-and-yield", Module: "yield_factory", Function: "redeem_py",
		Params: []Param{
			obj("version"), pure("pt_amount", "u64"), pure("yt_amount", "u64"), obj("price_voucher"),
			obj("py_position"), obj("py_state"), obj("yield_factory_config"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_coin")},
	}
	ClaimInterest = EntryPoint{
		Name: "claim-interest", Module: "yield_factory", Function: "claim_interest",
		Params: []Param{
			obj("version"), obj("py_position"), obj("py_state"), obj("price_voucher"),
			obj("yield_factory_config"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_coin")},
	}

	SwapExactInForPrincipal = EntryPoint{
		Name: "swap-exact-in-for-principal", Module: "market", Function: "swap_exact_sy_for_pt",
		Params: []Param{
			obj("version"), pure("min_pt_out", "u64"), obj("price_voucher"), obj("sy_coin"),
			obj("py_position"), obj("py_state"), obj("market_factory_config"), obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("pt_out")},
	}
	SwapExactInForYield = EntryPoint{
		Name: "swap-exact-in-for-yield", Module: "market", Function: "swap_exact_sy_for_yt",
		Params: []Param{
			obj("version"), pure("min_yt_out", "u64"), obj("price_voucher"), obj("sy_coin"),
			obj("py_position"), obj("py_state"), obj("yield_factory_config"), obj("market_factory_config"),
			obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("yt_out")},
	}
	SwapExactPrincipalForWrapper = EntryPoint{
		Name: "swap-exact-principal-for-wrapper", Module: "market", Function: "swap_exact_pt_for_sy",
		Params: []Param{
			obj("version"), pure("pt_amount", "u64"), pure("min_sy_out", "u64"), obj("price_voucher"),
			obj("py_position"), obj("py_state"), obj("market_factory_config"), obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_coin")},
	}
	SwapExactYieldForWrapper = EntryPoint{
		Name: "swap-exact-yield-for-wrapper", Module: "market", Function: "swap_exact_yt_for_sy",
		Params: []Param{
			obj("version"), pure("yt_amount", "u64"), pure("min_sy_out", "u64"), obj("price_voucher"),
			obj("py_position"), obj("py_state"), obj("yield_factory_config"), obj("market_factory_config"),
			obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_coin")},
	}
	PtOutForExactWrapperIn = EntryPoint{
		Name: "pt-out-for-exact-wrapper-in", Module: "market", Function: "get_pt_out_for_exact_sy_in",
		Params: []Param{
			obj("version"), pure("sy_in", "u64"), obj("price_voucher"), obj("py_state"),
			obj("market_factory_config"), obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("pt_out")},
	}

	YtOutForExactWrapperIn = EntryPoint{
		Name: "yt-out-for-exact-wrapper-in", Module: "market", Function: "get_yt_out_for_exact_sy_in",
		Params: []Param{
			obj("version"), pure("sy_in", "u64"), obj("price_voucher"), obj("py_state"),
			obj("yield_factory_config"), obj("market_factory_config"), obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("yt_out")},
	}
	PyOutForExactWrapperIn = EntryPoint{
		Name: "py-out-for-exact-wrapper-in", Module: "yield_factory", Function: "get_py_out_for_exact_sy_in",
		Params: []Param{
			obj("version"), pure("sy_in", "u64"), obj("price_voucher"), obj("py_state"),
			obj("yield_factory_config"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{u64Out("py_out")},
	}

	AddLiquiditySingleSided = EntryPoint{
		Name: "add-liquidity-single-sided", Module: "market", Function: "add_liquidity_single_sy",
		Params: []Param{
			obj("version"), obj("sy_coin"), pure("pt_value", "u64"), pure("min_lp_out", "u64"),
			obj("price_voucher"), obj("py_position"), obj("py_state"), obj("market_factory_config"),
			obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("lp_position")},
	}
	SeedLiquidity = EntryPoint{
		Name: "seed-liquidity", Module: "market", Function: "seed_liquidity",
		Params: []Param{
			obj("version"), obj("sy_coin"), pure("min_lp_out", "u64"), obj("price_voucher"),
			obj("py_position"), obj("py_state"), obj("yield_factory_config"), obj("market_factory_config"),
			obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("lp_position")},
	}
	MintLP = EntryPoint{
		Name: "mint-lp", Module: "market", Function: "mint_lp",
		Params: []Param{
			obj("version"), obj("sy_coin"), pure("pt_amount", "u64"), pure("min_lp_out", "u64"),
			obj("price_voucher"), obj("py_position"), obj("py_state"), obj("market_factory_config"),
			obj("market_state"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_remainder"), objOut("lp_position")},
	}
	BurnLP = EntryPoint{
		Name: "burn-lp", Module: "market", Function: "burn_lp",
		Params: []Param{
			obj("version"), pure("lp_amount", "u64"), pure("min_sy_out", "u64"), obj("price_voucher"), obj("py_position"),
			obj("py_state"), obj("market_factory_config"), obj("market_state"), obj("lp_position"), obj("clock"),
		},
		TypeParams: 1,
		Outputs:    []Output{objOut("sy_coin")},
	}
	JoinLPPositions = EntryPoint{
		Name: "join-lp-positions", Module: "market", Function: "join_lp_position",
		Params:     []Param{obj("market_state"), obj("lp_position"), obj("other")},
		TypeParams: 1,
	}
	ClaimReward = EntryPoint{
		Name: "claim-reward", Module: "market", Function: "claim_reward",
		Params:     []Param{obj("version"), obj("market_state"), obj("lp_position"), obj("clock")},
		TypeParams: 2,
		Outputs:    []Output{objOut("reward_coin")},
	}
)

// Events emitted by market calls and the fields the client reads.
const (
	EventLiquidityAdded  = "market::LiquidityAdded"
	EventLiquiditySeeded = "market::LiquiditySeeded"
	EventLiquidityMinted = "market::LiquidityMinted"
	EventLiquidityBurned = "market::LiquidityBurned"
	EventSwapped         = "market::Swapped"
	EventPyRedeemed      = "yield_factory::PyRedeemed"
)

var registry = func() map[string]EntryPoint {
	all := []EntryPoint{
		RequestPriceTicket, GetPriceVoucher, PositionInit, DepositForWrapper, RedeemWrapper,
		MintPrincipalAndYield, RedeemPrincipalAndYield, ClaimInterest, SwapExactInForPrincipal,
		SwapExactInForYield, SwapExactPrincipalForWrapper, SwapExactYieldForWrapper,
		PtOutForExactWrapperIn, YtOutForExactWrapperIn, PyOutForExactWrapperIn, AddLiquiditySingleSided, SeedLiquidity, MintLP, BurnLP,
		JoinLPPositions, ClaimReward,
	}
	out := make(map[string]EntryPoint, len(all))
	for _, ep := range all {
		out[ep.Name] = ep
	}
	return out
}()

// Lookup returns a registered entry point by name.
func Lookup(name string) (EntryPoint, bool) {
	ep, ok := registry[name]
	return ep, ok
}

// Names lists the registered entry points in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
