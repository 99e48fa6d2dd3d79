package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/actions"
	"yieldScope/internal/amount"
	"yieldScope/internal/model"
	"yieldScope/internal/simulate"
)

// Engine is the action surface the handlers call. *actions.Engine
// satisfies it.
type Engine interface {
	Pools() []model.PoolDescriptor
	Metrics(ctx context.Context, poolID string, quote model.MarketQuote) (model.PoolMetrics, error)
	PreviewAddLiquidity(ctx context.Context, req actions.AddRequest) (simulate.Result[actions.AddPreview], error)
	PreviewMint(ctx context.Context, req actions.MintRequest) (simulate.Result[actions.MintPreview], error)
	PreviewRemoveLiquidity(ctx context.Context, req actions.RemoveRequest) (simulate.Result[actions.RemovePreview], error)
	PreviewRedeem(ctx context.Context, req actions.RedeemRequest) (simulate.Result[actions.RedeemPreview], error)
	PreviewSwap(ctx context.Context, req actions.SwapRequest) (simulate.Result[actions.SwapPreview], error)
}

// Handlers contains the dependencies of the API endpoints.
type Handlers struct {
	Engine   Engine
	Quotes   map[string]model.MarketQuote // market data per pool id
	Slippage decimal.Decimal              // default tolerance in percent
	Timeout  time.Duration
	DevMode  bool // include call graphs in error responses
	Logger   *zap.Logger
}

func (h *Handlers) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout bounds a request, defaulting to 60 seconds.
func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 60 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) Pools(c echo.Context) error {
	pools := h.Engine.Pools()
	if pools == nil {
		pools = []model.PoolDescriptor{}
	}
	return c.JSON(http.StatusOK, pools)
}

func (h *Handlers) Metrics(c echo.Context) error {
	pool, ok := h.lookup(c.Param("id"))
	if !ok {
		return h.err(c, http.StatusNotFound, "unknown pool", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	m, err := h.Engine.Metrics(ctx, pool.ID, h.Quotes[pool.ID])
	if err != nil {
		return h.fail(c, "metrics", err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handlers) PreviewAdd(c echo.Context) error {
	var body AddRequest
	pool, err := h.bindPool(c, &body)
	if err != nil {
		return err
	}
	req := actions.AddRequest{PoolID: pool.ID, Coins: body.Coins, PreferMint: body.PreferMint}
	if req.Amount, err = parseAmount(body.Amount, pool.Decimals); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", err.Error())
	}
	if req.SlippagePct, err = h.tolerance(body.Slippage); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid slippage", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	res, err := h.Engine.PreviewAddLiquidity(ctx, req)
	if err != nil {
		return h.fail(c, "add liquidity", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) PreviewMint(c echo.Context) error {
	var body MintRequest
	pool, err := h.bindPool(c, &body)
	if err != nil {
		return err
	}
	req := actions.MintRequest{PoolID: pool.ID, Coins: body.Coins}
	if req.Amount, err = parseAmount(body.Amount, pool.Decimals); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	res, err := h.Engine.PreviewMint(ctx, req)
	if err != nil {
		return h.fail(c, "mint", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) PreviewRemove(c echo.Context) error {
	var body RemoveRequest
	pool, err := h.bindPool(c, &body)
	if err != nil {
		return err
	}
	req := actions.RemoveRequest{PoolID: pool.ID, LpAmount: amount.Zero(pool.Decimals), ToUnderlying: body.ToUnderlying}
	if body.LpAmount != "" {
		if req.LpAmount, err = parseAmount(body.LpAmount, pool.Decimals); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid lp_amount", err.Error())
		}
	}
	if req.SlippagePct, err = h.tolerance(body.Slippage); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid slippage", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	res, err := h.Engine.PreviewRemoveLiquidity(ctx, req)
	if err != nil {
		return h.fail(c, "remove liquidity", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) PreviewRedeem(c echo.Context) error {
	var body RedeemRequest
	pool, err := h.bindPool(c, &body)
	if err != nil {
		return err
	}
	req := actions.RedeemRequest{
		PoolID:       pool.ID,
		PtAmount:     amount.Zero(pool.Decimals),
		YtAmount:     amount.Zero(pool.Decimals),
		ToUnderlying: body.ToUnderlying,
	}
	if body.PtAmount != "" {
		if req.PtAmount, err = parseAmount(body.PtAmount, pool.Decimals); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid pt_amount", err.Error())
		}
	}
	if body.YtAmount != "" {
		if req.YtAmount, err = parseAmount(body.YtAmount, pool.Decimals); err != nil {
			return h.err(c, http.StatusBadRequest, "invalid yt_amount", err.Error())
		}
	}
	if req.SlippagePct, err = h.tolerance(body.Slippage); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid slippage", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	res, err := h.Engine.PreviewRedeem(ctx, req)
	if err != nil {
		return h.fail(c, "redeem", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) PreviewSwap(c echo.Context) error {
	var body SwapRequest
	pool, err := h.bindPool(c, &body)
	if err != nil {
		return err
	}
	side, err := actions.ParseSide(body.Side)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid side", err.Error())
	}
	req := actions.SwapRequest{PoolID: pool.ID, Side: side, Coins: body.Coins, ToUnderlying: body.ToUnderlying}
	if req.Amount, err = parseAmount(body.Amount, pool.Decimals); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", err.Error())
	}
	if req.SlippagePct, err = h.tolerance(body.Slippage); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid slippage", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	res, err := h.Engine.PreviewSwap(ctx, req)
	if err != nil {
		return h.fail(c, "swap", err)
	}
	return c.JSON(http.StatusOK, res)
}

// bindPool resolves the :id path parameter and decodes the JSON body. The
// returned error is already a written response.
func (h *Handlers) bindPool(c echo.Context, body any) (model.PoolDescriptor, error) {
	pool, ok := h.lookup(c.Param("id"))
	if !ok {
		return pool, h.errOrNil(h.err(c, http.StatusNotFound, "unknown pool", nil))
	}
	if err := c.Bind(body); err != nil {
		return pool, h.errOrNil(h.err(c, http.StatusBadRequest, "invalid json", nil))
	}
	return pool, nil
}

// errOrNil turns a written response into a sentinel so callers stop.
func (h *Handlers) errOrNil(err error) error {
	if err != nil {
		return err
	}
	return errResponded
}

func (h *Handlers) lookup(id string) (model.PoolDescriptor, bool) {
	for _, p := range h.Engine.Pools() {
		if p.ID == id {
			return p, true
		}
	}
	return model.PoolDescriptor{}, false
}

func (h *Handlers) tolerance(s string) (decimal.Decimal, error) {
	if s == "" {
		return h.Slippage, nil
	}
	return decimal.NewFromString(s)
}

func parseAmount(s string, decimals uint8) (amount.Quantity, error) {
	return amount.Parse(s, decimals)
}
