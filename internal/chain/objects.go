package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"yieldScope/internal/amount"
	"yieldScope/internal/codec"
	"yieldScope/internal/model"
)

const fieldsPath = "data.content.fields"

var contentOptions = map[string]bool{"showContent": true, "showType": true}

// PoolState reads the market and PY state objects of a pool in one batch.
func (c *Client) PoolState(ctx context.Context, pool model.PoolDescriptor) (model.PoolState, error) {
	var market, py json.RawMessage
	batch := []rpc.BatchElem{
		{Method: c.methods.GetObject, Args: []any{pool.Objects.MarketState, contentOptions}, Result: &market},
		{Method: c.methods.GetObject, Args: []any{pool.Objects.PyState, contentOptions}, Result: &py},
	}
	err := c.withRetry(ctx, "pool state", func(ctx context.Context) error {
		if err := c.rpcClient.BatchCallContext(ctx, batch); err != nil {
			return classify(ctx, c.methods.GetObject, err)
		}
		for _, elem := range batch {
			if elem.Error != nil {
				return classify(ctx, c.methods.GetObject, elem.Error)
			}
		}
		return nil
	})
	if err != nil {
		return model.PoolState{}, fmt.Errorf("read pool %s: %w", pool.ID, err)
	}

	state, err := parsePoolState(pool, market, py)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("read pool %s: %w", pool.ID, err)
	}
	state.FetchedAt = time.Now().UTC()
	c.logger.Debug("pool state read",
		zap.String("pool", pool.ID),
		zap.String("total_sy", state.TotalSy.String()),
		zap.String("total_pt", state.TotalPt.String()),
		zap.String("lp_supply", state.LpSupply.String()),
	)
	return state, nil
}

func parsePoolState(pool model.PoolDescriptor, marketRaw, pyRaw json.RawMessage) (model.PoolState, error) {
	market := gjson.GetBytes(marketRaw, fieldsPath)
	if !market.Exists() {
		return model.PoolState{}, fmt.Errorf("market state %s has no content", pool.Objects.MarketState)
	}
	py := gjson.GetBytes(pyRaw, fieldsPath)
	if !py.Exists() {
		return model.PoolState{}, fmt.Errorf("py state %s has no content", pool.Objects.PyState)
	}

	state := model.PoolState{PoolID: pool.ID}
	var err error
	if state.TotalSy, err = quantityField(market, "total_sy", pool.Decimals); err != nil {
		return state, err
	}
	if state.TotalPt, err = quantityField(market, "total_pt", pool.Decimals); err != nil {
		return state, err
	}
	if state.LpSupply, err = quantityField(market, "lp_supply", pool.Decimals); err != nil {
		return state, err
	}
	if state.Capacity, err = optionalQuantityField(market, "capacity", pool.Decimals); err != nil {
		return state, err
	}
	if state.LpFeesAccrued, err = optionalQuantityField(market, "lp_fees_accrued", pool.Decimals); err != nil {
		return state, err
	}
	index, err := bigField(py, "py_index")
	if err != nil {
		return state, err
	}
	state.PyIndex = amount.FromFixed64(index)

	for i, item := range market.Get("reward_pools").Array() {
		stream, err := parseRewardStream(item, pool.Decimals)
		if err != nil {
			return state, fmt.Errorf("reward pool %d: %w", i, err)
		}
		state.Rewards = append(state.Rewards, stream)
	}
	return state, nil
}

func parseRewardStream(item gjson.Result, poolDecimals uint8) (model.RewardStream, error) {
	fields := item
	if f := item.Get("fields"); f.Exists() {
		fields = f
	}
	decimals := poolDecimals
	if d := fields.Get("decimals"); d.Exists() {
		decimals = uint8(d.Uint())
	}
	emission, err := quantityField(fields, "emission_per_second", decimals)
	if err != nil {
		return model.RewardStream{}, err
	}
	return model.RewardStream{
		TokenType:         fields.Get("token_type").String(),
		EmissionPerSecond: emission,
		StartMs:           fields.Get("start_ms").Int(),
		EndMs:             fields.Get("end_ms").Int(),
	}, nil
}

// PyPositions returns owner's PT/YT positions for pool.
func (c *Client) PyPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.PyPosition, error) {
	items, err := c.ownedObjects(ctx, owner, pool.Types.PyPosition)
	if err != nil {
		return nil, fmt.Errorf("read py positions: %w", err)
	}
	pyState := codec.NormalizeHex(pool.Objects.PyState)
	out := make([]model.PyPosition, 0, len(items))
	for _, item := range items {
		fields := item.Get("content.fields")
		if codec.NormalizeHex(fields.Get("py_state_id").String()) != pyState {
			continue
		}
		pt, err := quantityField(fields, "pt_balance", pool.Decimals)
		if err != nil {
			return nil, fmt.Errorf("py position %s: %w", item.Get("objectId").String(), err)
		}
		yt, err := quantityField(fields, "yt_balance", pool.Decimals)
		if err != nil {
			return nil, fmt.Errorf("py position %s: %w", item.Get("objectId").String(), err)
		}
		interest, err := optionalQuantityField(fields, "accrued_interest", pool.Decimals)
		if err != nil {
			return nil, fmt.Errorf("py position %s: %w", item.Get("objectId").String(), err)
		}
		out = append(out, model.PyPosition{
			ID:                codec.NormalizeHex(item.Get("objectId").String()),
			PoolID:            pool.ID,
			MaturityMs:        fields.Get("expiry").Int(),
			PtBalance:         pt,
			YtBalance:         yt,
			UnclaimedInterest: interest.Sign() > 0,
		})
	}
	return out, nil
}

// LPPositions returns owner's LP positions for pool.
func (c *Client) LPPositions(ctx context.Context, owner string, pool model.PoolDescriptor) ([]model.LPPosition, error) {
	items, err := c.ownedObjects(ctx, owner, pool.Types.LpPosition)
	if err != nil {
		return nil, fmt.Errorf("read lp positions: %w", err)
	}
	marketState := codec.NormalizeHex(pool.Objects.MarketState)
	out := make([]model.LPPosition, 0, len(items))
	for _, item := range items {
		fields := item.Get("content.fields")
		if codec.NormalizeHex(fields.Get("market_state_id").String()) != marketState {
			continue
		}
		lp, err := quantityField(fields, "lp_amount", pool.Decimals)
		if err != nil {
			return nil, fmt.Errorf("lp position %s: %w", item.Get("objectId").String(), err)
		}
		var rewards []string
		for _, r := range fields.Get("rewards").Array() {
			if r.Get("amount").String() != "0" {
				rewards = append(rewards, r.Get("token_type").String())
			}
		}
		out = append(out, model.LPPosition{
			ID:               codec.NormalizeHex(item.Get("objectId").String()),
			PoolID:           pool.ID,
			MaturityMs:       fields.Get("expiry").Int(),
			LpAmount:         lp,
			UnclaimedRewards: rewards,
		})
	}
	return out, nil
}

// maxOwnedPages bounds cursor paging of owned objects.
const maxOwnedPages = 100

// ownedObjects reads every page of owner's objects of structType.
func (c *Client) ownedObjects(ctx context.Context, owner, structType string) ([]gjson.Result, error) {
	if structType == "" {
		return nil, fmt.Errorf("position type not configured")
	}
	query := map[string]any{
		"filter":  map[string]string{"StructType": structType},
		"options": contentOptions,
	}
	var (
		items  []gjson.Result
		cursor *string
	)
	for page := 0; page < maxOwnedPages; page++ {
		var raw json.RawMessage
		err := c.withRetry(ctx, "owned objects", func(ctx context.Context) error {
			return c.call(ctx, &raw, c.methods.OwnedObjects, owner, query, cursor)
		})
		if err != nil {
			return nil, err
		}
		res := gjson.ParseBytes(raw)
		items = append(items, res.Get("data.#.data").Array()...)

		next := res.Get("nextCursor").String()
		if !res.Get("hasNextPage").Bool() || next == "" {
			return items, nil
		}
		if cursor != nil && *cursor == next {
			return nil, fmt.Errorf("owned objects: cursor %s did not advance", next)
		}
		cursor = &next
	}
	return nil, fmt.Errorf("owned objects: more than %d pages", maxOwnedPages)
}

func bigField(fields gjson.Result, name string) (*big.Int, error) {
	v := fields.Get(name)
	if !v.Exists() {
		return nil, fmt.Errorf("missing field %s", name)
	}
	n, ok := new(big.Int).SetString(v.String(), 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid field %s: %q", name, v.String())
	}
	return n, nil
}

func quantityField(fields gjson.Result, name string, decimals uint8) (amount.Quantity, error) {
	n, err := bigField(fields, name)
	if err != nil {
		return amount.Quantity{}, err
	}
	return amount.FromBaseUnits(n, decimals), nil
}

func optionalQuantityField(fields gjson.Result, name string, decimals uint8) (amount.Quantity, error) {
	if !fields.Get(name).Exists() {
		return amount.Zero(decimals), nil
	}
	return quantityField(fields, name, decimals)
}
