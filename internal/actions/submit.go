package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"yieldScope/internal/txb"
)

var ErrNoSigner = errors.New("no signer configured")

// Submit signs intent and sends it for execution. The pool's cached metrics
// are dropped once the ledger has seen the attempt, whether or not it
// succeeded.
func (e *Engine) Submit(ctx context.Context, poolID string, intent *txb.Intent, signer Signer) (string, error) {
	pool, err := e.pool(poolID)
	if err != nil {
		return "", err
	}
	if signer == nil {
		return "", ErrNoSigner
	}
	if intent == nil {
		return "", errors.New("submit: nil intent")
	}
	if intent.Sender != e.sender {
		return "", fmt.Errorf("submit: intent sender %s is not %s", intent.Sender, e.sender)
	}
	payload, err := intent.Bytes()
	if err != nil {
		return "", fmt.Errorf("encode intent: %w", err)
	}
	signature, err := signer.Sign(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("sign intent: %w", err)
	}

	digest, err := e.ledger.Submit(ctx, payload, signature)
	e.cache.Invalidate(pool.ID)
	if err != nil {
		e.logger.Warn("submit failed", zap.String("pool", pool.ID), zap.Error(err))
		return "", fmt.Errorf("submit intent: %w", err)
	}
	e.logger.Info("intent submitted",
		zap.String("pool", pool.ID),
		zap.String("digest", digest),
		zap.Int("steps", len(intent.Commands)),
	)
	return digest, nil
}
