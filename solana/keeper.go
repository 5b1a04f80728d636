package dareme_protocol

import (
	"context"
	"fmt"
	"time"
)

// Expirable reports whether expire_dare would succeed against d at now.
func Expirable(d *Dare, now int64) bool {
	switch d.Status {
	case DareStatus_Created, DareStatus_Active, DareStatus_ProofSubmitted, DareStatus_Rejected:
		return now > d.Deadline
	}
	return false
}

// FetchExpirableDares lists dares whose deadline has passed while funds are still escrowed.
func (c *Client) FetchExpirableDares(ctx context.Context) ([]*DareResult, error) {
	dares, err := c.FetchAllDares(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	var expirable []*DareResult
	for _, d := range dares {
		if Expirable(&d.Account, now) {
			expirable = append(expirable, d)
		}
	}
	return expirable, nil
}

// ExpireAll sends expire_dare for every expirable dare and returns the signatures.
// It keeps going after individual failures and reports the first one.
func (c *Client) ExpireAll(ctx context.Context) (map[string]string, error) {
	dares, err := c.FetchExpirableDares(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list expirable dares: %w", err)
	}

	sent := make(map[string]string, len(dares))
	var firstErr error
	for _, d := range dares {
		sig, err := c.ExpireDare(ctx, d.PublicKey)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to expire dare %s: %w", d.PublicKey, err)
			}
			continue
		}
		sent[d.PublicKey.String()] = sig.String()
	}
	return sent, firstErr
}
