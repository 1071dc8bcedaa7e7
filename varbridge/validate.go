// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varbridge

import (
	"context"
	"fmt"

	"github.com/varbridge-foundation/varbridge/lib/value"
	"github.com/varbridge-foundation/varbridge/lib/wire"
	"github.com/varbridge-foundation/varbridge/varserver"
)

// ValidateStart retrieves the pending validation request announced by
// a validate event: the variable under validation and its candidate
// new value, correlated by transaction id. A transaction id not
// currently pending on the server yields not-found and never blocks.
func (b *Bridge) ValidateStart(ctx context.Context, transactionID uint32) (wire.Handle, value.Value, error) {
	conn, err := b.ensureConn(ctx)
	if err != nil {
		return wire.InvalidHandle, value.Value{}, err
	}
	handle, candidate, err := conn.FetchValidationRequest(ctx, transactionID)
	if err != nil {
		return wire.InvalidHandle, value.Value{}, err
	}

	b.mu.Lock()
	b.pending[transactionID] = handle
	b.mu.Unlock()
	return handle, candidate, nil
}

// ValidateEnd sends the verdict for an open validation transaction and
// retires it. A transaction that was never started here, or was
// already ended, fails with a protocol violation before any server
// round trip; unrelated transactions are untouched either way. The
// transaction is retired on the first end even if the server round
// trip then fails.
func (b *Bridge) ValidateEnd(ctx context.Context, transactionID uint32, accept bool) error {
	b.mu.Lock()
	if _, open := b.pending[transactionID]; !open {
		b.mu.Unlock()
		return &varserver.ServerError{
			Code:    wire.CodeProtocolViolation,
			Message: fmt.Sprintf("validation transaction %d is not open", transactionID),
		}
	}
	delete(b.pending, transactionID)
	b.mu.Unlock()

	conn, err := b.ensureConn(ctx)
	if err != nil {
		return err
	}
	return conn.SendValidationResponse(ctx, transactionID, accept)
}
