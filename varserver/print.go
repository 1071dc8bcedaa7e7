// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/varbridge-foundation/varbridge/lib/wire"
)

// OpenPrintChannel resolves a pending print request by transaction id
// and returns the handle of the variable to render together with the
// server-provided descriptor to render it into. The descriptor
// arrives out-of-band (SCM_RIGHTS) immediately after the response
// frame; it is exclusively owned by the caller until closed.
func (c *Conn) OpenPrintChannel(ctx context.Context, transactionID uint32) (wire.Handle, *os.File, error) {
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:            wire.OpPrintOpen,
		TransactionID: transactionID,
	})
	if err != nil {
		return wire.InvalidHandle, nil, err
	}
	if err := responseError(response); err != nil {
		return wire.InvalidHandle, nil, fmt.Errorf("print %d: %w", transactionID, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	file, err := c.receiveFile()
	if err != nil {
		return wire.InvalidHandle, nil, fmt.Errorf("print %d: %w", transactionID, err)
	}
	return response.Handle, file, nil
}

// ClosePrintChannel informs the server that the rendering channel for
// the transaction is finished. The caller must have released its copy
// of the descriptor first — local release is never conditional on
// this call succeeding.
func (c *Conn) ClosePrintChannel(ctx context.Context, transactionID uint32) error {
	response, err := c.roundTrip(ctx, &wire.Request{
		Op:            wire.OpPrintClose,
		TransactionID: transactionID,
	})
	if err != nil {
		return err
	}
	if err := responseError(response); err != nil {
		return fmt.Errorf("print %d close: %w", transactionID, err)
	}
	return nil
}

// receiveFile reads the single-byte descriptor-transfer message and
// extracts the passed file descriptor from its control message. Any
// malformed transfer breaks the connection: the stream position after
// a partial control message is not recoverable.
func (c *Conn) receiveFile() (*os.File, error) {
	payload := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	_, oobn, _, _, err := c.conn.ReadMsgUnix(payload, oob)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: receiving descriptor: %v", ErrServerUnavailable, err)
	}

	messages, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: parsing descriptor control message: %v", ErrServerUnavailable, err)
	}
	if len(messages) != 1 {
		c.fail()
		return nil, fmt.Errorf("%w: expected 1 control message, got %d", ErrServerUnavailable, len(messages))
	}

	descriptors, err := unix.ParseUnixRights(&messages[0])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("%w: parsing descriptor rights: %v", ErrServerUnavailable, err)
	}
	if len(descriptors) != 1 {
		for _, descriptor := range descriptors {
			unix.Close(descriptor)
		}
		c.fail()
		return nil, fmt.Errorf("%w: expected 1 descriptor, got %d", ErrServerUnavailable, len(descriptors))
	}

	// The received descriptor does not inherit CLOEXEC; set it so
	// print descriptors never leak into spawned processes.
	unix.CloseOnExec(descriptors[0])
	return os.NewFile(uintptr(descriptors[0]), "varserver-print"), nil
}
