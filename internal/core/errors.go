package core

import "errors"

var (
	// ErrMailboxClosed is returned when sending to a mailbox whose consumer is gone
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrMailboxFull is returned when a capped mailbox cannot accept more messages
	ErrMailboxFull = errors.New("mailbox full")

	// ErrDispatcherStopped is returned for requests made after shutdown was signalled
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrUnknownTarget is returned when a target id does not name a live target
	ErrUnknownTarget = errors.New("unknown target")
)
