package domain

import "errors"

var (
	// ErrDepositNotFound is returned by store lookups that find no matching row.
	ErrDepositNotFound = errors.New("deposit not found")

	// ErrStreamingUnavailable indicates a chain has no usable streaming client,
	// so the Event Ingestor must fall back to HTTP polling.
	ErrStreamingUnavailable = errors.New("streaming client unavailable for chain")

	// ErrChainNotRegistered indicates a lookup against the Chain Client
	// Registry for a chain name it never configured.
	ErrChainNotRegistered = errors.New("chain not registered")

	// ErrBootstrapFailed indicates no chain in the configuration produced a
	// usable request/response client, leaving the engine nothing to run.
	ErrBootstrapFailed = errors.New("no chain clients could be constructed")
)
