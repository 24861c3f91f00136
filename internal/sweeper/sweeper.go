package sweeper

import (
	"context"
)

// Sweeper is a long-running background task that performs periodic
// maintenance over indexed state
//
//go:generate mockgen -source=sweeper.go -destination=../mocks/sweeper.go -package=mocks -mock_names=Sweeper=MockSweeper
type Sweeper interface {
	// Start runs the sweep loop and blocks until the context is canceled
	Start(ctx context.Context) error

	// Stop shuts the sweeper down, waiting for an in-progress sweep to finish
	Stop(ctx context.Context) error

	// Name identifies the sweeper in logs
	Name() string
}
