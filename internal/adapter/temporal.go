package adapter

import (
	"context"

	"go.temporal.io/sdk/activity"
)

// Activity reads Temporal execution state from inside a running activity.
// Activities use it to learn their attempt number for retry-aware logging.
//
//go:generate mockgen -source=temporal.go -destination=../mocks/temporal.go -package=mocks -mock_names=Activity=MockActivity
type Activity interface {
	GetInfo(ctx context.Context) activity.Info
}

// RealActivity delegates to the activity package
type RealActivity struct{}

// NewActivity returns the sdk backed implementation
func NewActivity() Activity {
	return &RealActivity{}
}

func (a *RealActivity) GetInfo(ctx context.Context) activity.Info {
	return activity.GetInfo(ctx)
}
