package temporal

import (
	"context"

	"github.com/getsentry/sentry-go"
	"go.temporal.io/sdk/interceptor"
)

// NewSentryActivityInterceptor builds the worker interceptor that seeds
// each activity context with its own Sentry hub
func NewSentryActivityInterceptor() interceptor.WorkerInterceptor {
	return &SentryActivityInterceptor{
		WorkerInterceptorBase: interceptor.WorkerInterceptorBase{},
	}
}

// SentryActivityInterceptor attaches a Sentry hub per activity execution
// so logger.ErrorCtx inside activities reports with activity scope
type SentryActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (s *SentryActivityInterceptor) InterceptActivity(ctx context.Context, next interceptor.ActivityInboundInterceptor) interceptor.ActivityInboundInterceptor {
	return &sentryActivityInboundInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{
			Next: next,
		},
	}
}

type sentryActivityInboundInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
}

func (s *sentryActivityInboundInterceptor) ExecuteActivity(ctx context.Context, in *interceptor.ExecuteActivityInput) (interface{}, error) {
	// Clone so concurrent activities never share breadcrumb state
	hub := sentry.CurrentHub().Clone()
	ctx = sentry.SetHubOnContext(ctx, hub)

	return s.Next.ExecuteActivity(ctx, in)
}
