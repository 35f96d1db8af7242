package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/dynabridge/dynabridge/pkg/observability/logger"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ClosedAdapterAlwaysFailsHealthCheck(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("closed adapter always fails healthcheck", prop.ForAll(
		func() bool {
			a := &Adapter{closed: true, logger: logger.Nop()}
			return a.HealthCheck(context.Background()) != nil
		},
	))

	properties.TestingRun(t)
}

func TestProperty_OperationTimeoutNeverExceedsConfigured(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("derived deadline stays within configured timeout", prop.ForAll(
		func(millis int) bool {
			a := &Adapter{timeout: time.Duration(millis) * time.Millisecond}
			ctx, cancel := a.withOperationTimeout(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			if !ok {
				return false
			}
			return time.Until(deadline) <= a.timeout
		},
		gen.IntRange(1, 5000),
	))

	properties.TestingRun(t)
}
