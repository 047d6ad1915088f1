// AngelaMos | 2026
// backend.go

package gateway

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/metrics"
	"github.com/carterperez-dev/usergate/internal/user"
)

const (
	tracerName      = "usergate/gateway"
	upstreamName    = "user service"
	resourceName    = "user"
	transportGRPC   = "grpc"
	transportREST   = "rest"
	operationList   = "list"
	operationGet    = "get"
	operationCreate = "create"
	operationUpdate = "update"
	operationDelete = "delete"
)

// Backend is the gateway's view of the user service. Errors are always
// *core.AppError values safe to show to clients: upstream NotFound,
// Conflict and validation failures keep their class, and anything else
// becomes core.ErrUpstreamUnavailable.
type Backend interface {
	List(ctx context.Context) ([]user.UserResponse, error)
	Get(ctx context.Context, id string) (*user.UserResponse, error)
	Create(ctx context.Context, req user.CreateUserRequest) (*user.UserResponse, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (*user.UserResponse, error)
	Delete(ctx context.Context, id string) error
}

// observe runs one upstream call inside a span and records its outcome.
func observe(
	ctx context.Context,
	transport, operation string,
	fn func(ctx context.Context) error,
) error {
	ctx, span := core.StartSpan(ctx, tracerName, "userservice."+operation,
		attribute.String("rpc.transport", transport),
		attribute.String("rpc.method", operation),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
	}

	metrics.ObserveUpstream(transport, operation, err)
	return err
}
