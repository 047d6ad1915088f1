// AngelaMos | 2026
// grpc_backend.go

package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/user"
	"github.com/carterperez-dev/usergate/internal/usergrpc"
)

// GRPCBackend calls the user service over gRPC. Calls are never retried; a
// failure reaches the caller on the first attempt.
type GRPCBackend struct {
	client usergrpc.UserServiceClient
	conn   *grpc.ClientConn
	logger *slog.Logger
}

func DialGRPCBackend(addr string, logger *slog.Logger) (*GRPCBackend, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		usergrpc.WithJSONCodec(),
		grpc.WithChainUnaryInterceptor(usergrpc.UnaryClientTracingInterceptor()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial user service: %w", err)
	}

	b := NewGRPCBackend(usergrpc.NewUserServiceClient(conn), logger)
	b.conn = conn
	return b, nil
}

func NewGRPCBackend(client usergrpc.UserServiceClient, logger *slog.Logger) *GRPCBackend {
	return &GRPCBackend{client: client, logger: logger}
}

func (b *GRPCBackend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *GRPCBackend) List(ctx context.Context) ([]user.UserResponse, error) {
	var out []user.UserResponse

	err := observe(ctx, transportGRPC, operationList, func(ctx context.Context) error {
		resp, err := b.client.ListUsers(ctx, &usergrpc.ListUsersRequest{})
		if err != nil {
			return b.classify(operationList, err)
		}

		out = make([]user.UserResponse, 0, len(resp.Users))
		for _, wire := range resp.Users {
			u, err := b.decode(operationList, wire)
			if err != nil {
				return err
			}
			out = append(out, *u)
		}
		return nil
	})

	return out, err
}

func (b *GRPCBackend) Get(ctx context.Context, id string) (*user.UserResponse, error) {
	var out *user.UserResponse

	err := observe(ctx, transportGRPC, operationGet, func(ctx context.Context) error {
		wire, err := b.client.GetUser(ctx, &usergrpc.GetUserRequest{ID: id})
		if err != nil {
			return b.classify(operationGet, err)
		}
		out, err = b.decode(operationGet, wire)
		return err
	})

	return out, err
}

func (b *GRPCBackend) Create(
	ctx context.Context,
	req user.CreateUserRequest,
) (*user.UserResponse, error) {
	var out *user.UserResponse

	err := observe(ctx, transportGRPC, operationCreate, func(ctx context.Context) error {
		wire, err := b.client.CreateUser(ctx, usergrpc.EncodeCreateRequest(req))
		if err != nil {
			return b.classify(operationCreate, err)
		}
		out, err = b.decode(operationCreate, wire)
		return err
	})

	return out, err
}

func (b *GRPCBackend) Update(
	ctx context.Context,
	id string,
	req user.UpdateUserRequest,
) (*user.UserResponse, error) {
	var out *user.UserResponse

	err := observe(ctx, transportGRPC, operationUpdate, func(ctx context.Context) error {
		wire, err := b.client.UpdateUser(ctx, usergrpc.EncodeUpdateRequest(id, req))
		if err != nil {
			return b.classify(operationUpdate, err)
		}
		out, err = b.decode(operationUpdate, wire)
		return err
	})

	return out, err
}

func (b *GRPCBackend) Delete(ctx context.Context, id string) error {
	return observe(ctx, transportGRPC, operationDelete, func(ctx context.Context) error {
		if _, err := b.client.DeleteUser(ctx, &usergrpc.DeleteUserRequest{ID: id}); err != nil {
			return b.classify(operationDelete, err)
		}
		return nil
	})
}

func (b *GRPCBackend) decode(operation string, wire *usergrpc.User) (*user.UserResponse, error) {
	u, err := usergrpc.DecodeUser(wire)
	if err != nil {
		b.logger.Error("user service returned malformed user",
			"operation", operation,
			"error", err,
		)
		return nil, core.UpstreamError(upstreamName)
	}
	return &u, nil
}

func (b *GRPCBackend) classify(operation string, err error) error {
	st := status.Convert(err)

	switch st.Code() {
	case codes.NotFound:
		return core.NotFoundError(resourceName)
	case codes.AlreadyExists:
		return core.ConflictError(st.Message())
	case codes.InvalidArgument:
		return core.ValidationError(st.Message())
	default:
		b.logger.Error("user service call failed",
			"transport", transportGRPC,
			"operation", operation,
			"code", st.Code().String(),
			"error", err,
		)
		return core.UpstreamError(upstreamName)
	}
}

var _ Backend = (*GRPCBackend)(nil)
