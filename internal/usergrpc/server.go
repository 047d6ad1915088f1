// AngelaMos | 2026
// server.go

package usergrpc

import (
	"context"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/user"
)

const deletedMessage = "User deleted successfully"

// Server adapts user.Service to the gRPC surface. Input is normalized and
// validated here so the service only sees well-formed requests.
type Server struct {
	service *user.Service
	logger  *slog.Logger
}

func NewServer(service *user.Service, logger *slog.Logger) *Server {
	return &Server{service: service, logger: logger}
}

func (s *Server) CreateUser(
	ctx context.Context,
	in *CreateUserRequest,
) (*User, error) {
	req, err := DecodeCreateRequest(in)
	if err != nil {
		return nil, s.toStatus(err)
	}

	req.Normalize()
	if err := user.Validate(req); err != nil {
		return nil, s.toStatus(err)
	}

	u, err := s.service.CreateUser(ctx, req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return EncodeUser(u), nil
}

func (s *Server) GetUser(ctx context.Context, in *GetUserRequest) (*User, error) {
	u, err := s.service.GetUserByID(ctx, in.ID)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return EncodeUser(u), nil
}

func (s *Server) UpdateUser(
	ctx context.Context,
	in *UpdateUserRequest,
) (*User, error) {
	req, err := DecodeUpdateRequest(in)
	if err != nil {
		return nil, s.toStatus(err)
	}

	req.Normalize()
	if err := user.Validate(req); err != nil {
		return nil, s.toStatus(err)
	}

	u, err := s.service.UpdateUser(ctx, in.ID, req)
	if err != nil {
		return nil, s.toStatus(err)
	}

	return EncodeUser(u), nil
}

func (s *Server) DeleteUser(
	ctx context.Context,
	in *DeleteUserRequest,
) (*DeleteUserResponse, error) {
	if err := s.service.DeleteUser(ctx, in.ID); err != nil {
		return nil, s.toStatus(err)
	}

	return &DeleteUserResponse{Message: deletedMessage}, nil
}

func (s *Server) ListUsers(
	ctx context.Context,
	_ *ListUsersRequest,
) (*ListUsersResponse, error) {
	users, err := s.service.GetAllUsers(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}

	out := &ListUsersResponse{Users: make([]*User, 0, len(users))}
	for i := range users {
		out.Users = append(out.Users, EncodeUser(&users[i]))
	}

	return out, nil
}

func (s *Server) toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	appErr := core.Classify(err, "user")

	switch appErr.StatusCode {
	case http.StatusNotFound:
		return status.Error(codes.NotFound, appErr.Message)
	case http.StatusConflict:
		return status.Error(codes.AlreadyExists, appErr.Message)
	case http.StatusBadRequest:
		return status.Error(codes.InvalidArgument, appErr.Message)
	default:
		s.logger.Error("grpc request failed", "error", err)
		return status.Error(codes.Internal, "internal server error")
	}
}

var _ UserServiceServer = (*Server)(nil)
