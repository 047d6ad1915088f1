// AngelaMos | 2026
// service.go

package usergrpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "users.UserService"

const (
	MethodCreateUser = "/" + ServiceName + "/CreateUser"
	MethodGetUser    = "/" + ServiceName + "/GetUser"
	MethodUpdateUser = "/" + ServiceName + "/UpdateUser"
	MethodDeleteUser = "/" + ServiceName + "/DeleteUser"
	MethodListUsers  = "/" + ServiceName + "/ListUsers"
)

type UserServiceServer interface {
	CreateUser(context.Context, *CreateUserRequest) (*User, error)
	GetUser(context.Context, *GetUserRequest) (*User, error)
	UpdateUser(context.Context, *UpdateUserRequest) (*User, error)
	DeleteUser(context.Context, *DeleteUserRequest) (*DeleteUserResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserServiceDesc, srv)
}

var UserServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateUser",
			Handler:    unaryHandler(MethodCreateUser, UserServiceServer.CreateUser),
		},
		{
			MethodName: "GetUser",
			Handler:    unaryHandler(MethodGetUser, UserServiceServer.GetUser),
		},
		{
			MethodName: "UpdateUser",
			Handler:    unaryHandler(MethodUpdateUser, UserServiceServer.UpdateUser),
		},
		{
			MethodName: "DeleteUser",
			Handler:    unaryHandler(MethodDeleteUser, UserServiceServer.DeleteUser),
		},
		{
			MethodName: "ListUsers",
			Handler:    unaryHandler(MethodListUsers, UserServiceServer.ListUsers),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "users.proto",
}

func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(UserServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(
		srv any,
		ctx context.Context,
		dec func(any) error,
		interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(UserServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(UserServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type UserServiceClient interface {
	CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*User, error)
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*User, error)
	UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*User, error)
	DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error)
}

type userServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewUserServiceClient(cc grpc.ClientConnInterface) UserServiceClient {
	return &userServiceClient{cc: cc}
}

func (c *userServiceClient) CreateUser(
	ctx context.Context,
	in *CreateUserRequest,
	opts ...grpc.CallOption,
) (*User, error) {
	out := new(User)
	if err := c.invoke(ctx, MethodCreateUser, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) GetUser(
	ctx context.Context,
	in *GetUserRequest,
	opts ...grpc.CallOption,
) (*User, error) {
	out := new(User)
	if err := c.invoke(ctx, MethodGetUser, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) UpdateUser(
	ctx context.Context,
	in *UpdateUserRequest,
	opts ...grpc.CallOption,
) (*User, error) {
	out := new(User)
	if err := c.invoke(ctx, MethodUpdateUser, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) DeleteUser(
	ctx context.Context,
	in *DeleteUserRequest,
	opts ...grpc.CallOption,
) (*DeleteUserResponse, error) {
	out := new(DeleteUserResponse)
	if err := c.invoke(ctx, MethodDeleteUser, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) ListUsers(
	ctx context.Context,
	in *ListUsersRequest,
	opts ...grpc.CallOption,
) (*ListUsersResponse, error) {
	out := new(ListUsersResponse)
	if err := c.invoke(ctx, MethodListUsers, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) invoke(
	ctx context.Context,
	method string,
	in, out any,
	opts []grpc.CallOption,
) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
