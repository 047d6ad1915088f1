// AngelaMos | 2026
// interceptors.go

package usergrpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/metrics"
)

const tracerName = "usergate/usergrpc"

// metadataCarrier adapts gRPC metadata to the otel propagation carrier.
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// UnaryTracingInterceptor continues the caller's trace and wraps the call
// in a server span.
func UnaryTracingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = core.ExtractTrace(ctx, metadataCarrier(md))
		}

		ctx, span := core.StartSpan(ctx, tracerName, info.FullMethod,
			attribute.String("rpc.system", "grpc"),
		)
		defer span.End()

		resp, err := handler(ctx, req)
		if err != nil {
			core.SetSpanError(ctx, err)
		}
		return resp, err
	}
}

// UnaryClientTracingInterceptor forwards the active trace to the server.
func UnaryClientTracingInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.MD{}
		}
		core.InjectTrace(ctx, metadataCarrier(md))

		return invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, opts...)
	}
}

func UnaryLoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		attrs := []any{
			"method", info.FullMethod,
			"duration", time.Since(start),
			"status_code", st.Code().String(),
		}

		switch st.Code() {
		case codes.OK:
			logger.Info("grpc request completed", attrs...)
		case codes.Internal, codes.Unknown:
			logger.Error("grpc request failed", append(attrs, "error", err)...)
		default:
			logger.Warn("grpc request rejected", append(attrs, "error", err)...)
		}

		return resp, err
	}
}

func UnaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		st, _ := status.FromError(err)
		metrics.ObserveGRPC(info.FullMethod, st.Code().String(), time.Since(start))

		return resp, err
	}
}

// UnaryRecoveryInterceptor turns a handler panic into codes.Internal so one
// bad request cannot take the server down.
func UnaryRecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("grpc handler panic",
					"method", info.FullMethod,
					"panic", p,
					"stack", string(debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// NewGRPCServer builds a grpc.Server carrying the user service's interceptor
// chain. Tracing runs outermost; recovery runs innermost so panics are still
// logged and counted.
func NewGRPCServer(logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		UnaryTracingInterceptor(),
		UnaryLoggingInterceptor(logger),
		UnaryMetricsInterceptor(),
		UnaryRecoveryInterceptor(logger),
	))
	return grpc.NewServer(opts...)
}
