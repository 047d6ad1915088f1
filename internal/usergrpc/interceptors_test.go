// AngelaMos | 2026
// interceptors_test.go

package usergrpc

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestTracingInterceptors_PropagateAcrossCall(t *testing.T) {
	recorder := installRecorder(t)

	// client side: inject the caller's span into outgoing metadata
	ctx, parent := otel.Tracer("test").Start(context.Background(), "gateway")
	var sent metadata.MD
	client := UnaryClientTracingInterceptor()
	err := client(ctx, "/users.UserService/GetUser", nil, nil, nil,
		func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
			sent, _ = metadata.FromOutgoingContext(ctx)
			return nil
		},
	)
	parent.End()
	if err != nil {
		t.Fatalf("client interceptor: %v", err)
	}
	if len(sent.Get("traceparent")) != 1 {
		t.Fatalf("expected traceparent in metadata, got %v", sent)
	}

	// server side: the same metadata arrives as incoming
	server := UnaryTracingInterceptor()
	incoming := metadata.NewIncomingContext(context.Background(), sent)
	info := &grpc.UnaryServerInfo{FullMethod: "/users.UserService/GetUser"}
	_, err = server(incoming, nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "user not found")
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected handler error to pass through, got %v", err)
	}

	var serverSpan sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == info.FullMethod {
			serverSpan = s
		}
	}
	if serverSpan == nil {
		t.Fatal("expected a server span")
	}
	if serverSpan.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Error("expected server span to join the caller's trace")
	}
	if serverSpan.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("expected server span parented to the caller's span")
	}
}

func TestMetadataCarrier(t *testing.T) {
	installRecorder(t)

	md := metadata.Pairs("traceparent", "00-"+parentTraceID+"-00f067aa0ba902b7-01")
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), metadataCarrier(md))

	ctx, span := otel.Tracer("test").Start(ctx, "child")
	defer span.End()

	if got := span.SpanContext().TraceID().String(); got != parentTraceID {
		t.Errorf("expected trace %s, got %s", parentTraceID, got)
	}

	out := metadata.MD{}
	otel.GetTextMapPropagator().Inject(ctx, metadataCarrier(out))
	if len(out.Get("traceparent")) != 1 {
		t.Errorf("expected traceparent injected, got %v", out)
	}
	if keys := metadataCarrier(out).Keys(); len(keys) == 0 {
		t.Error("expected carrier keys")
	}
}

func TestUnaryRecoveryInterceptor(t *testing.T) {
	interceptor := UnaryRecoveryInterceptor(discardLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/users.UserService/ListUsers"}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic(errors.New("boom"))
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("expected Internal after panic, got %v", err)
	}
}
