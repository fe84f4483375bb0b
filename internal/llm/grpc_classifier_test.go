package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type classifyFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func classifierServiceDesc(fn classifyFunc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: "honeypot.classifier.v1.Classifier",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Classify",
			Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &structpb.Struct{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return fn(ctx, req)
			},
		}},
	}
}

func startClassifier(t *testing.T, fn classifyFunc) *GrpcClassifier {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(classifierServiceDesc(fn), struct{}{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg := DefaultGrpcClassifierConfig("passthrough:///bufnet")
	cfg.ConnectTimeout = 2 * time.Second
	cfg.Breaker = BreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxRequests: 1}

	c, err := NewGrpcClassifier(cfg, nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGrpcClassifierDecodesVerdict(t *testing.T) {
	var gotText string
	c := startClassifier(t, func(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		gotText = req.GetFields()["text"].GetStringValue()
		return structpb.NewStruct(map[string]any{
			"scam":       true,
			"confidence": 80,
			"scam_type":  "phishing",
			"signals":    []any{"fake domain"},
		})
	})

	got, err := c.Classify(context.Background(), "click http://bit.ly/x")
	require.NoError(t, err)
	assert.Equal(t, "click http://bit.ly/x", gotText)
	assert.True(t, got.IsScam)
	assert.Equal(t, 80.0, got.Confidence)
	assert.Equal(t, "phishing", got.ScamType)
	assert.Equal(t, []string{"fake domain"}, got.Signals)
}

func TestGrpcClassifierRejectsReplyWithoutFlag(t *testing.T) {
	c := startClassifier(t, func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
		return structpb.NewStruct(map[string]any{"confidence": 99})
	})

	_, err := c.Classify(context.Background(), "hi")
	require.ErrorIs(t, err, errInvalidClassification)
}

func TestGrpcClassifierTripsBreaker(t *testing.T) {
	calls := 0
	c := startClassifier(t, func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
		calls++
		return nil, status.Error(codes.Unavailable, "model offline")
	})

	for i := 0; i < 2; i++ {
		_, err := c.Classify(context.Background(), "hi")
		require.Error(t, err)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	}
	_, err := c.Classify(context.Background(), "hi")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestNewGrpcClassifierRequiresAddress(t *testing.T) {
	_, err := NewGrpcClassifier(GrpcClassifierConfig{}, nil)
	require.Error(t, err)
}

func TestBreakerRejectsCancelledContext(t *testing.T) {
	b := NewBreaker("test", DefaultBreakerConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := b.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker("test", BreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxRequests: 1}, nil)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := b.Execute(ctx, func() (interface{}, error) {
			cancel()
			return nil, fmt.Errorf("request aborted: %w", ctx.Err())
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, "closed", b.State())

	backendDown := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), func() (interface{}, error) {
			return nil, backendDown
		})
		require.ErrorIs(t, err, backendDown)
	}
	assert.Equal(t, "open", b.State())
}
