package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/honeypot/internal/detection"
)

// ClassifyMethod is the full RPC name served by a remote classifier. Both the
// request and the reply are google.protobuf.Struct messages; the reply
// carries the same keys as the JSON verdict of the chat classifier.
const ClassifyMethod = "/honeypot.classifier.v1.Classifier/Classify"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GrpcClassifierConfig holds configuration for the gRPC classifier client.
type GrpcClassifierConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	Breaker          BreakerConfig
}

// DefaultGrpcClassifierConfig returns default configuration for addr.
func DefaultGrpcClassifierConfig(addr string) GrpcClassifierConfig {
	return GrpcClassifierConfig{
		Address:          addr,
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
		Breaker:          DefaultBreakerConfig(),
	}
}

// GrpcClassifier calls a remote classification service.
type GrpcClassifier struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	breaker *Breaker
	logger  *slog.Logger
}

// NewGrpcClassifier connects to a classifier service and waits until the
// connection is ready so that a bad address fails at startup.
func NewGrpcClassifier(cfg GrpcClassifierConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		return nil, errors.New("classifier address is required")
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("create classifier client for %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("classifier at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to classifier service", "address", cfg.Address)

	return &GrpcClassifier{
		conn:    conn,
		timeout: cfg.RequestTimeout,
		breaker: NewBreaker("grpc-classifier", cfg.Breaker, logger),
		logger:  logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Classify sends text to the remote service and decodes its verdict.
func (c *GrpcClassifier) Classify(ctx context.Context, text string) (*detection.Classification, error) {
	req, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp := &structpb.Struct{}
		if err := c.conn.Invoke(ctx, ClassifyMethod, req, resp); err != nil {
			return nil, fmt.Errorf("classify rpc: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := result.(*structpb.Struct).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidClassification, err)
	}
	return parseClassification(string(raw))
}

// Close closes the gRPC connection.
func (c *GrpcClassifier) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

var _ detection.Classifier = (*GrpcClassifier)(nil)
