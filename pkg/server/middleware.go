package server

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tabular-rl-server/pkg/logger"
	"tabular-rl-server/pkg/metrics"
)

// LoggingInterceptor logs all gRPC requests. Step-level calls are frequent,
// so successes go to debug and failures to warn.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	entry := logger.GetLogger().WithFields(logrus.Fields{
		"method":   info.FullMethod,
		"code":     status.Code(err).String(),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.Warnf("gRPC call failed: %v", err)
	} else {
		entry.Debug("gRPC call completed")
	}

	return resp, err
}

// MetricsInterceptor collects metrics for gRPC requests
func MetricsInterceptor(metrics *metrics.InMemoryMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		metrics.IncrementRequests()

		resp, err := handler(ctx, req)

		metrics.RecordResponseTime(time.Since(start))
		if err != nil {
			metrics.IncrementFailedRequests()
		} else {
			metrics.IncrementSuccessfulRequests()
		}

		return resp, err
	}
}

// RecoveryInterceptor recovers from panics in gRPC handlers
func RecoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithFields(logrus.Fields{
				"method": info.FullMethod,
				"stack":  string(debug.Stack()),
			}).Errorf("Panic recovered: %v", r)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}

// TimeoutInterceptor adds timeout to gRPC calls
func TimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}
