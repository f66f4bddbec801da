package service

import (
	"context"
	"runtime"
	"time"

	pb "tabular-rl-server/api/proto"
	"tabular-rl-server/pkg/logger"
)

// GetServerStats returns process and request statistics
func (s *AgentService) GetServerStats(ctx context.Context, req *pb.GetServerStatsRequest) (*pb.GetServerStatsResponse, error) {
	logger.GetLogger().Debug("Getting server stats")

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := s.metrics.GetStats()

	return &pb.GetServerStatsResponse{
		UptimeSeconds:      int64(time.Since(s.startTime).Seconds()),
		MemoryUsageMb:      int64(memStats.Alloc / 1024 / 1024),
		Goroutines:         runtime.NumGoroutine(),
		TotalRequests:      stats["total_requests"].(int64),
		SuccessfulRequests: stats["successful_requests"].(int64),
		FailedRequests:     stats["failed_requests"].(int64),
		SuccessRatePercent: stats["success_rate"].(float64),
		AvgResponseTimeMs:  stats["avg_response_time_ms"].(float64),
		ActiveAgents:       s.AgentCount(),
		AgentsEvicted:      stats["agents_evicted"].(int64),
		Timestamp:          time.Now().Unix(),
	}, nil
}
