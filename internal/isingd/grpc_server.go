package isingd

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported by the gRPC health check
const HealthServiceName = "ising.v1.SweepService"

// GRPCServer serves the standard gRPC health protocol for the daemon
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
}

// NewGRPCServer creates a server reporting SERVING for the daemon
func NewGRPCServer(opts ...grpc.ServerOption) *GRPCServer {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	return &GRPCServer{server: srv, health: hs}
}

// Serve accepts connections on lis until the server stops
func (g *GRPCServer) Serve(lis net.Listener) error {
	return g.server.Serve(lis)
}

// SetDraining flips the health status to NOT_SERVING ahead of shutdown
func (g *GRPCServer) SetDraining() {
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	g.health.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Stop shuts the health service down and stops the server gracefully
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
