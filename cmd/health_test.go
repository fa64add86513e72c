package main

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthReportsVoter(t *testing.T) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	h := startHealth(l, slog.Default())
	defer h.stop()

	conn, err := grpc.NewClient(l.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(expected healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: voterService})
		if err != nil {
			t.Fatal(err)
		}
		if resp.GetStatus() != expected {
			t.Fatalf("expected %v, actual %v", expected, resp.GetStatus())
		}
	}
	check(healthpb.HealthCheckResponse_NOT_SERVING)
	h.setVoter(true)
	check(healthpb.HealthCheckResponse_SERVING)
	h.setVoter(false)
	check(healthpb.HealthCheckResponse_NOT_SERVING)

	var none *healthServer
	none.setVoter(true)
	none.stop()
}
