package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"marketlens/internal/domain"
)

type fakeSource struct {
	preds []domain.Prediction
	err   error
}

func (f *fakeSource) Latest(context.Context) ([]domain.Prediction, error) {
	return f.preds, f.err
}

func testPredictions() []domain.Prediction {
	d := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	return []domain.Prediction{
		{Ticker: "AAPL", Date: d, Close: 172, Direction: domain.DirectionUp, Confidence: 0.73},
		{Ticker: "MSFT", Date: d, Close: 400, Direction: domain.DirectionDown, Confidence: 0.88},
	}
}

func TestPredictionsStruct(t *testing.T) {
	s, err := PredictionsStruct(testPredictions())
	if err != nil {
		t.Fatalf("PredictionsStruct: %v", err)
	}
	list := s.Fields["predictions"].GetListValue().GetValues()
	if len(list) != 2 {
		t.Fatalf("got %d predictions, want 2", len(list))
	}
	msft := list[1].GetStructValue().Fields
	if got := msft["ticker"].GetStringValue(); got != "MSFT" {
		t.Errorf("ticker = %q", got)
	}
	if got := msft["prediction"].GetNumberValue(); got != 0 {
		t.Errorf("prediction = %v, want 0", got)
	}
	if got := msft["direction"].GetStringValue(); got != "DOWN" {
		t.Errorf("direction = %q", got)
	}
	if got := msft["date"].GetStringValue(); got != "2025-03-04" {
		t.Errorf("date = %q", got)
	}
}

func startServer(t *testing.T, src LatestSource) (httpURL string, conn *grpc.ClientConn) {
	t.Helper()
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	grpcLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})
	srv := NewServer(httpLn.Addr().String(), grpcLn.Addr().String(), mux, NewPredictionService(src), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, httpLn, grpcLn) }()

	conn, err = grpc.NewClient(grpcLn.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return "http://" + httpLn.Addr().String(), conn
}

func TestServeHTTPAndGRPC(t *testing.T) {
	httpURL, conn := startServer(t, &fakeSource{preds: testPredictions()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := http.Get(httpURL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("healthz body = %q", body)
	}

	out, err := LatestClient(ctx, conn)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	list := out.Fields["predictions"].GetListValue().GetValues()
	if len(list) != 2 {
		t.Fatalf("got %d predictions, want 2", len(list))
	}
	if got := list[0].GetStructValue().Fields["ticker"].GetStringValue(); got != "AAPL" {
		t.Errorf("first ticker = %q", got)
	}

	hc := healthpb.NewHealthClient(conn)
	hr, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: predictionServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hr.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v", hr.Status)
	}
}

func TestLatestError(t *testing.T) {
	_, conn := startServer(t, &fakeSource{err: errors.New("disk full")})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := LatestClient(ctx, conn)
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
}
