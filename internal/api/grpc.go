package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"marketlens/internal/domain"
)

const (
	predictionServiceName = "marketlens.v1.PredictionService"

	// LatestMethod is the full gRPC method name of PredictionService/Latest.
	LatestMethod = "/" + predictionServiceName + "/Latest"
)

// PredictionServer is the server API for marketlens.v1.PredictionService.
type PredictionServer interface {
	Latest(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// LatestSource supplies the predictions served over gRPC.
type LatestSource interface {
	Latest(ctx context.Context) ([]domain.Prediction, error)
}

// PredictionService answers Latest with the same payload as POST /predict:
// {"predictions": [{ticker, date, close, prediction, direction, confidence}]}.
type PredictionService struct {
	src LatestSource
}

// NewPredictionService creates a PredictionService backed by src.
func NewPredictionService(src LatestSource) *PredictionService {
	return &PredictionService{src: src}
}

// Latest returns the latest per-ticker predictions.
func (p *PredictionService) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	preds, err := p.src.Latest(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "computing predictions: %v", err)
	}
	return PredictionsStruct(preds)
}

// PredictionsStruct encodes predictions as a protobuf Struct.
func PredictionsStruct(preds []domain.Prediction) (*structpb.Struct, error) {
	list := make([]any, 0, len(preds))
	for _, p := range preds {
		list = append(list, map[string]any{
			"ticker":     p.Ticker,
			"date":       p.Date.Format(domain.DateLayout),
			"close":      p.Close,
			"prediction": float64(p.Direction),
			"direction":  p.Direction.String(),
			"confidence": p.Confidence,
		})
	}
	s, err := structpb.NewStruct(map[string]any{"predictions": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding predictions: %v", err)
	}
	return s, nil
}

// RegisterPredictionServer registers srv on s.
func RegisterPredictionServer(s grpc.ServiceRegistrar, srv PredictionServer) {
	s.RegisterService(&predictionServiceDesc, srv)
}

func latestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictionServer).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LatestMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PredictionServer).Latest(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var predictionServiceDesc = grpc.ServiceDesc{
	ServiceName: predictionServiceName,
	HandlerType: (*PredictionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Latest", Handler: latestHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketlens/v1/prediction.proto",
}

// LatestClient calls PredictionService/Latest on conn.
func LatestClient(ctx context.Context, conn grpc.ClientConnInterface, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, LatestMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
