package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

const (
	ServiceName = "analytics.Oracle"

	predictDemandMethod     = "/" + ServiceName + "/PredictDemand"
	analyzeExpiryRiskMethod = "/" + ServiceName + "/AnalyzeExpiryRisk"
)

type PredictDemandRequest struct {
	MedicineID string `json:"medicineId"`
}

type AnalyzeExpiryRiskRequest struct {
	EntityID string `json:"entityId"`
}

// OracleServer is implemented by the analytics oracle service.
type OracleServer interface {
	PredictDemand(ctx context.Context, req *PredictDemandRequest) (*domain.Forecast, error)
	AnalyzeExpiryRisk(ctx context.Context, req *AnalyzeExpiryRiskRequest) (*domain.RiskReport, error)
}

func RegisterOracleServer(s grpc.ServiceRegistrar, srv OracleServer) {
	s.RegisterService(&OracleServiceDesc, srv)
}

var OracleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OracleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PredictDemand", Handler: predictDemandHandler},
		{MethodName: "AnalyzeExpiryRisk", Handler: analyzeExpiryRiskHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "analytics/oracle",
}

func predictDemandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PredictDemandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).PredictDemand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictDemandMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OracleServer).PredictDemand(ctx, req.(*PredictDemandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeExpiryRiskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeExpiryRiskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleServer).AnalyzeExpiryRisk(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeExpiryRiskMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OracleServer).AnalyzeExpiryRisk(ctx, req.(*AnalyzeExpiryRiskRequest))
	}
	return interceptor(ctx, in, info, handler)
}
