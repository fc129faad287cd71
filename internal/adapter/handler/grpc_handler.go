package handler

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pharma-supply/internal/adapter/rpc"
	"github.com/rl1809/pharma-supply/internal/core/domain"
	"github.com/rl1809/pharma-supply/internal/port"
)

// GRPCHandler serves the analytics oracle over gRPC.
type GRPCHandler struct {
	oracle port.AnalyticsOracle
}

func NewGRPCHandler(oracle port.AnalyticsOracle) *GRPCHandler {
	return &GRPCHandler{oracle: oracle}
}

var _ rpc.OracleServer = (*GRPCHandler)(nil)

func (h *GRPCHandler) PredictDemand(ctx context.Context, req *rpc.PredictDemandRequest) (*domain.Forecast, error) {
	if req.MedicineID == "" {
		return nil, status.Error(codes.InvalidArgument, "medicineId is required")
	}
	f, err := h.oracle.PredictDemand(ctx, req.MedicineID)
	if err != nil {
		return nil, grpcError("predict demand", err)
	}
	return f, nil
}

func (h *GRPCHandler) AnalyzeExpiryRisk(ctx context.Context, req *rpc.AnalyzeExpiryRiskRequest) (*domain.RiskReport, error) {
	if req.EntityID == "" {
		return nil, status.Error(codes.InvalidArgument, "entityId is required")
	}
	r, err := h.oracle.AnalyzeExpiryRisk(ctx, req.EntityID)
	if err != nil {
		return nil, grpcError("analyze expiry risk", err)
	}
	return r, nil
}

func grpcError(op string, err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return status.Error(codes.InvalidArgument, domain.MessageOf(err))
	case domain.KindNotFound:
		return status.Error(codes.NotFound, domain.MessageOf(err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	log.Printf("oracle: %s failed: %v", op, err)
	return status.Error(codes.Internal, "internal error")
}
