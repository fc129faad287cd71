package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

// OracleClient calls a remote analytics oracle. It satisfies
// port.AnalyticsOracle.
type OracleClient struct {
	conn *grpc.ClientConn
}

// NewOracleClient creates a lazily connecting client. Extra options are
// applied after the defaults (plaintext transport, JSON codec).
func NewOracleClient(addr string, opts ...grpc.DialOption) (*OracleClient, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(addr, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}
	return &OracleClient{conn: conn}, nil
}

func (c *OracleClient) PredictDemand(ctx context.Context, medicineID string) (*domain.Forecast, error) {
	out := new(domain.Forecast)
	if err := c.conn.Invoke(ctx, predictDemandMethod, &PredictDemandRequest{MedicineID: medicineID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OracleClient) AnalyzeExpiryRisk(ctx context.Context, entityID string) (*domain.RiskReport, error) {
	out := new(domain.RiskReport)
	if err := c.conn.Invoke(ctx, analyzeExpiryRiskMethod, &AnalyzeExpiryRiskRequest{EntityID: entityID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OracleClient) Close() error {
	return c.conn.Close()
}
