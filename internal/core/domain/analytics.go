package domain

import "github.com/shopspring/decimal"

type Recommendation string

const (
	RecommendIncreaseStock Recommendation = "IncreaseStock"
	RecommendMaintainStock Recommendation = "MaintainStock"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type Forecast struct {
	MedicineID         string         `json:"medicineId"`
	PredictedGrowthPct float64        `json:"predictedGrowthPct"`
	Confidence         float64        `json:"confidence"`
	Recommendation     Recommendation `json:"recommendation"`
	NextPeriodDemand   int            `json:"nextPeriodDemand"`
}

type RiskReport struct {
	EntityID           string          `json:"entityId"`
	RiskLevel          RiskLevel       `json:"riskLevel"`
	AtRiskValue        decimal.Decimal `json:"atRiskValue"`
	ExpiringBatchCount int             `json:"expiringBatchCount"`
	Strategy           string          `json:"strategy"`
}

type AnalyticsStatus string

const (
	AnalyticsOK          AnalyticsStatus = "ok"
	AnalyticsUnavailable AnalyticsStatus = "unavailable"
)

// ForecastResult is always returned to the caller; Forecast is nil when the
// provider was unavailable.
type ForecastResult struct {
	Status   AnalyticsStatus `json:"status"`
	Forecast *Forecast       `json:"forecast,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

type RiskResult struct {
	Status AnalyticsStatus `json:"status"`
	Report *RiskReport     `json:"report,omitempty"`
	Reason string          `json:"reason,omitempty"`
}
