package domain

import "time"

type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
)

func (t AlertType) Valid() bool {
	return t == AlertCritical || t == AlertWarning || t == AlertInfo
}

// Alert is append-only. SubjectID is set for generated alerts (batch or order id).
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	EntityID  string    `json:"entityId"`
	SubjectID string    `json:"subjectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClaimKey identifies one open alert: a subject in one urgency state.
type ClaimKey struct {
	SubjectID string
	Status    string
}

func (k ClaimKey) String() string {
	return k.SubjectID + ":" + k.Status
}

type CreateAlertRequest struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	EntityID string `json:"entityId"`
}

func (r *CreateAlertRequest) Validate() error {
	if !AlertType(r.Type).Valid() {
		return Validationf("type must be critical, warning or info")
	}
	if r.Message == "" {
		return Validationf("message is required")
	}
	if r.EntityID == "" {
		return Validationf("entityId is required")
	}
	return nil
}
