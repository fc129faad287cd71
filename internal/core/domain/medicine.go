package domain

import (
	"strings"
	"time"
)

type MedicineType string

const (
	MedicineCritical  MedicineType = "critical"
	MedicineEssential MedicineType = "essential"
	MedicineRoutine   MedicineType = "routine"
)

type Medicine struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	GenericName           string       `json:"genericName"`
	Category              string       `json:"category"`
	Type                  MedicineType `json:"type,omitempty"`
	Manufacturer          string       `json:"manufacturer"`
	Description           string       `json:"description,omitempty"`
	RequiresRefrigeration bool         `json:"requiresRefrigeration"`
	CreatedAt             time.Time    `json:"createdAt"`
}

// MedicineStock is a medicine with the batches visible to the caller.
type MedicineStock struct {
	Medicine
	Batches []Batch `json:"batches"`
}

type CreateMedicineRequest struct {
	Name                  string `json:"name"`
	GenericName           string `json:"genericName"`
	Category              string `json:"category"`
	Type                  string `json:"type"`
	Manufacturer          string `json:"manufacturer"`
	Description           string `json:"description"`
	RequiresRefrigeration bool   `json:"requiresRefrigeration"`
}

func (r *CreateMedicineRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return Validationf("name is required")
	}
	switch MedicineType(r.Type) {
	case "", MedicineCritical, MedicineEssential, MedicineRoutine:
	default:
		return Validationf("type must be critical, essential or routine")
	}
	return nil
}
