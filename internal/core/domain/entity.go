package domain

import (
	"strings"
	"time"
)

type EntityKind string

const (
	EntityHospital EntityKind = "Hospital"
	EntityRetailer EntityKind = "Retailer"
)

func ParseEntityKind(s string) (EntityKind, bool) {
	switch {
	case strings.EqualFold(s, string(EntityHospital)):
		return EntityHospital, true
	case strings.EqualFold(s, string(EntityRetailer)):
		return EntityRetailer, true
	}
	return "", false
}

// Entity is an owning organisation: the boundary for visibility and authorisation.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	CreatedAt time.Time  `json:"createdAt"`
}

type CreateEntityRequest struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (r *CreateEntityRequest) Validate() error {
	if _, ok := ParseEntityKind(r.Kind); !ok {
		return Validationf("kind must be Hospital or Retailer")
	}
	if strings.TrimSpace(r.Name) == "" {
		return Validationf("name is required")
	}
	return nil
}
