package domain

import "strings"

type Role string

const (
	RoleHospitalManager Role = "HOSPITAL_MANAGER"
	RoleRetailer        Role = "RETAILER"
	RoleSuperAdmin      Role = "SUPER_ADMIN"
)

func ParseRole(s string) (Role, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch Role(normalized) {
	case RoleHospitalManager, RoleRetailer, RoleSuperAdmin:
		return Role(normalized), true
	}
	return "", false
}

// EntityKind is the kind of entity a role must belong to. SuperAdmin has none.
func (r Role) EntityKind() (EntityKind, bool) {
	switch r {
	case RoleHospitalManager:
		return EntityHospital, true
	case RoleRetailer:
		return EntityRetailer, true
	}
	return "", false
}

// ScopeField names the column a predicate restricts. The zero value means
// no restriction.
type ScopeField string

const (
	ScopeNone         ScopeField = ""
	ScopeFromEntityID ScopeField = "from_entity_id"
	ScopeToEntityID   ScopeField = "to_entity_id"
	ScopeHolderID     ScopeField = "entity_id"
)

// Predicate is a visibility filter that storage adapters push into their
// queries. It is never evaluated over an unrestricted result set.
type Predicate struct {
	Field    ScopeField
	EntityID string
}

func (p Predicate) Unrestricted() bool {
	return p.Field == ScopeNone
}

// MatchesOrder evaluates the predicate against an order already in memory.
// It must agree with the WHERE clause the SQL store builds from p.
func (p Predicate) MatchesOrder(o Order) bool {
	switch p.Field {
	case ScopeNone:
		return true
	case ScopeFromEntityID:
		return o.FromEntityID == p.EntityID
	case ScopeToEntityID:
		return o.ToEntityID == p.EntityID
	}
	return false
}

func (p Predicate) MatchesBatch(b Batch) bool {
	switch p.Field {
	case ScopeNone:
		return true
	case ScopeHolderID:
		return b.EntityID == p.EntityID
	}
	return false
}

// Scope is the caller's role bound to its owning entity.
type Scope struct {
	Role     Role
	EntityID string
}

// NewScope validates a role/entity pair. SuperAdmin does not need an entity.
func NewScope(role, entityID string) (Scope, error) {
	r, ok := ParseRole(role)
	if !ok {
		return Scope{}, Validationf("role must be one of HOSPITAL_MANAGER, RETAILER, SUPER_ADMIN")
	}
	entityID = strings.TrimSpace(entityID)
	if r != RoleSuperAdmin && entityID == "" {
		return Scope{}, Validationf("entityId is required for role %s", r)
	}
	return Scope{Role: r, EntityID: entityID}, nil
}

// Orders restricts hospital managers to orders they placed and retailers to
// orders placed with them.
func (s Scope) Orders() Predicate {
	switch s.Role {
	case RoleHospitalManager:
		return Predicate{Field: ScopeFromEntityID, EntityID: s.EntityID}
	case RoleRetailer:
		return Predicate{Field: ScopeToEntityID, EntityID: s.EntityID}
	case RoleSuperAdmin:
		return Predicate{}
	}
	// unknown roles see nothing
	return Predicate{Field: ScopeFromEntityID, EntityID: "\x00"}
}

// Batches restricts non-admin roles to their own holdings.
func (s Scope) Batches() Predicate {
	switch s.Role {
	case RoleHospitalManager, RoleRetailer:
		return Predicate{Field: ScopeHolderID, EntityID: s.EntityID}
	case RoleSuperAdmin:
		return Predicate{}
	}
	return Predicate{Field: ScopeHolderID, EntityID: "\x00"}
}
