package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "New"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusDispatched OrderStatus = "Dispatched"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{OrderStatusNew, OrderStatusConfirmed, OrderStatusDispatched, OrderStatusDelivered, OrderStatusCancelled} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type Priority string

const (
	PriorityUrgent  Priority = "Urgent"
	PriorityNormal  Priority = "Normal"
	PriorityRoutine Priority = "Routine"
)

func ParsePriority(s string) (Priority, bool) {
	for _, p := range []Priority{PriorityUrgent, PriorityNormal, PriorityRoutine} {
		if strings.EqualFold(s, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Party identifies which side of an order may perform a transition.
type Party int

const (
	PartyRequester Party = iota // fromEntity
	PartyFulfiller              // toEntity
)

func (p Party) String() string {
	if p == PartyFulfiller {
		return "fulfilling entity"
	}
	return "requesting entity"
}

type edge struct {
	from OrderStatus
	to   OrderStatus
}

// orderTransitions is the complete lifecycle graph. Any edge not listed is illegal.
var orderTransitions = map[edge]Party{
	{OrderStatusNew, OrderStatusConfirmed}:        PartyFulfiller,
	{OrderStatusConfirmed, OrderStatusDispatched}: PartyFulfiller,
	{OrderStatusDispatched, OrderStatusDelivered}: PartyFulfiller,
	{OrderStatusNew, OrderStatusCancelled}:        PartyRequester,
	{OrderStatusConfirmed, OrderStatusCancelled}:  PartyRequester,
}

// TransitionParty returns the side authorised to move an order from one
// status to another, and false if the edge does not exist.
func TransitionParty(from, to OrderStatus) (Party, bool) {
	p, ok := orderTransitions[edge{from, to}]
	return p, ok
}

// Reachable reports whether any edge leads into status.
func Reachable(status OrderStatus) bool {
	for e := range orderTransitions {
		if e.to == status {
			return true
		}
	}
	return false
}

type Order struct {
	ID           string      `json:"id"`
	FromEntityID string      `json:"fromEntityId"`
	ToEntityID   string      `json:"toEntityId"`
	MedicineID   string      `json:"medicineId"`
	Quantity     int         `json:"quantity"`
	Priority     Priority    `json:"priority"`
	Status       OrderStatus `json:"status"`
	Version      int         `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// PartyID returns the entity id standing for p on this order.
func (o Order) PartyID(p Party) string {
	if p == PartyFulfiller {
		return o.ToEntityID
	}
	return o.FromEntityID
}

// HasParty reports whether entityID is either side of the order.
func (o Order) HasParty(entityID string) bool {
	return entityID != "" && (entityID == o.FromEntityID || entityID == o.ToEntityID)
}

// CheckTransition validates moving o to target on behalf of actingEntityID
// without touching storage.
func (o Order) CheckTransition(target OrderStatus, actingEntityID string) error {
	party, ok := TransitionParty(o.Status, target)
	if !ok {
		return InvalidTransitionf("cannot move order from %s to %s", o.Status, target)
	}
	if actingEntityID == "" || o.PartyID(party) != actingEntityID {
		return Unauthorizedf("only the %s may move an order to %s", party, target)
	}
	return nil
}

type CreateOrderRequest struct {
	FromEntityID string `json:"fromEntityId"`
	ToEntityID   string `json:"toEntityId"`
	MedicineID   string `json:"medicineId"`
	Quantity     int    `json:"quantity"`
	Priority     string `json:"priority"`
}

func (r *CreateOrderRequest) Validate() error {
	if r.FromEntityID == "" || r.ToEntityID == "" {
		return Validationf("fromEntityId and toEntityId are required")
	}
	if r.FromEntityID == r.ToEntityID {
		return Validationf("fromEntityId and toEntityId must differ")
	}
	if r.MedicineID == "" {
		return Validationf("medicineId is required")
	}
	if r.Quantity <= 0 {
		return Validationf("quantity must be positive")
	}
	if r.Priority != "" {
		if _, ok := ParsePriority(r.Priority); !ok {
			return Validationf("priority must be one of Urgent, Normal, Routine")
		}
	}
	return nil
}

type TransitionRequest struct {
	Status         string `json:"status"`
	ActingEntityID string `json:"actingEntityId"`
	ExpectedStatus string `json:"expectedStatus,omitempty"`
}

func (r *TransitionRequest) Validate() error {
	if _, ok := ParseOrderStatus(r.Status); !ok {
		return Validationf("unknown order status %q", r.Status)
	}
	if r.ActingEntityID == "" {
		return Validationf("actingEntityId is required")
	}
	if r.ExpectedStatus != "" {
		if _, ok := ParseOrderStatus(r.ExpectedStatus); !ok {
			return Validationf("unknown expected status %q", r.ExpectedStatus)
		}
	}
	return nil
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// OrderPage is one page of a scoped listing. Total counts every order
// visible under the same scope.
type OrderPage struct {
	Items  []Order `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
