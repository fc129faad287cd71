package service

import "github.com/rl1809/pharma-supply/internal/port"

// Repositories groups the storage ports the services depend on. A single
// store usually implements all of them.
type Repositories struct {
	Entities  port.EntityRepository
	Medicines port.MedicineRepository
	Batches   port.BatchRepository
	Orders    port.OrderRepository
	Alerts    port.AlertRepository
}
