package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

var (
	baseURL     = flag.String("url", "http://localhost:8080", "API base URL")
	orders      = flag.Int("orders", 20, "orders to race")
	racers      = flag.Int("racers", 10, "concurrent confirmations per order")
	adjustments = flag.Int("adjustments", 50, "concurrent stock consumptions")
)

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	flag.Parse()

	hospital := mustCreate[domain.Entity]("/entities", map[string]string{"kind": "Hospital", "name": "Stress Hospital"})
	retailer := mustCreate[domain.Entity]("/entities", map[string]string{"kind": "Retailer", "name": "Stress Pharmacy"})
	medicine := mustCreate[domain.Medicine]("/inventory/medicines", map[string]string{"name": "Paracetamol"})

	ids := make([]string, *orders)
	for i := range ids {
		o := mustCreate[domain.Order]("/orders", map[string]any{
			"fromEntityId": hospital.ID, "toEntityId": retailer.ID, "medicineId": medicine.ID, "quantity": 5,
		})
		ids[i] = o.ID
	}

	// Race confirmations against a cancellation on every order
	var confirmed, cancelled, conflicts, failures atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for _, id := range ids {
		for r := 0; r < *racers; r++ {
			wg.Add(1)
			go func(orderID string) {
				defer wg.Done()
				status, _ := send(http.MethodPatch, "/orders/"+orderID+"/status",
					map[string]string{"status": "Confirmed", "actingEntityId": retailer.ID}, nil)
				switch status {
				case http.StatusOK:
					confirmed.Add(1)
				case http.StatusConflict:
					conflicts.Add(1)
				default:
					failures.Add(1)
				}
			}(id)
		}
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			status, _ := send(http.MethodPatch, "/orders/"+orderID+"/status",
				map[string]string{"status": "Cancelled", "actingEntityId": hospital.ID, "expectedStatus": "New"}, nil)
			switch status {
			case http.StatusOK:
				cancelled.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				failures.Add(1)
			}
		}(id)
	}
	wg.Wait()
	transitionElapsed := time.Since(start)

	// Concurrent consumption of one batch
	const initialQuantity = 1000
	batch := mustCreate[domain.Batch]("/inventory/medicines/"+medicine.ID+"/batches", map[string]any{
		"entityId": retailer.ID, "batchNumber": fmt.Sprintf("STRESS-%d", time.Now().UnixNano()),
		"quantity": initialQuantity, "expiryDate": domain.DateOf(time.Now()).AddDays(365).String(),
	})

	var applied, adjustConflicts atomic.Int32
	adjustPath := fmt.Sprintf("/inventory/batches/%s/adjust?role=RETAILER&entityId=%s", batch.ID, retailer.ID)
	start = time.Now()
	for i := 0; i < *adjustments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := send(http.MethodPost, adjustPath, map[string]any{"delta": -1, "reason": "stress"}, nil)
			switch status {
			case http.StatusOK:
				applied.Add(1)
			case http.StatusConflict:
				adjustConflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	adjustElapsed := time.Since(start)

	var stock []domain.MedicineStock
	if _, err := send(http.MethodGet, "/inventory/medicines?role=RETAILER&entityId="+retailer.ID, nil, &stock); err != nil {
		log.Fatalf("failed to read stock: %v", err)
	}
	final := -1
	for _, m := range stock {
		for _, b := range m.Batches {
			if b.ID == batch.ID {
				final = b.Quantity
			}
		}
	}

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Orders:              %d\n", *orders)
	fmt.Printf("Confirmed:           %d\n", confirmed.Load())
	fmt.Printf("Cancelled:           %d\n", cancelled.Load())
	fmt.Printf("Conflicts:           %d\n", conflicts.Load())
	fmt.Printf("Unexpected:          %d\n", failures.Load())
	fmt.Printf("Transition duration: %v\n", transitionElapsed)
	fmt.Printf("Adjustments applied: %d (conflicts %d)\n", applied.Load(), adjustConflicts.Load())
	fmt.Printf("Final quantity:      %d\n", final)
	fmt.Printf("Adjust duration:     %v\n", adjustElapsed)
	fmt.Println("==========================================")

	// Assertions
	if winners := confirmed.Load() + cancelled.Load(); winners == int32(*orders) && failures.Load() == 0 {
		fmt.Println("PASS: exactly one transition won per order")
	} else {
		fmt.Printf("FAIL: expected %d winning transitions, got %d (%d unexpected)\n", *orders, winners, failures.Load())
	}

	if final == initialQuantity-int(applied.Load()) {
		fmt.Println("PASS: no lost stock updates")
	} else {
		fmt.Printf("FAIL: expected quantity %d, got %d\n", initialQuantity-int(applied.Load()), final)
	}
}

func mustCreate[T any](path string, body any) T {
	var out T
	status, err := send(http.MethodPost, path, body, &out)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("POST %s failed: status %d: %v", path, status, err)
	}
	return out
}

func send(method, path string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequest(method, *baseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
