package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const baseURL = "http://localhost:8080/api/v1"

func createEmployee(i int) (string, error) {
	payload := []byte(fmt.Sprintf(`{"name": "load-test-emp-%d", "hourlyWage": "15.00"}`, i))
	resp, err := http.Post(baseURL+"/employees", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func main() {
	// Configuration
	numEmployees := 500
	weekStart := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	daysPerEmployee := 7
	totalRequests := numEmployees * daysPerEmployee
	concurrency := 50 // Number of concurrent requests to avoid local port exhaustion

	fmt.Printf("Starting load test: %d employees (%d day saves each) against %s with concurrency %d\n", numEmployees, daysPerEmployee, baseURL, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var successCount int64
	var failCount int64

	startTime := time.Now()

	for i := 0; i < numEmployees; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		go func(n int) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			empID, err := createEmployee(n)
			if err != nil {
				atomic.AddInt64(&failCount, int64(daysPerEmployee))
				return
			}

			for d := 0; d < daysPerEmployee; d++ {
				date := weekStart.AddDate(0, 0, d).Format("2006-01-02")
				url := fmt.Sprintf("%s/employees/%s/weeks/%s/days/%s", baseURL, empID, weekStart.Format("2006-01-02"), date)
				payload := []byte(`{"startTime": "9", "endTime": "5:30", "breakMinutes": 30}`)

				req, err := http.NewRequest(http.MethodPut, url, bytes.NewBuffer(payload))
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}

				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					atomic.AddInt64(&successCount, 1)
				} else {
					atomic.AddInt64(&failCount, 1)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}
