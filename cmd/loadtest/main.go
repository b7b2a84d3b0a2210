package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	BaseURL     = "http://localhost:8080"
	TotalCount  = 100000
	Concurrency = 200
	AccountID   = 1
)

type transactionPayload struct {
	Amount      int64  `json:"valor"`
	Type        string `json:"tipo"`
	Description string `json:"descricao"`
}

func main() {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: Concurrency,
		},
	}

	var wg sync.WaitGroup
	wg.Add(TotalCount)
	sem := make(chan struct{}, Concurrency)

	var accepted, rejected, failed int64

	startTime := time.Now()

	for i := 0; i < TotalCount; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			// 摻一些 debit 讓額度檢查真的有事做
			payload := transactionPayload{Amount: 10, Type: "c", Description: "loadtest"}
			if idx%3 == 0 {
				payload.Type = "d"
				payload.Description = "debito"
			}

			status, err := postTransaction(client, AccountID, payload)
			switch {
			case err != nil || status >= http.StatusInternalServerError:
				atomic.AddInt64(&failed, 1)
				if idx%10000 == 0 {
					log.Printf("request %d failed: status=%d err=%v", idx, status, err)
				}
			case status == http.StatusUnprocessableEntity:
				atomic.AddInt64(&rejected, 1)
			default:
				atomic.AddInt64(&accepted, 1)
			}
		}(i)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v\n", TotalCount, elapsed)
	fmt.Printf("TPS: %.2f (accepted=%d rejected=%d failed=%d)\n",
		float64(TotalCount)/elapsed.Seconds(), accepted, rejected, failed)

	printStatement(client, AccountID)
}

func postTransaction(client *http.Client, accountID int64, payload transactionPayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	url := fmt.Sprintf("%s/clientes/%d/transacoes", BaseURL, accountID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// printStatement 跑完後撈一次對帳單，肉眼確認餘額與最近交易
func printStatement(client *http.Client, accountID int64) {
	url := fmt.Sprintf("%s/clientes/%d/extrato", BaseURL, accountID)
	resp, err := client.Get(url)
	if err != nil {
		log.Printf("get statement failed: %v", err)
		return
	}
	defer resp.Body.Close()

	var statement map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&statement); err != nil {
		log.Printf("decode statement failed: %v", err)
		return
	}
	pretty, _ := json.MarshalIndent(statement, "", "  ")
	fmt.Printf("Statement for account %d:\n%s\n", accountID, pretty)
}
