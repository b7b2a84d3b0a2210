package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	memory_adapter "github.com/hsinyuh/go-credit-ledger/internal/app/core/adapter/out/memory"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/usecase"
)

// newTestServer 組一個完整的 in-memory 服務: gin + usecase + MutexLedger
// 不依賴外部資料庫，端對端走真正的 HTTP 編解碼
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := map[int64]*domain.Account{
		1: domain.NewAccount(1, 100000),
		2: domain.NewAccount(2, 80000),
	}
	ledger, err := memory_adapter.NewMutexLedger(accounts, nil)
	if err != nil {
		t.Fatalf("NewMutexLedger: %v", err)
	}

	router := gin.New()
	NewServer(usecase.NewCoreUseCase(ledger)).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// postJSON 為測試輔助函式: 送 JSON 請求並驗證狀態碼，必要時解析回應
func postJSON(t *testing.T, url string, body string, wantCode int, out any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("code=%d want=%d (body=%s)", resp.StatusCode, wantCode, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getJSON(t *testing.T, url string, wantCode int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("code=%d want=%d", resp.StatusCode, wantCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

// TestCreateTransactionOK 成功路徑回 200 與 {limite, saldo}
func TestCreateTransactionOK(t *testing.T) {
	srv := newTestServer(t)

	var resp struct {
		Limit   int64 `json:"limite"`
		Balance int64 `json:"saldo"`
	}
	postJSON(t, srv.URL+"/clientes/1/transacoes", `{"valor":1000,"tipo":"c","descricao":"pix"}`, http.StatusOK, &resp)
	if resp.Limit != 100000 || resp.Balance != 1000 {
		t.Fatalf("resp=%+v want limite=100000 saldo=1000", resp)
	}

	postJSON(t, srv.URL+"/clientes/1/transacoes", `{"valor":1500,"tipo":"d","descricao":"compra"}`, http.StatusOK, &resp)
	if resp.Balance != -500 {
		t.Fatalf("saldo=%d want=-500", resp.Balance)
	}
}

// TestCreateTransactionRejected 超出額度回 422，且狀態不變
func TestCreateTransactionRejected(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/clientes/2/transacoes", `{"valor":80001,"tipo":"d","descricao":"compra"}`, http.StatusUnprocessableEntity, nil)

	var statement struct {
		Balance struct {
			Total int64 `json:"total"`
		} `json:"saldo"`
		Transactions []json.RawMessage `json:"ultimas_transacoes"`
	}
	getJSON(t, srv.URL+"/clientes/2/extrato", http.StatusOK, &statement)
	if statement.Balance.Total != 0 || len(statement.Transactions) != 0 {
		t.Fatalf("rejected transaction left traces: %+v", statement)
	}
}

// TestCreateTransactionValidation 各種壞請求一律 422，不碰核心
func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/clientes/1/transacoes"

	cases := []struct {
		name string
		body string
	}{
		{"zero amount", `{"valor":0,"tipo":"c","descricao":"pix"}`},
		{"negative amount", `{"valor":-5,"tipo":"c","descricao":"pix"}`},
		{"fractional amount", `{"valor":1.2,"tipo":"d","descricao":"pix"}`},
		{"amount as string", `{"valor":"10","tipo":"c","descricao":"pix"}`},
		{"bad type", `{"valor":10,"tipo":"x","descricao":"pix"}`},
		{"missing type", `{"valor":10,"descricao":"pix"}`},
		{"empty description", `{"valor":10,"tipo":"c","descricao":""}`},
		{"long description", `{"valor":10,"tipo":"c","descricao":"12345678901"}`},
		{"null description", `{"valor":10,"tipo":"c","descricao":null}`},
		{"not json", `valor=10`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			postJSON(t, url, tc.body, http.StatusUnprocessableEntity, nil)
		})
	}
}

// TestAccountNotFound 未建立、負數與非數字 ID 都是 404
func TestAccountNotFound(t *testing.T) {
	srv := newTestServer(t)
	body := `{"valor":10,"tipo":"c","descricao":"pix"}`

	postJSON(t, srv.URL+"/clientes/99/transacoes", body, http.StatusNotFound, nil)
	postJSON(t, srv.URL+"/clientes/-1/transacoes", body, http.StatusNotFound, nil)
	postJSON(t, srv.URL+"/clientes/abc/transacoes", body, http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/clientes/99/extrato", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/clientes/-1/extrato", http.StatusNotFound, nil)
}

// TestGetStatementShape 對帳單的形狀: saldo + ultimas_transacoes，
// 新的在前，欄位齊全
func TestGetStatementShape(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/clientes/1/transacoes", `{"valor":100,"tipo":"c","descricao":"pix"}`, http.StatusOK, nil)
	postJSON(t, srv.URL+"/clientes/1/transacoes", `{"valor":40,"tipo":"d","descricao":"compra"}`, http.StatusOK, nil)

	var statement struct {
		Balance struct {
			Total int64  `json:"total"`
			Date  string `json:"data_extrato"`
			Limit int64  `json:"limite"`
		} `json:"saldo"`
		Transactions []struct {
			Amount      int64  `json:"valor"`
			Type        string `json:"tipo"`
			Description string `json:"descricao"`
			CreatedAt   string `json:"realizada_em"`
		} `json:"ultimas_transacoes"`
	}
	getJSON(t, srv.URL+"/clientes/1/extrato", http.StatusOK, &statement)

	if statement.Balance.Total != 60 || statement.Balance.Limit != 100000 {
		t.Fatalf("saldo=%+v want total=60 limite=100000", statement.Balance)
	}
	if statement.Balance.Date == "" {
		t.Fatal("data_extrato missing")
	}
	if len(statement.Transactions) != 2 {
		t.Fatalf("transactions len=%d want=2", len(statement.Transactions))
	}
	// 新的在前
	if statement.Transactions[0].Type != "d" || statement.Transactions[0].Amount != 40 {
		t.Fatalf("newest=%+v want debit 40", statement.Transactions[0])
	}
	if statement.Transactions[1].Type != "c" || statement.Transactions[1].Description != "pix" {
		t.Fatalf("oldest=%+v want credit pix", statement.Transactions[1])
	}
	if statement.Transactions[0].CreatedAt == "" {
		t.Fatal("realizada_em missing")
	}
}

// TestStatementBounded 打 11 筆後對帳單最多 10 筆，最舊的被擠掉
func TestStatementBounded(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 11; i++ {
		postJSON(t, srv.URL+"/clientes/1/transacoes", `{"valor":1,"tipo":"c","descricao":"pix"}`, http.StatusOK, nil)
	}

	var statement struct {
		Balance struct {
			Total int64 `json:"total"`
		} `json:"saldo"`
		Transactions []json.RawMessage `json:"ultimas_transacoes"`
	}
	getJSON(t, srv.URL+"/clientes/1/extrato", http.StatusOK, &statement)
	if statement.Balance.Total != 11 {
		t.Fatalf("total=%d want=11", statement.Balance.Total)
	}
	if len(statement.Transactions) != 10 {
		t.Fatalf("transactions len=%d want=10", len(statement.Transactions))
	}
}
