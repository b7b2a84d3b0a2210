package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/usecase"
)

// Server HTTP 進入點 (Driving Adapter)
// 負責驗證請求、轉成 domain 型別、把結果對應回 HTTP 狀態碼
type Server struct {
	core *usecase.CoreUseCase
}

func NewServer(core *usecase.CoreUseCase) *Server {
	return &Server{
		core: core,
	}
}

// RegisterRoutes 註冊兩條路由
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.POST("/clientes/:id/transacoes", s.createTransaction)
	r.GET("/clientes/:id/extrato", s.getStatement)
}

// transactionRequest POST /clientes/:id/transacoes 的請求體
// binding tag 負責核心假設的前置條件: valor 正整數、tipo 只能 c/d、
// descricao 1~10 字元。沒過驗證的請求不會碰到 usecase
type transactionRequest struct {
	Amount      int64  `json:"valor" binding:"required,gt=0"`
	Type        string `json:"tipo" binding:"required,oneof=c d"`
	Description string `json:"descricao" binding:"required,min=1,max=10"`
}

type transactionResponse struct {
	Limit   int64 `json:"limite"`
	Balance int64 `json:"saldo"`
}

type statementBalance struct {
	Total int64     `json:"total"`
	Date  time.Time `json:"data_extrato"`
	Limit int64     `json:"limite"`
}

type statementTransaction struct {
	Amount      int64     `json:"valor"`
	Type        string    `json:"tipo"`
	Description string    `json:"descricao"`
	CreatedAt   time.Time `json:"realizada_em"`
}

type statementResponse struct {
	Balance      statementBalance       `json:"saldo"`
	Transactions []statementTransaction `json:"ultimas_transacoes"`
}

// parseAccountID 解析路徑上的帳戶 ID
// 非數字與負數都視同不存在的帳戶 (404)
func parseAccountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		c.Status(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) createTransaction(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 格式錯誤 (含 valor 帶小數) 一律 422
		c.Status(http.StatusUnprocessableEntity)
		return
	}
	tranType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		c.Status(http.StatusUnprocessableEntity)
		return
	}

	snap, err := s.core.ProcessTransaction(c.Request.Context(), accountID, req.Amount, tranType, req.Description)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse{
		Limit:   snap.CreditLimit,
		Balance: snap.Balance,
	})
}

func (s *Server) getStatement(c *gin.Context) {
	accountID, ok := parseAccountID(c)
	if !ok {
		return
	}

	statement, err := s.core.GetStatement(c.Request.Context(), accountID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	transactions := make([]statementTransaction, 0, len(statement.Recent))
	for i := range statement.Recent {
		tran := &statement.Recent[i]
		transactions = append(transactions, statementTransaction{
			Amount:      tran.Amount,
			Type:        tran.Type.String(),
			Description: tran.Description,
			CreatedAt:   tran.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, statementResponse{
		Balance: statementBalance{
			Total: statement.Balance,
			Date:  statement.At,
			Limit: statement.CreditLimit,
		},
		Transactions: transactions,
	})
}

// renderError 把 domain 錯誤對應到 HTTP 狀態碼
// 被拒絕與找不到帳戶是業務結果；其餘都是儲存層故障，回 500
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, domain.ErrLimitExceeded):
		c.Status(http.StatusUnprocessableEntity)
	default:
		c.Status(http.StatusInternalServerError)
	}
}
