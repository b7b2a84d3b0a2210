package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層 (Transaction Processor)
//
// 前置條件由上游的驗證層保證: Amount 為正整數、Type 合法、
// Description 長度 1~10，這裡不再重複驗證
type CoreUseCase struct {
	ledger Ledger
}

func NewCoreUseCase(ledger Ledger) *CoreUseCase {
	return &CoreUseCase{
		ledger: ledger,
	}
}

// ProcessTransaction 處理交易
// 負責配發受理時間與追蹤號，然後委派給 Ledger 的原子操作
// 結果原封不動往回傳，被拒絕是確定性的業務結果，不做重試
func (c *CoreUseCase) ProcessTransaction(ctx context.Context, accountID int64, amount int64, tranType domain.TransactionType, description string) (domain.Snapshot, error) {
	tran := &domain.Transaction{
		RefID:       uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
		Description: description,
		Type:        tranType,
	}
	return c.ledger.Apply(ctx, tran)
}

// Statement 對帳單: 讀取時間點的餘額、額度與最近交易
type Statement struct {
	Balance     int64
	CreditLimit int64
	// At 對帳單產生時間，讀取當下配發，不會被儲存
	At time.Time
	// Recent 最近交易，新的在前，最多 domain.MaxRecentTransactions 筆
	Recent []domain.Transaction
}

// GetStatement 產生對帳單，純讀取，不變更任何狀態
func (c *CoreUseCase) GetStatement(ctx context.Context, accountID int64) (*Statement, error) {
	account, err := c.ledger.ReadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Balance:     account.Balance,
		CreditLimit: account.CreditLimit,
		At:          time.Now().UTC(),
		Recent:      account.Recent,
	}, nil
}
