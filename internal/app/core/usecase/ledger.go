package usecase

import (
	"context"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
)

// Ledger 是帳本儲存層的介面
// Apply 必須是對單一帳戶原子的: 額度檢查、餘額更新、最近交易快取、
// 稽核日誌四件事要嘛全做要嘛全不做，且不同帳戶之間互不阻塞
type Ledger interface {
	// Apply 套用一筆交易，回傳變更後的帳戶快照
	// 超出額度回傳 domain.ErrLimitExceeded，帳戶不存在回傳 domain.ErrAccountNotFound
	Apply(ctx context.Context, tran *domain.Transaction) (domain.Snapshot, error)

	// ReadAccount 讀取帳戶當前狀態 (餘額、額度、最近交易)
	// 回傳的是單一瞬間的一致快照，不會看到更新到一半的帳戶
	ReadAccount(ctx context.Context, accountID int64) (*domain.Account, error)
}
