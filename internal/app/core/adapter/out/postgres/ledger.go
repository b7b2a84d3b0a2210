package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/usecase"
	"github.com/hsinyuh/go-credit-ledger/pkg/postgres"
)

// sqlCustomer 對應資料庫的 customers 表
// 最近交易快取以 jsonb 存在同一列，和餘額一起被同一個行鎖保護，
// 讀取單列自然就是一致快照
type sqlCustomer struct {
	ID                 int64  `gorm:"primaryKey"`
	CreditLimit        int64  `gorm:"not null"`
	Balance            int64  `gorm:"not null"`
	RecentTransactions []byte `gorm:"type:jsonb;not null;default:'[]'"`
	UpdatedAt          int64  `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlCustomer) TableName() string {
	return "customers"
}

// sqlTransaction 對應資料庫的 transactions 表 (無上限的稽核日誌)
type sqlTransaction struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	RefID       string    `gorm:"column:ref_id;type:uuid;uniqueIndex"`
	CustomerID  int64     `gorm:"index;not null"`
	Amount      int64     `gorm:"not null"`
	Type        string    `gorm:"type:varchar(1);not null"`
	Description string    `gorm:"type:varchar(10);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// cacheEntry jsonb 快取裡的一筆交易，欄位名即 wire 格式
type cacheEntry struct {
	Amount      int64     `json:"valor"`
	Type        string    `json:"tipo"`
	Description string    `json:"descricao"`
	CreatedAt   time.Time `json:"realizada_em"`
}

// PostgresLedger 以 PostgreSQL 為後端的帳本
//
// 原子性靠 DB 事務 + SELECT ... FOR UPDATE 行鎖:
// 額度檢查與寫回看到的是同一個餘額，兩筆對同帳戶的交易
// 在行鎖上排隊，不會有 lost update；不同帳戶鎖不同列，互不阻塞
type PostgresLedger struct {
	client *postgres.Client
}

func NewPostgresLedger(client *postgres.Client) *PostgresLedger {
	return &PostgresLedger{
		client: client,
	}
}

// Migrate 建立 customers 與 transactions 表
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	return l.client.DB().WithContext(ctx).AutoMigrate(&sqlCustomer{}, &sqlTransaction{})
}

// Seed 建立初始帳戶，已存在的帳戶不動 (重啟安全)
func (l *PostgresLedger) Seed(ctx context.Context, creditLimits map[int64]int64) error {
	db := l.client.DB().WithContext(ctx)
	for id, limit := range creditLimits {
		customer := sqlCustomer{
			ID:                 id,
			CreditLimit:        limit,
			RecentTransactions: []byte("[]"),
		}
		err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&customer).Error
		if err != nil {
			return fmt.Errorf("seed customer %d: %w", id, err)
		}
	}
	return nil
}

// Apply 套用一筆交易
//
// 單一 DB 事務內: 行鎖讀取 -> 額度檢查 -> 更新餘額與 jsonb 快取 ->
// 寫入稽核日誌。任一步失敗整個事務回滾，被拒絕的交易是完整的 no-op
func (l *PostgresLedger) Apply(ctx context.Context, tran *domain.Transaction) (domain.Snapshot, error) {
	var snap domain.Snapshot

	err := l.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer sqlCustomer
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tran.AccountID).
			First(&customer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("%w: lock customer: %v", domain.ErrStoreUnavailable, err)
		}

		candidate := customer.Balance + tran.Delta()
		if candidate < -customer.CreditLimit {
			return domain.ErrLimitExceeded
		}

		// 快取的截斷在這裡做，不依賴特定資料庫的陣列語法
		cache, err := decodeCache(customer.RecentTransactions)
		if err != nil {
			return fmt.Errorf("%w: decode cache: %v", domain.ErrStoreUnavailable, err)
		}
		cache = prependCache(cache, tran)
		raw, err := json.Marshal(cache)
		if err != nil {
			return fmt.Errorf("%w: encode cache: %v", domain.ErrStoreUnavailable, err)
		}

		customer.Balance = candidate
		customer.RecentTransactions = raw
		if err := tx.Save(&customer).Error; err != nil {
			return fmt.Errorf("%w: update customer: %v", domain.ErrStoreUnavailable, err)
		}

		record := sqlTransaction{
			RefID:       tran.RefID.String(),
			CustomerID:  tran.AccountID,
			Amount:      tran.Amount,
			Type:        tran.Type.String(),
			Description: tran.Description,
			CreatedAt:   tran.CreatedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("%w: append transaction log: %v", domain.ErrStoreUnavailable, err)
		}

		snap = domain.Snapshot{
			Balance:     candidate,
			CreditLimit: customer.CreditLimit,
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// ReadAccount 讀取帳戶當前狀態
// 餘額與快取在同一列，單列 SELECT 就是一致快照
func (l *PostgresLedger) ReadAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var customer sqlCustomer
	err := l.client.DB().WithContext(ctx).
		Where("id = ?", accountID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: read customer: %v", domain.ErrStoreUnavailable, err)
	}

	cache, err := decodeCache(customer.RecentTransactions)
	if err != nil {
		return nil, fmt.Errorf("%w: decode cache: %v", domain.ErrStoreUnavailable, err)
	}

	account := domain.NewAccount(customer.ID, customer.CreditLimit)
	account.Balance = customer.Balance
	for i := range cache {
		tranType, err := domain.ParseTransactionType(cache[i].Type)
		if err != nil {
			return nil, fmt.Errorf("%w: decode cache: %v", domain.ErrStoreUnavailable, err)
		}
		account.Recent = append(account.Recent, domain.Transaction{
			AccountID:   customer.ID,
			Amount:      cache[i].Amount,
			CreatedAt:   cache[i].CreatedAt,
			Description: cache[i].Description,
			Type:        tranType,
		})
	}
	return account, nil
}

func decodeCache(raw []byte) ([]cacheEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var cache []cacheEntry
	if err := json.Unmarshal(raw, &cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// prependCache 把新交易插到最前面，超過上限時淘汰最舊的一筆
func prependCache(cache []cacheEntry, tran *domain.Transaction) []cacheEntry {
	if len(cache) >= domain.MaxRecentTransactions {
		cache = cache[:domain.MaxRecentTransactions-1]
	}
	entry := cacheEntry{
		Amount:      tran.Amount,
		Type:        tran.Type.String(),
		Description: tran.Description,
		CreatedAt:   tran.CreatedAt,
	}
	return append([]cacheEntry{entry}, cache...)
}

var _ usecase.Ledger = (*PostgresLedger)(nil)
