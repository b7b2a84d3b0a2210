package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/usecase"
	"github.com/hsinyuh/go-credit-ledger/pkg/wal"
)

// walEntry WAL 裡的一筆交易，欄位名沿用 wire 格式方便肉眼檢查
type walEntry struct {
	RefID       uuid.UUID `json:"ref_id"`
	AccountID   int64     `json:"cliente_id"`
	Amount      int64     `json:"valor"`
	Type        string    `json:"tipo"`
	Description string    `json:"descricao"`
	CreatedAt   time.Time `json:"realizada_em"`
}

// slot 一個帳戶加上保護它的鎖
// 額度檢查、餘額更新與最近交易快取都在同一把鎖裡完成，
// 讀取方也拿同一把鎖 (RLock)，所以不會看到更新到一半的帳戶
type slot struct {
	mu      sync.RWMutex
	account *domain.Account
}

// MutexLedger 以每帳戶一把鎖實現的記憶體帳本
//
// 帳戶集合在建構時固定，之後 map 只讀不寫，查 map 不需要鎖；
// 鎖的粒度是單一帳戶，不同帳戶的交易完全並行
//
// 結構:
//
//	accounts: 帳戶 ID 對應 slot 的 Map (建構後唯讀)
//	wal: Write-Ahead Log 實例，nil 表示不落地 (測試用)
type MutexLedger struct {
	accounts map[int64]*slot
	wal      *wal.WAL
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (餘額通常為 0，由 WAL 重放補回)
//	w: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(accounts map[int64]*domain.Account, w *wal.WAL) (*MutexLedger, error) {
	slots := make(map[int64]*slot, len(accounts))
	for id, account := range accounts {
		slots[id] = &slot{account: account}
	}
	ledger := &MutexLedger{
		accounts: slots,
		wal:      w,
	}
	if w != nil {
		if err := ledger.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewMutexLedger 呼叫，單執行緒，無需上鎖
// WAL 裡只有被接受的交易，重放失敗代表檔案毀損，直接回報錯誤
func (m *MutexLedger) recoverFromWAL() error {
	return m.wal.ReadAll(func(jsonRaw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return err
		}
		tran, err := entry.toDomain()
		if err != nil {
			return err
		}
		s, ok := m.accounts[tran.AccountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		return s.account.Apply(tran)
	})
}

// Apply 套用一筆交易 (每帳戶互斥鎖)
//
// 順序: 額度檢查 -> WAL 落地 -> 變更記憶體
// 檢查先於 WAL，被拒絕的交易不會留下任何痕跡；
// WAL 寫失敗時記憶體也還沒動，對外等同一次儲存層故障
func (m *MutexLedger) Apply(ctx context.Context, tran *domain.Transaction) (domain.Snapshot, error) {
	s, ok := m.accounts[tran.AccountID]
	if !ok {
		return domain.Snapshot{}, domain.ErrAccountNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.account.CanApply(tran); err != nil {
		return domain.Snapshot{}, err
	}

	if m.wal != nil {
		if err := m.wal.Write(newWALEntry(tran)); err != nil {
			return domain.Snapshot{}, domain.ErrWALWriteFailed
		}
		if err := m.wal.Flush(); err != nil {
			return domain.Snapshot{}, domain.ErrWALWriteFailed
		}
	}

	// 剛檢查過額度且鎖還握著，這裡不可能失敗
	if err := s.account.Apply(tran); err != nil {
		return domain.Snapshot{}, err
	}
	return s.account.Snapshot(), nil
}

// ReadAccount 讀取帳戶當前狀態
//
// 參數:
//
//	ctx: 上下文
//	accountID: 帳戶 ID
//
// 回傳:
//
//	*domain.Account: 帳戶深拷貝 (餘額與最近交易來自同一瞬間)
//	error: 查詢錯誤 (如帳戶不存在)
func (m *MutexLedger) ReadAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	s, ok := m.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account.Clone(), nil
}

func newWALEntry(tran *domain.Transaction) walEntry {
	return walEntry{
		RefID:       tran.RefID,
		AccountID:   tran.AccountID,
		Amount:      tran.Amount,
		Type:        tran.Type.String(),
		Description: tran.Description,
		CreatedAt:   tran.CreatedAt,
	}
}

func (e *walEntry) toDomain() (*domain.Transaction, error) {
	tranType, err := domain.ParseTransactionType(e.Type)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		RefID:       e.RefID,
		AccountID:   e.AccountID,
		Amount:      e.Amount,
		CreatedAt:   e.CreatedAt,
		Description: e.Description,
		Type:        tranType,
	}, nil
}

var _ usecase.Ledger = (*MutexLedger)(nil)
