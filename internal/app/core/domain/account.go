package domain

// MaxRecentTransactions 每個帳戶保留的最近交易筆數上限
const MaxRecentTransactions = 10

// Account 帳戶，系統啟動時一次建立，之後只透過 Apply 變更
//
// 不變量: Balance >= -CreditLimit，每次 Apply 都會檢查
type Account struct {
	ID          int64
	CreditLimit int64
	Balance     int64
	// Recent 最近交易快取，新的在前，長度 <= MaxRecentTransactions
	// 與無上限的稽核日誌是兩回事，被擠出快取的交易仍留在日誌裡
	Recent []Transaction
}

func NewAccount(id int64, creditLimit int64) *Account {
	return &Account{
		ID:          id,
		CreditLimit: creditLimit,
		Recent:      make([]Transaction, 0, MaxRecentTransactions),
	}
}

// CanApply 檢查交易是否會違反信用額度
// 呼叫端必須保證檢查與 Apply 之間沒有其他寫入 (同一把鎖內)
func (a *Account) CanApply(tran *Transaction) error {
	if a.Balance+tran.Delta() < -a.CreditLimit {
		return ErrLimitExceeded
	}
	return nil
}

// Apply 套用一筆交易: 更新餘額並把交易插到最近交易快取的最前面
// 超出額度時回傳 ErrLimitExceeded 且狀態完全不變
func (a *Account) Apply(tran *Transaction) error {
	candidate := a.Balance + tran.Delta()
	if candidate < -a.CreditLimit {
		return ErrLimitExceeded
	}
	a.Balance = candidate
	a.pushRecent(tran)
	return nil
}

// pushRecent 把交易插到最前面，超過上限時淘汰最舊的一筆
func (a *Account) pushRecent(tran *Transaction) {
	if len(a.Recent) < MaxRecentTransactions {
		a.Recent = append(a.Recent, Transaction{})
	}
	copy(a.Recent[1:], a.Recent)
	a.Recent[0] = *tran
}

// Snapshot 回傳變更後回給呼叫端的餘額快照
func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Balance:     a.Balance,
		CreditLimit: a.CreditLimit,
	}
}

// Clone 回傳帳戶的深拷貝，讓讀取方拿到一致且獨立的快照
func (a *Account) Clone() *Account {
	recent := make([]Transaction, len(a.Recent))
	copy(recent, a.Recent)
	return &Account{
		ID:          a.ID,
		CreditLimit: a.CreditLimit,
		Balance:     a.Balance,
		Recent:      recent,
	}
}

// Snapshot 變更後的帳戶快照 (回應 POST /transacoes 用)
type Snapshot struct {
	Balance     int64
	CreditLimit int64
}
