package domain

import (
	"time"

	"github.com/google/uuid"
)

// 金額使用 int64，單位為分 (centavos)，不處理小數與多幣別

// TransactionType 交易類型
// 為了極致節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 入帳 (credit)，餘額增加
	TransactionTypeCredit TransactionType = 1
	// 出帳 (debit)，餘額減少
	TransactionTypeDebit TransactionType = 2
)

// ParseTransactionType 解析 wire 格式的交易類型 ("c" / "d")
func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case "c":
		return TransactionTypeCredit, nil
	case "d":
		return TransactionTypeDebit, nil
	default:
		return 0, ErrInvalidTransactionType
	}
}

// String 回傳 wire 格式 ("c" / "d")
func (t TransactionType) String() string {
	if t == TransactionTypeCredit {
		return "c"
	}
	return "d"
}

// Transaction 交易紀錄，被 Processor 建立後即不可變
// 注意欄位排序以避免 Padding
type Transaction struct {
	// RefID: 外部追蹤號 (UUID)，寫入稽核日誌用
	RefID uuid.UUID
	// AccountID: 所屬帳戶 ID
	AccountID int64
	// Amount: 金額，恆為正數，方向由 Type 決定
	Amount int64
	// CreatedAt: Processor 受理交易的時間 (UTC)
	CreatedAt time.Time
	// Description: 1~10 字元的描述，由上游驗證
	Description string
	// Type: 放到最後面，利用 Padding 空間
	Type TransactionType
}

// Delta 回傳帶符號的餘額變化量
// Credit 為 +Amount，Debit 為 -Amount
func (t *Transaction) Delta() int64 {
	if t.Type == TransactionTypeCredit {
		return t.Amount
	}
	return -t.Amount
}
