package domain

import "errors"

var (
	// ErrAccountNotFound 找不到帳戶 (未被預先建立的 ID)
	ErrAccountNotFound = errors.New("account not found")

	// ErrLimitExceeded 超出信用額度，交易被拒絕
	// 這是正常的業務結果，不是系統錯誤，且必須保證狀態完全不變
	ErrLimitExceeded = errors.New("credit limit exceeded")

	// ErrInvalidTransactionType 無效的交易類型
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrStoreUnavailable 資料庫無法連線或原子操作無法完成
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrWALWriteFailed WAL 寫入失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
