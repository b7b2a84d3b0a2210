package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
)

// fakeLedger 記下收到的交易，回傳預先設定的結果
type fakeLedger struct {
	lastTran *domain.Transaction
	snap     domain.Snapshot
	err      error
	account  *domain.Account
}

func (f *fakeLedger) Apply(ctx context.Context, tran *domain.Transaction) (domain.Snapshot, error) {
	f.lastTran = tran
	return f.snap, f.err
}

func (f *fakeLedger) ReadAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if f.account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return f.account, nil
}

// TestProcessTransactionAssignsMetadata Processor 負責配發受理時間與追蹤號
func TestProcessTransactionAssignsMetadata(t *testing.T) {
	ledger := &fakeLedger{snap: domain.Snapshot{Balance: 10, CreditLimit: 100}}
	core := NewCoreUseCase(ledger)

	before := time.Now().UTC()
	snap, err := core.ProcessTransaction(context.Background(), 1, 10, domain.TransactionTypeCredit, "pix")
	after := time.Now().UTC()
	if err != nil {
		t.Fatal(err)
	}
	if snap != ledger.snap {
		t.Fatalf("snapshot=%+v want=%+v", snap, ledger.snap)
	}

	tran := ledger.lastTran
	if tran == nil {
		t.Fatal("ledger never called")
	}
	if tran.RefID == uuid.Nil {
		t.Fatal("ref id not assigned")
	}
	if tran.CreatedAt.Before(before) || tran.CreatedAt.After(after) {
		t.Fatalf("created_at=%v not in [%v, %v]", tran.CreatedAt, before, after)
	}
	if tran.AccountID != 1 || tran.Amount != 10 || tran.Type != domain.TransactionTypeCredit || tran.Description != "pix" {
		t.Fatalf("fields not forwarded: %+v", tran)
	}
}

// TestProcessTransactionForwardsOutcome 被拒絕就是被拒絕，不重試、不改寫錯誤
func TestProcessTransactionForwardsOutcome(t *testing.T) {
	ledger := &fakeLedger{err: domain.ErrLimitExceeded}
	core := NewCoreUseCase(ledger)

	if _, err := core.ProcessTransaction(context.Background(), 1, 10, domain.TransactionTypeDebit, "compra"); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Fatalf("want ErrLimitExceeded, got %v", err)
	}
}

// TestGetStatement 對帳單帶讀取當下的時間戳，內容來自 Ledger 快照
func TestGetStatement(t *testing.T) {
	account := domain.NewAccount(1, 100)
	account.Balance = -30
	account.Recent = append(account.Recent, domain.Transaction{Amount: 30, Type: domain.TransactionTypeDebit, Description: "compra"})
	core := NewCoreUseCase(&fakeLedger{account: account})

	before := time.Now().UTC()
	statement, err := core.GetStatement(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if statement.Balance != -30 || statement.CreditLimit != 100 || len(statement.Recent) != 1 {
		t.Fatalf("statement=%+v", statement)
	}
	if statement.At.Before(before) {
		t.Fatalf("statement time %v earlier than read time %v", statement.At, before)
	}
}

// TestGetStatementNotFound 找不到帳戶原樣回傳
func TestGetStatementNotFound(t *testing.T) {
	core := NewCoreUseCase(&fakeLedger{})
	if _, err := core.GetStatement(context.Background(), 99); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
}
