package domain

import "time"

// User is a betting account with a single wallet balance. Authentication and
// profile management live in a separate service; this core only reads users
// and moves their balance.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phone_number"`
	WalletBalance float64   `json:"wallet_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TransactionType classifies a wallet movement.
type TransactionType string

const (
	TxnBet      TransactionType = "bet"
	TxnWin      TransactionType = "win"
	TxnDeposit  TransactionType = "deposit"
	TxnWithdraw TransactionType = "withdraw"
)

// TransactionStatus tracks deposit/withdraw approval. Bet and win
// transactions are recorded already approved.
type TransactionStatus string

const (
	TxnPending  TransactionStatus = "pending"
	TxnApproved TransactionStatus = "approved"
	TxnRejected TransactionStatus = "rejected"
)

// Transaction is one wallet ledger entry. Reference carries the external
// payment reference for deposits or the wager ID for bet/win entries.
type Transaction struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Type       TransactionType   `json:"type"`
	Amount     float64           `json:"amount"`
	Reference  string            `json:"reference,omitempty"`
	ReceiptURL string            `json:"receipt_url,omitempty"`
	Status     TransactionStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// WinningRatio is the payout multiplier for one game type, maintained by
// admins and looked up server-side at bet placement.
type WinningRatio struct {
	Game      GameType  `json:"game"`
	Ratio     float64   `json:"ratio"`
	UpdatedAt time.Time `json:"updated_at"`
}
