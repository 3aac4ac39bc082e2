package contract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type ToolName string

const (
	ToolBlockCard       ToolName = "blockCard"
	ToolGetTransactions ToolName = "getTransactions"
	ToolLoanCheck       ToolName = "loanCheck"
)

// AllTools lists every tool the assistant knows about.
var AllTools = []ToolName{ToolBlockCard, ToolGetTransactions, ToolLoanCheck}

func (t ToolName) Valid() bool {
	switch t {
	case ToolBlockCard, ToolGetTransactions, ToolLoanCheck:
		return true
	default:
		return false
	}
}

type BlockReason string

const (
	BlockReasonLost   BlockReason = "lost"
	BlockReasonStolen BlockReason = "stolen"
	BlockReasonFraud  BlockReason = "fraud"
	BlockReasonOther  BlockReason = "other"
)

const isoDate = "2006-01-02"

var (
	cardSuffixPattern = regexp.MustCompile(`^\d{4}$`)
	accountIDPattern  = regexp.MustCompile(`^[A-Za-z]{2}-\d{3}$`)
)

type BlockCardRequest struct {
	CustomerID     string      `json:"customerId"`
	CardLast4      string      `json:"cardLast4"`
	Reason         BlockReason `json:"reason"`
	IdempotencyKey string      `json:"idempotencyKey"`
}

func (r BlockCardRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("%w: customerId is required", ErrValidation)
	}
	if !cardSuffixPattern.MatchString(r.CardLast4) {
		return fmt.Errorf("%w: cardLast4 must be 4 digits", ErrValidation)
	}
	switch r.Reason {
	case BlockReasonLost, BlockReasonStolen, BlockReasonFraud, BlockReasonOther:
	default:
		return fmt.Errorf("%w: invalid block reason %q", ErrValidation, r.Reason)
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return fmt.Errorf("%w: idempotencyKey is required", ErrValidation)
	}
	return nil
}

type BlockStatus string

const (
	BlockStatusBlocked        BlockStatus = "blocked"
	BlockStatusAlreadyBlocked BlockStatus = "already_blocked"
)

type BlockCardResponse struct {
	Status      BlockStatus `json:"status"`
	ReferenceID string      `json:"referenceId"`
}

type TransactionsRequest struct {
	CustomerID string `json:"customerId"`
	AccountID  string `json:"accountId"`
	FromDate   string `json:"fromDate"`
	ToDate     string `json:"toDate"`
	Limit      int    `json:"limit"`
}

func (r TransactionsRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("%w: customerId is required", ErrValidation)
	}
	if !accountIDPattern.MatchString(r.AccountID) {
		return fmt.Errorf("%w: accountId must look like SB-001", ErrValidation)
	}
	from, err := time.Parse(isoDate, r.FromDate)
	if err != nil {
		return fmt.Errorf("%w: fromDate: %v", ErrValidation, err)
	}
	to, err := time.Parse(isoDate, r.ToDate)
	if err != nil {
		return fmt.Errorf("%w: toDate: %v", ErrValidation, err)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: toDate is before fromDate", ErrValidation)
	}
	if r.Limit < 1 || r.Limit > 50 {
		return fmt.Errorf("%w: limit must be within 1..50", ErrValidation)
	}
	return nil
}

type Transaction struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Desc   string  `json:"desc"`
	Amount float64 `json:"amount"`
}

type TransactionsResponse struct {
	AccountID    string        `json:"accountId"`
	Transactions []Transaction `json:"transactions"`
}

type LoanCheckRequest struct {
	CustomerID    string  `json:"customerId"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	ExistingEMI   float64 `json:"existingEmi"`
	TenureMonths  int     `json:"tenureMonths"`
}

func (r LoanCheckRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("%w: customerId is required", ErrValidation)
	}
	if r.MonthlyIncome <= 0 {
		return fmt.Errorf("%w: monthlyIncome must be positive", ErrValidation)
	}
	if r.ExistingEMI < 0 {
		return fmt.Errorf("%w: existingEmi must not be negative", ErrValidation)
	}
	if r.TenureMonths < 6 || r.TenureMonths > 360 {
		return fmt.Errorf("%w: tenureMonths must be within 6..360", ErrValidation)
	}
	return nil
}

type LoanCheckResponse struct {
	Eligible  bool    `json:"eligible"`
	MaxAmount float64 `json:"maxAmount"`
	Reason    string  `json:"reason,omitempty"`
}
