package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

// FailureText is shown when a tool call fails or its outcome is unknown.
const FailureText = "Sorry, I couldn't complete that right now. Please try again."

// previewLines caps how many statement lines the composer sees.
const previewLines = 5

func blockCardText(last4 string, res contractx.BlockCardResponse) string {
	if res.Status == contractx.BlockStatusAlreadyBlocked {
		return fmt.Sprintf("Card ****%s was already blocked. Ref: %s.", last4, res.ReferenceID)
	}
	return fmt.Sprintf("Card ****%s blocked. Ref: %s.", last4, res.ReferenceID)
}

func statementLines(res contractx.TransactionsResponse) []string {
	lines := make([]string, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		dir := "CR"
		if tx.Amount < 0 {
			dir = "DR"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s ₹%s", tx.Date, tx.Desc, dir, formatAmount(math.Abs(tx.Amount))))
	}
	return lines
}

func statementText(res contractx.TransactionsResponse, lines []string) string {
	header := fmt.Sprintf("Mini statement for %s (last %d):", res.AccountID, len(lines))
	if len(lines) == 0 {
		return header
	}
	return header + "\n- " + strings.Join(lines, "\n- ")
}

func loanText(res contractx.LoanCheckResponse) string {
	if res.Eligible {
		return fmt.Sprintf("Eligible. Estimated max amount ~ ₹%s.", formatAmount(math.Round(res.MaxAmount)))
	}
	reason := res.Reason
	if reason == "" {
		reason = "criteria not met"
	}
	return fmt.Sprintf("Not eligible: %s.", reason)
}

// formatAmount prints whole amounts without a fraction and keeps paise otherwise.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
