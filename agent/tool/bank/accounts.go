package bank

import (
	"fmt"
	"hash/fnv"
	"math"
	"time"

	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

var channels = []string{"POS", "ATM", "NEFT", "UPI", "IMPS"}

// statement produces a stable set of transactions for an account: the same
// request always yields the same lines, newest first, inside the window.
func statement(req contractx.TransactionsRequest) contractx.TransactionsResponse {
	from, _ := time.Parse(isoDate, req.FromDate)
	to, _ := time.Parse(isoDate, req.ToDate)
	days := int(to.Sub(from).Hours()/24) + 1

	txs := make([]contractx.Transaction, 0, req.Limit)
	for i := 0; i < req.Limit; i++ {
		day := to.AddDate(0, 0, -(i % days))
		txs = append(txs, contractx.Transaction{
			ID:     fmt.Sprintf("TX-%d", i+1),
			Date:   day.Format(isoDate),
			Desc:   channels[i%len(channels)],
			Amount: amountFor(req.AccountID, day, i),
		})
	}
	return contractx.TransactionsResponse{AccountID: req.AccountID, Transactions: txs}
}

// amountFor maps (account, day, index) to a signed amount in [-1000, 1000)
// with two decimals.
func amountFor(accountID string, day time.Time, i int) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", accountID, day.Format(isoDate), i)
	paise := int64(h.Sum64()%200000) - 100000
	return math.Round(float64(paise)) / 100
}
