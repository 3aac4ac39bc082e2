package bank

import contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"

const (
	minDisposableIncome = 10000
	incomeMultiplier    = 50
)

func loanEligibility(req contractx.LoanCheckRequest) contractx.LoanCheckResponse {
	disposable := req.MonthlyIncome - req.ExistingEMI
	if disposable < minDisposableIncome {
		return contractx.LoanCheckResponse{Eligible: false, Reason: "Low disposable income"}
	}
	return contractx.LoanCheckResponse{Eligible: true, MaxAmount: disposable * incomeMultiplier}
}
