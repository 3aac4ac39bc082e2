package tool

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Banking-Assistant/agent/contract"
)

var catalog = map[contractx.ToolName]*schema.ToolInfo{
	contractx.ToolBlockCard: {
		Name: string(contractx.ToolBlockCard),
		Desc: "Block a payment card identified by its last 4 digits. Requires confirmation.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"customerId":     {Type: schema.String, Desc: "Customer id", Required: true},
			"cardLast4":      {Type: schema.String, Desc: "Last 4 digits of the card", Required: true},
			"reason":         {Type: schema.String, Desc: "Block reason", Enum: []string{"lost", "stolen", "fraud", "other"}, Required: true},
			"idempotencyKey": {Type: schema.String, Desc: "Token that makes retries safe", Required: true},
		}),
	},
	contractx.ToolGetTransactions: {
		Name: string(contractx.ToolGetTransactions),
		Desc: "List recent transactions of an account (mini statement).",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"customerId": {Type: schema.String, Desc: "Customer id", Required: true},
			"accountId":  {Type: schema.String, Desc: "Account id such as SB-001", Required: true},
			"fromDate":   {Type: schema.String, Desc: "Window start, YYYY-MM-DD", Required: true},
			"toDate":     {Type: schema.String, Desc: "Window end, YYYY-MM-DD", Required: true},
			"limit":      {Type: schema.Integer, Desc: "Number of transactions", Required: true},
		}),
	},
	contractx.ToolLoanCheck: {
		Name: string(contractx.ToolLoanCheck),
		Desc: "Estimate loan pre-eligibility from income, existing EMIs and tenure.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"customerId":    {Type: schema.String, Desc: "Customer id", Required: true},
			"monthlyIncome": {Type: schema.Number, Desc: "Monthly income in rupees", Required: true},
			"existingEmi":   {Type: schema.Number, Desc: "Existing EMIs per month in rupees", Required: true},
			"tenureMonths":  {Type: schema.Integer, Desc: "Preferred tenure in months", Required: true},
		}),
	},
}

// Info returns the descriptor of a tool.
func Info(name contractx.ToolName) (*schema.ToolInfo, bool) {
	info, ok := catalog[name]
	return info, ok
}

// Infos returns every tool descriptor in a stable order.
func Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(contractx.AllTools))
	for _, name := range contractx.AllTools {
		out = append(out, catalog[name])
	}
	return out
}

// Describe renders the catalog as "- name: description" lines for prompts.
func Describe() string {
	var b strings.Builder
	for _, info := range Infos() {
		fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Desc)
	}
	return strings.TrimRight(b.String(), "\n")
}
