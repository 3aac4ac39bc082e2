// Package normalize captures obvious answers (yes/no, bare numbers, account
// ids) straight into slot memory before any classification runs.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
)

const DefaultLimit = 5

var (
	affirmPattern    = regexp.MustCompile(`(?i)^(yes|y)$`)
	cancelPattern    = regexp.MustCompile(`(?i)^(no|n|cancel)$`)
	defaultPattern   = regexp.MustCompile(`(?i)^default$`)
	smallNumPattern  = regexp.MustCompile(`^\d{1,2}$`)
	accountIDPattern = regexp.MustCompile(`^[A-Za-z]{2}-\d{3}$`)
	largeNumPattern  = regexp.MustCompile(`^\d{4,}$`)
	digitsPattern    = regexp.MustCompile(`^\d+$`)
)

// Result describes what a Normalize call did.
type Result struct {
	// Cancelled means the user backed out; the turn must stop here.
	Cancelled bool
	Written   []statex.Name
}

// Normalize applies the capture rules in priority order. It never overwrites
// an existing value except confirmed and accountId, and it never fails:
// values outside their slot domain are skipped.
func Normalize(text string, mem *statex.Memory) Result {
	var res Result
	t := strings.TrimSpace(text)

	if affirmPattern.MatchString(t) {
		res.set(mem, statex.Confirmed, statex.Bool(true), true)
	}
	if cancelPattern.MatchString(t) {
		res.Cancelled = true
		return res
	}
	if defaultPattern.MatchString(t) {
		res.set(mem, statex.Limit, statex.Number(DefaultLimit), false)
	}
	if smallNumPattern.MatchString(t) && !mem.Has(statex.Limit) {
		n, _ := strconv.Atoi(t)
		res.set(mem, statex.Limit, statex.Number(clamp(float64(n), 1, 10)), false)
	}
	if accountIDPattern.MatchString(t) {
		res.set(mem, statex.AccountID, statex.String(t), true)
	}

	switch {
	case largeNumPattern.MatchString(t) && !mem.Has(statex.MonthlyIncome):
		res.setNumber(mem, statex.MonthlyIncome, t)
	case digitsPattern.MatchString(t) && mem.Has(statex.MonthlyIncome) && !mem.Has(statex.ExistingEMI):
		res.setNumber(mem, statex.ExistingEMI, t)
	case digitsPattern.MatchString(t) && mem.Has(statex.ExistingEMI) && !mem.Has(statex.TenureMonths):
		res.setNumber(mem, statex.TenureMonths, t)
	}

	return res
}

func (r *Result) setNumber(mem *statex.Memory, name statex.Name, digits string) {
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return
	}
	r.set(mem, name, statex.Number(n), false)
}

func (r *Result) set(mem *statex.Memory, name statex.Name, v statex.Value, overwrite bool) {
	var err error
	wrote := true
	if overwrite {
		err = mem.Set(name, v)
	} else {
		wrote, err = mem.SetIfAbsent(name, v)
	}
	if err != nil {
		log.Debug().Err(err).Str("slot", string(name)).Msg("normalizer dropped value")
		return
	}
	if wrote {
		r.Written = append(r.Written, name)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
