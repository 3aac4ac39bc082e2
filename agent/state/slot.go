package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	ErrUnknownSlot = errors.New("unknown slot")
	ErrSlotDomain  = errors.New("slot value outside its domain")
)

// Name is a slot key. The set is closed: anything else is rejected at the
// merge boundary.
type Name string

const (
	CardLast4      Name = "cardLast4"
	AccountID      Name = "accountId"
	Limit          Name = "limit"
	MonthlyIncome  Name = "monthlyIncome"
	ExistingEMI    Name = "existingEmi"
	TenureMonths   Name = "tenureMonths"
	Confirmed      Name = "confirmed"
	IdempotencyKey Name = "idempotencyKey"
	CustomerID     Name = "customerId"
)

// ExtractableNames are the slots a classifier is allowed to propose.
var ExtractableNames = []Name{CardLast4, AccountID, Limit, MonthlyIncome, ExistingEMI, TenureMonths}

type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a tagged slot value: exactly one of string, number or bool.
type Value struct {
	kind Kind
	str  string
	num  float64
	flag bool
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, flag: b} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsZero() bool { return v.kind == 0 }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) Flag() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// Any returns the plain Go value, suitable for JSON snapshots.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.flag
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v Value) String() string {
	return fmt.Sprint(v.Any())
}

type domain struct {
	kind  Kind
	check func(Value) error
}

var (
	cardLast4Pattern = regexp.MustCompile(`^\d{4}$`)
	accountIDPattern = regexp.MustCompile(`^[A-Za-z]{2}-\d{3}$`)
)

var domains = map[Name]domain{
	CardLast4:      {kind: KindString, check: matches(cardLast4Pattern)},
	AccountID:      {kind: KindString, check: matches(accountIDPattern)},
	Limit:          {kind: KindNumber, check: integerWithin(1, 10)},
	MonthlyIncome:  {kind: KindNumber, check: positive},
	ExistingEMI:    {kind: KindNumber, check: nonNegative},
	TenureMonths:   {kind: KindNumber, check: integerWithin(6, 360)},
	Confirmed:      {kind: KindBool},
	IdempotencyKey: {kind: KindString, check: nonEmpty},
	CustomerID:     {kind: KindString, check: nonEmpty},
}

// Known reports whether name belongs to the closed slot set.
func Known(name Name) bool {
	_, ok := domains[name]
	return ok
}

// Validate checks v against the declared domain of name.
func Validate(name Name, v Value) error {
	d, ok := domains[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}
	if v.kind != d.kind {
		return fmt.Errorf("%w: %s must be a %s, got %s", ErrSlotDomain, name, d.kind, v.kind)
	}
	if d.check == nil {
		return nil
	}
	if err := d.check(v); err != nil {
		return fmt.Errorf("%w: %s %v", ErrSlotDomain, name, err)
	}
	return nil
}

// Parse converts a decoded JSON value into a validated slot value.
func Parse(name Name, raw any) (Value, error) {
	d, ok := domains[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}

	var v Value
	switch x := raw.(type) {
	case string:
		v = String(x)
	case bool:
		v = Bool(x)
	case float64:
		v = Number(x)
	case float32:
		v = Number(float64(x))
	case int:
		v = Number(float64(x))
	case int64:
		v = Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrSlotDomain, name, err)
		}
		v = Number(f)
	default:
		return Value{}, fmt.Errorf("%w: %s has unsupported type %T", ErrSlotDomain, name, raw)
	}

	if v.kind != d.kind {
		return Value{}, fmt.Errorf("%w: %s must be a %s, got %s", ErrSlotDomain, name, d.kind, v.kind)
	}
	if err := Validate(name, v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func matches(p *regexp.Regexp) func(Value) error {
	return func(v Value) error {
		if !p.MatchString(v.str) {
			return fmt.Errorf("%q does not match %s", v.str, p.String())
		}
		return nil
	}
}

func integerWithin(lo, hi float64) func(Value) error {
	return func(v Value) error {
		if v.num != math.Trunc(v.num) {
			return fmt.Errorf("%v is not an integer", v.num)
		}
		if v.num < lo || v.num > hi {
			return fmt.Errorf("%v is outside %v..%v", v.num, lo, hi)
		}
		return nil
	}
}

func positive(v Value) error {
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) || v.num <= 0 {
		return fmt.Errorf("%v must be positive", v.num)
	}
	return nil
}

func nonNegative(v Value) error {
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) || v.num < 0 {
		return fmt.Errorf("%v must not be negative", v.num)
	}
	return nil
}

func nonEmpty(v Value) error {
	if strings.TrimSpace(v.str) == "" {
		return errors.New("must not be empty")
	}
	return nil
}
