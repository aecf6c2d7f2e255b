package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/spf13/pflag"
)

// centsValue is a pflag.Value for money amounts such as "60" or "12.50".
type centsValue struct {
	cents *int64
	set   bool
}

var _ pflag.Value = (*centsValue)(nil)

func newCentsValue(p *int64) *centsValue {
	return &centsValue{cents: p}
}

func (v *centsValue) String() string {
	if v.cents == nil {
		return "0.00"
	}
	return domain.FormatCents(*v.cents)
}

func (v *centsValue) Set(s string) error {
	c, err := domain.ParseCents(s)
	if err != nil {
		return err
	}
	*v.cents = c
	v.set = true
	return nil
}

func (v *centsValue) Type() string { return "amount" }

// periodValue is a pflag.Value restricted to the reporting periods.
type periodValue struct {
	period *domain.Period
}

var _ pflag.Value = (*periodValue)(nil)

func newPeriodValue(p *domain.Period) *periodValue {
	return &periodValue{period: p}
}

func (v *periodValue) String() string {
	if v.period == nil {
		return ""
	}
	return string(*v.period)
}

func (v *periodValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !domain.ValidPeriods[s] {
		return fmt.Errorf("unknown period %q (want today, week, month or total)", s)
	}
	*v.period = domain.Period(s)
	return nil
}

func (v *periodValue) Type() string { return "period" }
