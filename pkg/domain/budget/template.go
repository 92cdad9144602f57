package budget

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// BalancedPlanCode is the template every recommendation set contains.
const BalancedPlanCode = "BAL_50_30_20"

// Template is immutable catalog data describing a needs/wants/savings split.
type Template struct {
	PlanCode     string          `yaml:"plan_code" json:"plan_code"`
	Name         string          `yaml:"name" json:"name"`
	Description  string          `yaml:"description" json:"description"`
	NeedsPct     decimal.Decimal `yaml:"needs_pct" json:"needs_pct"`
	WantsPct     decimal.Decimal `yaml:"wants_pct" json:"wants_pct"`
	SavingsPct   decimal.Decimal `yaml:"savings_pct" json:"savings_pct"`
	Eligibility  Rule            `yaml:"eligibility_rule" json:"eligibility_rule"`
	DisplayOrder int             `yaml:"display_order" json:"display_order"`
}

// Validate checks the percentages and the eligibility rule.
func (t Template) Validate() error {
	if t.PlanCode == "" {
		return fmt.Errorf("template: plan_code is required")
	}
	one := decimal.NewFromInt(1)
	for _, p := range []decimal.Decimal{t.NeedsPct, t.WantsPct, t.SavingsPct} {
		if p.IsNegative() || p.GreaterThan(one) {
			return fmt.Errorf("template %s: percentage %s outside [0,1]", t.PlanCode, p)
		}
	}
	if sum := t.NeedsPct.Add(t.WantsPct).Add(t.SavingsPct); !sum.Equal(one) {
		return fmt.Errorf("template %s: percentages sum to %s, want 1", t.PlanCode, sum)
	}
	if err := t.Eligibility.Validate(); err != nil {
		return fmt.Errorf("template %s: %w", t.PlanCode, err)
	}
	return nil
}

// Catalog holds the budget templates in display order.
type Catalog struct {
	templates []Template
	byCode    map[string]Template
}

// NewCatalog validates the templates. Plan codes and display orders must be
// unique and the balanced template must be present.
func NewCatalog(templates []Template) (*Catalog, error) {
	c := &Catalog{
		templates: append([]Template(nil), templates...),
		byCode:    make(map[string]Template, len(templates)),
	}
	sort.SliceStable(c.templates, func(i, j int) bool {
		return c.templates[i].DisplayOrder < c.templates[j].DisplayOrder
	})
	orders := make(map[int]string, len(templates))
	for _, t := range c.templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byCode[t.PlanCode]; dup {
			return nil, fmt.Errorf("template %s: duplicate plan_code", t.PlanCode)
		}
		if other, dup := orders[t.DisplayOrder]; dup {
			return nil, fmt.Errorf("template %s: display_order %d already used by %s", t.PlanCode, t.DisplayOrder, other)
		}
		orders[t.DisplayOrder] = t.PlanCode
		c.byCode[t.PlanCode] = t
	}
	if _, ok := c.byCode[BalancedPlanCode]; !ok {
		return nil, fmt.Errorf("template catalog: %s is missing", BalancedPlanCode)
	}
	if len(c.templates) < 3 {
		return nil, fmt.Errorf("template catalog: need at least 3 templates, got %d", len(c.templates))
	}
	return c, nil
}

// Balanced returns the default template.
func (c *Catalog) Balanced() Template { return c.byCode[BalancedPlanCode] }

// Lookup finds a template by plan code.
func (c *Catalog) Lookup(code string) (Template, bool) {
	t, ok := c.byCode[code]
	return t, ok
}

// All returns the templates in ascending display order.
func (c *Catalog) All() []Template {
	return append([]Template(nil), c.templates...)
}
