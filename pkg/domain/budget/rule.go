package budget

import (
	"fmt"
	"strconv"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"github.com/shopspring/decimal"
)

// Predicate names the closed vocabulary a Rule may test.
type Predicate string

const (
	HasEmergencyGoal     Predicate = "has_emergency_goal"
	HasDebtGoal          Predicate = "has_debt_goal"
	WantsRatioGT         Predicate = "wants_ratio_gt"
	ActiveGoalCountGTE   Predicate = "active_goal_count_gte"
	IncomeIrregularityIs Predicate = "income_irregularity_is"
)

// State is what eligibility rules are evaluated against.
type State struct {
	HasEmergencyGoal bool
	HasDebtGoal      bool
	WantsRatio       decimal.Decimal
	ActiveGoalCount  int
	IncomeRegularity goal.IncomeRegularity
}

// Rule is a node of an eligibility expression. Exactly one of the fields is
// set: Const, All, Any, Not or Predicate (with Arg for the predicates that
// take an operand).
//
//	eligibility_rule:
//	  any:
//	    - predicate: has_emergency_goal
//	    - predicate: income_irregularity_is
//	      arg: variable
type Rule struct {
	Const     *bool     `yaml:"const,omitempty" json:"const,omitempty"`
	All       []Rule    `yaml:"all,omitempty" json:"all,omitempty"`
	Any       []Rule    `yaml:"any,omitempty" json:"any,omitempty"`
	Not       *Rule     `yaml:"not,omitempty" json:"not,omitempty"`
	Predicate Predicate `yaml:"predicate,omitempty" json:"predicate,omitempty"`
	Arg       string    `yaml:"arg,omitempty" json:"arg,omitempty"`
}

// Always returns a rule that is always true.
func Always() Rule {
	t := true
	return Rule{Const: &t}
}

// Pred returns a predicate leaf.
func Pred(p Predicate, arg string) Rule { return Rule{Predicate: p, Arg: arg} }

// AllOf returns a conjunction.
func AllOf(rules ...Rule) Rule { return Rule{All: rules} }

// AnyOf returns a disjunction.
func AnyOf(rules ...Rule) Rule { return Rule{Any: rules} }

// Negate returns the negation of r.
func Negate(r Rule) Rule { return Rule{Not: &r} }

func (r Rule) kinds() int {
	n := 0
	if r.Const != nil {
		n++
	}
	if r.All != nil {
		n++
	}
	if r.Any != nil {
		n++
	}
	if r.Not != nil {
		n++
	}
	if r.Predicate != "" {
		n++
	}
	return n
}

// Validate checks that the expression only uses the known vocabulary and
// that every operand parses.
func (r Rule) Validate() error {
	if r.kinds() != 1 {
		return domain.Validation(domain.CodeInvalidRule, "rule node must set exactly one of const, all, any, not, predicate")
	}
	switch {
	case r.Const != nil:
		return nil
	case r.All != nil || r.Any != nil:
		children := r.All
		if r.Any != nil {
			children = r.Any
		}
		if len(children) == 0 {
			return domain.Validation(domain.CodeInvalidRule, "all/any needs at least one operand")
		}
		for _, c := range children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	case r.Not != nil:
		return r.Not.Validate()
	}
	return r.validatePredicate()
}

func (r Rule) validatePredicate() error {
	switch r.Predicate {
	case HasEmergencyGoal, HasDebtGoal:
		return nil
	case WantsRatioGT:
		if _, err := decimal.NewFromString(r.Arg); err != nil {
			return domain.Validation(domain.CodeInvalidRule, "%s: arg %q is not a number", r.Predicate, r.Arg)
		}
		return nil
	case ActiveGoalCountGTE:
		if _, err := strconv.Atoi(r.Arg); err != nil {
			return domain.Validation(domain.CodeInvalidRule, "%s: arg %q is not an integer", r.Predicate, r.Arg)
		}
		return nil
	case IncomeIrregularityIs:
		if !goal.IncomeRegularity(r.Arg).Valid() {
			return domain.Validation(domain.CodeInvalidRule, "%s: unknown level %q", r.Predicate, r.Arg)
		}
		return nil
	}
	return domain.Validation(domain.CodeInvalidRule, "unknown predicate %q", r.Predicate)
}

// Evaluate interprets the rule against s. The second result lists a short
// description of every predicate that held in a non-negated position; it is
// used to explain a recommendation. Rules must be validated first; a
// malformed node evaluates to false.
func (r Rule) Evaluate(s State) (bool, []string) {
	switch {
	case r.Const != nil:
		return *r.Const, nil
	case r.All != nil:
		var matched []string
		for _, c := range r.All {
			ok, m := c.Evaluate(s)
			if !ok {
				return false, nil
			}
			matched = append(matched, m...)
		}
		return true, matched
	case r.Any != nil:
		var (
			result  bool
			matched []string
		)
		for _, c := range r.Any {
			if ok, m := c.Evaluate(s); ok {
				result = true
				matched = append(matched, m...)
			}
		}
		return result, matched
	case r.Not != nil:
		ok, _ := r.Not.Evaluate(s)
		return !ok, nil
	}
	return r.evalPredicate(s)
}

func (r Rule) evalPredicate(s State) (bool, []string) {
	var (
		ok   bool
		desc string
	)
	switch r.Predicate {
	case HasEmergencyGoal:
		ok, desc = s.HasEmergencyGoal, "you are building an emergency fund"
	case HasDebtGoal:
		ok, desc = s.HasDebtGoal, "you have debt to pay down"
	case WantsRatioGT:
		limit, err := decimal.NewFromString(r.Arg)
		if err != nil {
			return false, nil
		}
		ok = s.WantsRatio.GreaterThan(limit)
		desc = fmt.Sprintf("wants take %s%% of income, above %s%%",
			s.WantsRatio.Mul(decimal.NewFromInt(100)).Round(0), limit.Mul(decimal.NewFromInt(100)).Round(0))
	case ActiveGoalCountGTE:
		n, err := strconv.Atoi(r.Arg)
		if err != nil {
			return false, nil
		}
		ok, desc = s.ActiveGoalCount >= n, fmt.Sprintf("%d active goals compete for savings", s.ActiveGoalCount)
	case IncomeIrregularityIs:
		ok, desc = string(s.IncomeRegularity) == r.Arg, fmt.Sprintf("your income is %s", r.Arg)
	}
	if !ok {
		return false, nil
	}
	return true, []string{desc}
}
