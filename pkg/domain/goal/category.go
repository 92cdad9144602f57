package goal

import (
	"fmt"
	"sort"
	"time"
)

// Horizon is the time bucket of a goal.
type Horizon string

const (
	HorizonShort  Horizon = "short"
	HorizonMedium Horizon = "medium"
	HorizonLong   Horizon = "long"
)

// Valid reports whether h is a known horizon.
func (h Horizon) Valid() bool {
	return h == HorizonShort || h == HorizonMedium || h == HorizonLong
}

// DefaultTargetDate derives a target date from the horizon:
// short=+1y, medium=+3y, long=+7y.
func (h Horizon) DefaultTargetDate(now time.Time) time.Time {
	years := map[Horizon]int{HorizonShort: 1, HorizonMedium: 3, HorizonLong: 7}[h]
	if years == 0 {
		years = 3
	}
	return now.UTC().AddDate(years, 0, 0)
}

// TxnType is the aggregate bucket a goal is funded from.
type TxnType string

const (
	TxnNeeds  TxnType = "needs"
	TxnWants  TxnType = "wants"
	TxnAssets TxnType = "assets"
)

// Valid reports whether t is a known bucket.
func (t TxnType) Valid() bool {
	return t == TxnNeeds || t == TxnWants || t == TxnAssets
}

// DependentRelevance tells which dependents make a category more urgent.
type DependentRelevance string

const (
	RelevantNone     DependentRelevance = "none"
	RelevantChildren DependentRelevance = "children"
	RelevantParents  DependentRelevance = "parents"
	RelevantAny      DependentRelevance = "any"
)

// Well-known category codes the engines look at.
const (
	CategoryEmergency = "emergency"
	CategoryDebt      = "debt"
)

// CategoryDef is immutable catalog reference data for a goal category.
type CategoryDef struct {
	Category                  string             `yaml:"category" json:"category"`
	Name                      string             `yaml:"name" json:"name"`
	DefaultHorizon            Horizon            `yaml:"default_horizon" json:"default_horizon"`
	LinkedTxnType             TxnType            `yaml:"policy_linked_txn_type" json:"policy_linked_txn_type"`
	IsMandatory               bool               `yaml:"is_mandatory" json:"is_mandatory"`
	DebtLinked                bool               `yaml:"debt_linked" json:"debt_linked"`
	OverrideEligible          bool               `yaml:"override_eligible" json:"override_eligible"`
	Dependents                DependentRelevance `yaml:"dependents" json:"dependents"`
	SuggestedMinAmountFormula string             `yaml:"suggested_min_amount_formula" json:"suggested_min_amount_formula"`
	DisplayOrder              int                `yaml:"display_order" json:"display_order"`
}

func (d CategoryDef) key() string { return d.Category + "/" + d.Name }

// Catalog indexes category definitions.
type Catalog struct {
	defs  []CategoryDef
	byKey map[string]CategoryDef
	first map[string]CategoryDef
}

// NewCatalog validates and indexes defs. (category, name) must be unique.
func NewCatalog(defs []CategoryDef) (*Catalog, error) {
	sorted := append([]CategoryDef(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DisplayOrder < sorted[j].DisplayOrder })

	c := &Catalog{
		defs:  make([]CategoryDef, 0, len(sorted)),
		byKey: make(map[string]CategoryDef, len(defs)),
		first: make(map[string]CategoryDef),
	}
	for _, d := range sorted {
		if d.Category == "" || d.Name == "" {
			return nil, fmt.Errorf("goal catalog: category and name are required")
		}
		if !d.DefaultHorizon.Valid() {
			return nil, fmt.Errorf("goal catalog: %s: invalid horizon %q", d.key(), d.DefaultHorizon)
		}
		if !d.LinkedTxnType.Valid() {
			return nil, fmt.Errorf("goal catalog: %s: invalid linked txn type %q", d.key(), d.LinkedTxnType)
		}
		if _, dup := c.byKey[d.key()]; dup {
			return nil, fmt.Errorf("goal catalog: duplicate entry %s", d.key())
		}
		if d.Dependents == "" {
			d.Dependents = RelevantNone
		}
		c.byKey[d.key()] = d
		c.defs = append(c.defs, d)
		if _, ok := c.first[d.Category]; !ok {
			c.first[d.Category] = d
		}
	}
	return c, nil
}

// Lookup finds the definition for (category, name). When the name is not a
// catalog name the category's first definition is used, so users may name
// their goals freely within a category.
func (c *Catalog) Lookup(category, name string) (CategoryDef, bool) {
	if d, ok := c.byKey[category+"/"+name]; ok {
		return d, true
	}
	d, ok := c.first[category]
	return d, ok
}

// All returns the definitions in display order.
func (c *Catalog) All() []CategoryDef {
	return append([]CategoryDef(nil), c.defs...)
}
