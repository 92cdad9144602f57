package goal

import (
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/google/uuid"
)

// AgeBand buckets the user's age.
type AgeBand string

const (
	AgeUnder25 AgeBand = "under_25"
	Age25To34  AgeBand = "25_34"
	Age35To44  AgeBand = "35_44"
	Age45To54  AgeBand = "45_54"
	Age55Plus  AgeBand = "55_plus"
)

// Employment is the user's employment situation.
type Employment string

const (
	EmploymentSalaried     Employment = "salaried"
	EmploymentSelfEmployed Employment = "self_employed"
	EmploymentBusiness     Employment = "business"
	EmploymentUnemployed   Employment = "unemployed"
	EmploymentRetired      Employment = "retired"
)

// IncomeRegularity describes how predictable the user's income is.
type IncomeRegularity string

const (
	IncomeVeryStable IncomeRegularity = "very_stable"
	IncomeStable     IncomeRegularity = "stable"
	IncomeVariable   IncomeRegularity = "variable"
)

// Valid reports whether r is a known level.
func (r IncomeRegularity) Valid() bool {
	switch r {
	case IncomeVeryStable, IncomeStable, IncomeVariable:
		return true
	}
	return false
}

// Dependents counts the people relying on the user.
type Dependents struct {
	Children      int  `json:"children"`
	ParentsInCare bool `json:"parents_in_care"`
}

// LifeContext is the user's situation used to score goals. It must exist
// before goals can be submitted.
type LifeContext struct {
	UserID           uuid.UUID
	AgeBand          AgeBand
	Dependents       Dependents
	Employment       Employment
	IncomeRegularity IncomeRegularity
	RegionCode       string
	UpdatedAt        time.Time
}

// Validate checks the enum fields and counts.
func (lc *LifeContext) Validate() error {
	switch lc.AgeBand {
	case AgeUnder25, Age25To34, Age35To44, Age45To54, Age55Plus:
	default:
		return domain.Validation(domain.CodeLifeContextInvalid, "unknown age band %q", lc.AgeBand)
	}
	switch lc.Employment {
	case EmploymentSalaried, EmploymentSelfEmployed, EmploymentBusiness, EmploymentUnemployed, EmploymentRetired:
	default:
		return domain.Validation(domain.CodeLifeContextInvalid, "unknown employment %q", lc.Employment)
	}
	if !lc.IncomeRegularity.Valid() {
		return domain.Validation(domain.CodeLifeContextInvalid, "unknown income regularity %q", lc.IncomeRegularity)
	}
	if lc.Dependents.Children < 0 {
		return domain.Validation(domain.CodeLifeContextInvalid, "children must not be negative")
	}
	return nil
}
