package goal

import (
	"testing"
	"time"

	"github.com/amirasaad/finplan/pkg/domain"
	"github.com/amirasaad/finplan/pkg/period"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func emergencyDef() CategoryDef {
	return CategoryDef{
		Category:       CategoryEmergency,
		Name:           "Emergency Fund",
		DefaultHorizon: HorizonShort,
		LinkedTxnType:  TxnAssets,
		IsMandatory:    true,
		DisplayOrder:   1,
	}
}

func TestBuilder_DerivesDefaults(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	g, err := New(userID, emergencyDef()).
		WithEstimatedCost(decimal.NewFromInt(150000)).
		WithCurrentSavings(decimal.NewFromInt(20000)).
		WithImportance(5).
		Build(now)
	require.NoError(t, err)

	assert.Equal(t, userID, g.UserID)
	assert.Equal(t, "Emergency Fund", g.Name)
	assert.Equal(t, HorizonShort, g.Type)
	assert.Equal(t, TxnAssets, g.LinkedTxnType)
	assert.Equal(t, now.AddDate(1, 0, 0), g.TargetDate)
	assert.Equal(t, StatusActive, g.Status)
	assert.True(t, g.StartingSavings.Equal(decimal.NewFromInt(20000)))
	assert.True(t, g.Gap().Equal(decimal.NewFromInt(130000)))
}

func TestBuilder_HorizonOverrideDrivesTargetDate(t *testing.T) {
	t.Parallel()
	g, err := New(uuid.New(), emergencyDef()).
		WithHorizon(HorizonLong).
		WithEstimatedCost(decimal.NewFromInt(1000)).
		WithImportance(3).
		Build(now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(7, 0, 0), g.TargetDate)
}

func TestBuilder_ValidationErrors(t *testing.T) {
	t.Parallel()
	past := now.AddDate(0, -1, 0)
	tests := []struct {
		name  string
		build func(b *Builder) *Builder
		code  string
	}{
		{"zero cost", func(b *Builder) *Builder { return b.WithImportance(3) }, domain.CodeGoalInvalidCost},
		{"negative cost", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(-5)).WithImportance(3)
		}, domain.CodeGoalInvalidCost},
		{"importance too high", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(5)).WithImportance(6)
		}, domain.CodeGoalInvalidImportance},
		{"importance zero", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(5))
		}, domain.CodeGoalInvalidImportance},
		{"past target", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(5)).WithImportance(2).WithTargetDate(&past)
		}, domain.CodeGoalPastTargetDate},
		{"override not allowed", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(5)).WithImportance(2).WithLinkedTxnType(TxnWants)
		}, domain.CodeGoalOverrideNotAllowed},
		{"bad horizon", func(b *Builder) *Builder {
			return b.WithEstimatedCost(decimal.NewFromInt(5)).WithImportance(2).WithHorizon("forever")
		}, domain.CodeGoalInvalidType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build(New(uuid.New(), emergencyDef())).Build(now)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tc.code, domain.CodeOf(err))
		})
	}
}

func TestBuilder_OverrideEligible(t *testing.T) {
	t.Parallel()
	def := emergencyDef()
	def.OverrideEligible = true
	g, err := New(uuid.New(), def).
		WithEstimatedCost(decimal.NewFromInt(5)).
		WithImportance(2).
		WithLinkedTxnType(TxnWants).
		Build(now)
	require.NoError(t, err)
	assert.Equal(t, TxnWants, g.LinkedTxnType)
}

func TestEligibleFor(t *testing.T) {
	t.Parallel()
	march := period.MustParse("2026-03")
	april := march.Next()

	active := &Goal{Status: StatusActive}
	assert.True(t, active.EligibleFor(march))

	completed := &Goal{Status: StatusActive}
	completed.Complete(march)
	assert.True(t, completed.EligibleFor(march))
	assert.True(t, completed.EligibleFor(march.Prev()))
	assert.False(t, completed.EligibleFor(april))

	archived := &Goal{Status: StatusActive}
	archived.Archive(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))
	assert.True(t, archived.EligibleFor(march))
	assert.False(t, archived.EligibleFor(april))
	assert.Zero(t, archived.PriorityRank)
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	cat, err := NewCatalog([]CategoryDef{
		{Category: "travel", Name: "Vacation", DefaultHorizon: HorizonShort, LinkedTxnType: TxnWants, DisplayOrder: 2},
		emergencyDef(),
	})
	require.NoError(t, err)

	assert.Equal(t, CategoryEmergency, cat.All()[0].Category)

	def, ok := cat.Lookup("travel", "Trip to Japan")
	require.True(t, ok)
	assert.Equal(t, "Vacation", def.Name)
	assert.Equal(t, RelevantNone, def.Dependents)

	_, ok = cat.Lookup("yacht", "")
	assert.False(t, ok)

	_, err = NewCatalog([]CategoryDef{emergencyDef(), emergencyDef()})
	assert.Error(t, err)
}

func TestLifeContextValidate(t *testing.T) {
	t.Parallel()
	lc := LifeContext{
		AgeBand:          Age25To34,
		Employment:       EmploymentSalaried,
		IncomeRegularity: IncomeStable,
	}
	require.NoError(t, lc.Validate())

	lc.IncomeRegularity = "sometimes"
	err := lc.Validate()
	assert.Equal(t, domain.CodeLifeContextInvalid, domain.CodeOf(err))
}
