package wizard

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spm/internal/derived"
	"spm/internal/model"
)

func TestAnalysisView_ActionsFollowConflicts(t *testing.T) {
	req := request42()
	allow := derived.NewAllowList("0100")

	v := buildAnalysisView(model.AnalysisResult{}, req, allow)
	assert.False(t, v.CanReject)
	assert.False(t, v.CanRequestInfo)

	v = buildAnalysisView(model.AnalysisResult{Conflicts: []model.Conflict{{Type: "precio"}}}, req, allow)
	assert.False(t, v.CanReject, "no critical conflict, no reject")
	assert.True(t, v.CanRequestInfo)

	v = buildAnalysisView(model.AnalysisResult{Conflicts: []model.Conflict{{Type: "precio"}, {Type: "stock", Critical: true}}}, req, allow)
	assert.True(t, v.CanReject)
	assert.True(t, v.CanRequestInfo)
	assert.Equal(t, 1, v.CriticalConflicts)
}

func TestAnalysisView_FromWizard(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.w.Open(context.Background(), request42()))

	v, err := fx.w.AnalysisView()
	require.NoError(t, err)
	assert.True(t, v.CanContinue)
	assert.Equal(t, "a", v.Recommendations[0].Action, "recommendations ordered by priority")
	require.Len(t, v.Critical, 1)
	assert.Equal(t, "5 un.", v.Critical[0].Stock.Text)
	require.Len(t, v.Normal, 1)
	assert.True(t, v.Normal[0].MRP.Planned)
	assert.True(t, v.Normal[0].MRP.Warn)
	assert.Equal(t, 5.0, v.Normal[0].MRP.Total)

	// 5*100 + 2*50 = 600 against 1000 available
	assert.True(t, v.Budget.Sufficient)
	assert.True(t, v.Budget.Balance.Equal(decimal.NewFromInt(400)))

	require.NoError(t, fx.w.Continue(context.Background()))
	_, err = fx.w.AnalysisView()
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestSourcingView_FilterAndLocations(t *testing.T) {
	fx := newFixture(t)
	openAtSourcing(t, fx)

	v, err := fx.w.SourcingView(FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Position)
	assert.Equal(t, 2, v.Total)
	assert.False(t, v.Loading)
	assert.Equal(t, "M1", v.Item.Code)
	assert.Equal(t, "5 un.", v.Item.Stock.Text)
	require.Len(t, v.Options, 2)
	assert.Equal(t, map[model.OptionType]int{model.OptionStock: 1, model.OptionProvider: 1}, v.TypeCounts)
	assert.Len(t, v.Options[0].Locations, 1, "only allow-listed locations are listed")
	assert.Equal(t, 1, v.Options[0].OtherLocations)
	assert.Nil(t, v.Selected)

	calls := fx.be.optionCallsFor(0)
	v, err = fx.w.SourcingView(FilterProvider)
	require.NoError(t, err)
	require.Len(t, v.Options, 1)
	assert.Equal(t, "A2", v.Options[0].Option.ID)
	assert.Equal(t, calls, fx.be.optionCallsFor(0), "filtering never refetches")

	require.NoError(t, fx.w.SelectCurrent("A2"))
	v, err = fx.w.SourcingView(FilterAll)
	require.NoError(t, err)
	require.NotNil(t, v.Selected)
	assert.Equal(t, "A2", v.Selected.ID)
	assert.True(t, v.Options[1].Selected)
	assert.Equal(t, 1, v.Decided)
	assert.Equal(t, 1, v.Remaining)
	assert.True(t, v.Items[0].Decided)
	assert.True(t, v.Items[0].Current)

	assert.ErrorIs(t, fx.w.SelectCurrent("nope"), ErrUnknownItem)
}

func TestSourcingView_LoadingUntilFetched(t *testing.T) {
	fx := newFixture(t)
	openAtSourcing(t, fx)
	gate := make(chan struct{})
	fx.be.mu.Lock()
	fx.be.optionsGate = gate
	fx.be.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- fx.w.Next(context.Background()) }()
	require.Eventually(t, func() bool { return fx.be.optionCallsFor(1) == 1 }, timeout, tick)

	v, err := fx.w.SourcingView(FilterAll)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Position)
	assert.True(t, v.Loading)
	assert.Empty(t, v.Options)

	close(gate)
	require.NoError(t, <-done)
	v, _ = fx.w.SourcingView(FilterAll)
	assert.False(t, v.Loading)
	assert.Len(t, v.Options, 1)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
	f, err = ParseFilter(" Equivalence ")
	require.NoError(t, err)
	assert.Equal(t, FilterEquivalence, f)
	_, err = ParseFilter("cheapest")
	assert.Error(t, err)
}

func TestRecommended(t *testing.T) {
	_, ok := Recommended(nil)
	assert.False(t, ok)

	got, ok := Recommended([]model.SourcingOption{optA2, optB, optA})
	require.True(t, ok)
	assert.Equal(t, "A", got.ID)

	got, _ = Recommended([]model.SourcingOption{optB, optA2})
	assert.Equal(t, "A2", got.ID, "highest score when nothing is flagged")
}

func TestReviewView(t *testing.T) {
	fx := newFixture(t)
	openAtSourcing(t, fx)
	require.NoError(t, fx.w.SelectDecision(1, optB))
	require.NoError(t, fx.w.SelectDecision(0, optA))

	_, err := fx.w.ReviewView()
	assert.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, fx.w.AdvanceToReview())
	v, err := fx.w.ReviewView()
	require.NoError(t, err)
	require.Len(t, v.Entries, 2)
	assert.Equal(t, 0, v.Entries[0].Item.ItemIndex, "entries follow item order")
	assert.Equal(t, 5.0, v.Entries[0].ApprovedQuantity)
	assert.Equal(t, 2.0, v.Entries[1].ApprovedQuantity)
	// 100*5 + 45*2
	assert.True(t, v.Total.Equal(decimal.NewFromInt(590)))
	assert.True(t, v.Available.Equal(decimal.NewFromInt(1000)))
	assert.Zero(t, v.Remaining)
}
