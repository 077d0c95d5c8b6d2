package wizard

import (
	"sort"

	"spm/internal/derived"
	"spm/internal/model"
)

// AnalysisView is what the analysis step renders. The reject action is only
// offered when a critical conflict exists; the info request action only when
// any conflict exists.
type AnalysisView struct {
	Loading           bool
	Error             string
	Summary           model.Summary
	Conflicts         []model.Conflict
	CriticalConflicts int
	Advisories        []model.Advisory
	Recommendations   []model.Recommendation
	Critical          []ItemRow
	Normal            []ItemRow
	Low               []ItemRow
	Budget            derived.BudgetBalance
	CanContinue       bool
	CanReject         bool
	CanRequestInfo    bool
}

func (w *Wizard) AnalysisView() (AnalysisView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStepLocked("analysis_view", StepAnalysis); err != nil {
		return AnalysisView{}, err
	}
	if w.analysis == nil {
		return AnalysisView{Loading: w.analysisErr == "", Error: w.analysisErr}, nil
	}
	return buildAnalysisView(*w.analysis, w.req, w.allow), nil
}

func buildAnalysisView(a model.AnalysisResult, req model.Request, allow derived.AllowList) AnalysisView {
	v := AnalysisView{
		Summary:     a.Summary,
		Conflicts:   a.Conflicts,
		Advisories:  a.Advisories,
		Budget:      derived.Budget(req.Items, a.Summary),
		CanContinue: true,
	}
	for _, c := range a.Conflicts {
		if c.Critical {
			v.CriticalConflicts++
		}
	}
	v.CanReject = v.CriticalConflicts > 0
	v.CanRequestInfo = len(a.Conflicts) > 0

	v.Recommendations = append([]model.Recommendation(nil), a.Recommendations...)
	sort.SliceStable(v.Recommendations, func(i, j int) bool {
		return v.Recommendations[i].Priority < v.Recommendations[j].Priority
	})

	rows := func(ms []model.Material) []ItemRow {
		out := make([]ItemRow, 0, len(ms))
		for _, m := range ms {
			out = append(out, itemRow(m, req, allow))
		}
		return out
	}
	v.Critical = rows(a.Materials.Critical)
	v.Normal = rows(a.Materials.Normal)
	v.Low = rows(a.Materials.Low)
	return v
}
