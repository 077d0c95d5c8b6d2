package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

type Registry struct {
	reg              *prometheus.Registry
	WizardOpened     prometheus.Counter
	AnalysisFailed   prometheus.Counter
	OptionsFetched   prometheus.Counter
	OptionsFailed    prometheus.Counter
	DecisionSelected prometheus.Counter
	DraftWrites      prometheus.Counter
	DraftRestored    prometheus.Counter
	DraftFailures    prometheus.Counter
	Rejected         prometheus.Counter
	InfoRequested    prometheus.Counter
	BudgetNotices    prometheus.Counter
	StaleDropped     prometheus.Counter

	// Submission outcome and latency
	Submissions      *prometheus.CounterVec
	SubmitLatencySec prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	opened := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_opened_total"})
	analysisFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_analysis_failed_total"})
	optionsFetched := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_options_fetched_total"})
	optionsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_options_failed_total"})
	selected := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_decisions_selected_total"})
	draftWrites := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_draft_writes_total"})
	draftRestored := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_draft_restored_total"})
	draftFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_draft_failures_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_rejected_total"})
	infoRequested := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_info_requested_total"})
	budgetNotices := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_budget_notices_total"})
	stale := prometheus.NewCounter(prometheus.CounterOpts{Name: "spm_wizard_stale_results_dropped_total"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "spm_wizard_submissions_total"}, []string{"result"})
	submitLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spm_wizard_submit_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(opened, analysisFailed, optionsFetched, optionsFailed, selected, draftWrites, draftRestored,
		draftFailures, rejected, infoRequested, budgetNotices, stale, submissions, submitLatency)
	return &Registry{
		reg:              r,
		WizardOpened:     opened,
		AnalysisFailed:   analysisFailed,
		OptionsFetched:   optionsFetched,
		OptionsFailed:    optionsFailed,
		DecisionSelected: selected,
		DraftWrites:      draftWrites,
		DraftRestored:    draftRestored,
		DraftFailures:    draftFailures,
		Rejected:         rejected,
		InfoRequested:    infoRequested,
		BudgetNotices:    budgetNotices,
		StaleDropped:     stale,
		Submissions:      submissions,
		SubmitLatencySec: submitLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
