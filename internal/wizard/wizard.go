// Package wizard drives the treatment of a material request: analysis,
// one sourcing decision per line item, final review and submission.
//
// A Wizard is reused across requests. Open resets it for a request and Close
// discards the in-memory state while keeping the request's draft. Results of
// backend calls that return after the wizard was closed or reopened are
// dropped.
package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"spm/internal/backend"
	"spm/internal/derived"
	"spm/internal/draft"
	"spm/internal/events"
	"spm/internal/metrics"
	"spm/internal/model"
	"spm/internal/notice"
	"spm/internal/session"
)

// Fallback banner texts when the backend gives no message.
const (
	msgAnalysisFailed = "No se pudo cargar el análisis de la solicitud"
	msgOptionsFailed  = "No se pudieron cargar las opciones de abastecimiento"
	msgSaveFailed     = "No se pudo guardar el tratamiento"
	msgRejectFailed   = "No se pudo rechazar la solicitud"
	msgInfoFailed     = "No se pudo enviar la solicitud de información"
)

// Operation names for requestInfo results.
const (
	OpAddComment  = "add_comment"
	OpSendMessage = "send_message"
)

type Wizard struct {
	client     backend.Client
	drafts     *draft.Drafts
	journal    events.Writer
	metrics    *metrics.Registry
	session    session.State
	allow      derived.AllowList
	logger     *slog.Logger
	onComplete func(Completion)

	flights singleflight.Group

	mu          sync.Mutex
	gen         uint64
	step        Step
	req         model.Request
	cursor      int
	analysis    *model.AnalysisResult
	analysisErr string
	items       []model.Material
	options     map[int][]model.SourcingOption
	optionErrs  map[int]string
	decisions   model.Decisions
	busy        bool
	submitErr   string
	rejectErr   string
	infoErr     string
	draftErr    string
}

// Option configures a Wizard.
type Option func(*Wizard)

func WithLogger(l *slog.Logger) Option {
	return func(w *Wizard) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(w *Wizard) {
		if r != nil {
			w.metrics = r
		}
	}
}

func WithJournal(j events.Writer) Option {
	return func(w *Wizard) {
		if j != nil {
			w.journal = j
		}
	}
}

func WithSession(s session.State) Option {
	return func(w *Wizard) {
		if s != nil {
			w.session = s
		}
	}
}

// WithAllowList sets the warehouses whose stock is shown as available.
func WithAllowList(a derived.AllowList) Option {
	return func(w *Wizard) { w.allow = a }
}

// WithOnComplete registers the callback run after a successful submit or
// reject.
func WithOnComplete(fn func(Completion)) Option {
	return func(w *Wizard) { w.onComplete = fn }
}

func New(client backend.Client, drafts *draft.Drafts, opts ...Option) *Wizard {
	w := &Wizard{
		client:  client,
		drafts:  drafts,
		journal: events.Nop{},
		metrics: metrics.NewRegistry(),
		session: session.NewMemory(),
		allow:   derived.NewAllowList(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	w.resetLocked()
	return w
}

// resetLocked clears all per-request state. Callers hold mu.
func (w *Wizard) resetLocked() {
	w.gen++
	w.step = StepClosed
	w.req = model.Request{}
	w.cursor = 0
	w.analysis = nil
	w.analysisErr = ""
	w.items = nil
	w.options = make(map[int][]model.SourcingOption)
	w.optionErrs = make(map[int]string)
	w.decisions = make(model.Decisions)
	w.busy = false
	w.submitErr = ""
	w.rejectErr = ""
	w.infoErr = ""
	w.draftErr = ""
}

func (w *Wizard) log(requestID int64) *slog.Logger {
	return w.logger.With(slog.Int64("request_id", requestID))
}

// Open resets the wizard for req and loads the analysis and any saved draft
// concurrently. Both have completed when Open returns. A failed analysis is
// returned as a KindLoad error and leaves the wizard open on step 1.
func (w *Wizard) Open(ctx context.Context, req model.Request) error {
	if w == nil {
		return ErrNotOpen
	}
	w.mu.Lock()
	w.resetLocked()
	w.step = StepAnalysis
	w.req = req
	gen := w.gen
	w.mu.Unlock()

	lg := w.log(req.ID)
	lg.Debug("wizard opened")
	w.metrics.WizardOpened.Inc()

	var (
		analysis  *model.AnalysisResult
		aErr      error
		saved     model.Decisions
		hasDraft  bool
		draftLErr error
		g         errgroup.Group
	)
	g.Go(func() error {
		analysis, aErr = w.client.AnalyzeRequest(ctx, req.ID)
		return nil
	})
	g.Go(func() error {
		saved, hasDraft, draftLErr = w.drafts.Load(req.ID)
		return nil
	})
	_ = g.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		w.metrics.StaleDropped.Inc()
		lg.Debug("dropping open results for a closed session")
		return &Error{Kind: KindLoad, Op: "open", Message: ErrStale.Error(), Err: ErrStale}
	}

	switch {
	case draftLErr != nil:
		w.draftErr = draftLErr.Error()
		w.metrics.DraftFailures.Inc()
		lg.Warn("draft restore failed", slog.String("error", draftLErr.Error()))
	case hasDraft:
		for idx, opt := range saved {
			// selections made while Open was in flight win over the draft
			if _, ok := w.decisions[idx]; !ok {
				w.decisions[idx] = opt
			}
		}
		w.metrics.DraftRestored.Inc()
		lg.Info("draft restored", slog.Int("decisions", len(saved)))
	}

	if aErr != nil {
		w.analysisErr = backend.Message(aErr, msgAnalysisFailed)
		w.metrics.AnalysisFailed.Inc()
		lg.Warn("analysis failed", slog.String("error", aErr.Error()))
		return &Error{Kind: KindLoad, Op: "open", Message: w.analysisErr, Err: aErr}
	}
	if analysis == nil {
		analysis = &model.AnalysisResult{}
	}
	w.analysis = analysis
	w.items = WorkingItems(analysis.Materials, req)
	lg.Debug("analysis loaded", slog.Int("items", len(w.items)), slog.Int("conflicts", len(analysis.Conflicts)))
	return nil
}

// RetryAnalysis refetches a failed analysis for the open request.
func (w *Wizard) RetryAnalysis(ctx context.Context) error {
	w.mu.Lock()
	if w.step == StepClosed {
		w.mu.Unlock()
		return validation("retry_analysis", ErrNotOpen.Error(), ErrNotOpen)
	}
	if w.analysis != nil {
		w.mu.Unlock()
		return nil
	}
	gen, req := w.gen, w.req
	w.mu.Unlock()

	analysis, err := w.client.AnalyzeRequest(ctx, req.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		w.metrics.StaleDropped.Inc()
		return &Error{Kind: KindLoad, Op: "retry_analysis", Message: ErrStale.Error(), Err: ErrStale}
	}
	if err != nil {
		w.analysisErr = backend.Message(err, msgAnalysisFailed)
		w.metrics.AnalysisFailed.Inc()
		return &Error{Kind: KindLoad, Op: "retry_analysis", Message: w.analysisErr, Err: err}
	}
	if analysis == nil {
		analysis = &model.AnalysisResult{}
	}
	w.analysis = analysis
	w.analysisErr = ""
	w.items = WorkingItems(analysis.Materials, req)
	return nil
}

// Continue moves from the analysis step to sourcing and fetches options for
// the first item only. An options failure stays on that item's state and
// does not fail the transition.
func (w *Wizard) Continue(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.step == StepClosed:
		w.mu.Unlock()
		return validation("continue", ErrNotOpen.Error(), ErrNotOpen)
	case w.step != StepAnalysis:
		w.mu.Unlock()
		return validation("continue", ErrWrongStep.Error(), ErrWrongStep)
	case w.analysis == nil:
		w.mu.Unlock()
		return validation("continue", ErrAnalysisNotLoaded.Error(), ErrAnalysisNotLoaded)
	}
	w.step = StepSourcing
	w.cursor = 0
	first := -1
	if len(w.items) > 0 {
		first = w.items[0].ItemIndex
	}
	reqID := w.req.ID
	w.mu.Unlock()

	w.log(reqID).Debug("step transition", slog.String("to", StepSourcing.String()))
	if first >= 0 {
		_ = w.FetchOptions(ctx, first)
	}
	return nil
}

// AdvanceToReview moves from sourcing to review when every working item has
// a decision. Otherwise it returns a KindValidation error carrying the
// number of undecided items.
func (w *Wizard) AdvanceToReview() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advanceLocked()
}

func (w *Wizard) advanceLocked() error {
	switch w.step {
	case StepClosed:
		return validation("advance", ErrNotOpen.Error(), ErrNotOpen)
	case StepReview:
		return nil
	case StepAnalysis:
		return validation("advance", ErrWrongStep.Error(), ErrWrongStep)
	}
	if n := remaining(w.items, w.decisions); n > 0 {
		return &Error{Kind: KindValidation, Op: "advance", Message: remainingMessage(n), Remaining: n, Err: ErrIncomplete}
	}
	w.step = StepReview
	w.log(w.req.ID).Debug("step transition", slog.String("to", StepReview.String()))
	return nil
}

func remainingMessage(n int) string {
	if n == 1 {
		return "Falta 1 ítem por decidir"
	}
	return fmt.Sprintf("Faltan %d ítems por decidir", n)
}

// Back goes one step backwards. Decisions, options and the cursor survive.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepClosed:
		return validation("back", ErrNotOpen.Error(), ErrNotOpen)
	case StepReview:
		w.step = StepSourcing
	case StepSourcing:
		w.step = StepAnalysis
	}
	w.log(w.req.ID).Debug("step transition", slog.String("to", w.step.String()))
	return nil
}

// SelectDecision records opt as the decision for itemIndex, replacing any
// earlier choice, and mirrors the full decisions map into the draft store
// before returning. A draft write failure is kept in State().DraftError and
// does not undo the selection.
func (w *Wizard) SelectDecision(itemIndex int, opt model.SourcingOption) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepClosed {
		return validation("select", ErrNotOpen.Error(), ErrNotOpen)
	}
	if w.analysis == nil {
		return validation("select", ErrAnalysisNotLoaded.Error(), ErrAnalysisNotLoaded)
	}
	if positionOf(w.items, itemIndex) < 0 {
		return validation("select", fmt.Sprintf("ítem %d no pertenece a la solicitud", itemIndex), ErrUnknownItem)
	}
	w.decisions[itemIndex] = opt
	w.metrics.DecisionSelected.Inc()

	lg := w.log(w.req.ID)
	if err := w.drafts.Save(w.req.ID, w.decisions); err != nil {
		w.draftErr = err.Error()
		w.metrics.DraftFailures.Inc()
		lg.Warn("draft write failed", slog.String("error", err.Error()))
		return nil
	}
	w.draftErr = ""
	w.metrics.DraftWrites.Inc()
	lg.Debug("decision selected", slog.Int("item_index", itemIndex), slog.String("option_id", opt.ID))
	return nil
}

// FetchOptions loads the sourcing options of itemIndex once per session.
// Cached items and negative indices are no-ops. Concurrent callers for the
// same item share one backend call. A failure is recorded for that item only
// and leaves it uncached so a later call retries.
func (w *Wizard) FetchOptions(ctx context.Context, itemIndex int) error {
	if itemIndex < 0 {
		return nil
	}
	w.mu.Lock()
	if w.step == StepClosed {
		w.mu.Unlock()
		return validation("fetch_options", ErrNotOpen.Error(), ErrNotOpen)
	}
	if _, ok := w.options[itemIndex]; ok {
		w.mu.Unlock()
		return nil
	}
	if w.analysis == nil {
		w.mu.Unlock()
		return validation("fetch_options", ErrAnalysisNotLoaded.Error(), ErrAnalysisNotLoaded)
	}
	if positionOf(w.items, itemIndex) < 0 {
		w.mu.Unlock()
		return validation("fetch_options", fmt.Sprintf("ítem %d no pertenece a la solicitud", itemIndex), ErrUnknownItem)
	}
	gen, reqID := w.gen, w.req.ID
	w.mu.Unlock()

	key := strconv.FormatUint(gen, 10) + ":" + strconv.Itoa(itemIndex)
	_, err, _ := w.flights.Do(key, func() (any, error) {
		// a flight that finished between the cache check and Do already stored the result
		w.mu.Lock()
		_, cached := w.options[itemIndex]
		stale := w.gen != gen
		w.mu.Unlock()
		if cached && !stale {
			return nil, nil
		}

		opts, err := w.client.SourcingOptions(ctx, reqID, itemIndex)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.gen != gen {
			w.metrics.StaleDropped.Inc()
			return nil, &Error{Kind: KindLoad, Op: "fetch_options", Message: ErrStale.Error(), Err: ErrStale}
		}
		lg := w.log(reqID).With(slog.Int("item_index", itemIndex))
		if err != nil {
			msg := backend.Message(err, msgOptionsFailed)
			w.optionErrs[itemIndex] = msg
			w.metrics.OptionsFailed.Inc()
			lg.Warn("options fetch failed", slog.String("error", err.Error()))
			return nil, &Error{Kind: KindLoad, Op: "fetch_options", Message: msg, Err: err}
		}
		if opts == nil {
			opts = []model.SourcingOption{}
		}
		w.options[itemIndex] = opts
		delete(w.optionErrs, itemIndex)
		w.metrics.OptionsFetched.Inc()
		lg.Debug("options fetched", slog.Int("count", len(opts)))
		return nil, nil
	})
	return err
}

// Submit saves the treatment. Incomplete decisions are refused without a
// network call. On success the draft is cleared, the wizard closes and the
// completion callback runs; on failure the state and the draft are kept so
// the user can retry. A save that succeeds after Close or a newer Open still
// clears the draft but returns ErrStale and signals no completion.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.step == StepClosed {
		w.mu.Unlock()
		return validation("submit", ErrNotOpen.Error(), ErrNotOpen)
	}
	if w.busy {
		w.mu.Unlock()
		return validation("submit", ErrBusy.Error(), ErrBusy)
	}
	if w.analysis == nil {
		w.mu.Unlock()
		return validation("submit", ErrAnalysisNotLoaded.Error(), ErrAnalysisNotLoaded)
	}
	if n := remaining(w.items, w.decisions); n > 0 {
		w.mu.Unlock()
		w.metrics.Submissions.WithLabelValues(metrics.ResultInvalid).Inc()
		return &Error{Kind: KindValidation, Op: "submit", Message: remainingMessage(n), Remaining: n, Err: ErrIncomplete}
	}
	payload := BuildTreatment(w.req, w.items, w.decisions)
	w.busy = true
	w.submitErr = ""
	gen, reqID := w.gen, w.req.ID
	w.mu.Unlock()

	lg := w.log(reqID)
	t0 := time.Now()
	err := w.client.SaveTreatment(ctx, payload)
	w.metrics.SubmitLatencySec.Observe(time.Since(t0).Seconds())

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		w.metrics.StaleDropped.Inc()
		lg.Warn("submit finished after the session was closed", slog.Bool("saved", err == nil))
		if err == nil {
			// the treatment is stored; its draft must not be resumed
			if cerr := w.drafts.Clear(reqID); cerr != nil {
				w.metrics.DraftFailures.Inc()
				lg.Warn("draft clear failed", slog.String("error", cerr.Error()))
			}
			w.metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
			w.record(ctx, events.TypeTreatmentSubmitted, reqID, payload)
		}
		return &Error{Kind: KindSubmission, Op: "submit", Message: ErrStale.Error(), Err: ErrStale}
	}
	w.busy = false
	if err != nil {
		w.submitErr = backend.Message(err, msgSaveFailed)
		msg := w.submitErr
		w.mu.Unlock()
		w.metrics.Submissions.WithLabelValues(metrics.ResultFailed).Inc()
		lg.Warn("submit failed", slog.String("error", err.Error()))
		return &Error{Kind: KindSubmission, Op: "submit", Message: msg, Err: err}
	}
	if cerr := w.drafts.Clear(reqID); cerr != nil {
		w.metrics.DraftFailures.Inc()
		lg.Warn("draft clear failed", slog.String("error", cerr.Error()))
	}
	w.resetLocked()
	w.mu.Unlock()

	w.metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
	lg.Info("treatment submitted", slog.Int("decisions", len(payload.Decisions)))
	w.record(ctx, events.TypeTreatmentSubmitted, reqID, payload)
	w.complete(Completion{RequestID: reqID, Outcome: OutcomeSubmitted})
	return nil
}

// Reject rejects the request with a non-empty reason. On failure the wizard
// stays open with the error in State().RejectError.
func (w *Wizard) Reject(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validation("reject", "Indique el motivo del rechazo", ErrEmptyReason)
	}
	w.mu.Lock()
	if w.step == StepClosed {
		w.mu.Unlock()
		return validation("reject", ErrNotOpen.Error(), ErrNotOpen)
	}
	if w.busy {
		w.mu.Unlock()
		return validation("reject", ErrBusy.Error(), ErrBusy)
	}
	w.busy = true
	w.rejectErr = ""
	gen, reqID := w.gen, w.req.ID
	w.mu.Unlock()

	lg := w.log(reqID)
	err := w.client.RejectRequest(ctx, reqID, reason)

	w.mu.Lock()
	if w.gen != gen {
		w.mu.Unlock()
		w.metrics.StaleDropped.Inc()
		return &Error{Kind: KindSubmission, Op: "reject", Message: ErrStale.Error(), Err: ErrStale}
	}
	w.busy = false
	if err != nil {
		w.rejectErr = backend.Message(err, msgRejectFailed)
		msg := w.rejectErr
		w.mu.Unlock()
		lg.Warn("reject failed", slog.String("error", err.Error()))
		return &Error{Kind: KindSubmission, Op: "reject", Message: msg, Err: err}
	}
	w.resetLocked()
	w.mu.Unlock()

	w.metrics.Rejected.Inc()
	lg.Info("request rejected")
	w.record(ctx, events.TypeRequestRejected, reqID, map[string]string{"motivo": reason})
	w.complete(Completion{RequestID: reqID, Outcome: OutcomeRejected})
	return nil
}

// RequestInfo asks the requester for more information: a comment on the
// request and a direct message. Both calls are attempted; a failure of one
// does not undo the other. The wizard stays open either way.
func (w *Wizard) RequestInfo(ctx context.Context, message string) ([]notice.Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validation("request_info", "Escriba el mensaje para el solicitante", ErrEmptyMessage)
	}
	w.mu.Lock()
	if w.step == StepClosed {
		w.mu.Unlock()
		return nil, validation("request_info", ErrNotOpen.Error(), ErrNotOpen)
	}
	w.infoErr = ""
	gen, req := w.gen, w.req
	w.mu.Unlock()

	actor := session.Actor(w.session)
	msg := backend.DirectMessage{
		RecipientID: req.RequesterID,
		Subject:     fmt.Sprintf("Solicitud de información - solicitud #%d", req.ID),
		Body:        message,
		RequestID:   req.ID,
		Type:        backend.MessageTypeInfoRequest,
		Metadata: map[string]any{
			"correlation_id": uuid.NewString(),
			"remitente":      actor,
		},
	}
	results, err := notice.Fanout(ctx,
		notice.Op{Name: OpAddComment, Run: func(ctx context.Context) error {
			return w.client.AddComment(ctx, req.ID, message, true)
		}},
		notice.Op{Name: OpSendMessage, Run: func(ctx context.Context) error {
			return w.client.SendMessage(ctx, msg)
		}},
	)
	w.metrics.InfoRequested.Inc()

	lg := w.log(req.ID)
	outcome := make(map[string]string, len(results))
	for _, r := range results {
		if r.Err != nil {
			outcome[r.Op] = r.Err.Error()
		} else {
			outcome[r.Op] = "ok"
		}
	}
	w.record(ctx, events.TypeInfoRequested, req.ID, map[string]any{"mensaje": message, "resultados": outcome})

	if err == nil {
		lg.Info("info requested")
		return results, nil
	}
	failed := notice.Failed(results)
	display := backend.Message(failed[0].Err, msgInfoFailed)
	w.mu.Lock()
	if w.gen == gen {
		w.infoErr = display
	}
	w.mu.Unlock()
	lg.Warn("info request partially failed", slog.String("error", err.Error()), slog.Int("failed", len(failed)))
	return results, &Error{Kind: KindSubmission, Op: "request_info", Message: display, Err: err}
}

// Close discards the in-memory state. The draft is kept so the next Open of
// the same request resumes it.
func (w *Wizard) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	reqID, wasOpen := w.req.ID, w.step != StepClosed
	w.resetLocked()
	w.mu.Unlock()
	if wasOpen {
		w.log(reqID).Debug("wizard closed")
	}
}

func (w *Wizard) record(ctx context.Context, typ string, requestID int64, payload any) {
	ev, err := events.New(typ, requestID, session.Actor(w.session), payload)
	if err == nil {
		err = w.journal.Append(ctx, ev)
	}
	if err != nil {
		w.log(requestID).Warn("journal append failed", slog.String("type", typ), slog.String("error", err.Error()))
	}
}

func (w *Wizard) complete(c Completion) {
	if w.onComplete != nil {
		w.onComplete(c)
	}
}

// State is a point-in-time copy of the wizard state.
type State struct {
	Open          bool
	RequestID     int64
	Step          Step
	Cursor        int
	AnalysisReady bool
	AnalysisError string
	ItemIndices   []int
	Decisions     model.Decisions
	CachedOptions []int
	OptionErrors  map[int]string
	Busy          bool
	SubmitError   string
	RejectError   string
	InfoError     string
	DraftError    string
	Remaining     int
}

func (w *Wizard) State() State {
	if w == nil {
		return State{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		Open:          w.step != StepClosed,
		RequestID:     w.req.ID,
		Step:          w.step,
		Cursor:        w.cursor,
		AnalysisReady: w.analysis != nil,
		AnalysisError: w.analysisErr,
		Decisions:     w.decisions.Clone(),
		OptionErrors:  make(map[int]string, len(w.optionErrs)),
		Busy:          w.busy,
		SubmitError:   w.submitErr,
		RejectError:   w.rejectErr,
		InfoError:     w.infoErr,
		DraftError:    w.draftErr,
		Remaining:     remaining(w.items, w.decisions),
	}
	for _, it := range w.items {
		st.ItemIndices = append(st.ItemIndices, it.ItemIndex)
		if _, ok := w.options[it.ItemIndex]; ok {
			st.CachedOptions = append(st.CachedOptions, it.ItemIndex)
		}
	}
	for k, v := range w.optionErrs {
		st.OptionErrors[k] = v
	}
	return st
}
