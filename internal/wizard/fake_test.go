package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"spm/internal/backend"
	"spm/internal/derived"
	"spm/internal/draft"
	"spm/internal/events"
	"spm/internal/model"
	"spm/internal/session"
)

// fakeBackend is an in-memory backend.Client. Gates, when set, block the
// matching call until closed; entered channels are signalled on entry.
type fakeBackend struct {
	mu sync.Mutex

	analysis        *model.AnalysisResult
	analysisErr     error
	analysisGate    chan struct{}
	analysisEntered chan struct{}
	analysisCalls   int

	options        map[int][]model.SourcingOption
	optionErrs     map[int]error
	optionsGate    chan struct{}
	optionsEntered chan struct{}
	optionCalls    map[int]int

	saveErr     error
	saveGate    chan struct{}
	saveEntered chan struct{}
	saved       []model.Treatment

	rejectErr error
	rejected  []string

	commentErr error
	comments   []string

	messageErr error
	messages   []backend.DirectMessage

	statuses []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		options:     make(map[int][]model.SourcingOption),
		optionErrs:  make(map[int]error),
		optionCalls: make(map[int]int),
	}
}

func signal(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (f *fakeBackend) AnalyzeRequest(ctx context.Context, requestID int64) (*model.AnalysisResult, error) {
	f.mu.Lock()
	gate, entered := f.analysisGate, f.analysisEntered
	f.analysisCalls++
	f.mu.Unlock()
	signal(entered)
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analysisErr != nil {
		return nil, f.analysisErr
	}
	cp := *f.analysis
	return &cp, nil
}

func (f *fakeBackend) SourcingOptions(ctx context.Context, requestID int64, itemIndex int) ([]model.SourcingOption, error) {
	f.mu.Lock()
	gate, entered := f.optionsGate, f.optionsEntered
	f.optionCalls[itemIndex]++
	f.mu.Unlock()
	signal(entered)
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.optionErrs[itemIndex]; err != nil {
		return nil, err
	}
	return append([]model.SourcingOption(nil), f.options[itemIndex]...), nil
}

func (f *fakeBackend) SaveTreatment(ctx context.Context, t model.Treatment) error {
	f.mu.Lock()
	gate, entered := f.saveGate, f.saveEntered
	f.mu.Unlock()
	signal(entered)
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeBackend) RejectRequest(ctx context.Context, requestID int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.rejected = append(f.rejected, reason)
	return nil
}

func (f *fakeBackend) AddComment(ctx context.Context, requestID int64, text string, requiresResponse bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, text)
	return f.commentErr
}

func (f *fakeBackend) SendMessage(ctx context.Context, msg backend.DirectMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.messageErr
}

func (f *fakeBackend) UpdateStatus(ctx context.Context, requestID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeBackend) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.analysisCalls + len(f.saved) + len(f.rejected) + len(f.comments) + len(f.messages) + len(f.statuses)
	for _, c := range f.optionCalls {
		n += c
	}
	return n
}

func (f *fakeBackend) optionCallsFor(idx int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.optionCalls[idx]
}

// captureJournal records appended events.
type captureJournal struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureJournal) Append(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureJournal) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

var (
	optA = model.SourcingOption{ID: "A", Type: model.OptionStock, Name: "Stock 0100", UnitPrice: 100, AvailableQuantity: 5, RecommendationScore: 90, Recommended: true,
		Locations: []model.StockLocation{{Warehouse: "0100", Quantity: 5}, {Warehouse: "0050", Quantity: 40}}}
	optA2 = model.SourcingOption{ID: "A2", Type: model.OptionProvider, Name: "Proveedor X", ProviderID: "P-1", UnitPrice: 120, LeadTimeDays: 10, RecommendationScore: 60}
	optB  = model.SourcingOption{ID: "B", Type: model.OptionProvider, Name: "Proveedor Y", ProviderID: "P-2", UnitPrice: 45, LeadTimeDays: 7, RequestedQuantity: 2}
)

// request42 is a two-line request whose analysis lists item 1 as Normal and
// item 0 as Critical.
func request42() model.Request {
	return model.Request{
		ID:          42,
		Center:      "C1",
		Warehouse:   "0100",
		RequesterID: 9,
		Requester:   "solicitante",
		Items: []model.LineItem{
			{Code: "M1", Description: "Rodamiento", Quantity: 5, UnitPrice: 100, StockDetail: []model.StockEntry{{Warehouse: "0100", Quantity: 5}, {Warehouse: "0050", Quantity: 100}}},
			{Code: "M2", Description: "Correa", Quantity: 2, UnitPrice: 50, Planned: true, MRP: &model.MRPParams{StockOnHand: 3, OrdersInProgress: 2, ReorderPoint: 10}},
		},
	}
}

func analysis42() *model.AnalysisResult {
	return &model.AnalysisResult{
		Summary:   model.Summary{AvailableBudget: 1000, TotalItems: 2},
		Conflicts: []model.Conflict{{Type: "stock", Description: "stock insuficiente", Critical: false}},
		Recommendations: []model.Recommendation{
			{Action: "b", Priority: 2},
			{Action: "a", Priority: 1},
		},
		Materials: model.MaterialGroups{
			Critical: []model.Material{{ItemIndex: 0, Code: "M1", Quantity: 5, UnitPrice: 100}},
			Normal:   []model.Material{{ItemIndex: 1, Code: "M2", Quantity: 2, UnitPrice: 50}},
		},
	}
}

type fixture struct {
	w           *Wizard
	be          *fakeBackend
	store       *draft.InMemoryStore
	drafts      *draft.Drafts
	journal     *captureJournal
	mu          sync.Mutex
	completions []Completion
}

func (fx *fixture) done() []Completion {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	return append([]Completion(nil), fx.completions...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	be := newFakeBackend()
	be.analysis = analysis42()
	be.options[0] = []model.SourcingOption{optA, optA2}
	be.options[1] = []model.SourcingOption{optB}

	st := draft.NewInMemoryStore()
	fx := &fixture{be: be, store: st, drafts: draft.NewDrafts(st, ""), journal: &captureJournal{}}
	fx.w = New(be, fx.drafts,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithJournal(fx.journal),
		WithSession(session.NewSignedIn(session.Principal{ID: 1, Name: "planner"})),
		WithAllowList(derived.NewAllowList("0100", "9999")),
		WithOnComplete(func(c Completion) {
			fx.mu.Lock()
			defer fx.mu.Unlock()
			fx.completions = append(fx.completions, c)
		}),
	)
	return fx
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (failingStore) Set(string, []byte) error { return errors.New("disk full") }
func (failingStore) Delete(string) error { return errors.New("disk full") }
func (failingStore) Range(func(string, []byte) error) error {
	return nil
}

func draftsOn(st draft.Store) *draft.Drafts { return draft.NewDrafts(st, "") }

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
