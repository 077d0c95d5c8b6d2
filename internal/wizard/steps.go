package wizard

// Step is the wizard's position in the treatment flow.
type Step int

const (
	StepClosed Step = iota
	StepAnalysis
	StepSourcing
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepAnalysis:
		return "analysis"
	case StepSourcing:
		return "sourcing"
	case StepReview:
		return "review"
	default:
		return "closed"
	}
}

// Outcome is how a treatment session ended.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeRejected  Outcome = "rejected"
)

// Completion is passed to the completion callback once a session ends
// through submission or rejection.
type Completion struct {
	RequestID int64
	Outcome   Outcome
}
