// Package backend talks to the SPM REST API on behalf of the treatment wizard.
package backend

import (
	"context"

	"spm/internal/model"
)

// Client is the set of backend operations the wizard and the notice flows
// consume.
type Client interface {
	AnalyzeRequest(ctx context.Context, requestID int64) (*model.AnalysisResult, error)
	SourcingOptions(ctx context.Context, requestID int64, itemIndex int) ([]model.SourcingOption, error)
	SaveTreatment(ctx context.Context, t model.Treatment) error
	RejectRequest(ctx context.Context, requestID int64, reason string) error
	AddComment(ctx context.Context, requestID int64, text string, requiresResponse bool) error
	SendMessage(ctx context.Context, msg DirectMessage) error
	UpdateStatus(ctx context.Context, requestID int64, status string) error
}

// Message types understood by the messaging endpoint.
const (
	MessageTypeInfoRequest        = "solicitud_informacion"
	MessageTypeInsufficientBudget = "presupuesto_insuficiente"
)

// DirectMessage is a message addressed to one user, optionally tied to a
// request.
type DirectMessage struct {
	RecipientID int64          `json:"id_destinatario"`
	Subject     string         `json:"asunto"`
	Body        string         `json:"cuerpo"`
	RequestID   int64          `json:"id_solicitud,omitempty"`
	Type        string         `json:"tipo"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
