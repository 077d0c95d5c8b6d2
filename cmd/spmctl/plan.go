package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"spm/internal/model"
	"spm/internal/wizard"
)

// Plan actions.
const (
	ActionSubmit = "submit"
	ActionReview = "review"
	ActionReject = "reject"
	ActionInfo   = "info"
)

// ChoiceRecommended picks the backend's recommended option for an item.
const ChoiceRecommended = "recommended"

// Plan drives a headless treatment. Decisions map item index to an option id
// or ChoiceRecommended; items left out keep whatever the draft holds.
type Plan struct {
	Action    string         `yaml:"action" json:"action"`
	Filter    string         `yaml:"filter" json:"filter"`
	Reason    string         `yaml:"reason" json:"reason"`
	Message   string         `yaml:"message" json:"message"`
	Decisions map[int]string `yaml:"decisions" json:"decisions"`
}

func loadPlan(path string) (Plan, error) {
	p := Plan{Action: ActionSubmit}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	return p, p.validate()
}

func (p *Plan) validate() error {
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))
	switch p.Action {
	case "":
		p.Action = ActionSubmit
	case ActionSubmit, ActionReview:
	case ActionReject:
		if strings.TrimSpace(p.Reason) == "" {
			return fmt.Errorf("plan: reject needs a reason")
		}
	case ActionInfo:
		if strings.TrimSpace(p.Message) == "" {
			return fmt.Errorf("plan: info needs a message")
		}
	default:
		return fmt.Errorf("plan: unknown action %q", p.Action)
	}
	if _, err := wizard.ParseFilter(p.Filter); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	for idx, choice := range p.Decisions {
		if strings.TrimSpace(choice) == "" {
			return fmt.Errorf("plan: empty choice for item %d", idx)
		}
	}
	return nil
}

// choose resolves the plan entry for itemIndex against the fetched options.
func (p Plan) choose(itemIndex int, opts []model.SourcingOption) (model.SourcingOption, bool, error) {
	choice, ok := p.Decisions[itemIndex]
	if !ok {
		return model.SourcingOption{}, false, nil
	}
	choice = strings.TrimSpace(choice)
	if strings.EqualFold(choice, ChoiceRecommended) {
		opt, ok := wizard.Recommended(opts)
		if !ok {
			return model.SourcingOption{}, false, fmt.Errorf("item %d: no options to recommend", itemIndex)
		}
		return opt, true, nil
	}
	for _, o := range opts {
		if o.ID == choice {
			return o, true, nil
		}
	}
	return model.SourcingOption{}, false, fmt.Errorf("item %d: option %q not offered", itemIndex, choice)
}

// loadRequest reads the request record as the backend serves it.
func loadRequest(path string) (model.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Request{}, fmt.Errorf("read request: %w", err)
	}
	var req model.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return model.Request{}, fmt.Errorf("parse request: %w", err)
	}
	if req.ID <= 0 {
		return model.Request{}, fmt.Errorf("request: missing id")
	}
	return req, nil
}
