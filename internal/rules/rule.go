// Package rules holds the automation rules shown on the per-channel rules
// screens and a store for them.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("rule not found")
	ErrInvalid  = errors.New("invalid rule")
)

type Channel string

const (
	ChannelSEA  Channel = "sea"
	ChannelSEO  Channel = "seo"
	ChannelMeta Channel = "meta"
)

// ParseChannel accepts a channel name in any case.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelSEA, ChannelSEO, ChannelMeta:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalid, s)
	}
}

type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
)

func (p Priority) rank() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	default:
		return 2
	}
}

var operators = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "=": true}

type Rule struct {
	ID          string   `json:"id" yaml:"id,omitempty"`
	Channel     Channel  `json:"channel" yaml:"channel"`
	Name        string   `json:"name" yaml:"name"`
	Description *string  `json:"description" yaml:"description,omitempty"`
	Metric      string   `json:"metric" yaml:"metric"`
	Operator    string   `json:"operator" yaml:"operator"`
	Threshold   float64  `json:"threshold" yaml:"threshold"`
	ActionType  string   `json:"action_type" yaml:"action_type"`
	Priority    Priority `json:"priority" yaml:"priority"`
	IsActive    bool     `json:"is_active" yaml:"is_active"`
}

// Payload is the editable part of a rule.
type Payload struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Metric      string   `json:"metric"`
	Operator    string   `json:"operator"`
	Threshold   float64  `json:"threshold"`
	ActionType  string   `json:"action_type"`
	Priority    Priority `json:"priority"`
}

func (p Payload) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(p.Metric) == "" {
		errs = append(errs, errors.New("metric is required"))
	}
	if !operators[p.Operator] {
		errs = append(errs, fmt.Errorf("unsupported operator %q", p.Operator))
	}
	if strings.TrimSpace(p.ActionType) == "" {
		errs = append(errs, errors.New("action_type is required"))
	}
	switch p.Priority {
	case P0, P1, P2:
	default:
		errs = append(errs, fmt.Errorf("unsupported priority %q", p.Priority))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (r *Rule) apply(p Payload) {
	r.Name = strings.TrimSpace(p.Name)
	r.Description = p.Description
	r.Metric = strings.TrimSpace(p.Metric)
	r.Operator = p.Operator
	r.Threshold = p.Threshold
	r.ActionType = strings.TrimSpace(p.ActionType)
	r.Priority = p.Priority
}

func (r Rule) payload() Payload {
	return Payload{
		Name:        r.Name,
		Description: r.Description,
		Metric:      r.Metric,
		Operator:    r.Operator,
		Threshold:   r.Threshold,
		ActionType:  r.ActionType,
		Priority:    r.Priority,
	}
}

// Store persists rules. New rules start active.
type Store interface {
	List(ctx context.Context, ch Channel) ([]Rule, error)
	Create(ctx context.Context, ch Channel, p Payload) (Rule, error)
	Update(ctx context.Context, id string, p Payload) (Rule, error)
	SetActive(ctx context.Context, id string, active bool) (Rule, error)
	Delete(ctx context.Context, id string) error
}
