package service

import (
	"context"

	messageDomain "tgrelay/internal/modules/message/domain"
	ruleDomain "tgrelay/internal/modules/rule/domain"
)

// ConfirmRequest carries everything a confirmation surface needs to show
// the operator before a rule's destinations are attempted.
type ConfirmRequest struct {
	Rule         ruleDomain.Rule
	Message      messageDomain.IncomingMessage
	Preview      string
	Destinations []int64
}

// Confirmer decides, once per rule-match, whether delivery proceeds.
// Interactive mode prompts the operator; headless and test setups use a
// fixed policy.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, req ConfirmRequest) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

type policyConfirmer bool

func (p policyConfirmer) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return bool(p), nil
}

// Fixed confirmation policies.
var (
	AutoApprove Confirmer = policyConfirmer(true)
	AutoDecline Confirmer = policyConfirmer(false)
)
