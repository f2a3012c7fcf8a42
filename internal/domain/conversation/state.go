package conversation

import (
	"errors"
	"fmt"
)

type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseBrowsing             Phase = "browsing"
	PhaseAwaitingAddress      Phase = "awaiting_address"
	PhaseAwaitingPayment      Phase = "awaiting_payment"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

// Trigger names a state-changing user action
type Trigger string

const (
	TriggerSelectBusiness Trigger = "select_business"
	TriggerAddProduct     Trigger = "add_product"
	TriggerCheckout       Trigger = "checkout"
	TriggerProvideAddress Trigger = "provide_address"
	TriggerSelectPayment  Trigger = "select_payment"
	TriggerConfirm        Trigger = "confirm"
	TriggerCancel         Trigger = "cancel"
	TriggerClearCart      Trigger = "clear_cart"
)

var ErrInvalidTransition = errors.New("invalid conversation transition")

// transitions defines, per phase, which triggers are accepted and where they lead.
// A trigger absent from a phase's row is rejected.
var transitions = map[Phase]map[Trigger]Phase{
	PhaseIdle: {
		TriggerSelectBusiness: PhaseBrowsing,
		TriggerAddProduct:     PhaseIdle,
		TriggerCheckout:       PhaseAwaitingAddress,
		TriggerCancel:         PhaseIdle,
		TriggerClearCart:      PhaseIdle,
	},
	PhaseBrowsing: {
		TriggerSelectBusiness: PhaseBrowsing,
		TriggerAddProduct:     PhaseBrowsing,
		TriggerCheckout:       PhaseAwaitingAddress,
		TriggerCancel:         PhaseIdle,
		TriggerClearCart:      PhaseIdle,
	},
	PhaseAwaitingAddress: {
		TriggerSelectBusiness: PhaseBrowsing,
		TriggerAddProduct:     PhaseAwaitingAddress,
		TriggerCheckout:       PhaseAwaitingAddress,
		TriggerProvideAddress: PhaseAwaitingPayment,
		TriggerCancel:         PhaseIdle,
		TriggerClearCart:      PhaseIdle,
	},
	PhaseAwaitingPayment: {
		TriggerSelectBusiness: PhaseBrowsing,
		TriggerAddProduct:     PhaseAwaitingPayment,
		TriggerCheckout:       PhaseAwaitingAddress,
		TriggerSelectPayment:  PhaseAwaitingConfirmation,
		TriggerCancel:         PhaseIdle,
		TriggerClearCart:      PhaseIdle,
	},
	PhaseAwaitingConfirmation: {
		TriggerConfirm:   PhaseIdle,
		TriggerCancel:    PhaseIdle,
		TriggerClearCart: PhaseIdle,
	},
}

// Next returns the phase reached by applying trigger in phase from.
func Next(from Phase, trigger Trigger) (Phase, error) {
	row, ok := transitions[from]
	if !ok {
		return from, fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, from)
	}
	to, ok := row[trigger]
	if !ok {
		return from, fmt.Errorf("%w: %s not allowed in %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}

// CanApply reports whether trigger is accepted in phase from
func CanApply(from Phase, trigger Trigger) bool {
	_, err := Next(from, trigger)
	return err == nil
}

// State is the per-user checkout conversation. The zero value is Idle.
type State struct {
	UserID               string `json:"user_id"`
	Phase                Phase  `json:"phase"`
	SelectedBusinessID   string `json:"selected_business_id,omitempty"`
	PendingAddress       string `json:"pending_address,omitempty"`
	PendingPaymentMethod string `json:"pending_payment_method,omitempty"`
}

func NewState(userID string) *State {
	return &State{UserID: userID, Phase: PhaseIdle}
}

// Apply moves the state along the transition table. The state is left
// untouched when the trigger is not accepted.
func (s *State) Apply(trigger Trigger) error {
	to, err := Next(s.CurrentPhase(), trigger)
	if err != nil {
		return err
	}
	s.Phase = to
	return nil
}

// CurrentPhase treats an unset phase as Idle
func (s *State) CurrentPhase() Phase {
	if s.Phase == "" {
		return PhaseIdle
	}
	return s.Phase
}

// Reset returns the conversation to Idle and clears every pending field
func (s *State) Reset() {
	s.Phase = PhaseIdle
	s.SelectedBusinessID = ""
	s.PendingAddress = ""
	s.PendingPaymentMethod = ""
}
