package payment

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

// Decision is the processor's verdict on one charge.
type Decision struct {
	Approved bool
	Reason   string
}

// Decider decides whether a charge goes through. Production deciders call
// an external processor; the ones here are deterministic or seeded.
type Decider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

const simulatedDecline = "Payment failed due to simulated error: insufficient funds."

// DefaultFailAmount is the amount the simulated processor always declines.
var DefaultFailAmount = decimal.RequireFromString("13.00")

// AmountTrigger declines exactly one amount and approves everything else.
type AmountTrigger struct {
	FailAmount decimal.Decimal
}

func NewAmountTrigger(fail decimal.Decimal) AmountTrigger { return AmountTrigger{FailAmount: fail} }

func (a AmountTrigger) Decide(_ context.Context, req Request) (Decision, error) {
	if req.Amount.Equal(a.FailAmount) {
		return Decision{Reason: simulatedDecline}, nil
	}
	return Decision{Approved: true}, nil
}

// Fixed always returns the same verdict.
type Fixed struct {
	Approve bool
	Reason  string
}

func (f Fixed) Decide(context.Context, Request) (Decision, error) {
	if f.Approve {
		return Decision{Approved: true}, nil
	}
	reason := f.Reason
	if reason == "" {
		reason = "Payment declined."
	}
	return Decision{Reason: reason}, nil
}

// Random approves with probability SuccessRate, drawing from an explicit source.
type Random struct {
	mu          sync.Mutex
	src         *rand.Rand
	SuccessRate float64
}

func NewRandom(src *rand.Rand, successRate float64) *Random {
	return &Random{src: src, SuccessRate: successRate}
}

func (r *Random) Decide(context.Context, Request) (Decision, error) {
	r.mu.Lock()
	v := r.src.Float64()
	r.mu.Unlock()
	if v < r.SuccessRate {
		return Decision{Approved: true}, nil
	}
	return Decision{Reason: "Payment declined by processor."}, nil
}
