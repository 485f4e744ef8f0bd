package payment

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRandomDeciderIsReproducibleWithSeed(t *testing.T) {
	run := func() []bool {
		d := NewRandom(rand.New(rand.NewPCG(7, 11)), 0.5)
		var out []bool
		for i := 0; i < 20; i++ {
			dec, _ := d.Decide(context.Background(), Request{})
			out = append(out, dec.Approved)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestFixedDecider(t *testing.T) {
	ok, _ := Fixed{Approve: true}.Decide(context.Background(), Request{})
	assert.True(t, ok.Approved)

	no, _ := Fixed{}.Decide(context.Background(), Request{})
	assert.False(t, no.Approved)
	assert.NotEmpty(t, no.Reason)
}

func TestAmountTriggerComparesNumerically(t *testing.T) {
	a := NewAmountTrigger(decimal.RequireFromString("13.00"))
	d, _ := a.Decide(context.Background(), Request{Amount: decimal.RequireFromString("13.0000")})
	assert.False(t, d.Approved)
	d, _ = a.Decide(context.Background(), Request{Amount: decimal.RequireFromString("13.01")})
	assert.True(t, d.Approved)
}
