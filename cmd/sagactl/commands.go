package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-checkout-saga/internal/choreography"
	"github.com/ariefcatur/go-checkout-saga/internal/compensation"
	"github.com/ariefcatur/go-checkout-saga/internal/config"
	kafkax "github.com/ariefcatur/go-checkout-saga/internal/kafka"
	"github.com/ariefcatur/go-checkout-saga/internal/logx"
	"github.com/ariefcatur/go-checkout-saga/internal/orders"
	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/redisx"
	"github.com/ariefcatur/go-checkout-saga/internal/refund"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

// singleItem builds a one-line cart whose subtotal equals total.
func singleItem(sagaID, userID string, total decimal.Decimal) saga.CheckoutInitiated {
	return saga.CheckoutInitiated{
		SagaID: sagaID,
		UserID: userID,
		Items:  []saga.Item{{ProductID: "sku-1", Quantity: 1, UnitPrice: total}},
		Amounts: saga.Amounts{
			Subtotal: total,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Discount: decimal.Zero,
			Total:    total,
		},
		TotalAmount: total,
		Currency:    "USD",
	}
}

func checkoutCmd() *cobra.Command {
	var userID, amount string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Publish a CheckoutInitiated event to the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			total, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			log := logx.New("sagactl", cfg.LogLevel)
			prod := kafkax.NewProducer(cfg.KafkaBrokers, cfg.DeadLetterTopic, log)
			defer prod.Close()

			sagaID := uuid.NewString()
			ev := singleItem(sagaID, userID, total)
			if err := saga.Emit(cmd.Context(), prod, cfg.CheckoutTopic, saga.EventCheckoutInitiated, sagaID, "sagactl", ev); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sagaID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "user-1", "buyer id")
	cmd.Flags().StringVar(&amount, "amount", "49.99", "order total")
	return cmd
}

type simulateOpts struct {
	userID     string
	amount     string
	failOrder  bool
	failRefund bool
	settlement string
}

func simulateCmd() *cobra.Command {
	var o simulateOpts
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one saga through every step in memory and print the trace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return simulate(cmd, o)
		},
	}
	cmd.Flags().StringVar(&o.userID, "user", "user-1", "buyer id")
	cmd.Flags().StringVar(&o.amount, "amount", "49.99", "order total, "+payment.DefaultFailAmount.StringFixed(2)+" is declined")
	cmd.Flags().BoolVar(&o.failOrder, "fail-order", false, "reject order creation to force compensation")
	cmd.Flags().BoolVar(&o.failRefund, "fail-refund", false, "decline the refund at the gateway")
	cmd.Flags().StringVar(&o.settlement, "settlement", "gateway", "refund settlement: gateway|wallet")
	return cmd
}

func simulate(cmd *cobra.Command, o simulateOpts) error {
	total, err := decimal.NewFromString(o.amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	opts := choreography.Options{Log: logx.NewWriter(io.Discard, "sagactl", "error")}
	if o.failOrder {
		st := orders.NewMemoryStore()
		st.ConfirmErr = orders.ErrRejected
		opts.OrderStore = st
	}
	switch o.settlement {
	case "gateway":
		opts.RefundSettler = refund.GatewaySettler{Decider: payment.Fixed{Approve: !o.failRefund}}
	case "wallet":
		opts.Ledger = wallet.NewLedger(wallet.NewMemoryStore())
		opts.RefundSettler = refund.WalletSettler{Crediter: opts.Ledger}
	default:
		return fmt.Errorf("unknown settlement %q", o.settlement)
	}

	sys := choreography.New(opts)
	sagaID := uuid.NewString()
	if err := sys.Checkout(cmd.Context(), singleItem(sagaID, o.userID, total)); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range sys.Bus.Published() {
		fmt.Fprintf(out, "%2d  %-28s %s\n", i+1, p.Topic, p.Envelope.Type)
	}
	for _, p := range sys.Bus.Parked() {
		fmt.Fprintf(out, "dead-letter: %s\n", p.Reason)
	}
	outcome, err := sys.Outcome(cmd.Context(), sagaID)
	if err != nil {
		return err
	}
	if outcome == choreography.OutcomeOpen {
		outcome = "open"
	}
	fmt.Fprintf(out, "saga %s: %s\n", sagaID, outcome)
	if o.settlement == "wallet" {
		bal, err := sys.Ledger.Balance(cmd.Context(), o.userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wallet %s balance: %s\n", o.userID, bal.Balance.StringFixed(2))
	}
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <saga-id>",
		Short: "Show the compensation record and cached order status of a saga",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rdb, err := redisx.Connect(cmd.Context(), cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rdb.Close()

			view := struct {
				Saga        *compensation.Record `json:"saga,omitempty"`
				OrderStatus orders.Status        `json:"order_status,omitempty"`
			}{}
			rec, err := (&redisx.SagaStore{RDB: rdb}).Get(cmd.Context(), args[0])
			switch {
			case err == nil:
				view.Saga = &rec
			case !errors.Is(err, compensation.ErrNotFound):
				return err
			}
			st, ok, err := (&redisx.StatusCache{RDB: rdb}).GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok {
				view.OrderStatus = st
			}
			if view.Saga == nil && !ok {
				return fmt.Errorf("saga %s: %w", args[0], compensation.ErrNotFound)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
