package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultClientTimeout = 5 * time.Second

// Client talks to the wallet service over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultClientTimeout},
	}
}

// MovementRequest is the body of the credit and debit endpoints.
type MovementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

func (c *Client) Credit(ctx context.Context, userID string, amount decimal.Decimal, referenceID string) (Transaction, error) {
	body, err := json.Marshal(MovementRequest{Amount: amount, ReferenceID: referenceID})
	if err != nil {
		return Transaction{}, err
	}
	u := c.BaseURL + "/wallets/" + url.PathEscape(userID) + "/credit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Transaction{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("wallet credit: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var tx Transaction
		if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
			return Transaction{}, fmt.Errorf("decode wallet response: %w", err)
		}
		return tx, nil
	case resp.StatusCode == http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Transaction{}, fmt.Errorf("%w: %s", ErrInvalidRequest, bytes.TrimSpace(msg))
	default:
		return Transaction{}, fmt.Errorf("wallet credit: unexpected status %d", resp.StatusCode)
	}
}
