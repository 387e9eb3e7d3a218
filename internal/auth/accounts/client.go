// Package accounts calls the peer account service over the broker. The peer
// owns the account records; this client only reads or triggers creation.
package accounts

import (
	"context"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/models"
	dErrors "authsvc/pkg/domain-errors"
	"authsvc/pkg/platform/sentinel"
)

// Caller issues a correlated service call. Satisfied by the messaging
// gateway; tests substitute a fake peer.
type Caller interface {
	Call(ctx context.Context, targetTopic, operation string, payload any, out any) error
}

// Client is the typed view over the account service's two operations.
type Client struct {
	gateway Caller
	topic   string
}

// New creates a client targeting the account service's request topic.
func New(gateway Caller) *Client {
	return &Client{gateway: gateway, topic: messaging.TopicAccountRequests}
}

// FindByEmail looks up an account. Returns sentinel.ErrNotFound (wrapped)
// when the peer reports no match; the peer signals absence with an empty
// reply payload.
func (c *Client) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account *models.Account
	err := c.gateway.Call(ctx, c.topic, "getFindByEmail", models.FindByEmailRequest{Email: email}, &account)
	if err != nil {
		return nil, err
	}
	if account == nil || account.ID == "" {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "no account for email")
	}
	return account, nil
}

// Create provisions an account from identity claims and returns the stored
// record.
func (c *Client) Create(ctx context.Context, claims models.IdentityClaims) (*models.Account, error) {
	var account *models.Account
	err := c.gateway.Call(ctx, c.topic, "postCreateAccount", claims, &account)
	if err != nil {
		return nil, err
	}
	if account == nil || account.ID == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "account service returned no record")
	}
	return account, nil
}
