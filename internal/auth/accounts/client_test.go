package accounts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/models"
	dErrors "authsvc/pkg/domain-errors"
	"authsvc/pkg/platform/sentinel"
	"authsvc/pkg/testutil"
)

// fakeCaller plays the peer account service behind the gateway.
type fakeCaller struct {
	topic     string
	operation string
	payload   any
	reply     any
	err       error
}

func (f *fakeCaller) Call(_ context.Context, targetTopic, operation string, payload any, out any) error {
	f.topic = targetTopic
	f.operation = operation
	f.payload = payload
	if f.err != nil {
		return f.err
	}
	if f.reply == nil {
		return nil
	}
	raw, err := json.Marshal(f.reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func TestFindByEmail(t *testing.T) {
	testutil.Given(t, "the peer knows the account", func(t *testing.T) {
		caller := &fakeCaller{reply: models.Account{ID: "acc-1", Email: "a@b.com", Name: "A B"}}
		client := New(caller)

		account, err := client.FindByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.Equal(t, "acc-1", account.ID)
		assert.Equal(t, "getFindByEmail", caller.operation)
		assert.Equal(t, messaging.TopicAccountRequests, caller.topic)
		assert.Equal(t, models.FindByEmailRequest{Email: "a@b.com"}, caller.payload)
	})

	testutil.Given(t, "the peer replies with an empty payload", func(t *testing.T) {
		client := New(&fakeCaller{})

		_, err := client.FindByEmail(context.Background(), "missing@b.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	testutil.Given(t, "the call itself fails", func(t *testing.T) {
		caller := &fakeCaller{err: dErrors.New(dErrors.CodeTimeout, "no reply within deadline")}
		client := New(caller)

		_, err := client.FindByEmail(context.Background(), "a@b.com")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout), "transport errors pass through unchanged")
	})
}

func TestCreate(t *testing.T) {
	claims := models.IdentityClaims{Email: "a@b.com", Name: "A B", Picture: "http://x/p.png", Subject: "123"}

	testutil.When(t, "the peer provisions the account", func(t *testing.T) {
		caller := &fakeCaller{reply: models.Account{ID: "acc-2", Email: "a@b.com"}}
		client := New(caller)

		account, err := client.Create(context.Background(), claims)
		require.NoError(t, err)
		assert.Equal(t, "acc-2", account.ID)
		assert.Equal(t, "postCreateAccount", caller.operation)
		assert.Equal(t, claims, caller.payload)
	})

	testutil.When(t, "the peer returns no record", func(t *testing.T) {
		client := New(&fakeCaller{})

		_, err := client.Create(context.Background(), claims)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
