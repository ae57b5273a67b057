// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package subscription

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// newTestService wires a Service against a throwaway account store and stubs
// out the Stripe entry points so no network calls happen.
func newTestService(t *testing.T) (*Service, *auth.Store, *model.User) {
	t.Helper()
	store, err := auth.NewStore(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	user := &model.User{
		Id:    "7f3c1a20-9e4b-4c1d-8f6a-2b5d9e0c4a11",
		Email: "ada@example.com",
		Name:  "Ada",
		Tier:  "free",
	}
	require.NoError(t, store.CreateUser(context.Background(), user, "x"))

	svc := NewService(store, &cloud.Stripe{
		BasicPriceId:   "price_basic",
		PremiumPriceId: "price_premium",
		SuccessUrl:     "https://app.example.com/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelUrl:      "https://app.example.com/billing/cancel",
	})
	return svc, store, user
}

func TestPlansCatalog(t *testing.T) {
	svc, _, _ := newTestService(t)

	plans := svc.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, "basic", plans[0].Name)
	assert.Equal(t, "premium", plans[1].Name)
	// Premium is a strict superset of basic.
	assert.Greater(t, len(plans[1].Features), len(plans[0].Features))
	for _, feature := range plans[0].Features {
		assert.Contains(t, plans[1].Features, feature)
	}
}

func TestCheckoutCreatesSession(t *testing.T) {
	svc, store, user := newTestService(t)

	var gotParams *stripe.CheckoutSessionParams
	svc.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		gotParams = params
		return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
	}

	url, sessionId, err := svc.Checkout(context.Background(), user, "premium")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", url)
	assert.Equal(t, "cs_test_123", sessionId)
	require.NotNil(t, gotParams)
	assert.Equal(t, "price_premium", *gotParams.LineItems[0].Price)
	assert.Equal(t, user.Id, gotParams.Metadata["user_id"])

	// The pending session is recorded for the later verify call.
	sub, err := store.GetSubscription(context.Background(), user.Id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "incomplete", sub.Status)
	assert.Equal(t, "cs_test_123", sub.StripeSessionId)
}

func TestCheckoutUnknownPlan(t *testing.T) {
	svc, _, user := newTestService(t)

	_, _, err := svc.Checkout(context.Background(), user, "enterprise")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestVerifyActivatesSubscription(t *testing.T) {
	svc, store, user := newTestService(t)
	svc.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
	}
	svc.getCheckoutSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		assert.Equal(t, "cs_test_123", id)
		return &stripe.CheckoutSession{
			ID:            id,
			PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			Customer:      &stripe.Customer{ID: "cus_42"},
			Subscription:  &stripe.Subscription{ID: "sub_42"},
		}, nil
	}

	_, _, err := svc.Checkout(context.Background(), user, "basic")
	require.NoError(t, err)

	sub, err := svc.Verify(context.Background(), user, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "cus_42", sub.StripeCustomerId)
	assert.Equal(t, "sub_42", sub.StripeSessionId)
	assert.True(t, sub.CurrentPeriodEnd.After(time.Now()))

	// The account moved to the purchased tier.
	got, _, err := store.GetUser(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "basic", got.Tier)
}

func TestVerifyUnpaidSessionStaysIncomplete(t *testing.T) {
	svc, store, user := newTestService(t)
	svc.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
	}
	svc.getCheckoutSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: id, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, nil
	}

	_, _, err := svc.Checkout(context.Background(), user, "basic")
	require.NoError(t, err)

	sub, err := svc.Verify(context.Background(), user, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "incomplete", sub.Status)

	got, _, err := store.GetUser(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "free", got.Tier)
}

func TestVerifyWithoutSession(t *testing.T) {
	svc, _, user := newTestService(t)

	_, err := svc.Verify(context.Background(), user, "cs_missing")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestVerifyMismatchedSessionId(t *testing.T) {
	svc, _, user := newTestService(t)
	svc.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
	}

	_, _, err := svc.Checkout(context.Background(), user, "basic")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), user, "cs_someone_else")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestCancelReturnsToFree(t *testing.T) {
	svc, store, user := newTestService(t)
	svc.createCheckoutSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
	}
	svc.getCheckoutSession = func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return &stripe.CheckoutSession{
			ID:            id,
			PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			Subscription:  &stripe.Subscription{ID: "sub_42"},
		}, nil
	}
	var canceled string
	svc.cancelSubscription = func(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
		canceled = id
		return &stripe.Subscription{ID: id}, nil
	}

	_, _, err := svc.Checkout(context.Background(), user, "premium")
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), user, "cs_test_123")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), user))
	assert.Equal(t, "sub_42", canceled)

	sub, err := store.GetSubscription(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "canceled", sub.Status)
	got, _, err := store.GetUser(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "free", got.Tier)
}

func TestCancelWithoutActiveSubscription(t *testing.T) {
	svc, _, user := newTestService(t)
	assert.ErrorIs(t, svc.Cancel(context.Background(), user), ErrNoSubscription)
}
