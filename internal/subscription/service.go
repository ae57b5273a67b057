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

// Package subscription implements the billing integration: plan catalog,
// Stripe checkout session creation, post-checkout verification and
// cancellation. Plan state lands in the account store; the entitlement
// layer reads tiers from there and never talks to Stripe.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	stripesub "github.com/stripe/stripe-go/v82/subscription"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/auth"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/cloud"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/entitlement"
)

// ErrUnknownPlan is returned for plan names outside the catalog.
var ErrUnknownPlan = errors.New("unknown plan")

// ErrNoSubscription is returned when an operation needs an active
// subscription and the account has none.
var ErrNoSubscription = errors.New("no active subscription")

// Plan is one purchasable tier in the catalog.
type Plan struct {
	Name         string   `json:"name"`          // "basic" or "premium".
	PriceId      string   `json:"-"`             // Stripe price, never exposed.
	DisplayPrice string   `json:"display_price"` // e.g. "$9/mo".
	Features     []string `json:"features"`      // Feature keys this plan unlocks.
}

// Service creates and verifies Stripe checkout sessions and records the
// resulting plan state.
type Service struct {
	Store  *auth.Store
	Config *cloud.Stripe

	// Stripe entry points, injectable for tests.
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getCheckoutSession    func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	cancelSubscription    func(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

// NewService creates the billing service and sets the global Stripe key.
func NewService(store *auth.Store, config *cloud.Stripe) *Service {
	stripe.Key = strings.TrimSpace(config.ApiKey)
	return &Service{
		Store:                 store,
		Config:                config,
		createCheckoutSession: stripesession.New,
		getCheckoutSession:    stripesession.Get,
		cancelSubscription:    stripesub.Cancel,
	}
}

// Plans returns the purchasable plan catalog with the features each tier
// unlocks.
func (s *Service) Plans() []Plan {
	features := entitlement.Features()
	basic := make([]string, 0)
	premium := make([]string, 0)
	for feature, tier := range features {
		switch tier {
		case "basic":
			basic = append(basic, feature)
			premium = append(premium, feature)
		case "premium":
			premium = append(premium, feature)
		}
	}
	return []Plan{
		{Name: "basic", PriceId: s.Config.BasicPriceId, DisplayPrice: "$9/mo", Features: basic},
		{Name: "premium", PriceId: s.Config.PremiumPriceId, DisplayPrice: "$19/mo", Features: premium},
	}
}

// Checkout creates a Stripe checkout session for one plan and returns its
// redirect URL.
//
// Inputs:
//   - ctx: The context for the request.
//   - user: The purchasing account.
//   - planName: "basic" or "premium".
//
// Outputs:
//   - string: The checkout URL to redirect the user to.
//   - string: The session ID, recorded for later verification.
//   - error: ErrUnknownPlan or a Stripe error.
func (s *Service) Checkout(ctx context.Context, user *model.User, planName string) (string, string, error) {
	priceId, err := s.priceFor(planName)
	if err != nil {
		return "", "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:    stripe.String(s.Config.SuccessUrl),
		CancelURL:     stripe.String(s.Config.CancelUrl),
		CustomerEmail: stripe.String(user.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceId),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id": user.Id,
			"plan":    planName,
		},
	}
	session, err := s.createCheckoutSession(params)
	if err != nil {
		return "", "", err
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", "", fmt.Errorf("stripe returned empty checkout URL")
	}

	// An incomplete subscription row carries the session ID so a later
	// verify call knows what to look up.
	err = s.Store.SaveSubscription(ctx, &model.Subscription{
		UserId:          user.Id,
		Plan:            planName,
		Status:          "incomplete",
		StripeSessionId: session.ID,
	})
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(session.URL), session.ID, nil
}

// Verify checks a checkout session after the success redirect. A paid
// session activates the subscription and moves the account to the plan's
// tier.
//
// Outputs:
//   - *model.Subscription: The updated subscription row.
//   - error: ErrNoSubscription when there is nothing to verify, or a
//     Stripe or storage error.
func (s *Service) Verify(ctx context.Context, user *model.User, sessionId string) (*model.Subscription, error) {
	sub, err := s.Store.GetSubscription(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	if sub == nil || (sessionId != "" && sub.StripeSessionId != sessionId) {
		return nil, ErrNoSubscription
	}

	session, err := s.getCheckoutSession(sub.StripeSessionId, nil)
	if err != nil {
		return nil, err
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return sub, nil
	}

	sub.Status = "active"
	if session.Customer != nil {
		sub.StripeCustomerId = session.Customer.ID
	}
	if session.Subscription != nil {
		// The session ID column doubles as the handle for cancellation
		// once the subscription exists.
		sub.StripeSessionId = session.Subscription.ID
	}
	sub.CurrentPeriodEnd = time.Now().UTC().AddDate(0, 1, 0)
	if err := s.Store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateTier(ctx, user.Id, sub.Plan); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel ends an active subscription and returns the account to the free
// tier at Stripe's confirmation.
func (s *Service) Cancel(ctx context.Context, user *model.User) error {
	sub, err := s.Store.GetSubscription(ctx, user.Id)
	if err != nil {
		return err
	}
	if sub == nil || sub.Status != "active" {
		return ErrNoSubscription
	}

	if _, err := s.cancelSubscription(sub.StripeSessionId, nil); err != nil {
		return err
	}

	sub.Status = "canceled"
	if err := s.Store.SaveSubscription(ctx, sub); err != nil {
		return err
	}
	return s.Store.UpdateTier(ctx, user.Id, "free")
}

// Status returns the account's subscription row, which may be nil for
// accounts that never purchased.
func (s *Service) Status(ctx context.Context, user *model.User) (*model.Subscription, error) {
	return s.Store.GetSubscription(ctx, user.Id)
}

func (s *Service) priceFor(planName string) (string, error) {
	switch planName {
	case "basic":
		return s.Config.BasicPriceId, nil
	case "premium":
		return s.Config.PremiumPriceId, nil
	}
	return "", ErrUnknownPlan
}
