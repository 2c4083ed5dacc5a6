package webhook

import (
	"context"
	"errors"

	stripewebhook "github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	checkoutdomain "github.com/lumapix/lumapix/internal/checkout/domain"
	"github.com/lumapix/lumapix/internal/config"
	creditpackdomain "github.com/lumapix/lumapix/internal/creditpack/domain"
	obsmetrics "github.com/lumapix/lumapix/internal/observability/metrics"
	subscriptiondomain "github.com/lumapix/lumapix/internal/subscription/domain"
)

// Outcome labels for the webhook event counter.
const (
	outcomeApplied  = "applied"
	outcomeSkipped  = "skipped"
	outcomeIgnored  = "ignored"
	outcomeInvalid  = "invalid"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Cfg           config.Config
	Subscriptions subscriptiondomain.Service
	CreditPacks   creditpackdomain.Service
	Checkouts     checkoutdomain.Service
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

// Service verifies, classifies and routes incoming Stripe webhook
// deliveries. All financial effects run through the subscription and credit
// pack services, which own dedup and atomicity.
type Service struct {
	log           *zap.Logger
	secret        string
	subscriptions subscriptiondomain.Service
	creditPacks   creditpackdomain.Service
	checkouts     checkoutdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:           p.Log.Named("webhook"),
		secret:        p.Cfg.StripeWebhookSecret,
		subscriptions: p.Subscriptions,
		creditPacks:   p.CreditPacks,
		checkouts:     p.Checkouts,
		obsMetrics:    p.ObsMetrics,
	}
}

// HandleEvent processes one raw delivery. A nil return means the delivery is
// settled and must be acknowledged with a 2xx, including duplicates, unknown
// event types and payloads with unusable metadata. A *SignatureError means
// the payload is inauthentic and a *HandlerError means a transient processing
// fault worth a retry.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, s.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.log.Warn("rejecting delivery with bad signature", zap.Error(err))
		s.obsMetrics.RecordWebhookEvent(ctx, "unverified", outcomeRejected)
		return &SignatureError{cause: err}
	}

	eventType := string(event.Type)
	inbound, err := classifyEvent(event)
	if err != nil {
		// The payload is authentic but unusable. Retrying cannot fix it,
		// so log loudly and acknowledge.
		s.log.Error("discarding malformed event payload",
			zap.String("event_id", event.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		s.obsMetrics.RecordWebhookEvent(ctx, eventType, outcomeInvalid)
		return nil
	}

	outcome, err := s.route(ctx, inbound)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, eventType, outcomeError)
		return &HandlerError{EventType: eventType, Err: err}
	}
	s.obsMetrics.RecordWebhookEvent(ctx, eventType, outcome)
	return nil
}

func (s *Service) route(ctx context.Context, inbound InboundEvent) (string, error) {
	switch ev := inbound.(type) {
	case CheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, ev)
	case SubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, ev)
	case SubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, ev)
	case InvoicePaymentSucceeded:
		return s.handleInvoicePaid(ctx, ev)
	case PaymentIntentSucceeded:
		return s.handlePaymentIntentSucceeded(ctx, ev)
	default:
		s.log.Info("acknowledging unhandled event type", zap.String("event_type", inbound.EventType()))
		return outcomeIgnored, nil
	}
}

// handleCheckoutCompleted applies credit pack purchases and then closes the
// tracked session. The session row is bookkeeping only; its absence never
// blocks the financial effect, and it stays untouched when the purchase
// metadata is unusable.
func (s *Service) handleCheckoutCompleted(ctx context.Context, ev CheckoutSessionCompleted) (string, error) {
	if ev.Purpose != purposeCreditPack {
		// Subscription checkouts settle via customer.subscription.created.
		if err := s.closeSession(ctx, ev.SessionID); err != nil {
			return outcomeError, err
		}
		return outcomeSkipped, nil
	}

	outcome, err := s.applyPackPurchase(ctx, creditpackdomain.PurchaseParams{
		UserID:                ev.UserID,
		PackID:                ev.PackType,
		Credits:               ev.Credits,
		ValidityDays:          ev.ValidityDays,
		StripePaymentIntentID: ev.PaymentIntentID,
		AmountCents:           ev.AmountTotal,
	})
	if err != nil || outcome == outcomeInvalid {
		return outcome, err
	}

	if err := s.closeSession(ctx, ev.SessionID); err != nil {
		return outcomeError, err
	}
	return outcome, nil
}

func (s *Service) closeSession(ctx context.Context, sessionID string) error {
	found, err := s.checkouts.MarkCompleted(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found {
		s.log.Warn("completed checkout session was never tracked",
			zap.String("stripe_session_id", sessionID))
	}
	return nil
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, ev SubscriptionCreated) (string, error) {
	err := s.subscriptions.Create(ctx, subscriptiondomain.CreateParams{
		UserID:               ev.UserID,
		PlanID:               ev.PlanID,
		StripeSubscriptionID: ev.SubscriptionID,
		StripePriceID:        ev.PriceID,
		PeriodStart:          ev.PeriodStart,
		PeriodEnd:            ev.PeriodEnd,
	})
	switch {
	case err == nil:
		return outcomeApplied, nil
	case errors.Is(err, subscriptiondomain.ErrInvalidUser),
		errors.Is(err, subscriptiondomain.ErrInvalidSubscriptionRef),
		errors.Is(err, subscriptiondomain.ErrUnknownPlan):
		s.log.Error("discarding subscription event with unusable metadata",
			zap.String("stripe_subscription_id", ev.SubscriptionID),
			zap.String("plan_id", ev.PlanID),
			zap.Error(err),
		)
		return outcomeInvalid, nil
	default:
		return outcomeError, err
	}
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev SubscriptionDeleted) (string, error) {
	err := s.subscriptions.Expire(ctx, ev.SubscriptionID)
	switch {
	case err == nil:
		return outcomeApplied, nil
	case errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound):
		s.log.Warn("deletion event for unknown subscription",
			zap.String("stripe_subscription_id", ev.SubscriptionID))
		return outcomeSkipped, nil
	case errors.Is(err, subscriptiondomain.ErrInvalidSubscriptionRef):
		s.log.Error("discarding deletion event without subscription reference", zap.Error(err))
		return outcomeInvalid, nil
	default:
		return outcomeError, err
	}
}

// handleInvoicePaid resets the billing cycle on renewal invoices. The first
// invoice of a subscription is skipped because creation already granted the
// opening credits; resetting here would double-grant.
func (s *Service) handleInvoicePaid(ctx context.Context, ev InvoicePaymentSucceeded) (string, error) {
	if ev.BillingReason == billingReasonSubscriptionCreate {
		s.log.Info("skipping initial subscription invoice",
			zap.String("stripe_subscription_id", ev.SubscriptionID))
		return outcomeSkipped, nil
	}
	if ev.SubscriptionID == "" {
		// One-off invoices carry no subscription and no credit effect.
		return outcomeSkipped, nil
	}

	err := s.subscriptions.Reset(ctx, ev.SubscriptionID)
	switch {
	case err == nil:
		return outcomeApplied, nil
	case errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound):
		s.log.Warn("renewal invoice for unknown subscription",
			zap.String("stripe_subscription_id", ev.SubscriptionID))
		return outcomeSkipped, nil
	default:
		return outcomeError, err
	}
}

func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, ev PaymentIntentSucceeded) (string, error) {
	if ev.Purpose != purposeCreditPack {
		return outcomeSkipped, nil
	}
	return s.applyPackPurchase(ctx, creditpackdomain.PurchaseParams{
		UserID:                ev.UserID,
		PackID:                ev.PackType,
		Credits:               ev.Credits,
		ValidityDays:          ev.ValidityDays,
		StripePaymentIntentID: ev.PaymentIntentID,
		AmountCents:           ev.Amount,
	})
}

// applyPackPurchase is the single funnel for pack grants regardless of which
// event type carried the purchase, so the two delivery channels dedup against
// the same (user, payment intent) key.
func (s *Service) applyPackPurchase(ctx context.Context, p creditpackdomain.PurchaseParams) (string, error) {
	err := s.creditPacks.ApplyPurchase(ctx, p)
	switch {
	case err == nil:
		return outcomeApplied, nil
	case errors.Is(err, creditpackdomain.ErrInvalidUser),
		errors.Is(err, creditpackdomain.ErrInvalidPaymentRef),
		errors.Is(err, creditpackdomain.ErrInvalidCredits):
		s.log.Error("discarding pack purchase with unusable metadata",
			zap.String("user_id", p.UserID),
			zap.String("stripe_payment_intent_id", p.StripePaymentIntentID),
			zap.Error(err),
		)
		return outcomeInvalid, nil
	default:
		return outcomeError, err
	}
}
