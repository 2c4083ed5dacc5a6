package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Event type strings recognized by the dispatcher. Everything else is
// acknowledged as a no-op so the processor can add types without breaking us.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// billingReasonSubscriptionCreate marks the invoice that accompanies initial
// subscription creation; its credits are already granted by the create path.
const billingReasonSubscriptionCreate = "subscription_create"

// Metadata keys set by the checkout initiation flow.
const (
	metaUserID       = "userId"
	metaPlanType     = "planType"
	metaPurpose      = "type"
	metaPackType     = "packType"
	metaCredits      = "credits"
	metaValidityDays = "validityDays"
)

const purposeCreditPack = "credit_pack"

// InboundEvent is the typed form of one webhook delivery. Exactly one
// concrete type exists per recognized event type, plus UnknownEvent for
// everything else.
type InboundEvent interface {
	EventType() string
}

type CheckoutSessionCompleted struct {
	SessionID       string
	UserID          string
	Purpose         string
	PackType        string
	Credits         int64
	ValidityDays    *int
	PaymentIntentID string
	AmountTotal     int64
}

func (CheckoutSessionCompleted) EventType() string { return EventCheckoutSessionCompleted }

type SubscriptionCreated struct {
	SubscriptionID string
	UserID         string
	PlanID         string
	PriceID        string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

func (SubscriptionCreated) EventType() string { return EventSubscriptionCreated }

type SubscriptionDeleted struct {
	SubscriptionID string
}

func (SubscriptionDeleted) EventType() string { return EventSubscriptionDeleted }

type InvoicePaymentSucceeded struct {
	SubscriptionID string
	BillingReason  string
}

func (InvoicePaymentSucceeded) EventType() string { return EventInvoicePaymentSucceeded }

type PaymentIntentSucceeded struct {
	PaymentIntentID string
	UserID          string
	Purpose         string
	PackType        string
	Credits         int64
	ValidityDays    *int
	Amount          int64
}

func (PaymentIntentSucceeded) EventType() string { return EventPaymentIntentSucceeded }

type UnknownEvent struct {
	Type string
}

func (e UnknownEvent) EventType() string { return e.Type }

// expandableID decodes a Stripe expandable reference, which arrives either as
// the bare id string or as the expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*e = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	PaymentIntent expandableID      `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Metadata           map[string]string `json:"metadata"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	BillingReason string       `json:"billing_reason"`
	Subscription  expandableID `json:"subscription"`
}

type paymentIntentPayload struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// classifyEvent converts a verified Stripe event envelope into the typed
// union consumed by the handlers.
func classifyEvent(event stripe.Event) (InboundEvent, error) {
	eventType := strings.TrimSpace(string(event.Type))
	raw := []byte{}
	if event.Data != nil {
		raw = event.Data.Raw
	}

	switch eventType {
	case EventCheckoutSessionCompleted:
		var p checkoutSessionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		validity, err := parseValidityDays(p.Metadata)
		if err != nil {
			return nil, err
		}
		credits, err := parseCredits(p.Metadata)
		if err != nil {
			return nil, err
		}
		return CheckoutSessionCompleted{
			SessionID:       p.ID,
			UserID:          p.Metadata[metaUserID],
			Purpose:         p.Metadata[metaPurpose],
			PackType:        p.Metadata[metaPackType],
			Credits:         credits,
			ValidityDays:    validity,
			PaymentIntentID: string(p.PaymentIntent),
			AmountTotal:     p.AmountTotal,
		}, nil

	case EventSubscriptionCreated:
		var p subscriptionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev := SubscriptionCreated{
			SubscriptionID: p.ID,
			UserID:         p.Metadata[metaUserID],
			PlanID:         p.Metadata[metaPlanType],
		}
		if len(p.Items.Data) > 0 {
			ev.PriceID = p.Items.Data[0].Price.ID
		}
		if p.CurrentPeriodStart > 0 {
			ev.PeriodStart = time.Unix(p.CurrentPeriodStart, 0).UTC()
		}
		if p.CurrentPeriodEnd > 0 {
			ev.PeriodEnd = time.Unix(p.CurrentPeriodEnd, 0).UTC()
		}
		return ev, nil

	case EventSubscriptionDeleted:
		var p subscriptionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionDeleted{SubscriptionID: p.ID}, nil

	case EventInvoicePaymentSucceeded:
		var p invoicePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		return InvoicePaymentSucceeded{
			SubscriptionID: string(p.Subscription),
			BillingReason:  p.BillingReason,
		}, nil

	case EventPaymentIntentSucceeded:
		var p paymentIntentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		validity, err := parseValidityDays(p.Metadata)
		if err != nil {
			return nil, err
		}
		credits, err := parseCredits(p.Metadata)
		if err != nil {
			return nil, err
		}
		return PaymentIntentSucceeded{
			PaymentIntentID: p.ID,
			UserID:          p.Metadata[metaUserID],
			Purpose:         p.Metadata[metaPurpose],
			PackType:        p.Metadata[metaPackType],
			Credits:         credits,
			ValidityDays:    validity,
			Amount:          p.Amount,
		}, nil

	default:
		return UnknownEvent{Type: eventType}, nil
	}
}

// parseValidityDays reads the validity window from checkout metadata. The
// literal string "null" is a deliberate sentinel for "never expires" and maps
// to nil, same as an absent field.
func parseValidityDays(meta map[string]string) (*int, error) {
	raw, ok := meta[metaValidityDays]
	if !ok {
		return nil, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return nil, fmt.Errorf("invalid validityDays %q", raw)
	}
	return &days, nil
}

func parseCredits(meta map[string]string) (int64, error) {
	raw, ok := meta[metaCredits]
	if !ok {
		return 0, nil
	}
	credits, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid credits %q", raw)
	}
	return credits, nil
}
