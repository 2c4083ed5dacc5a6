package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stripe/stripe-go/v79"
)

func TestParseValidityDays(t *testing.T) {
	cases := []struct {
		name    string
		meta    map[string]string
		want    *int
		wantErr bool
	}{
		{name: "missing", meta: map[string]string{}, want: nil},
		{name: "null sentinel", meta: map[string]string{"validityDays": "null"}, want: nil},
		{name: "empty string", meta: map[string]string{"validityDays": ""}, want: nil},
		{name: "number", meta: map[string]string{"validityDays": "90"}, want: intPtr(90)},
		{name: "padded number", meta: map[string]string{"validityDays": " 30 "}, want: intPtr(30)},
		{name: "garbage", meta: map[string]string{"validityDays": "soon"}, wantErr: true},
		{name: "negative", meta: map[string]string{"validityDays": "-5"}, wantErr: true},
		{name: "zero", meta: map[string]string{"validityDays": "0"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseValidityDays(tc.meta)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("expected %d, got %d", *tc.want, *got)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func TestExpandableIDAcceptsStringAndObject(t *testing.T) {
	var fromString expandableID
	if err := json.Unmarshal([]byte(`"pi_123"`), &fromString); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if fromString != "pi_123" {
		t.Fatalf("expected pi_123, got %q", fromString)
	}

	var fromObject expandableID
	if err := json.Unmarshal([]byte(`{"id":"pi_456","amount":2000}`), &fromObject); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if fromObject != "pi_456" {
		t.Fatalf("expected pi_456, got %q", fromObject)
	}

	var fromNull expandableID
	if err := json.Unmarshal([]byte(`null`), &fromNull); err != nil {
		t.Fatalf("null form: %v", err)
	}
	if fromNull != "" {
		t.Fatalf("expected empty, got %q", fromNull)
	}
}

func TestClassifyUnknownEventType(t *testing.T) {
	event := stripe.Event{
		Type: "charge.refunded",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"ch_1"}`)},
	}

	inbound, err := classifyEvent(event)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	unknown, ok := inbound.(UnknownEvent)
	if !ok {
		t.Fatalf("expected UnknownEvent, got %T", inbound)
	}
	if unknown.EventType() != "charge.refunded" {
		t.Fatalf("unexpected event type %q", unknown.EventType())
	}
}

func TestClassifyInvoiceWithExpandedSubscription(t *testing.T) {
	event := stripe.Event{
		Type: EventInvoicePaymentSucceeded,
		Data: &stripe.EventData{Raw: json.RawMessage(
			`{"billing_reason":"subscription_cycle","subscription":{"id":"sub_9"}}`,
		)},
	}

	inbound, err := classifyEvent(event)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	invoice, ok := inbound.(InvoicePaymentSucceeded)
	if !ok {
		t.Fatalf("expected InvoicePaymentSucceeded, got %T", inbound)
	}
	if invoice.SubscriptionID != "sub_9" {
		t.Fatalf("expected sub_9, got %q", invoice.SubscriptionID)
	}
}

func TestClassifyMalformedPayloadFails(t *testing.T) {
	event := stripe.Event{
		Type: EventCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: json.RawMessage(`{"metadata":{"validityDays":"sometime"}}`)},
	}

	if _, err := classifyEvent(event); err == nil {
		t.Fatal("expected classification error")
	}
}
