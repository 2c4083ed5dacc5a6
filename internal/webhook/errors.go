package webhook

import "fmt"

// SignatureError marks a delivery that failed HMAC verification. The
// transport maps it to a 400 so Stripe stops retrying an inauthentic payload.
type SignatureError struct {
	cause error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.cause)
}

func (e *SignatureError) Unwrap() error { return e.cause }

// HandlerError wraps a processing failure, usually a store fault, so the
// transport can surface the event type alongside a 500 and Stripe retries.
type HandlerError struct {
	EventType string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handle %s: %v", e.EventType, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
