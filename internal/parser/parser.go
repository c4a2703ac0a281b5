// Package parser normalizes provider webhook payloads into models.PaymentEvent.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reconciliation-service/internal/models"
)

var (
	ErrMalformedPayload    = errors.New("malformed webhook payload")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// Parser converts one provider's raw delivery into a PaymentEvent.
// Unknown event types are not errors: they come back as EventUnknown.
type Parser interface {
	Parse(ctx context.Context, raw []byte) (models.PaymentEvent, error)
}

// Registry dispatches deliveries to the parser of their provider
type Registry struct {
	parsers map[models.Provider]Parser
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[models.Provider]Parser)}
}

// Register installs the parser for a provider
func (r *Registry) Register(provider models.Provider, p Parser) {
	r.parsers[provider] = p
}

// Supports reports whether a parser is registered for provider
func (r *Registry) Supports(provider models.Provider) bool {
	_, ok := r.parsers[provider]
	return ok
}

// Parse normalizes raw. The returned event keeps raw as its replayable Body.
func (r *Registry) Parse(ctx context.Context, provider models.Provider, raw []byte) (models.PaymentEvent, error) {
	p, ok := r.parsers[provider]
	if !ok {
		return models.PaymentEvent{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	event, err := p.Parse(ctx, raw)
	if err != nil {
		return models.PaymentEvent{}, err
	}

	event.Provider = provider
	event.Body = append([]byte(nil), raw...)
	return event, nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// candidates collects correlation keys in priority order, skipping blanks and repeats
type candidates struct {
	provider models.Provider
	keys     []models.CorrelationKey
}

func newCandidates(provider models.Provider) *candidates {
	return &candidates{provider: provider}
}

func (c *candidates) add(kind models.CorrelationKind, value string) *candidates {
	value = strings.TrimSpace(value)
	if value == "" {
		return c
	}
	key := models.CorrelationKey{Kind: kind, Value: value}
	for _, k := range c.keys {
		if k == key {
			return c
		}
	}
	c.keys = append(c.keys, key)
	return c
}

func (c *candidates) paymentID(id string) *candidates {
	return c.add(models.KeyPaymentID, id)
}

// capture adds both the capture id and its provider-prefixed transaction id
func (c *candidates) capture(id string) *candidates {
	c.add(models.KeyCaptureID, id)
	if strings.TrimSpace(id) != "" {
		c.add(models.KeyTransactionID, models.TransactionID(c.provider, strings.TrimSpace(id)))
	}
	return c
}

func (c *candidates) orderNumber(values ...string) *candidates {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return c.add(models.KeyOrderNumber, v)
		}
	}
	return c
}

// sorted returns the keys grouped by kind priority, preserving insertion order within a kind
func (c *candidates) sorted() []models.CorrelationKey {
	order := []models.CorrelationKind{
		models.KeyPaymentID, models.KeyCaptureID, models.KeyTransactionID, models.KeyOrderNumber,
	}
	out := make([]models.CorrelationKey, 0, len(c.keys))
	for _, kind := range order {
		for _, k := range c.keys {
			if k.Kind == kind {
				out = append(out, k)
			}
		}
	}
	return out
}
