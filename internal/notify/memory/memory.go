// Package memory contains in-memory notifier and publisher implementations for
// tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	payloads []any

	// FailPublishes forces Publish errors.
	FailPublishes bool
}

// NewPublisher returns a memory Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, payload any) (string, error) {
	if p.FailPublishes {
		return "", fmt.Errorf("publisher unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("memory-%d", len(p.payloads)), nil
}

// Payloads returns the recorded publishes.
func (p *Publisher) Payloads() []any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}

// Delivery captures one Notifier.Send call.
type Delivery struct {
	Recipients     []string
	Subject        string
	Body           string
	Attachment     []byte
	AttachmentName string
}

// Notifier records report deliveries.
type Notifier struct {
	mu         sync.RWMutex
	deliveries []Delivery

	// FailSends forces Send errors.
	FailSends bool
}

// NewNotifier returns a memory Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Send records the delivery and returns a pseudo receipt.
func (n *Notifier) Send(_ context.Context, recipients []string, subject, body string, attachment []byte, attachmentName string) (string, error) {
	if n.FailSends {
		return "", fmt.Errorf("notifier unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, Delivery{
		Recipients:     append([]string(nil), recipients...),
		Subject:        subject,
		Body:           body,
		Attachment:     append([]byte(nil), attachment...),
		AttachmentName: attachmentName,
	})
	return fmt.Sprintf("receipt-%d", len(n.deliveries)), nil
}

// Deliveries returns the recorded sends.
func (n *Notifier) Deliveries() []Delivery {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Delivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}
