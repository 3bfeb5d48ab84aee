package stage

import "meetingintel/internal/report"

// Prior is an immutable snapshot of the payloads produced by stages that have
// already succeeded, in registration order.
type Prior struct {
	order    []string
	payloads map[string]report.Payload
}

// NewPrior copies payloads keyed by stage id; order fixes lookup precedence.
func NewPrior(order []string, payloads map[string]report.Payload) Prior {
	p := Prior{payloads: make(map[string]report.Payload, len(payloads))}
	for _, id := range order {
		if payload, ok := payloads[id]; ok && payload != nil {
			p.order = append(p.order, id)
			p.payloads[id] = payload
		}
	}
	return p
}

// Payload returns the payload of a succeeded stage.
func (p Prior) Payload(id string) (report.Payload, bool) {
	payload, ok := p.payloads[id]
	return payload, ok
}

// IDs lists the succeeded stage ids.
func (p Prior) IDs() []string {
	return append([]string(nil), p.order...)
}

// Len is the number of prior payloads.
func (p Prior) Len() int { return len(p.order) }

// Find returns the first prior payload of type T.
func Find[T report.Payload](p Prior) (T, bool) {
	for _, id := range p.order {
		if typed, ok := p.payloads[id].(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}
