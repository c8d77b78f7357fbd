package order

import "fmt"

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusCreated        Status = "created"
	StatusPacking        Status = "packing"
	StatusSent           Status = "sent"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// transitions is the full lifecycle table. Completed and Cancelled are
// terminal. Every status change, including admin overrides, is validated
// against this table.
var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusCreated, StatusCancelled},
	StatusCreated:        {StatusPacking, StatusCancelled},
	StatusPacking:        {StatusSent, StatusCancelled},
	StatusSent:           {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the lifecycle table allows s -> to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}
