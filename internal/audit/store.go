package audit

import "context"

// Store persists consumed audit events. Save must tolerate redelivery of an
// event it has already stored.
type Store interface {
	Save(ctx context.Context, event *Event) error
}
