// Package repository declares the storage contracts used by the services.
// Implementations live in sub-packages (repository/sqldb).
package repository

import (
	"context"

	"github.com/sakif/event-registration/internal/model"
)

// ListOptions narrows a List call. The zero value lists every participant.
type ListOptions struct {
	// When either UserName or UserPhone is set, the result is restricted to
	// rows matching both exactly; an empty value matches an empty column.
	// The intake adapter uses this for duplicate detection.
	UserName  string
	UserPhone string
}

// ParticipantRepository is the Participant Store.
//
// Errors for unknown ids wrap apperror.ErrNotFound. Ordering of List results
// is not part of the contract; presentation order is decided by the caller.
type ParticipantRepository interface {
	// Create generates UserID, assigns the next ParticipantNumber and stamps
	// CreatedAt/UpdatedAt on p.
	Create(ctx context.Context, p *model.Participant) error
	GetByUserID(ctx context.Context, userID string) (*model.Participant, error)
	List(ctx context.Context, opts ListOptions) ([]model.Participant, error)
	// Update replaces every mutable column of the row identified by p.UserID.
	Update(ctx context.Context, p *model.Participant) error
	Delete(ctx context.Context, userID string) error
}
