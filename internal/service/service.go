package service

import (
	"context"

	"github.com/codepair/peercall/internal/domain"
)

type SignalingInteractor interface {
	Join(ctx context.Context, p *domain.Participant, roomID string) error
	HandleEvent(ctx context.Context, p *domain.Participant, event domain.Event) error
	Disconnect(ctx context.Context, p *domain.Participant) error
}
