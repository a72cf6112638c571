package repository

import (
	"context"

	"github.com/codepair/peercall/internal/domain"
)

// RoomStore keeps per-room shared state. Mutation methods auto-create the
// room, so a client racing its own join cannot crash the relay.
type RoomStore interface {
	GetOrCreate(ctx context.Context, roomID string) (*domain.Room, error)
	AppendMessage(ctx context.Context, roomID string, msg *domain.ChatMessage) error
	SetEditorContent(ctx context.Context, roomID string, content string) error
	Snapshot(ctx context.Context, roomID string) (domain.RoomData, error)
	Delete(ctx context.Context, roomID string) error
}
