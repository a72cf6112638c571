package repository

import (
	"context"
	"sync"

	"github.com/codepair/peercall/internal/domain"
)

type InMemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewInMemoryRoomStore() *InMemoryRoomStore {
	return &InMemoryRoomStore{
		rooms: make(map[string]*domain.Room),
	}
}

func (s *InMemoryRoomStore) GetOrCreate(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		room = domain.NewRoom(roomID)
		s.rooms[roomID] = room
	}
	return room, nil
}

func (s *InMemoryRoomStore) AppendMessage(ctx context.Context, roomID string, msg *domain.ChatMessage) error {
	room, err := s.GetOrCreate(ctx, roomID)
	if err != nil {
		return err
	}

	room.AppendMessage(msg)
	return nil
}

func (s *InMemoryRoomStore) SetEditorContent(ctx context.Context, roomID string, content string) error {
	room, err := s.GetOrCreate(ctx, roomID)
	if err != nil {
		return err
	}

	room.SetEditorContent(content)
	return nil
}

// Snapshot returns a copy of the room state. An unknown room yields an empty
// snapshot rather than an error; the caller cannot tell the difference and
// does not need to.
func (s *InMemoryRoomStore) Snapshot(ctx context.Context, roomID string) (domain.RoomData, error) {
	if err := ctx.Err(); err != nil {
		return domain.RoomData{}, err
	}

	s.mu.RLock()
	room, ok := s.rooms[roomID]
	s.mu.RUnlock()

	if !ok {
		return domain.RoomData{Messages: []domain.ChatMessage{}}, nil
	}
	return room.Snapshot(), nil
}

func (s *InMemoryRoomStore) Delete(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
	return nil
}
