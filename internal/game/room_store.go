// internal/game/room_store.go
package game

import (
	"sync"

	"github.com/jason-s-yu/farkle/internal/models"
)

// FallbackRoomCode is the room unknown codes are redirected to.
const FallbackRoomCode = "Classic 1"

// RoomSummary is one lobby entry.
type RoomSummary struct {
	Name         string `json:"name"`
	Count        int    `json:"count"`
	Spectators   int    `json:"spectators"`
	Max          int    `json:"max"`
	Status       Status `json:"status"`
	Category     string `json:"category"`
	RulesSummary string `json:"rulesSummary"`
}

// RoomStore holds the fixed, ordered set of rooms created at startup. Rooms are never
// removed.
type RoomStore struct {
	mu    sync.Mutex
	order []string
	rooms map[string]*Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

// AddRoom registers room. A room with the same code is replaced in place.
func (s *RoomStore) AddRoom(room *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.Code]; !exists {
		s.order = append(s.order, room.Code)
	}
	s.rooms[room.Code] = room
}

func (s *RoomStore) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	return r, exists
}

// Resolve returns the room for code, falling back to FallbackRoomCode for unknown codes.
func (s *RoomStore) Resolve(code string) (*Room, error) {
	if r, ok := s.GetRoom(code); ok {
		return r, nil
	}
	if r, ok := s.GetRoom(FallbackRoomCode); ok {
		return r, nil
	}
	return nil, ErrRoomNotFound
}

// Rooms returns the rooms in creation order.
func (s *RoomStore) Rooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, s.rooms[code])
	}
	return out
}

// Summaries returns the lobby list in creation order.
func (s *RoomStore) Summaries() []RoomSummary {
	rooms := s.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

// Leave removes playerID from every room and returns the codes of the rooms it changed.
func (s *RoomStore) Leave(playerID string) []string {
	var changed []string
	for _, r := range s.Rooms() {
		if r.Leave(playerID) {
			changed = append(changed, r.Code)
		}
	}
	return changed
}

// AttachProfile links profile to every seat playerID holds and returns those room codes.
func (s *RoomStore) AttachProfile(playerID string, profile models.User) []string {
	var seated []string
	for _, r := range s.Rooms() {
		if r.AttachProfile(playerID, profile) {
			seated = append(seated, r.Code)
		}
	}
	return seated
}

// Close stops every room's timers.
func (s *RoomStore) Close() {
	for _, r := range s.Rooms() {
		r.Close()
	}
}
