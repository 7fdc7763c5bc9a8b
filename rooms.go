package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// Room owns exactly one match, plus the bookkeeping the registry needs to
// decide when it can be thrown away.
type Room struct {
	id    string
	match *Match

	mu           sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
}

func (r *Room) touchActivity(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = now
}

func (r *Room) activity() (createdAt, lastActivity time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createdAt, r.lastActivity
}

// RoomRegistry holds a set of rooms keyed by room ID, so each /quiz/:roomid
// is its own isolated match.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	inactivityTimeout time.Duration
	creationGrace     time.Duration
}

func newRoomRegistry(inactivityTimeout, creationGrace time.Duration) *RoomRegistry {
	reg := &RoomRegistry{
		rooms:             make(map[string]*Room),
		inactivityTimeout: inactivityTimeout,
		creationGrace:     creationGrace,
	}
	if inactivityTimeout > 0 {
		go reg.reaperLoop()
	}
	return reg
}

// getOrCreate returns the shared room for roomID, creating a fresh
// lobby-phase match if absent. Safe to call redundantly: an existing room is
// never reset. Stale rooms are swept opportunistically first.
func (reg *RoomRegistry) getOrCreate(roomID string) *Room {
	now := time.Now()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.sweepLocked(now)

	if room, ok := reg.rooms[roomID]; ok {
		room.touchActivity(now)
		return room
	}

	room := &Room{
		id:           roomID,
		match:        newMatch(),
		createdAt:    now,
		lastActivity: now,
	}
	reg.rooms[roomID] = room

	return room
}

// sweep removes rooms idle past the inactivity timeout. Rooms inside the
// creation grace window are spared, so a freshly created room cannot be
// reaped out from under its creator's first requests.
func (reg *RoomRegistry) sweep(now time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.sweepLocked(now)
}

func (reg *RoomRegistry) sweepLocked(now time.Time) {
	if reg.inactivityTimeout <= 0 {
		return
	}
	for id, room := range reg.rooms {
		createdAt, lastActivity := room.activity()
		if now.Sub(lastActivity) > reg.inactivityTimeout && now.Sub(createdAt) > reg.creationGrace {
			delete(reg.rooms, id)
		}
	}
}

// reaperLoop periodically sweeps, so rooms abandoned by every client still
// get collected even when no new request ever arrives.
func (reg *RoomRegistry) reaperLoop() {
	ticker := time.NewTicker(reg.inactivityTimeout / 2)
	for range ticker.C {
		reg.sweep(time.Now())
	}
}

// newRoomID generates a crypto-random room ID and ensures it doesn't collide
// with existing rooms.
func (reg *RoomRegistry) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 6)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 6)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		reg.mu.Lock()
		_, exists := reg.rooms[id]
		reg.mu.Unlock()

		if !exists {
			return id
		}
	}
}
