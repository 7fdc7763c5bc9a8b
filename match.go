// Football Quiz Match
//
// A picture (shirt, crest, or player silhouette) is shown and players guess
// which club it belongs to. One match per room, shared by reference across
// every request for that room.
//
// Rules:
// - Duo mode: two players duel over the same picture. A wrong guess locks the
//   guesser and hands the turn to the opponent. If both end up locked, the
//   round resolves with no winner.
// - Solo mode: one player against the clock in their head. No locks; a miss
//   just clears the input so they can try again.
// - The round winner scores a point and the *loser* starts the next round.
//   When nobody wins, whoever did not start the current round starts the next.
// - The host (P1) configures the pool, starts the match, and may end it.
// - A player that stops polling for longer than the liveness timeout forfeits
//   the match (Duo only).
//
// Every operation is a guarded transition: called out of phase or by the wrong
// role it rejects with a sentinel error and leaves the state untouched, since
// two pollers race against the same match.

package main

import (
	"math/rand"
	"sync"
	"time"
)

// Phase is the match's coarse state.
type Phase int

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhaseRoundOver
	PhaseFinished
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePlaying:
		return "playing"
	case PhaseRoundOver:
		return "round_over"
	case PhaseFinished:
		return "finished"
	case PhaseDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Role identifies which seat a client holds.
type Role string

const (
	RoleP1   Role = "P1"
	RoleP2   Role = "P2"
	RoleNone Role = ""
)

// Nobody is the winner sentinel for rounds nobody guessed.
const Nobody = "NOBODY"

func (r Role) other() Role {
	if r == RoleP1 {
		return RoleP2
	}
	return RoleP1
}

// Mode selects duel or single-player rules.
type Mode int

const (
	ModeDuo Mode = iota
	ModeSolo
)

func (m Mode) String() string {
	if m == ModeSolo {
		return "solo"
	}
	return "duo"
}

// PoolEntry is one (answer label, image reference) candidate.
type PoolEntry struct {
	Label    string
	ImageRef string
}

// Match is the single mutable aggregate per room. All exported methods take
// the lock; *Locked helpers assume it is already held.
type Match struct {
	mu sync.Mutex

	mode    Mode
	player1 string
	player2 string
	roles   map[string]Role // playerID cookie -> seat

	score1 int
	score2 int
	phase  Phase

	pool         []PoolEntry
	currentLabel string
	currentImage string
	roundID      int
	inputEpoch   int

	locked1 bool
	locked2 bool

	lastWinner          string // "P1", "P2", or Nobody; empty mid-round
	lastCorrectAnswer   string
	currentRoundStarter Role
	starterOfNextRound  Role

	lastSeen1        time.Time
	lastSeen2        time.Time
	disconnectReason string

	// pick chooses the next round's pool index; swappable in tests.
	pick func(n int) int
}

func newMatch() *Match {
	now := time.Now()
	return &Match{
		phase:              PhaseLobby,
		roles:              make(map[string]Role),
		starterOfNextRound: RoleP1,
		lastSeen1:          now,
		lastSeen2:          now,
		pick:               rand.Intn,
	}
}

// RoleOf resolves a client's stable seat, if it has one.
func (m *Match) RoleOf(playerID string) Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[playerID]
}

// Join claims a seat. Valid only in the lobby, only for an empty seat. Solo
// joins are host-only: they fix the mode, fill P2 with a placeholder, and
// the CPU never takes part in turn logic.
func (m *Match) Join(role Role, playerID, name string, solo bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseLobby {
		return errWrongPhase
	}
	if name == "" || playerID == "" {
		return errWrongRole
	}

	switch {
	case solo:
		if role != RoleP1 {
			return errWrongRole
		}
		if m.player1 != "" || m.player2 != "" {
			return errSlotTaken
		}
		m.mode = ModeSolo
		m.player1 = name
		m.player2 = "CPU"
	case role == RoleP1:
		if m.player1 != "" {
			return errSlotTaken
		}
		m.mode = ModeDuo
		m.player1 = name
	case role == RoleP2:
		if m.mode == ModeSolo {
			return errSlotTaken
		}
		if m.player2 != "" {
			return errSlotTaken
		}
		m.mode = ModeDuo
		m.player2 = name
	default:
		return errWrongRole
	}

	m.roles[playerID] = role
	m.touchLocked(role, time.Now())

	return nil
}

// ConfigureAndStart is the one-shot Lobby→Playing gate. Host-only, requires
// every seat for the selected mode to be filled and a non-empty pool. The
// pool is copied and stays immutable for the whole match.
func (m *Match) ConfigureAndStart(role Role, pool []PoolEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseLobby {
		return errWrongPhase
	}
	if role != RoleP1 {
		return errWrongRole
	}
	if m.player1 == "" || (m.mode == ModeDuo && m.player2 == "") {
		return errNotReady
	}
	if len(pool) == 0 {
		return errEmptyPool
	}

	m.pool = make([]PoolEntry, len(pool))
	copy(m.pool, pool)

	now := time.Now()
	m.lastSeen1 = now
	m.lastSeen2 = now

	m.startRoundLocked()

	return nil
}

// startRoundLocked deals a fresh round: random pool entry, locks and winner
// cleared, round counter bumped, input epoch rewound.
func (m *Match) startRoundLocked() {
	entry := m.pool[m.pick(len(m.pool))]
	m.currentLabel = entry.Label
	m.currentImage = entry.ImageRef
	m.locked1 = false
	m.locked2 = false
	m.lastWinner = ""
	m.roundID++
	m.inputEpoch = 0
	m.phase = PhasePlaying

	if m.mode == ModeSolo {
		m.currentRoundStarter = RoleP1
	} else {
		m.currentRoundStarter = m.starterOfNextRound
	}
}

// SubmitGuess checks one guess against the current answer. A locked player is
// rejected without state change. A miss locks the caller and unlocks the
// opponent in Duo mode; in Solo it only bumps the input epoch. Free-text
// guesses go through fuzzy matching with the given cutoff, picklist guesses
// are exact.
func (m *Match) SubmitGuess(role Role, guess string, freetext bool, cutoff float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhasePlaying {
		return false, errWrongPhase
	}
	if role != RoleP1 && role != RoleP2 {
		return false, errWrongRole
	}
	if m.mode == ModeSolo && role == RoleP2 {
		return false, errWrongRole
	}
	if m.mode == ModeDuo {
		if (role == RoleP1 && m.locked1) || (role == RoleP2 && m.locked2) {
			return false, errLocked
		}
	}

	if matchesAnswer(guess, m.currentLabel, m.poolLabelsLocked(), freetext, cutoff) {
		m.resolveRoundLocked(string(role))
		return true, nil
	}

	m.inputEpoch++
	if m.mode == ModeDuo {
		// A miss hands the turn over, it does not compound.
		if role == RoleP1 {
			m.locked1 = true
			m.locked2 = false
		} else {
			m.locked2 = true
			m.locked1 = false
		}
		m.checkDualLockLocked()
	}

	return false, nil
}

// Surrender concedes the attempt. Solo concedes the round outright; Duo
// behaves like a miss without naming a club, so both players surrendering
// (or miss-then-surrender) collapses the round.
func (m *Match) Surrender(role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhasePlaying {
		return errWrongPhase
	}
	if role != RoleP1 && role != RoleP2 {
		return errWrongRole
	}
	if m.mode == ModeSolo {
		if role != RoleP1 {
			return errWrongRole
		}
		m.inputEpoch++
		m.resolveRoundLocked(Nobody)
		return nil
	}

	m.inputEpoch++
	if role == RoleP1 {
		m.locked1 = true
	} else {
		m.locked2 = true
	}
	m.checkDualLockLocked()

	return nil
}

// checkDualLockLocked runs after every mutating action in Playing: both
// players locked means nobody gets this one, and the player who did not get
// first crack at the picture starts the next round.
func (m *Match) checkDualLockLocked() {
	if m.phase != PhasePlaying || m.mode != ModeDuo {
		return
	}
	if !(m.locked1 && m.locked2) {
		return
	}
	m.resolveRoundLocked(Nobody)
	m.starterOfNextRound = m.currentRoundStarter.other()
}

// resolveRoundLocked closes the round. A real winner scores and the loser
// starts the next round.
func (m *Match) resolveRoundLocked(winner string) {
	m.lastWinner = winner
	m.lastCorrectAnswer = m.currentLabel

	switch winner {
	case string(RoleP1):
		m.score1++
		m.starterOfNextRound = RoleP2
	case string(RoleP2):
		m.score2++
		m.starterOfNextRound = RoleP1
	}

	m.phase = PhaseRoundOver
}

// Advance deals the next round. Only the designated starter may advance;
// anyone else is rejected so duplicate poller requests cannot double-deal.
func (m *Match) Advance(role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseRoundOver {
		return errWrongPhase
	}
	if m.mode == ModeSolo {
		if role != RoleP1 {
			return errWrongRole
		}
	} else if role != m.starterOfNextRound {
		return errWrongRole
	}

	m.startRoundLocked()

	return nil
}

// EndMatch finishes the match early. Host-only.
func (m *Match) EndMatch(role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhasePlaying && m.phase != PhaseRoundOver {
		return errWrongPhase
	}
	if role != RoleP1 {
		return errWrongRole
	}

	m.phase = PhaseFinished

	return nil
}

// markDisconnectedLocked records a forfeiture. Driven by the liveness
// monitor; meaningless in Solo mode.
func (m *Match) markDisconnectedLocked(reason string) {
	if m.mode != ModeDuo {
		return
	}
	if m.phase != PhasePlaying && m.phase != PhaseRoundOver {
		return
	}

	m.phase = PhaseDisconnected
	m.disconnectReason = reason
}

// Reset hard-resets the match to a fresh lobby. Callable from any phase so a
// stuck room can always be recovered.
func (m *Match) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.mode = ModeDuo
	m.player1 = ""
	m.player2 = ""
	m.roles = make(map[string]Role)
	m.score1 = 0
	m.score2 = 0
	m.phase = PhaseLobby
	m.pool = nil
	m.currentLabel = ""
	m.currentImage = ""
	m.roundID = 0
	m.inputEpoch = 0
	m.locked1 = false
	m.locked2 = false
	m.lastWinner = ""
	m.lastCorrectAnswer = ""
	m.currentRoundStarter = RoleP1
	m.starterOfNextRound = RoleP1
	m.lastSeen1 = now
	m.lastSeen2 = now
	m.disconnectReason = ""
}

func (m *Match) poolLabelsLocked() []string {
	labels := make([]string, 0, len(m.pool))
	for _, e := range m.pool {
		labels = append(labels, e.Label)
	}
	return labels
}

// currentImageRef returns the active prompt, with the round it belongs to so
// the image proxy can reject stale requests.
func (m *Match) currentImageRef() (ref string, round int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentImage, m.roundID
}
