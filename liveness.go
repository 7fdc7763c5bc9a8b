package main

import (
	"fmt"
	"time"
)

// touchLocked records that a seated player was just heard from.
func (m *Match) touchLocked(role Role, now time.Time) {
	switch role {
	case RoleP1:
		m.lastSeen1 = now
	case RoleP2:
		m.lastSeen2 = now
	}
}

// Touch is called once per incoming request for the caller's seat, if any.
func (m *Match) Touch(role Role, now time.Time) {
	if role == RoleNone {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touchLocked(role, now)
}

// EvaluateForfeit forces a forfeiture when one player has stopped polling for
// longer than the timeout. Only a live Duo match can forfeit. P1 is checked
// first, so a simultaneous double-timeout is attributed to P1 — an arbitrary
// but deterministic tie-break.
func (m *Match) EvaluateForfeit(now time.Time, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeDuo {
		return
	}
	if m.phase != PhasePlaying && m.phase != PhaseRoundOver {
		return
	}

	if now.Sub(m.lastSeen1) > timeout {
		m.markDisconnectedLocked(fmt.Sprintf("%s left the match", m.playerNameLocked(RoleP1)))
	} else if now.Sub(m.lastSeen2) > timeout {
		m.markDisconnectedLocked(fmt.Sprintf("%s left the match", m.playerNameLocked(RoleP2)))
	}
}

func (m *Match) playerNameLocked(role Role) string {
	name := m.player1
	if role == RoleP2 {
		name = m.player2
	}
	if name == "" {
		name = string(role)
	}
	return name
}
