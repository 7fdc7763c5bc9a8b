// Football Quiz
//
// A picture quiz duel for one or two players, driven entirely by short-poll
// refresh: clients re-fetch the room snapshot roughly once a second and POST
// actions against it. There is no push channel the game depends on.
//
// Features:
// - Isolated rooms per room ID: /quiz/:roomid, created lazily, reaped when idle
// - Players identified by cookie (playerID); seats claimed via join
// - Duo lockout duel or Solo practice against a CPU placeholder
// - Host picks leagues from the CSV catalog; pool is frozen at match start
// - Pictures proxied through the server so answer-bearing URLs never leak
// - Liveness heartbeat on every request; a silent opponent forfeits
// - Read-only websocket state watch for clients that prefer not to poll
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const playerCookieName = "footquiz_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// MatchSnapshot is the full per-poll view of a room. The answer key is never
// included while a round is live; clients only ever see it as the previous
// round's correct answer.
type MatchSnapshot struct {
	Phase             string   `json:"phase"`
	Mode              string   `json:"mode"`
	You               string   `json:"you,omitempty"`
	Player1           string   `json:"player1,omitempty"`
	Player2           string   `json:"player2,omitempty"`
	Score1            int      `json:"score1"`
	Score2            int      `json:"score2"`
	RoundID           int      `json:"round_id"`
	InputEpoch        int      `json:"input_epoch"`
	Locked1           bool     `json:"locked1"`
	Locked2           bool     `json:"locked2"`
	Clubs             []string `json:"clubs,omitempty"`
	HasImage          bool     `json:"has_image"`
	LastWinner        string   `json:"last_winner,omitempty"`
	LastCorrectAnswer string   `json:"last_correct_answer,omitempty"`
	Starter           string   `json:"starter,omitempty"`
	DisconnectReason  string   `json:"disconnect_reason,omitempty"`
}

// Snapshot renders the match for one client's poll.
func (m *Match) Snapshot(self Role) MatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MatchSnapshot{
		Phase:            m.phase.String(),
		Mode:             m.mode.String(),
		You:              string(self),
		Player1:          m.player1,
		Player2:          m.player2,
		Score1:           m.score1,
		Score2:           m.score2,
		RoundID:          m.roundID,
		InputEpoch:       m.inputEpoch,
		Locked1:          m.locked1,
		Locked2:          m.locked2,
		HasImage:         m.currentImage != "",
		DisconnectReason: m.disconnectReason,
	}

	switch m.phase {
	case PhasePlaying:
		snap.Clubs = uniqueSorted(m.poolLabelsLocked())
		snap.Starter = string(m.currentRoundStarter)
	case PhaseRoundOver:
		snap.LastWinner = m.lastWinner
		snap.LastCorrectAnswer = m.lastCorrectAnswer
		snap.Starter = string(m.starterOfNextRound)
	case PhaseFinished, PhaseDisconnected:
		snap.LastCorrectAnswer = m.lastCorrectAnswer
	}

	return snap
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type joinRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Solo bool   `json:"solo"`
}

type startRequest struct {
	Leagues []string `json:"leagues"`
}

type guessRequest struct {
	Guess    string `json:"guess"`
	Freetext bool   `json:"freetext"`
}

type actionResult struct {
	OK      bool   `json:"ok"`
	Correct *bool  `json:"correct,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func rejectAction(cfg *Config, w http.ResponseWriter, err error) {
	writeJSON(cfg, w, http.StatusConflict, actionResult{OK: false, Error: err.Error()})
}

// openRoom runs the shared per-request preamble: resolve the room and the
// caller's seat, report liveness, and evaluate forfeiture.
func openRoom(cfg *Config, reg *RoomRegistry, w http.ResponseWriter, r *http.Request, p httprouter.Params) (*Room, Role, string) {
	room := reg.getOrCreate(p.ByName("roomid"))
	playerID := getOrSetPlayerID(w, r)

	now := time.Now()
	role := room.match.RoleOf(playerID)
	room.match.Touch(role, now)
	room.match.EvaluateForfeit(now, cfg.playerTimeout)

	return room, role, playerID
}

func serveQuizState(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)
		writeJSON(cfg, w, http.StatusOK, room.match.Snapshot(role))
	}
}

func handleQuizJoin(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, _, playerID := openRoom(cfg, reg, w, r, p)

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		role := Role(strings.ToUpper(req.Role))
		if err := room.match.Join(role, playerID, req.Name, req.Solo); err != nil {
			rejectAction(cfg, w, err)
			return
		}

		logf(cfg, "QUIZ: Player %q joined %s as %s", req.Name, room.id, role)
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func handleQuizStart(cfg *Config, reg *RoomRegistry, catalog *Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)

		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		pool := catalog.Pool(req.Leagues)
		if err := room.match.ConfigureAndStart(role, pool); err != nil {
			rejectAction(cfg, w, err)
			return
		}

		logf(cfg, "QUIZ: Match started in %s with %d pictures from %d league(s)", room.id, len(pool), len(req.Leagues))
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func handleQuizGuess(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)

		var req guessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		correct, err := room.match.SubmitGuess(role, req.Guess, req.Freetext, cfg.fuzzyCutoff)
		if err != nil {
			rejectAction(cfg, w, err)
			return
		}

		logf(cfg, "QUIZ: %s guessed %q in %s (correct: %t)", role, req.Guess, room.id, correct)
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true, Correct: &correct})
	}
}

func handleQuizSurrender(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)

		if err := room.match.Surrender(role); err != nil {
			rejectAction(cfg, w, err)
			return
		}

		logf(cfg, "QUIZ: %s surrendered in %s", role, room.id)
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func handleQuizAdvance(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)

		if err := room.match.Advance(role); err != nil {
			rejectAction(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func handleQuizEnd(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, role, _ := openRoom(cfg, reg, w, r, p)

		if err := room.match.EndMatch(role); err != nil {
			rejectAction(cfg, w, err)
			return
		}

		logf(cfg, "QUIZ: Match ended in %s", room.id)
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func handleQuizReset(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room, _, _ := openRoom(cfg, reg, w, r, p)

		room.match.Reset()

		logf(cfg, "QUIZ: Room %s reset to lobby", room.id)
		writeJSON(cfg, w, http.StatusOK, actionResult{OK: true})
	}
}

func serveQuizLeagues(cfg *Config, catalog *Catalog) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, map[string][]string{"leagues": catalog.Leagues()})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveStateWatch is a read-only alternative to polling: the server runs the
// same once-a-second snapshot loop and pushes the result down a websocket.
// Nothing received from the client drives the game.
func serveStateWatch(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room := reg.getOrCreate(p.ByName("roomid"))
		playerID := getOrSetPlayerID(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "QUIZ: Websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// Drain (and discard) client frames so closes are noticed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			now := time.Now()
			role := room.match.RoleOf(playerID)
			room.match.Touch(role, now)
			room.match.EvaluateForfeit(now, cfg.playerTimeout)
			room.touchActivity(now)

			if err := conn.WriteJSON(room.match.Snapshot(role)); err != nil {
				return
			}

			<-ticker.C
		}
	}
}

// serveRoomQR generates a PNG QR code for the current room URL.
func serveRoomQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")
		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// redirectNewRoom handles GET /quiz by generating a fresh random room ID and
// redirecting to it.
func redirectNewRoom(cfg *Config, path string, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := reg.newRoomID()
		logf(cfg, "QUIZ: Created room %s/%s", path, roomID)
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerQuizGame sets up routes so that:
//   - $path                    → redirects to a new random room
//   - $path/:roomid            → HTML client
//   - $path/:roomid/state      → JSON snapshot (the poll read)
//   - $path/:roomid/join ...   → transition actions
//   - $path/:roomid/image      → proxied round picture
//   - $path/:roomid/ws         → read-only state watch
//   - $path/:roomid/qr         → PNG QR code for the room URL
func registerQuizGame(cfg *Config, path string, mux *httprouter.Router, catalog *Catalog) {
	reg := newRoomRegistry(cfg.roomTimeout, cfg.roomGrace)

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, reg))

	mux.GET(cfg.prefix+path+"/:roomid", serveQuizClient(cfg))
	mux.GET(cfg.prefix+path+"/:roomid/state", serveQuizState(cfg, reg))
	mux.GET(cfg.prefix+path+"/:roomid/leagues", serveQuizLeagues(cfg, catalog))
	mux.GET(cfg.prefix+path+"/:roomid/image", serveRoundImage(cfg, reg))
	mux.GET(cfg.prefix+path+"/:roomid/ws", serveStateWatch(cfg, reg))
	mux.GET(cfg.prefix+path+"/:roomid/qr", serveRoomQR(cfg))

	mux.POST(cfg.prefix+path+"/:roomid/join", handleQuizJoin(cfg, reg))
	mux.POST(cfg.prefix+path+"/:roomid/start", handleQuizStart(cfg, reg, catalog))
	mux.POST(cfg.prefix+path+"/:roomid/guess", handleQuizGuess(cfg, reg))
	mux.POST(cfg.prefix+path+"/:roomid/surrender", handleQuizSurrender(cfg, reg))
	mux.POST(cfg.prefix+path+"/:roomid/advance", handleQuizAdvance(cfg, reg))
	mux.POST(cfg.prefix+path+"/:roomid/end", handleQuizEnd(cfg, reg))
	mux.POST(cfg.prefix+path+"/:roomid/reset", handleQuizReset(cfg, reg))
}
