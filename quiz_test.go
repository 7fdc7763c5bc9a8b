package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotHidesLiveAnswer(t *testing.T) {
	t.Parallel()

	m := newDuoMatch(t)

	snap := m.Snapshot(RoleP1)
	assert.Equal(t, "playing", snap.Phase)
	assert.Equal(t, "P1", snap.You)
	assert.Empty(t, snap.LastCorrectAnswer, "answer key never leaves the server mid-round")
	assert.Empty(t, snap.LastWinner)
	assert.Equal(t, []string{"Arsenal", "Inter"}, snap.Clubs)
	assert.True(t, snap.HasImage)

	_, err := m.SubmitGuess(RoleP1, "Arsenal", false, 0.6)
	require.NoError(t, err)

	snap = m.Snapshot(RoleP2)
	assert.Equal(t, "round_over", snap.Phase)
	assert.Equal(t, "Arsenal", snap.LastCorrectAnswer)
	assert.Equal(t, "P1", snap.LastWinner)
	assert.Equal(t, "P2", snap.Starter)
}

func TestUniqueSorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Arsenal", "Inter"}, uniqueSorted([]string{"Inter", "Arsenal", "Inter"}))
	assert.Empty(t, uniqueSorted(nil))
}

// newQuizClient returns an http client with its own cookie jar, i.e. its own
// stable player identity.
func newQuizClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postAction(t *testing.T, client *http.Client, url string, body any) (actionResult, int) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result actionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result, resp.StatusCode
}

func getState(t *testing.T, client *http.Client, url string) MatchSnapshot {
	t.Helper()

	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap MatchSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

// Full duel over HTTP: two cookie-identified clients polling one room.
func TestQuizPollingFlow(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		playerTimeout: time.Minute,
		roomTimeout:   time.Hour,
		roomGrace:     time.Minute,
		fuzzyCutoff:   0.6,
	}
	catalog := &Catalog{rows: []*catalogRow{
		{League: "Serie A", Club: "Inter", ImageRef: "https://example.com/inter.png"},
	}}

	mux := httprouter.New()
	registerQuizGame(cfg, "/quiz", mux, catalog)

	srv := httptest.NewServer(mux)
	defer srv.Close()
	room := srv.URL + "/quiz/test01"

	alice := newQuizClient(t)
	bob := newQuizClient(t)

	snap := getState(t, alice, room+"/state")
	assert.Equal(t, "lobby", snap.Phase)
	assert.Empty(t, snap.You)

	result, status := postAction(t, alice, room+"/join", joinRequest{Name: "Alice", Role: "p1"})
	require.True(t, result.OK)
	require.Equal(t, http.StatusOK, status)

	result, _ = postAction(t, bob, room+"/join", joinRequest{Name: "Bob", Role: "P2"})
	require.True(t, result.OK)

	// Only the host can start.
	result, status = postAction(t, bob, room+"/start", startRequest{Leagues: []string{"Serie A"}})
	assert.False(t, result.OK)
	assert.Equal(t, http.StatusConflict, status)

	// Starting with no leagues selected reports the empty pool and stays put.
	result, _ = postAction(t, alice, room+"/start", startRequest{})
	assert.False(t, result.OK)
	assert.Equal(t, "lobby", getState(t, alice, room+"/state").Phase)

	result, _ = postAction(t, alice, room+"/start", startRequest{Leagues: []string{"Serie A"}})
	require.True(t, result.OK)

	snap = getState(t, bob, room+"/state")
	assert.Equal(t, "playing", snap.Phase)
	assert.Equal(t, "P2", snap.You)
	assert.Equal(t, []string{"Inter"}, snap.Clubs)
	assert.Empty(t, snap.LastCorrectAnswer)
	assert.Equal(t, 1, snap.RoundID)

	result, _ = postAction(t, bob, room+"/guess", guessRequest{Guess: "Inter"})
	require.True(t, result.OK)
	require.NotNil(t, result.Correct)
	assert.True(t, *result.Correct)

	snap = getState(t, alice, room+"/state")
	assert.Equal(t, "round_over", snap.Phase)
	assert.Equal(t, 0, snap.Score1)
	assert.Equal(t, 1, snap.Score2)
	assert.Equal(t, "P2", snap.LastWinner)
	assert.Equal(t, "Inter", snap.LastCorrectAnswer)
	assert.Equal(t, "P1", snap.Starter)

	// Bob won, so only Alice may deal the next round.
	result, status = postAction(t, bob, room+"/advance", struct{}{})
	assert.False(t, result.OK)
	assert.Equal(t, http.StatusConflict, status)

	result, _ = postAction(t, alice, room+"/advance", struct{}{})
	require.True(t, result.OK)
	assert.Equal(t, 2, getState(t, alice, room+"/state").RoundID)

	result, _ = postAction(t, alice, room+"/end", struct{}{})
	require.True(t, result.OK)
	assert.Equal(t, "finished", getState(t, bob, room+"/state").Phase)

	result, _ = postAction(t, bob, room+"/reset", struct{}{})
	require.True(t, result.OK)
	snap = getState(t, bob, room+"/state")
	assert.Equal(t, "lobby", snap.Phase)
	assert.Empty(t, snap.You, "seats are cleared by reset")
}

func TestQuizRedirectsToFreshRoom(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		playerTimeout: time.Minute,
		roomTimeout:   time.Hour,
		roomGrace:     time.Minute,
	}
	mux := httprouter.New()
	registerQuizGame(cfg, "/quiz", mux, &Catalog{})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newQuizClient(t)
	resp, err := client.Get(srv.URL + "/quiz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Regexp(t, `^/quiz/[A-Za-z0-9]{6}$`, resp.Header.Get("Location"))
}

func TestQuizLeagues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		playerTimeout: time.Minute,
		roomTimeout:   time.Hour,
		roomGrace:     time.Minute,
	}
	catalog := &Catalog{rows: []*catalogRow{
		{League: "Serie A", Club: "Inter", ImageRef: "x"},
		{League: "La Liga", Club: "Sevilla", ImageRef: "y"},
	}}

	mux := httprouter.New()
	registerQuizGame(cfg, "/quiz", mux, catalog)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := newQuizClient(t).Get(srv.URL + "/quiz/test01/leagues")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"La Liga", "Serie A"}, out["leagues"])
}
