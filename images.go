package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

const maxImageBytes = 8 << 20

// FetchError wraps any failure to resolve an image reference. Callers show a
// placeholder instead; a broken link never ends the round.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var imageClient = &http.Client{
	Timeout: 10 * time.Second,
}

// fetchImage resolves an image reference — an HTTP(S) URL or a local file
// path — to raw bytes and a content type.
func fetchImage(ref string) ([]byte, string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		resp, err := imageClient.Get(ref)
		if err != nil {
			return nil, "", &FetchError{Ref: ref, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, "", &FetchError{Ref: ref, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return nil, "", &FetchError{Ref: ref, Err: err}
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		return data, contentType, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", &FetchError{Ref: ref, Err: err}
	}
	return data, http.DetectContentType(data), nil
}

// Shown whenever the real picture cannot be fetched.
const placeholderImage = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 400 300">
<rect width="400" height="300" fill="#262730"/>
<text x="200" y="140" text-anchor="middle" font-size="72" fill="#888">?</text>
<text x="200" y="210" text-anchor="middle" font-size="18" fill="#888">picture unavailable</text>
</svg>`

// serveRoundImage proxies the active round's picture. Serving it from the
// quiz host keeps the source URL (which may contain the club name) out of
// the client entirely. The r query parameter pins the request to a round, so
// a stale widget cannot load the next round's answer early.
func serveRoundImage(cfg *Config, reg *RoomRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		room := reg.getOrCreate(p.ByName("roomid"))
		ref, round := room.match.currentImageRef()

		if want := r.URL.Query().Get("r"); want != "" {
			if got, err := strconv.Atoi(want); err != nil || got != round {
				http.Error(w, "stale round", http.StatusGone)
				return
			}
		}

		if ref == "" {
			http.Error(w, "no active round", http.StatusNotFound)
			return
		}

		data, contentType, err := fetchImage(ref)
		if err != nil {
			logf(cfg, "QUIZ: Image fetch failed for %s: %v", room.id, err)
			data = []byte(placeholderImage)
			contentType = "image/svg+xml"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}
