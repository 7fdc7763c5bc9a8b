/*
Copyright © 2026 kubalpro7
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Sentinel errors for rejected match transitions. Every one of these means
// "state unchanged, re-poll later" — never a fault.
var (
	errWrongPhase = errors.New("action not valid in the current phase")
	errWrongRole  = errors.New("action not permitted for your role")
	errSlotTaken  = errors.New("that seat is already taken")
	errNotReady   = errors.New("waiting for all players to join")
	errEmptyPool  = errors.New("no pictures match the selected leagues")
	errLocked     = errors.New("you are locked out until the round resolves")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(faviconLink)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
