// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package parser turns raw page fragments from the game collection source into
// typed values. Every failure is a *ParseError naming the field and input.
package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"golang.org/x/net/html"
)

// Field names used in ParseError.
const (
	FieldGameID          = "gameId"
	FieldPlatform        = "platform"
	FieldOwnership       = "ownership"
	FieldNotForContests  = "notForContests"
	FieldUnobtainable    = "unobtainable"
	FieldDate            = "date"
	FieldEstimate        = "estimate"
	FieldInstallSize     = "installSize"
	FieldGamersCount     = "gamersCount"
	FieldDecimal         = "decimal"
	FieldAchievements    = "achievements"
	FieldGamerscore      = "gamerscore"
	FieldTrueAchievement = "trueAchievement"
)

const (
	altMarker     = `alt="`
	gameIDMarker  = `tdPlatform_`
	hrefMarker    = `<a href="`
	urlCutMarker  = "achievements?"
	notForContest = "Not for contests"
)

var unobtainableLabels = []string{
	"Unobtainable",
	"Discontinued",
	"Partly Discontinued/Unobtainable",
}

// dateLayouts are tried in order; time of day is dropped after parsing.
var dateLayouts = []string{
	"02 Jan 06",
	"2 Jan 06",
	"02 Jan 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Parser holds the clock used to resolve relative dates.
type Parser struct {
	now func() time.Time
}

// New creates a parser using the wall clock.
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock creates a parser with an injected clock.
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}

// Text returns the visible text of a fragment with tags removed, entities
// decoded and whitespace collapsed.
func Text(raw string) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(raw)
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}

// markerValue returns the text between the last marker and the next quote.
func markerValue(field, raw, marker string) (string, error) {
	idx := strings.LastIndex(raw, marker)
	if idx < 0 {
		return "", newError(field, raw, ErrMissingMarker)
	}
	rest := raw[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return "", newError(field, raw, ErrMissingMarker)
	}
	return rest[:end], nil
}

// labelValue reads an alt attribute when present and falls back to the text.
func labelValue(field, raw string) (string, error) {
	if strings.Contains(raw, altMarker) {
		return markerValue(field, raw, altMarker)
	}
	return Text(raw), nil
}

// GameID extracts the numeric id following the tdPlatform_ marker.
func GameID(raw string) (int, error) {
	token, err := markerValue(FieldGameID, raw, gameIDMarker)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(token)
	if err != nil {
		return 0, newError(FieldGameID, raw, err)
	}
	return id, nil
}

// Platform extracts and normalizes the platform named by the alt marker.
func Platform(raw string) (contest.Platform, error) {
	token, err := markerValue(FieldPlatform, raw, altMarker)
	if err != nil {
		return "", err
	}
	p, ok := contest.ParsePlatform(token)
	if !ok {
		return "", newError(FieldPlatform, raw, fmt.Errorf("%w: %q", ErrUnrecognizedEnum, token))
	}
	return p, nil
}

// Ownership extracts the ownership status. An empty fragment yields "".
func Ownership(raw string) (contest.Ownership, error) {
	token, err := labelValue(FieldOwnership, raw)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", nil
	}
	o, ok := contest.ParseOwnership(token)
	if !ok {
		return "", newError(FieldOwnership, raw, fmt.Errorf("%w: %q", ErrUnrecognizedEnum, token))
	}
	return o, nil
}

// NotForContests reports whether the fragment carries the not-for-contests flag.
func NotForContests(raw string) (bool, error) {
	if isBlank(raw) {
		return false, nil
	}
	token, err := labelValue(FieldNotForContests, raw)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(token, notForContest), nil
}

// Unobtainable reports whether the fragment marks achievements as unobtainable.
func Unobtainable(raw string) (bool, error) {
	if isBlank(raw) {
		return false, nil
	}
	token, err := labelValue(FieldUnobtainable, raw)
	if err != nil {
		return false, err
	}
	for _, label := range unobtainableLabels {
		if strings.EqualFold(token, label) {
			return true, nil
		}
	}
	return false, nil
}

// PlayerValue parses the player's side of a slashed count such as "12/50".
func PlayerValue(field, raw string) (*int, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return nil, nil
	}
	idx := strings.Index(s, "/")
	if idx < 0 {
		return nil, newError(field, raw, errMissingSlash)
	}
	return parseCount(field, raw, s[:idx])
}

// TotalValue parses the total side of a slashed count such as "12/50".
func TotalValue(field, raw string) (*int, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return nil, nil
	}
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return nil, newError(field, raw, errMissingSlash)
	}
	return parseCount(field, raw, s[idx+1:])
}

func parseCount(field, raw, part string) (*int, error) {
	part = strings.TrimSpace(strings.ReplaceAll(part, ",", ""))
	if isBlank(part) {
		return nil, nil
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return nil, newError(field, raw, err)
	}
	return &n, nil
}

// Date parses a listing date. Today, Yesterday and Tomorrow are relative to the
// parser clock; TBA and blanks yield nil; a bare year means January 1st.
// The result is a date at midnight UTC.
func (p *Parser) Date(field, raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "-", "tba":
		return nil, nil
	case "today":
		d := dateOnly(p.now())
		return &d, nil
	case "yesterday":
		d := dateOnly(p.now()).AddDate(0, 0, -1)
		return &d, nil
	case "tomorrow":
		d := dateOnly(p.now()).AddDate(0, 0, 1)
		return &d, nil
	}

	if len(s) == 4 {
		s = "01/01/" + s
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			d := dateOnly(t)
			return &d, nil
		}
	}
	return nil, newError(field, raw, fmt.Errorf("no date layout matches"))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompletionEstimate parses a duration range such as "10-12h" into hours.
func CompletionEstimate(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return nil, nil
	}
	if v, ok := openEnded(s); ok {
		return &v, nil
	}
	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "h")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, newError(FieldEstimate, raw, err)
	}
	return &v, nil
}

// BaseCompletionEstimate parses the base-game estimate, which reads like
// "10-12 hours"; only the first word is considered.
func BaseCompletionEstimate(raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if isBlank(s) {
		return nil, nil
	}
	if v, ok := openEnded(s); ok {
		return &v, nil
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(s, "h")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, newError(FieldEstimate, raw, err)
	}
	return &v, nil
}

func openEnded(s string) (float64, bool) {
	switch {
	case strings.Contains(s, "1000+"):
		return 1000, true
	case strings.Contains(s, "200+"):
		return 200, true
	}
	return 0, false
}

// InstallSize parses a byte size and returns it in megabytes.
// "2.5GB" is 2500 and "512K" is 0.512.
func InstallSize(raw string) (*float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if isBlank(s) {
		return nil, nil
	}

	var digits strings.Builder
	unit := rune(0)
	for _, r := range s {
		switch {
		case unit == 0 && (unicode.IsDigit(r) || r == '.'):
			digits.WriteRune(r)
		case unicode.IsSpace(r):
			continue
		case unit == 0 && strings.ContainsRune("KMGkmg", r):
			unit = unicode.ToUpper(r)
		case unit != 0 && (r == 'B' || r == 'b'):
			continue
		default:
			return nil, newError(FieldInstallSize, raw, fmt.Errorf("%w: %q", ErrUnknownUnit, r))
		}
	}

	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return nil, newError(FieldInstallSize, raw, err)
	}
	switch unit {
	case 'G':
		v = v * 1000
	case 'K':
		v = v / 1000
	}
	return &v, nil
}

// GamersCount parses a player count; a blank fragment means unknown (-1).
func GamersCount(raw string) (int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, newError(FieldGamersCount, raw, err)
	}
	return n, nil
}

// Decimal parses a ratio or rating; blanks and "-" are 0.
func Decimal(field, raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if isBlank(s) {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newError(field, raw, err)
	}
	return v, nil
}

// GameURL extracts the game link, trimmed before the achievements query.
func GameURL(raw string) *string {
	idx := strings.Index(raw, hrefMarker)
	if idx < 0 {
		return nil
	}
	rest := raw[idx+len(hrefMarker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return nil
	}
	u := rest[:end]
	if cut := strings.Index(u, urlCutMarker); cut >= 0 {
		u = u[:cut]
	}
	u = html.UnescapeString(u)
	return &u
}
