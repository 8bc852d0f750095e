package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"alertTradeBot/internal/domain"
)

// Field-level parse errors. ParseOpen/ParseClose return one of these so
// diagnostics can name the exact field that made an alert unusable.
var (
	ErrMissingDirection = errors.New("alert carries no direction marker")
	ErrMissingSymbol    = errors.New("alert carries no symbol")
	ErrMissingLastPrice = errors.New("alert carries no last price")
	ErrMissingFairPrice = errors.New("alert carries no fair price")
	ErrUnknownMarker    = errors.New("direction marker not in mapping table")
)

// Direction markers used by the alert channel. Exactly one of the two
// colors appears on both sides of the symbol in an ENTRY alert.
const (
	MarkerGreen = "🟢"
	MarkerRed   = "🔴"
)

// DirectionMapping resolves a color marker to a market direction. Two
// opposite mappings have existed across the alert channel's history, so
// the active one is an explicit, versioned configuration choice.
type DirectionMapping map[string]domain.Direction

var (
	// MappingV1 is the legacy table: green opened shorts, red opened longs.
	MappingV1 = DirectionMapping{MarkerGreen: domain.Short, MarkerRed: domain.Long}
	// MappingV2 is the current table: green opens longs, red opens shorts.
	MappingV2 = DirectionMapping{MarkerGreen: domain.Long, MarkerRed: domain.Short}
)

// MappingForVersion returns the direction mapping for a config version string.
func MappingForVersion(version string) (DirectionMapping, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "v1":
		return MappingV1, nil
	case "v2", "":
		return MappingV2, nil
	default:
		return nil, fmt.Errorf("unknown direction mapping version %q (want v1 or v2)", version)
	}
}

const num = `([0-9]+(?:\.[0-9]+)?)`

// fieldRule is one (label-variant pattern, capture) entry of a fallback
// chain. Rules are tried in order, first match wins; keeping the chains
// as declared data lets a new vocabulary generation be added as one row.
type fieldRule struct {
	label string
	re    *regexp.Regexp
}

var (
	// symbol bracketed by a pair of direction markers: 🟢 BTCUSDT 🟢
	openSymbolRe = regexp.MustCompile(`(🟢|🔴)\s*\[?#?([A-Z0-9]{2,20})\]?\s*(🟢|🔴)`)

	lastPriceRules = []fieldRule{
		{"last_price", regexp.MustCompile(`(?i:last[\s_]?price)\s*[:=]?\s*\$?` + num)},
		{"current_price", regexp.MustCompile(`(?i:current[\s_]?price)\s*[:=]?\s*\$?` + num)},
		{"last", regexp.MustCompile(`(?i:\blast\b)\s*[:=]\s*\$?` + num)},
	}

	fairPriceRules = []fieldRule{
		{"fair_price", regexp.MustCompile(`(?i:fair[\s_]?price)\s*[:=]?\s*\$?` + num)},
		{"mark_price", regexp.MustCompile(`(?i:mark[\s_]?price)\s*[:=]?\s*\$?` + num)},
		{"fair", regexp.MustCompile(`(?i:\bfair\b)\s*[:=]\s*\$?` + num)},
	}

	spreadRe     = regexp.MustCompile(`(?i:spread)\s*[:=]?\s*` + num + `\s*%?`)
	detectedAtRe = regexp.MustCompile(`(?i:time|detected(?:\s*at)?)\s*[:=]?\s*([0-9]{1,2}:[0-9]{2}(?::[0-9]{2})?)`)

	// EXIT alerts: symbol via ordered fallback patterns tolerant of
	// punctuation variants, tried in order.
	closeSymbolRules = []fieldRule{
		{"close_prefix", regexp.MustCompile(`(?i:closed?)\s*[:#\-]*\s*\[?#?([A-Z0-9]{2,20})\]?`)},
		{"close_suffix", regexp.MustCompile(`\[?#?([A-Z0-9]{2,20})\]?\s*[:\-]*\s*(?i:closed?)`)},
		{"exit_prefix", regexp.MustCompile(`(?i:exit)\s*[:#\-]*\s*\[?#?([A-Z0-9]{2,20})\]?`)},
	}

	closeKeywordRe = regexp.MustCompile(`(?i)\b(closed?|exit)\b`)
)

// Config holds parser configuration.
type Config struct {
	Mapping  DirectionMapping
	Location *time.Location // timezone used to anchor detection timestamps
	Now      func() time.Time
}

// Parser converts free alert text into typed trade signals. It is a pure
// function of its input; concurrent invocations are independent.
type Parser struct {
	mapping DirectionMapping
	loc     *time.Location
	now     func() time.Time
}

// New creates a Parser. Zero-value config fields fall back to the current
// mapping generation, UTC and the wall clock.
func New(cfg Config) *Parser {
	p := &Parser{
		mapping: cfg.Mapping,
		loc:     cfg.Location,
		now:     cfg.Now,
	}
	if p.mapping == nil {
		p.mapping = MappingV2
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Classify determines which alert shape the text is, based on the
// presence markers of each shape. Direction markers win over close
// keywords so an ENTRY alert mentioning "close" stays an ENTRY.
func (p *Parser) Classify(text string) domain.SignalKind {
	if strings.Contains(text, MarkerGreen) || strings.Contains(text, MarkerRed) {
		return domain.KindOpen
	}
	if closeKeywordRe.MatchString(text) {
		return domain.KindClose
	}
	return domain.KindNone
}

// ParseOpen extracts an OPEN signal from ENTRY alert text. A nil signal
// is returned with a field-naming error when any required field is
// missing; the caller drops the alert and logs the diagnostic.
func (p *Parser) ParseOpen(text string) (*domain.TradeSignal, error) {
	m := openSymbolRe.FindStringSubmatch(text)
	if m == nil {
		if !strings.Contains(text, MarkerGreen) && !strings.Contains(text, MarkerRed) {
			return nil, ErrMissingDirection
		}
		return nil, ErrMissingSymbol
	}
	if m[1] != m[3] {
		return nil, fmt.Errorf("%w: conflicting markers %q and %q", ErrMissingDirection, m[1], m[3])
	}
	marker := m[1]
	direction, ok := p.mapping[marker]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarker, marker)
	}

	lastPrice, _, ok := matchFloat(lastPriceRules, text)
	if !ok {
		return nil, ErrMissingLastPrice
	}
	fairPrice, _, ok := matchFloat(fairPriceRules, text)
	if !ok {
		return nil, ErrMissingFairPrice
	}

	sig := &domain.TradeSignal{
		Kind:      domain.KindOpen,
		Symbol:    m[2],
		Direction: direction,
		LastPrice: lastPrice,
		FairPrice: fairPrice,
		EmittedAt: p.emittedAt(text),
		Marker:    marker,
	}
	if sm := spreadRe.FindStringSubmatch(text); sm != nil {
		if v, err := strconv.ParseFloat(sm[1], 64); err == nil {
			sig.SpreadPercent = &v
		}
	}
	return sig, nil
}

// ParseClose extracts a CLOSE signal from EXIT alert text. The timestamp
// is always "now".
func (p *Parser) ParseClose(text string) (*domain.TradeSignal, error) {
	for _, rule := range closeSymbolRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			return &domain.TradeSignal{
				Kind:      domain.KindClose,
				Symbol:    m[1],
				EmittedAt: p.now(),
			}, nil
		}
	}
	return nil, ErrMissingSymbol
}

// emittedAt resolves the optional detection clock time against today's
// date in the configured timezone, defaulting to now.
func (p *Parser) emittedAt(text string) time.Time {
	now := p.now().In(p.loc)
	m := detectedAtRe.FindStringSubmatch(text)
	if m == nil {
		return now
	}
	layout := "15:04:05"
	if len(m[1]) <= 5 {
		layout = "15:04"
	}
	clock, err := time.Parse(layout, m[1])
	if err != nil {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, p.loc)
}

// matchFloat walks a fallback chain and returns the first captured value
// together with the label of the vocabulary generation that matched.
func matchFloat(rules []fieldRule, text string) (float64, string, bool) {
	for _, rule := range rules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, rule.label, true
	}
	return 0, "", false
}
