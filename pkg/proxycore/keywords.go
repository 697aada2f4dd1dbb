package proxycore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"proxycore/pkg/clock"
)

// KeywordStatus is the Config Keyword Bridge's return status (spec §4.3:
// {OK=0, WARN=1, ERR=-1}).
type KeywordStatus int

const (
	KeywordOK   KeywordStatus = 0
	KeywordWarn KeywordStatus = 1
	KeywordErr  KeywordStatus = -1
)

// timeoutField identifies which Timeouts field a keyword writes, and the
// capability required to apply it without a warning.
type timeoutField struct {
	field       func(*Timeouts) *clock.Tick
	requiredCap Capability
}

var timeoutKeywords = map[string]timeoutField{
	"client":           {func(t *Timeouts) *clock.Tick { return &t.Client }, CapFE},
	"clitimeout":       {func(t *Timeouts) *clock.Tick { return &t.Client }, CapFE},
	"tarpit":           {func(t *Timeouts) *clock.Tick { return &t.Tarpit }, CapFE | CapBE},
	"http-keep-alive":  {func(t *Timeouts) *clock.Tick { return &t.HTTPKeepAlive }, CapFE | CapBE},
	"http-request":     {func(t *Timeouts) *clock.Tick { return &t.HTTPRequest }, CapFE | CapBE},
	"server":           {func(t *Timeouts) *clock.Tick { return &t.Server }, CapBE},
	"srvtimeout":       {func(t *Timeouts) *clock.Tick { return &t.Server }, CapBE},
	"connect":          {func(t *Timeouts) *clock.Tick { return &t.Connect }, CapBE},
	"contimeout":       {func(t *Timeouts) *clock.Tick { return &t.Connect }, CapBE},
	"check":            {func(t *Timeouts) *clock.Tick { return &t.Check }, CapBE},
	"queue":            {func(t *Timeouts) *clock.Tick { return &t.Queue }, CapBE},
}

// ParseTimeoutKeyword implements the `timeout`/`clitimeout`/`contimeout`/
// `srvtimeout` keyword parsers (spec §4.3). value is parsed with a
// time-unit-aware parser defaulting to milliseconds when no unit suffix
// is present, then stored as ticks.
func ParseTimeoutKeyword(p *Proxy, keyword, value string) (KeywordStatus, error) {
	kw, ok := timeoutKeywords[keyword]
	if !ok {
		return KeywordErr, &ValidationError{Reason: fmt.Sprintf("unknown timeout keyword %q", keyword)}
	}

	ticks, err := parseTimeValue(value)
	if err != nil {
		return KeywordErr, &ValidationError{Reason: err.Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	status := KeywordOK
	if !p.cap.Has(kw.requiredCap) {
		status = KeywordWarn
	}

	*kw.field(&p.timeouts) = ticks
	return status, nil
}

// parseTimeValue parses a haproxy-style duration: a bare integer is
// milliseconds; a recognized unit suffix (us, ms, s, m, h, d) scales
// accordingly.
func parseTimeValue(value string) (clock.Tick, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timeout value")
	}

	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"us", time.Microsecond},
		{"ms", time.Millisecond},
		{"s", time.Second},
		{"m", time.Minute},
		{"h", time.Hour},
		{"d", 24 * time.Hour},
	}

	for _, u := range units {
		if strings.HasSuffix(value, u.suffix) {
			numStr := strings.TrimSuffix(value, u.suffix)
			n, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid timeout value %q", value)
			}
			return clock.Tick(time.Duration(n) * u.unit / time.Millisecond), nil
		}
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout value %q", value)
	}
	return clock.Tick(n), nil
}

// ParseRateLimitKeyword implements `rate-limit sessions <N>` (spec §4.4).
// Requires FE capability; warns (but still applies) on cap mismatch or
// repeated override.
func ParseRateLimitKeyword(p *Proxy, args []string) (KeywordStatus, error) {
	if len(args) != 2 || args[0] != "sessions" {
		return KeywordErr, &ValidationError{Reason: "rate-limit: only 'sessions <N>' is recognized"}
	}

	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return KeywordErr, &ValidationError{Reason: fmt.Sprintf("rate-limit: invalid session count %q", args[1])}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	status := KeywordOK
	if !p.cap.Has(CapFE) {
		status = KeywordWarn
	}
	if p.feSPSLim != 0 {
		status = KeywordWarn
	}

	p.feSPSLim = int64(n)
	return status, nil
}
