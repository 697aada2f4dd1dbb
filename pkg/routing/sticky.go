package routing

// StickyStrategy implements cookie-based server persistence (the HI/hash
// kind's "indirect"/"insert" cookie-insert mode described in spec §3's
// cookie persistence fields). Requests carrying a known persistence
// cookie are pinned to their prior server; others fall back to a wrapped
// strategy (typically round-robin) and the assignment is cached.
type StickyStrategy struct {
	cache    *StickyCache
	fallback Strategy
}

// NewStickyStrategy creates a new sticky strategy. fallback is used on
// cache miss or when the cookie's previous server is no longer up.
func NewStickyStrategy(cache *StickyCache, fallback Strategy) *StickyStrategy {
	return &StickyStrategy{cache: cache, fallback: fallback}
}

// SelectServer returns the server pinned to cookie if still up, otherwise
// delegates to the fallback strategy and remembers its pick.
func (s *StickyStrategy) SelectServer(servers []ServerView, cookie string) (ServerView, error) {
	up := filterUp(servers)
	if len(up) == 0 {
		return nil, ErrNoServersAvailable
	}

	if cookie != "" {
		if serverID, found := s.cache.Get(cookie); found {
			for _, sv := range up {
				if sv.ID() == serverID {
					return sv, nil
				}
			}
			// pinned server no longer up; fall through
		}
	}

	sv, err := s.fallback.SelectServer(up, cookie)
	if err != nil {
		return nil, err
	}

	if cookie != "" {
		s.cache.Set(cookie, sv.ID())
	}

	return sv, nil
}

// Name returns the strategy name.
func (s *StickyStrategy) Name() string { return "sticky" }

// Reset clears the affinity cache and resets the fallback strategy.
func (s *StickyStrategy) Reset() {
	s.cache.Clear()
	s.fallback.Reset()
}
