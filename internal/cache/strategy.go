package cache

import "time"

// Strategy controls how long a filled value stays servable.
type Strategy struct {
	Mode   string
	MaxAge time.Duration
}

var (
	// CacheLong suits navigation menus and other rarely edited data.
	CacheLong = Strategy{Mode: "long", MaxAge: time.Hour}
	// CacheShort absorbs bursts without serving noticeably stale data.
	CacheShort = Strategy{Mode: "short", MaxAge: time.Second}
	// CacheNone always calls through.
	CacheNone = Strategy{Mode: "none"}
)

// Enabled is false for CacheNone and any zero-age strategy.
func (s Strategy) Enabled() bool { return s.MaxAge > 0 }
