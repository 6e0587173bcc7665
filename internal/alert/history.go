package alert

import (
	"sort"
	"sync"
	"time"
)

type pricePoint struct {
	at    time.Time
	price float64
}

// PriceHistory keeps recent price observations per symbol. It provides
// the reference price a price rule measures moves against.
type PriceHistory struct {
	mu        sync.Mutex
	points    map[string][]pricePoint
	anchors   map[string]pricePoint
	retention time.Duration
}

func NewPriceHistory(retention time.Duration) *PriceHistory {
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	return &PriceHistory{
		points:    make(map[string][]pricePoint),
		anchors:   make(map[string]pricePoint),
		retention: retention,
	}
}

// Record inserts an observation and drops points older than the
// retention relative to the newest one.
func (h *PriceHistory) Record(symbol string, price float64, at time.Time) {
	if price <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	pts := h.points[symbol]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].at.After(at) })
	pts = append(pts, pricePoint{})
	copy(pts[i+1:], pts[i:])
	pts[i] = pricePoint{at: at, price: price}

	cutoff := pts[len(pts)-1].at.Add(-h.retention)
	drop := sort.Search(len(pts), func(i int) bool { return !pts[i].at.Before(cutoff) })
	h.points[symbol] = pts[drop:]
}

// Seed sets the anchor of symbol: a single past price, e.g. derived from
// a provider's 24h change, that competes with the recorded observations
// for the reference. Seeding again replaces the previous anchor.
func (h *PriceHistory) Seed(symbol string, price float64, at time.Time) {
	if price <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.anchors[symbol] = pricePoint{at: at, price: price}
}

// Reference returns the oldest observation taken within window before
// now. ok is false when the symbol has no such observation.
func (h *PriceHistory) Reference(symbol string, window time.Duration, now time.Time) (price float64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := now.Add(-window)
	inWindow := func(p pricePoint) bool {
		return !p.at.Before(start) && p.at.Before(now)
	}

	var ref pricePoint
	for _, p := range h.points[symbol] {
		if inWindow(p) {
			ref, ok = p, true
			break
		}
	}

	if a, found := h.anchors[symbol]; found && inWindow(a) && (!ok || a.at.Before(ref.at)) {
		ref, ok = a, true
	}
	return ref.price, ok
}

func (h *PriceHistory) Symbols() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, 0, len(h.points))
	for s := range h.points {
		out = append(out, s)
	}
	for s := range h.anchors {
		if _, ok := h.points[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
