// Package normalizer sits between a raw ports.BarDataSource and an
// engine: it sorts, deduplicates, and validates bars, buffers or
// rejects out-of-order rows, and surfaces gaps, so the engine only ever
// sees canonical bars satisfying the core's ordering invariants.
package normalizer

import (
	"context"
	"iter"
	"sort"
	"time"

	coreerrors "github.com/rxtech-lab/argo-trading/pkg/errors"
	"github.com/rxtech-lab/argo-trading/pkg/ports"
	"github.com/rxtech-lab/argo-trading/pkg/types"
)

// DedupWinner selects which of two bars sharing a (symbol, ts, timeframe)
// key survives.
type DedupWinner string

const (
	DedupWinnerLast  DedupWinner = "last"
	DedupWinnerFirst DedupWinner = "first"
)

// GapPolicy controls whether a >60s gap between adjacent bars for a
// symbol is merely reported (never) or treated as an ordering failure
// (strict).
type GapPolicy string

const (
	RejectOnGapNever  GapPolicy = "never"
	RejectOnGapStrict GapPolicy = "strict"
)

// gapThreshold is the adjacent-bar spacing the core's one-minute bar
// invariant requires; anything wider is a gap.
const gapThreshold = 60 * time.Second

// Config is the Bar Normalizer's operator-tunable behavior.
type Config struct {
	ReorderWindowSeconds int       `json:"reorder_window_seconds" yaml:"reorder_window_seconds"`
	RejectOnGap          GapPolicy `json:"reject_on_gap" yaml:"reject_on_gap"`
	DedupWinner          DedupWinner `json:"dedup_winner" yaml:"dedup_winner"`
}

// DefaultConfig matches E2E scenario 5: no reorder tolerance, gaps are
// reported but not rejected, and a duplicate keeps the last-seen row.
func DefaultConfig() Config {
	return Config{
		ReorderWindowSeconds: 0,
		RejectOnGap:          RejectOnGapNever,
		DedupWinner:          DedupWinnerLast,
	}
}

// Normalizer wraps a ports.BarDataSource and enforces the §3 bar
// invariants on everything it yields: schema/timezone validity, strict
// (symbol, ts) monotonicity, (symbol, ts, timeframe) uniqueness, and
// only-closed-bars delivery. emit receives an ArtifactEvent per detected
// duplicate or gap for observability; it may be nil.
type Normalizer struct {
	inner  ports.BarDataSource
	config Config
	emit   func(types.ArtifactEvent)
}

// New wraps inner with the Bar Normalizer using config.
func New(inner ports.BarDataSource, config Config, emit func(types.ArtifactEvent)) *Normalizer {
	if emit == nil {
		emit = func(types.ArtifactEvent) {}
	}

	return &Normalizer{inner: inner, config: config, emit: emit}
}

// GetHistoricalBars normalizes a single symbol's bounded replay: the
// full sequence is read up front, stably sorted by ts, deduplicated per
// config.DedupWinner, and scanned for gaps, since a bounded sequence's
// entire future is available before anything is committed downstream.
// A row arriving ReorderWindowSeconds or more behind the latest ts
// already read for its symbol is rejected with ErrCodeBarOrdering.
func (n *Normalizer) GetHistoricalBars(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		var bars []types.Bar

		latest := make(map[string]time.Time)
		window := time.Duration(n.config.ReorderWindowSeconds) * time.Second

		for bar, err := range n.inner.GetHistoricalBars(ctx, symbol, start, end, timeframe) {
			if err != nil {
				yield(types.Bar{}, err)
				return
			}

			if verr := bar.Validate(); verr != nil {
				yield(types.Bar{}, verr)
				return
			}

			if seen, ok := latest[bar.Symbol]; ok && bar.Ts.Before(seen) && !bar.Ts.Add(window).After(seen) {
				if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
					"bar for %s at %s arrived %s behind %s, outside the reorder window", bar.Symbol, bar.Ts, seen.Sub(bar.Ts), seen)) {
					return
				}

				continue
			}

			if seen, ok := latest[bar.Symbol]; !ok || bar.Ts.After(seen) {
				latest[bar.Symbol] = bar.Ts
			}

			bars = append(bars, bar)
		}

		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Ts.Before(bars[j].Ts) })

		bars, err := n.dedup(bars)
		if err != nil {
			yield(types.Bar{}, err)
			return
		}

		var last time.Time

		for i, bar := range bars {
			if i > 0 {
				if !bar.Ts.After(last) {
					if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
						"bar for %s at %s does not strictly advance past %s", bar.Symbol, bar.Ts, last)) {
						return
					}

					continue
				}

				if gap := bar.Ts.Sub(last); gap > gapThreshold {
					if n.config.RejectOnGap == RejectOnGapStrict {
						if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
							"gap of %s between %s and %s for %s exceeds 60s", gap, last, bar.Ts, bar.Symbol)) {
							return
						}

						continue
					}

					n.emit(gapEvent(bar.Ts, bar.Symbol, last, bar.Ts))
				}
			}

			last = bar.Ts

			if !bar.IsClosed {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// dedup collapses runs of equal (symbol, ts, timeframe) keys in an
// already-sorted slice, keeping config.DedupWinner's choice and
// reporting every collision it drops.
func (n *Normalizer) dedup(bars []types.Bar) ([]types.Bar, error) {
	if len(bars) == 0 {
		return bars, nil
	}

	out := make([]types.Bar, 0, len(bars))
	out = append(out, bars[0])

	for _, bar := range bars[1:] {
		last := out[len(out)-1]
		if bar.Key() != last.Key() {
			out = append(out, bar)
			continue
		}

		n.emit(duplicateEvent(bar.Ts, bar.Symbol))

		if n.config.DedupWinner == DedupWinnerLast {
			out[len(out)-1] = bar
		}
		// DedupWinnerFirst: the row already in out is kept as is.
	}

	return out, nil
}

// StreamLiveBars normalizes an unbounded, possibly multi-symbol stream.
// Unlike GetHistoricalBars it cannot see the future: a bar within
// config.ReorderWindowSeconds of the last committed bar for its symbol
// is buffered and flushed once a later bar's ts clears the window;
// anything older is rejected. A duplicate of a bar already committed
// downstream cannot be un-committed, so streaming always keeps whichever
// copy arrived (and was flushed) first, regardless of DedupWinner —
// DedupWinner is honored exactly only while both copies are still
// buffered.
func (n *Normalizer) StreamLiveBars(ctx context.Context, symbols []string, timeframe types.Timeframe) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		last := make(map[string]time.Time)
		pending := make(map[string][]types.Bar)
		window := time.Duration(n.config.ReorderWindowSeconds) * time.Second

		commit := func(bar types.Bar) bool {
			last[bar.Symbol] = bar.Ts

			if !bar.IsClosed {
				return true
			}

			return yield(bar, nil)
		}

		// flush releases every buffered bar for symbol whose ts has
		// fallen behind the reorder window relative to watermark (or
		// every buffered bar, when force is set at stream end),
		// deduplicating within the flushed batch per DedupWinner.
		flush := func(symbol string, watermark time.Time, force bool) bool {
			buf := pending[symbol]
			if len(buf) == 0 {
				return true
			}

			sort.SliceStable(buf, func(i, j int) bool { return buf[i].Ts.Before(buf[j].Ts) })

			var ready []types.Bar

			i := 0
			for ; i < len(buf); i++ {
				if !force && buf[i].Ts.Add(window).After(watermark) {
					break
				}

				ready = append(ready, buf[i])
			}

			pending[symbol] = buf[i:]

			deduped, err := n.dedup(ready)
			if err != nil {
				return yield(types.Bar{}, err)
			}

			for _, bar := range deduped {
				lastTs, known := last[symbol]
				if known {
					if !bar.Ts.After(lastTs) {
						if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
							"buffered bar for %s at %s does not strictly advance past %s", symbol, bar.Ts, lastTs)) {
							return false
						}

						continue
					}

					if gap := bar.Ts.Sub(lastTs); gap > gapThreshold {
						if n.config.RejectOnGap == RejectOnGapStrict {
							if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
								"gap of %s between %s and %s for %s exceeds 60s", gap, lastTs, bar.Ts, symbol)) {
								return false
							}

							continue
						}

						n.emit(gapEvent(bar.Ts, symbol, lastTs, bar.Ts))
					}
				}

				if !commit(bar) {
					return false
				}
			}

			return true
		}

		for bar, err := range n.inner.StreamLiveBars(ctx, symbols, timeframe) {
			if err != nil {
				if !yield(types.Bar{}, err) {
					return
				}

				continue
			}

			if verr := bar.Validate(); verr != nil {
				if !yield(types.Bar{}, verr) {
					return
				}

				continue
			}

			lastTs, known := last[bar.Symbol]

			if known && !bar.Ts.After(lastTs) {
				if bar.Ts.Add(window).After(lastTs) {
					pending[bar.Symbol] = append(pending[bar.Symbol], bar)
					continue
				}

				if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
					"bar for %s at %s arrived %s after the reorder window closed on %s", bar.Symbol, bar.Ts, bar.Ts.Sub(lastTs).Abs(), lastTs)) {
					return
				}

				continue
			}

			if !flush(bar.Symbol, bar.Ts, false) {
				return
			}

			lastTs, known = last[bar.Symbol]

			if known {
				if gap := bar.Ts.Sub(lastTs); gap > gapThreshold {
					if n.config.RejectOnGap == RejectOnGapStrict {
						if !yield(types.Bar{}, coreerrors.Newf(coreerrors.ErrCodeBarOrdering,
							"gap of %s between %s and %s for %s exceeds 60s", gap, lastTs, bar.Ts, bar.Symbol)) {
							return
						}

						continue
					}

					n.emit(gapEvent(bar.Ts, bar.Symbol, lastTs, bar.Ts))
				}
			}

			if !commit(bar) {
				return
			}
		}

		for symbol := range pending {
			if !flush(symbol, time.Time{}, true) {
				return
			}
		}
	}
}

func gapEvent(ts time.Time, symbol string, prev, next time.Time) types.ArtifactEvent {
	return types.ArtifactEvent{
		Type: types.ArtifactEventLimitHit,
		Ts:   ts,
		LimitHit: &types.LimitHitEvent{
			Kind:    "bar_gap",
			Symbol:  symbol,
			Detail:  gapDetail(prev, next),
			Blocked: false,
		},
	}
}

func duplicateEvent(ts time.Time, symbol string) types.ArtifactEvent {
	return types.ArtifactEvent{
		Type: types.ArtifactEventLimitHit,
		Ts:   ts,
		LimitHit: &types.LimitHitEvent{
			Kind:    "bar_duplicate",
			Symbol:  symbol,
			Detail:  "duplicate (symbol, ts, timeframe)",
			Blocked: false,
		},
	}
}

func gapDetail(prev, next time.Time) string {
	return "prev_ts=" + prev.Format(time.RFC3339) + " next_ts=" + next.Format(time.RFC3339)
}

var _ ports.BarDataSource = (*Normalizer)(nil)
