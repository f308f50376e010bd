package match

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/soocke/itemscan/domain/library"
	"github.com/soocke/itemscan/domain/pixels"
	"github.com/soocke/itemscan/domain/rarity"
)

// matchMultiScale evaluates each margin crop in parallel and returns the
// best result. When StopOnScore is set, the first margin (in list order)
// reaching it wins and later margins are skipped; earlier margins always run
// so the outcome does not depend on scheduling.
func (m *Matcher) matchMultiScale(cell *pixels.Frame, detected rarity.Rarity, cands []*library.Item, margins []float64) Result {
	results := make([]Result, len(margins))
	evaluated := make([]bool, len(margins))
	var stopAt atomic.Int64
	stopAt.Store(int64(len(margins)))

	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	for i, margin := range margins {
		if margin < 0 {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if int64(i) > stopAt.Load() {
				return
			}
			r := m.matchAt(cell, detected, cands, margin)
			results[i], evaluated[i] = r, true
			if m.opts.StopOnScore > 0 && r.Score >= m.opts.StopOnScore {
				for {
					cur := stopAt.Load()
					if int64(i) >= cur || stopAt.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	if at := int(stopAt.Load()); at < len(margins) {
		return results[at]
	}
	best := Result{}
	for i, r := range results {
		if evaluated[i] && r.Item != nil && (best.Item == nil || r.Score > best.Score) {
			best = r
		}
	}
	return best
}
