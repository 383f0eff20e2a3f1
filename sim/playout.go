package sim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"github.com/sw965/busters/game"
	"github.com/sw965/busters/mathx/randx"
	"github.com/sw965/busters/sensor"
	"golang.org/x/sync/errgroup"
)

// Playout runs one episode of at most e.Ticks ticks. It ends early once every ghost
// is in jail.
func (e Engine) Playout(rng *rand.Rand) (Record, error) {
	if err := e.Validate(); err != nil {
		return Record{}, err
	}
	return e.playout(e.logger(), rng)
}

// Playouts runs n episodes over len(rngs) workers. Worker w draws only from rngs[w] and
// plays episodes w, w+len(rngs), ..., so a fixed set of rngs reproduces the records.
func (e Engine) Playouts(ctx context.Context, n int, rngs []*rand.Rand) ([]Record, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrEpisodes, n)
	}
	if len(rngs) == 0 {
		return nil, ErrEmptyRngs
	}

	p := len(rngs)
	records := make([]Record, n)
	g, ctx := errgroup.WithContext(ctx)
	for w, rng := range rngs {
		g.Go(func() error {
			for idx := w; idx < n; idx += p {
				if err := ctx.Err(); err != nil {
					return err
				}
				logger := e.logger().WithField("episode", idx)
				rec, err := e.playout(logger, rng)
				if err != nil {
					return fmt.Errorf("episode %d: %w", idx, err)
				}
				logger.WithFields(logrus.Fields{
					"ticks":    rec.Ticks,
					"captures": rec.Captures,
					"hits":     rec.Hits,
				}).Debug("episode finished")
				records[idx] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (e Engine) playout(logger logrus.FieldLogger, rng *rand.Rand) (Record, error) {
	state := game.NewState(e.Layout)
	modules, err := e.NewModules(e.Ghosts, rng)
	if err != nil {
		return Record{}, err
	}
	if len(modules) != len(e.Ghosts) {
		return Record{}, fmt.Errorf("%w: got %d modules for %d ghosts", ErrModuleCount, len(modules), len(e.Ghosts))
	}
	// エージェント番号順に初期化する(同時推定のアダプタは登録順が必要)
	for _, m := range modules {
		if err := m.Initialize(state); err != nil {
			return Record{}, err
		}
	}

	rec := Record{
		Hits:      make([]int, len(e.Ghosts)),
		Distances: make([]int, len(e.Ghosts)),
	}
	for tick := 0; tick < e.Ticks; tick++ {
		if allJailed(state) {
			break
		}

		state = state.WithReadings(e.readings(state, rng))
		for _, m := range modules {
			if err := m.Observe(state); err != nil {
				return Record{}, err
			}
		}
		for _, m := range modules {
			if err := m.Predict(state); err != nil {
				return Record{}, err
			}
		}

		state, err = e.advance(state, &rec, rng)
		if err != nil {
			return Record{}, err
		}

		for i, m := range modules {
			guess, err := m.Belief().ArgMax()
			if err != nil {
				return Record{}, fmt.Errorf("ghost %d: %w", i+1, err)
			}
			truth, err := state.GhostPosition(i + 1)
			if err != nil {
				return Record{}, err
			}
			if guess == truth {
				rec.Hits[i]++
			}
			rec.Distances[i] += game.Manhattan(guess, truth)
			logger.WithFields(logrus.Fields{
				"tick":  tick,
				"agent": i + 1,
				"guess": guess,
				"truth": truth,
			}).Trace("belief scored")
		}
		rec.Ticks++
	}
	return rec, nil
}

// readings samples one reading per ghost. A jailed ghost reports NoReading.
func (e Engine) readings(state game.State, rng *rand.Rand) []sensor.Reading {
	observer := state.ObserverPosition()
	rs := make([]sensor.Reading, state.NumGhosts())
	for i, p := range state.GhostPositions() {
		if p == game.JailPosition(i+1) {
			rs[i] = sensor.NoReading
			continue
		}
		rs[i] = e.Noise.Sample(game.Manhattan(observer, p), rng)
	}
	return rs
}

// advance moves the observer one uniformly random step, then every free ghost in index
// order. A ghost sharing a cell with the observer, before or after its move, is sent to
// its jail.
func (e Engine) advance(state game.State, rec *Record, rng *rand.Rand) (game.State, error) {
	next, err := randx.Choice(state.Layout().LegalNeighbors(state.ObserverPosition()), rng)
	if err != nil {
		return game.State{}, err
	}
	state = state.WithObserverPosition(next)
	if state, err = capture(state, rec); err != nil {
		return game.State{}, err
	}

	for i, g := range e.Ghosts {
		p := state.GhostPositions()[i]
		if p == game.JailPosition(i+1) {
			continue
		}
		policy, err := g.Distribution(state)
		if err != nil {
			return game.State{}, err
		}
		a, err := e.GhostSelectFunc(policy, state.LegalActions(p), rng)
		if err != nil {
			return game.State{}, fmt.Errorf("ghost %d: %w", i+1, err)
		}
		if state, err = state.WithGhostPosition(i+1, game.Successor(p, a)); err != nil {
			return game.State{}, err
		}
	}
	return capture(state, rec)
}

func capture(state game.State, rec *Record) (game.State, error) {
	for i, p := range state.GhostPositions() {
		if p != state.ObserverPosition() {
			continue
		}
		var err error
		if state, err = state.WithGhostPosition(i+1, game.JailPosition(i+1)); err != nil {
			return game.State{}, err
		}
		rec.Captures++
	}
	return state, nil
}

func allJailed(state game.State) bool {
	for i, p := range state.GhostPositions() {
		if p != game.JailPosition(i+1) {
			return false
		}
	}
	return true
}
