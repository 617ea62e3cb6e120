package engine

import (
	"context"
	"sync"

	"github.com/axiomson/axiomson/internal/score"
)

// DefaultTempo is used when the configured tempo is missing or invalid.
const DefaultTempo = 120.0

// Perform builds one sequencer per equation and runs them all to
// completion, returning one Track per equation in input order.
//
// Construction errors (invalid expressions) abort the whole run before
// any simulation starts. Once simulation begins the only possible error
// is ctx cancellation.
//
// Sequencers share no mutable state, so they run concurrently; the
// result order is still deterministic because tracks are placed by
// input index.
func Perform(ctx context.Context, tempo float64, eqs []score.Equation, opts ...Option) (score.Score, error) {
	if tempo <= 0 {
		tempo = DefaultTempo
	}

	seqs := make([]*Sequencer, len(eqs))
	for i, eq := range eqs {
		s, err := NewSequencer(eq, tempo, opts...)
		if err != nil {
			return score.Score{}, err
		}
		seqs[i] = s
	}

	tracks := make([]score.Track, len(seqs))
	errs := make([]error, len(seqs))

	var wg sync.WaitGroup
	for i, s := range seqs {
		wg.Add(1)
		go func(i int, s *Sequencer) {
			defer wg.Done()
			tracks[i], errs[i] = s.Run(ctx)
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return score.Score{Tempo: tempo, Tracks: tracks}, err
		}
	}
	return score.Score{Tempo: tempo, Tracks: tracks}, nil
}
