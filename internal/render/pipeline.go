package render

import (
	"context"
	"fmt"
	"io"

	"github.com/axiomson/axiomson/internal/score"
)

// Pipeline consumes a finished Score. token identifies the run; pipelines
// that persist must key their output by it.
type Pipeline interface {
	Render(ctx context.Context, token string, s score.Score) error
}

// TextPipeline writes a deterministic plain-text dump of the score.
// The format is stable: golden tests compare against it byte for byte.
type TextPipeline struct {
	W io.Writer
}

// Render implements Pipeline.
func (p TextPipeline) Render(_ context.Context, token string, s score.Score) error {
	return WriteScoreText(p.W, token, s)
}

// WriteScoreText writes the canonical text form of a score.
func WriteScoreText(w io.Writer, token string, s score.Score) error {
	if _, err := fmt.Fprintf(w, "run %s\n", token); err != nil {
		return fmt.Errorf("write score text: %w", err)
	}
	if _, err := fmt.Fprintf(w, "score tempo=%.4f tracks=%d\n", s.Tempo, len(s.Tracks)); err != nil {
		return fmt.Errorf("write score text: %w", err)
	}
	for _, tr := range s.Tracks {
		_, err := fmt.Fprintf(w, "track name=%s instrument=%s program=%d events=%d\n",
			tr.Name, tr.Instrument, tr.Program, len(tr.Events))
		if err != nil {
			return fmt.Errorf("write score text: %w", err)
		}
		for _, e := range tr.Events {
			_, err := fmt.Fprintf(w, "note seq=%d pitch=%d vel=%d start=%.4f end=%.4f\n",
				e.Seq, e.Pitch, e.Velocity, e.Start, e.End)
			if err != nil {
				return fmt.Errorf("write score text: %w", err)
			}
		}
	}
	return nil
}

// MultiPipeline fans a score out to several pipelines in order, stopping
// at the first failure.
type MultiPipeline []Pipeline

// Render implements Pipeline.
func (m MultiPipeline) Render(ctx context.Context, token string, s score.Score) error {
	for _, p := range m {
		if err := p.Render(ctx, token, s); err != nil {
			return err
		}
	}
	return nil
}
