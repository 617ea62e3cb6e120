package render

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/axiomson/axiomson/internal/score"
)

// sampleScore is the canonical fixture used across render tests: one
// track of four whole notes at 60 BPM.
func sampleScore() score.Score {
	tr := score.Track{
		Name:       "lead",
		Instrument: "piano",
		Program:    0,
	}
	for i := 0; i < 4; i++ {
		tr.Events = append(tr.Events, score.NoteEvent{
			Seq:      int64(i + 1),
			Pitch:    82,
			Velocity: 127,
			Start:    float64(i),
			End:      float64(i + 1),
			Track:    "lead",
		})
	}
	return score.Score{Tempo: 60, Tracks: []score.Track{tr}}
}

func TestWriteScoreText_Golden(t *testing.T) {
	var buf bytes.Buffer
	err := WriteScoreText(&buf, "run-1", sampleScore())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "score_text", buf.Bytes())
}

func TestTextPipeline_Render(t *testing.T) {
	var buf bytes.Buffer
	p := TextPipeline{W: &buf}

	err := p.Render(context.Background(), "run-1", sampleScore())
	require.NoError(t, err)
	require.Contains(t, buf.String(), "run run-1\n")
	require.Contains(t, buf.String(), "track name=lead instrument=piano program=0 events=4\n")
}

type failingPipeline struct{ err error }

func (p failingPipeline) Render(context.Context, string, score.Score) error { return p.err }

func TestMultiPipeline_StopsAtFirstFailure(t *testing.T) {
	var first, second bytes.Buffer
	boom := errors.New("boom")

	m := MultiPipeline{
		TextPipeline{W: &first},
		failingPipeline{err: boom},
		TextPipeline{W: &second},
	}

	err := m.Render(context.Background(), "run-1", sampleScore())
	require.ErrorIs(t, err, boom)
	require.NotEmpty(t, first.String(), "pipeline before the failure should have run")
	require.Empty(t, second.String(), "pipeline after the failure should not have run")
}
