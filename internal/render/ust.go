package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/axiomson/axiomson/internal/score"
)

// UST project constants for the Kasane Teto English voicebank.
const (
	ustProjectName = "AxiomSon_UTAU"
	ustVoiceDir    = `%VOICE%Teto_English\`
	ustCacheDir    = `%VOICE%Teto_English\cache\`
	ustFlags       = "B50" // breathiness suited to the Teto voice
	ustTicks       = 480   // UST length units per second of note duration
	ustRestPitch   = 60
	ustLyric       = "a" // placeholder vowel; no lyric mapping in this core
)

// midiToUSTPitch converts a MIDI note number to a UST note number.
// UST places C4 at 48 where MIDI places it at 60.
func midiToUSTPitch(midi int) int {
	return midi - 12
}

// WriteUST writes one track as a UTAU project file. The project opens
// and closes with a rest so the voicebank has attack/release room.
func WriteUST(w io.Writer, tempo float64, track score.Track) error {
	write := func(format string, args ...any) error {
		_, err := fmt.Fprintf(w, format+"\n", args...)
		return err
	}

	if err := write("[#SETTING]"); err != nil {
		return fmt.Errorf("write ust: %w", err)
	}
	header := []string{
		fmt.Sprintf("Tempo=%g", tempo),
		"Tracks=1",
		fmt.Sprintf("ProjectName=%s", ustProjectName),
		fmt.Sprintf("VoiceDir=%s", ustVoiceDir),
		fmt.Sprintf("CacheDir=%s", ustCacheDir),
		"Mode2=True",
		"",
		"[#0000]",
		fmt.Sprintf("Length=%d", ustTicks),
		"Lyric=R",
		fmt.Sprintf("NoteNum=%d", ustRestPitch),
		"",
	}
	for _, line := range header {
		if err := write("%s", line); err != nil {
			return fmt.Errorf("write ust: %w", err)
		}
	}

	for i, e := range track.Events {
		lines := []string{
			fmt.Sprintf("[#%04d]", i+1),
			fmt.Sprintf("Length=%d", int((e.End-e.Start)*ustTicks)),
			fmt.Sprintf("Lyric=%s", ustLyric),
			fmt.Sprintf("NoteNum=%d", midiToUSTPitch(e.Pitch)),
			fmt.Sprintf("Flags=%s", ustFlags),
			"",
		}
		for _, line := range lines {
			if err := write("%s", line); err != nil {
				return fmt.Errorf("write ust: %w", err)
			}
		}
	}

	closing := []string{
		fmt.Sprintf("[#%04d]", len(track.Events)+1),
		fmt.Sprintf("Length=%d", ustTicks),
		"Lyric=R",
		fmt.Sprintf("NoteNum=%d", ustRestPitch),
	}
	for _, line := range closing {
		if err := write("%s", line); err != nil {
			return fmt.Errorf("write ust: %w", err)
		}
	}
	return nil
}

// USTPipeline writes one .ust project per track into Dir, named
// <track>.ust.
type USTPipeline struct {
	Dir string
}

// Render implements Pipeline.
func (p USTPipeline) Render(_ context.Context, _ string, s score.Score) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("render ust: %w", err)
	}
	for _, tr := range s.Tracks {
		path := filepath.Join(p.Dir, tr.Name+".ust")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("render ust: %w", err)
		}
		if err := WriteUST(f, s.Tempo, tr); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("render ust: %w", err)
		}
	}
	return nil
}
