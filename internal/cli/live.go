package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axiomson/axiomson/internal/config"
	"github.com/axiomson/axiomson/internal/scheduler"
)

// LiveOptions holds flags for the live command.
type LiveOptions struct {
	*RootOptions
	ConfigDir  string
	ConfigOnly bool
}

// NewLiveCommand creates the live command.
func NewLiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Enter equations interactively",
		Long: `Collect equations interactively and run them through the scheduler.

At most three equations play at once; further submissions queue and are
promoted in arrival order as slots free up. Commands at the name prompt:

  status   show active and queued equations
  save     finish input, write the collected config, wait for all jobs
  help     show this summary`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "configs", "directory for the saved config")
	cmd.Flags().BoolVar(&opts.ConfigOnly, "config-only", false, "save the config without waiting for playback")

	return cmd
}

// prompter reads one line per field, falling back to a default when the
// line is empty.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(label, fallback string) string {
	fmt.Fprintf(p.out, "  %s [%s]: ", label, fallback)
	if !p.in.Scan() {
		return fallback
	}
	line := strings.TrimSpace(p.in.Text())
	if line == "" {
		return fallback
	}
	return line
}

func runLive(opts *LiveOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	p := &prompter{in: bufio.NewScanner(cmd.InOrStdin()), out: out}
	sched := scheduler.New(scheduler.WithLogger(slog.Default()))
	cfg := &config.Config{Tempo: config.DefaultTempo}

	fmt.Fprintln(out, "AxiomSon live mode. Enter equations; type 'help' for commands.")

	for {
		fmt.Fprint(out, "Equation name (or 'save' to finish, 'status', 'help'): ")
		if !p.in.Scan() {
			// stdin closed: treat like save without a config write
			fmt.Fprintln(out, "\nInput closed. Exiting.")
			return nil
		}
		name := strings.TrimSpace(p.in.Text())
		if name == "" {
			continue
		}

		switch strings.ToLower(name) {
		case "help", "h":
			fmt.Fprintln(out, "Enter a name to define an equation. 'save' ends the session and writes the config; 'status' shows the queue.")
			continue
		case "status", "s":
			active, queued := sched.Status()
			fmt.Fprintf(out, "Active (%d): %v\n", len(active), active)
			fmt.Fprintf(out, "Queued (%d): %v\n", len(queued), queued)
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), "save") {
			return finishLive(opts, cmd, sched, cfg)
		}

		ec := collectEquation(p, name)
		cfg.Equations = append(cfg.Equations, ec)

		adm := sched.Submit(ec.Resolve(len(cfg.Equations)))
		switch adm.Phase {
		case scheduler.PhaseActive:
			fmt.Fprintf(out, "Started equation %q\n", name)
		default:
			fmt.Fprintf(out, "Queued equation %q (position %d)\n", name, adm.QueuePosition)
		}
	}
}

// collectEquation prompts for each field of one equation, tolerating bad
// input the same way config decoding does.
func collectEquation(p *prompter, name string) config.EquationConfig {
	ec := config.EquationConfig{Name: name}

	ec.Expr = p.ask("expression (e.g. sin(x) + 0.1*y)", "sin(x)")

	varsRaw := p.ask("initial vars x,y,z (comma-separated)", "0,0,0")
	ec.Vars = map[string]float64{"x": 0, "y": 0, "z": 0}
	parts := strings.SplitN(varsRaw, ",", 3)
	if len(parts) == 3 {
		for i, vn := range []string{"x", "y", "z"} {
			if v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64); err == nil {
				ec.Vars[vn] = v
			}
		}
	}

	updatesRaw := p.ask("update rules (semicolon-separated, e.g. 'x = x + 1; y = y*0.99')", "")
	for _, u := range strings.Split(updatesRaw, ";") {
		if u = strings.TrimSpace(u); u != "" {
			ec.Updates = append(ec.Updates, u)
		}
	}

	ec.EvalRate = config.Fraction(config.ParseFraction(p.ask("eval_rate (e.g. 1/8)", "1/8"), config.DefaultEvalRate))

	dur := config.ParseFraction(p.ask("duration in seconds", "5"), config.DefaultDuration)
	if dur < 0.1 {
		dur = 0.1
	}
	ec.Duration = &dur

	base := atoiOr(p.ask("mapping.base_midi", "60"), config.DefaultBaseMIDI)
	oct := atoiOr(p.ask("mapping.octave_range", "2"), config.DefaultOctaves)
	scale := p.ask("mapping.scale (e.g. A_minor)", "A_minor")
	instrument := p.ask("mapping.instrument (piano/synth)", "piano")
	poly := atoiOr(p.ask("mapping.polyphony", "1"), config.DefaultPolyphony)
	quant := config.Fraction(config.ParseFraction(p.ask("mapping.rhythm_quant (fraction of beat)", "1/16"), config.DefaultRhythmQuant))
	curve := p.ask("mapping.velocity_curve (linear/exp)", "linear")
	ec.Mapping = config.MappingConfig{
		BaseMIDI:      &base,
		Scale:         scale,
		OctaveRange:   &oct,
		Instrument:    instrument,
		Polyphony:     &poly,
		RhythmQuant:   &quant,
		VelocityCurve: curve,
	}

	if aw := p.ask("active_window start,end (mm:ss or seconds)", ""); aw != "" {
		w := config.ParseWindow(aw)
		if w.Set() {
			ec.ActiveWindow = &w
		}
	}

	return ec
}

func atoiOr(s string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return fallback
}

// finishLive writes the collected config and waits for the scheduler to
// drain, unless config-only mode is on. Ctrl-C interrupts the wait;
// running timers are left to expire on their own.
func finishLive(opts *LiveOptions, cmd *cobra.Command, sched *scheduler.Scheduler, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	if len(cfg.Equations) == 0 {
		fmt.Fprintln(out, "No equations collected. Exiting without saving.")
		return nil
	}

	if err := os.MkdirAll(opts.ConfigDir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create config dir", err)
	}
	path := filepath.Join(opts.ConfigDir, "saved_config.yaml")
	if err := config.Save(cfg, path); err != nil {
		return WrapExitError(ExitCommandError, "failed to save config", err)
	}
	fmt.Fprintf(out, "Saved config to %s\n", path)

	if opts.ConfigOnly {
		fmt.Fprintln(out, "Config saved. Exiting without waiting for playback.")
		return nil
	}

	fmt.Fprintln(out, "Waiting for active and queued equations to finish... (Ctrl-C to stop)")
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Wait(ctx); err != nil {
		fmt.Fprintln(out, "Interrupted while waiting. Background jobs may still be running.")
		return nil
	}
	fmt.Fprintln(out, "All jobs finished. Live session ended.")
	return nil
}
