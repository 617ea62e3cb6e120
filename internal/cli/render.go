package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/axiomson/axiomson/internal/config"
	"github.com/axiomson/axiomson/internal/engine"
	"github.com/axiomson/axiomson/internal/render"
	"github.com/axiomson/axiomson/internal/score"
)

// Error codes used in CLI error responses.
const (
	ErrCodeConfig  = "E001" // config could not be loaded
	ErrCodeInvalid = "E002" // equation failed validation
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string
	USTDir   string
	Out      string
	Example  bool

	// TokenGenerator allows overriding the run token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator score.TokenGenerator
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [config.yaml]",
		Short: "Render a config to a musical score",
		Long: `Render a YAML equation config to a musical score.

Each equation is stepped through its active window, its values mapped
onto the configured scale, and the resulting tracks written as a plain
text dump. Optionally the score is also persisted to a SQLite database
and exported as UTAU .ust vocal projects.

Example:
  axiomson render song.yaml
  axiomson render song.yaml --db scores.db --ust ./ust
  axiomson render --example`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runRender(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite score database (optional)")
	cmd.Flags().StringVar(&opts.USTDir, "ust", "", "directory for UTAU .ust exports (optional)")
	cmd.Flags().StringVar(&opts.Out, "out", "-", "text score output path, - for stdout")
	cmd.Flags().BoolVar(&opts.Example, "example", false, "render the built-in example config")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	cfg, err := loadConfig(path, opts.Example)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	eqs := cfg.Resolve()
	if len(eqs) == 0 {
		return WrapExitError(ExitCommandError, "config contains no equations", nil)
	}
	tempo := cfg.ResolvedTempo()
	slog.Info("config loaded", "equations", len(eqs), "tempo", tempo)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := engine.Perform(ctx, tempo, eqs)
	if err != nil {
		return WrapExitError(ExitFailure, "render failed", err)
	}
	slog.Info("score rendered", "tracks", len(sc.Tracks), "events", sc.EventCount())

	gen := opts.TokenGenerator
	if gen == nil {
		gen = score.UUIDv7Generator{}
	}
	token := gen.Generate()

	pipelines, cleanup, err := buildPipelines(opts, cmd)
	defer cleanup()
	if err != nil {
		return err
	}

	if err := pipelines.Render(ctx, token, sc); err != nil {
		return WrapExitError(ExitFailure, "pipeline failed", err)
	}
	return nil
}

// loadConfig reads the config from disk, or returns the built-in example
// when asked for one.
func loadConfig(path string, example bool) (*config.Config, error) {
	if example {
		return config.Example(), nil
	}
	if path == "" {
		return nil, fmt.Errorf("config path required (or pass --example)")
	}
	return config.Load(path)
}

// buildPipelines assembles the output fan-out from the render flags. The
// returned cleanup closes anything opened here.
func buildPipelines(opts *RenderOptions, cmd *cobra.Command) (render.MultiPipeline, func(), error) {
	var (
		pipelines render.MultiPipeline
		closers   []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if opts.Out == "-" || opts.Out == "" {
		pipelines = append(pipelines, render.TextPipeline{W: cmd.OutOrStdout()})
	} else {
		f, err := os.Create(opts.Out)
		if err != nil {
			return nil, cleanup, WrapExitError(ExitCommandError, "failed to open output file", err)
		}
		closers = append(closers, func() { f.Close() })
		pipelines = append(pipelines, render.TextPipeline{W: f})
	}

	if opts.Database != "" {
		st, err := render.Open(opts.Database)
		if err != nil {
			return nil, cleanup, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		closers = append(closers, func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		})
		pipelines = append(pipelines, st)
	}

	if opts.USTDir != "" {
		pipelines = append(pipelines, render.USTPipeline{Dir: opts.USTDir})
	}

	return pipelines, cleanup, nil
}
