package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stembed/internal/config"
	"stembed/internal/formatter"
	"stembed/internal/logging"
	"stembed/internal/metrics"
	"stembed/internal/output"
	"stembed/internal/stroke"
	"stembed/internal/translator"
)

func newTranslateCmd(a *app) *cobra.Command {
	var (
		sink        string
		watch       bool
		stats       bool
		metricsPath string
	)
	cmd := &cobra.Command{
		Use:   "translate [strokes...]",
		Short: "Translate strokes from arguments or stdin",
		Long: `Translate strokes through the dictionary and send the text to the
configured output.

Strokes are written in steno notation and separated by whitespace; an
outline such as KAT/-S counts as its strokes in order. Without arguments
strokes are read from stdin until EOF.

Examples:
  stembed translate KAT TKOG
  echo "HEL/LOE WORLD" | stembed translate --sink memory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sink != "" {
				a.cfg.Output.Sink = sink
			}
			return a.runTranslate(cmd, args, translateOptions{watch, stats, metricsPath})
		},
	}
	cmd.Flags().StringVar(&sink, "sink", "", "Output sink: stdout, memory or dbus (overrides output.sink)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the dictionary when the configuration file changes")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print translation counters to stderr when done")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "Write metrics to this file when done (JSON for .json, Prometheus text otherwise)")
	return cmd
}

type translateOptions struct {
	watch   bool
	stats   bool
	metrics string
}

func (a *app) runTranslate(cmd *cobra.Command, args []string, opts translateOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	layout, err := stroke.ByName(a.cfg.Layout)
	if err != nil {
		return err
	}

	dict, err := a.openDictionary(ctx, a.cfg.Dictionary)
	if err != nil {
		return err
	}

	sink, finish, err := a.openSink(cmd.OutOrStdout())
	if err != nil {
		dict.Close()
		return err
	}

	wrap := func(d translator.Dictionary) translator.Dictionary { return d }
	var (
		registry *metrics.Registry
		pipeline *metrics.Pipeline
	)
	if opts.metrics != "" {
		registry = metrics.NewRegistry("stembed")
		pipeline = metrics.NewPipeline(registry)
		wrap = func(d translator.Dictionary) translator.Dictionary {
			return metrics.Instrument(d, pipeline)
		}
	}

	tr := translator.New(wrap(dict), sink,
		translator.WithLogger(a.logger.Logger),
		translator.WithFormatterOptions(
			formatter.WithDelimiter(a.cfg.Formatter.DelimiterRune()),
		),
	)

	var (
		mu      sync.Mutex
		current = dict
	)
	defer func() {
		mu.Lock()
		current.Close()
		mu.Unlock()
	}()

	if opts.watch {
		loader, err := a.watchConfig(ctx, tr, wrap, &mu, &current)
		if err != nil {
			return err
		}
		defer loader.Close()
	}

	if len(args) > 0 {
		err = translateWords(ctx, tr, layout, args)
	} else {
		err = translateStream(ctx, tr, layout, cmd.InOrStdin())
	}
	if ferr := finish(); err == nil {
		err = ferr
	}

	if opts.stats {
		s := tr.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "strokes=%d undos=%d backspaces=%d characters=%d\n",
			s.Strokes, s.Undos, s.Backspaces, s.Characters)
	}
	if registry != nil {
		pipeline.RecordStats(tr.Stats())
		if merr := writeMetrics(registry, opts.metrics); err == nil {
			err = merr
		}
	}
	return err
}

func writeMetrics(r *metrics.Registry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = r.WriteJSON(f)
	} else {
		err = r.WritePrometheus(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openSink builds the configured sink. finish flushes it once translation
// ends.
func (a *app) openSink(w io.Writer) (output.Sink, func() error, error) {
	logger := a.logger.WithComponent("output").Logger
	switch a.cfg.Output.Sink {
	case config.SinkStdout:
		return output.NewWriter(w, logger), func() error {
			_, err := fmt.Fprintln(w)
			return err
		}, nil
	case config.SinkMemory:
		mem := output.NewMemory()
		return mem, func() error {
			_, err := fmt.Fprintln(w, mem.Text())
			return err
		}, nil
	case config.SinkDBus:
		bus, err := output.ConnectDBus(a.cfg.Output.DBusName, logger)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown output sink %q", a.cfg.Output.Sink)
	}
}

// watchConfig reopens the dictionary and adjusts the log level whenever the
// configuration file changes.
func (a *app) watchConfig(ctx context.Context, tr *translator.Translator, wrap func(translator.Dictionary) translator.Dictionary,
	mu *sync.Mutex, current **openedDict) (*config.Loader, error) {
	loader := config.NewLoader(a.configPath)
	if _, err := loader.Load(); err != nil {
		return nil, err
	}

	loader.OnChange(func(_, next *config.Config) {
		a.applyFlags(next)
		if level, err := logging.ParseLevel(next.Logging.Level); err == nil && !a.verbose {
			a.logger.SetLevel(level)
		}

		mu.Lock()
		defer mu.Unlock()
		old := *current
		if old.path == next.Dictionary.Path && old.kind == next.Dictionary.Type {
			return
		}
		dict, err := a.openDictionary(ctx, next.Dictionary)
		if err != nil {
			a.logger.Error("reload dictionary", "path", next.Dictionary.Path, "error", err)
			return
		}
		tr.SwapDictionary(wrap(dict))
		*current = dict
		if err := old.Close(); err != nil {
			a.logger.Warn("close previous dictionary", "error", err)
		}
	})
	if err := loader.Watch(); err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				a.logger.Warn("config reload failed", "error", err)
			}
		}
	}()
	return loader, nil
}

func translateStream(ctx context.Context, tr *translator.Translator, layout *stroke.Layout, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := translateWords(ctx, tr, layout, strings.Fields(scanner.Text())); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func translateWords(ctx context.Context, tr *translator.Translator, layout *stroke.Layout, words []string) error {
	for _, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		outline, err := layout.ParseOutline(word)
		if err != nil {
			return fmt.Errorf("parse %q: %w", word, err)
		}
		tr.TranslateOutline(ctx, outline)
	}
	return nil
}
