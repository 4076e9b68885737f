// stembed - steno translation over a stored dictionary
//
//	stembed translate [strokes...]  Translate strokes from arguments or stdin
//	stembed lookup <outline>        Show what an outline translates to
//	stembed add <outline> <text>    Add an entry to a SQLite dictionary
//	stembed info                    Describe the dictionary
//	stembed dump                    List every dictionary entry
//	stembed convert <src> <dst>     Convert between binary and SQLite dictionaries
//	stembed replay <script>...      Run replay scripts
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stembed/internal/config"
	"stembed/internal/logging"
)

// Version is the stembed version.
var Version = "0.3.0"

// app holds state shared by every subcommand.
type app struct {
	configPath string
	dictPath   string
	dictType   string
	verbose    bool

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "stembed",
		Short:         "Translate steno strokes through a stored dictionary",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: search ./config.* then the config directory)")
	flags.StringVarP(&a.dictPath, "dict", "d", "", "Dictionary file, overrides dictionary.path")
	flags.StringVar(&a.dictType, "type", "", "Dictionary type: binary or sqlite (default: by extension)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newTranslateCmd(a),
		newLookupCmd(a),
		newAddCmd(a),
		newInfoCmd(a),
		newDumpCmd(a),
		newConvertCmd(a),
		newReplayCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		path = config.ConfigPath()
	}
	a.configPath = path

	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	a.applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	lcfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	if a.verbose {
		lcfg.Level = logging.LevelDebug
	}
	if cfg.Logging.Output == "stderr" {
		lcfg.Writer = cmd.ErrOrStderr()
	}
	logger, err := logging.New(lcfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	a.logger = logger
	logging.SetDefault(logger)
	return nil
}

func (a *app) applyFlags(cfg *config.Config) {
	if a.dictPath != "" {
		cfg.Dictionary.Path = a.dictPath
		cfg.Dictionary.Type = typeForPath(a.dictPath, cfg.Dictionary.Type)
	}
	if a.dictType != "" {
		cfg.Dictionary.Type = a.dictType
	}
}

func main() {
	crash := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		Version:   Version,
		Component: "stembed",
	})

	var err error
	if crash.Recover(map[string]any{"args": os.Args[1:]}, func() {
		err = newRootCmd().Execute()
	}) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stembed: %v\n", err)
		os.Exit(1)
	}
}
