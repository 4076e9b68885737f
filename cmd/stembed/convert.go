package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stembed/internal/bytestream"
	"stembed/internal/config"
	"stembed/internal/dictionary"
	"stembed/internal/dictionary/bindict"
	"stembed/internal/dictionary/sqlitedict"
	"stembed/internal/formatter"
	"stembed/internal/stroke"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		from, to string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Convert between binary and SQLite dictionaries",
		Long: `Copy every entry of src into a new dictionary at dst. Types are taken
from the file extensions (.db, .sqlite, .sqlite3 for SQLite, anything else
binary) unless --from or --to is given.

Binary dictionaries do not record their longest outline. When dst holds
outlines longer than dictionary.longest_outline (10 when unset), a warning
is printed: those outlines only match once the setting is raised.

Examples:
  stembed convert main.db main.stembed
  stembed convert main.stembed main.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := config.DictionaryConfig{
				Path: args[0],
				Type: typeForPath(args[0], config.DictionaryBinary),
			}
			if from != "" {
				src.Type = from
			}
			dstType := typeForPath(args[1], config.DictionaryBinary)
			if to != "" {
				dstType = to
			}
			if _, err := os.Stat(args[1]); err == nil && !force {
				return fmt.Errorf("%s exists (use --force to replace it)", args[1])
			}

			dict, err := a.openDictionary(cmd.Context(), src)
			if err != nil {
				return err
			}
			defer dict.Close()

			var n int
			switch dstType {
			case config.DictionaryBinary:
				n, err = a.writeBinary(cmd.Context(), dict, args[1], cmd.ErrOrStderr())
			case config.DictionarySQLite:
				if force {
					os.Remove(args[1])
				}
				n, err = a.writeSQLite(cmd.Context(), dict, args[1])
			default:
				err = fmt.Errorf("unknown dictionary type %q", dstType)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d entries: %s (%s) -> %s (%s)\n",
				n, src.Path, src.Type, args[1], dstType)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source type: binary or sqlite")
	cmd.Flags().StringVar(&to, "to", "", "Destination type: binary or sqlite")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing destination")
	return cmd
}

// outlineBound returns the search window a binary dictionary opened with
// the configured longest outline will use.
func outlineBound(configured int) int {
	if configured == 0 {
		return dictionary.DefaultLongestOutline
	}
	return configured
}

func (a *app) writeBinary(ctx context.Context, src *openedDict, path string, stderr io.Writer) (int, error) {
	layout, err := stroke.ByName(a.cfg.Layout)
	if err != nil {
		return 0, err
	}
	b := bindict.NewBuilder[formatter.Command](layout, formatter.Codec{})
	if err := src.walk(ctx, func(o stroke.Outline, list commandList) error {
		return b.Add(ctx, o, list)
	}); err != nil {
		return 0, err
	}

	f, err := bytestream.CreateFile(path)
	if err != nil {
		return 0, err
	}
	if err := b.WriteTo(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	a.logger.Info("binary dictionary written", "path", path, "entries", b.Len(),
		"longest_outline", b.LongestOutline())

	if bound := outlineBound(a.cfg.Dictionary.LongestOutline); b.LongestOutline() > bound {
		a.logger.Warn("outlines exceed the configured search window",
			"path", path, "longest_outline", b.LongestOutline(), "bound", bound)
		fmt.Fprintf(stderr, "warning: %s holds outlines of %d strokes but dictionary.longest_outline is %d; set it to %d so they can match\n",
			path, b.LongestOutline(), bound, b.LongestOutline())
	}
	return b.Len(), nil
}

func (a *app) writeSQLite(ctx context.Context, src *openedDict, path string) (int, error) {
	dst, err := a.openDictionary(ctx, config.DictionaryConfig{Path: path, Type: config.DictionarySQLite})
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	n, longest := 0, 0
	err = dst.sqlite.Batch(ctx, func(put sqlitedict.PutFunc[formatter.Command]) error {
		return src.walk(ctx, func(o stroke.Outline, list commandList) error {
			n++
			longest = max(longest, len(o))
			return put(o, list)
		})
	})
	if err != nil {
		return 0, err
	}
	if longest > 0 {
		if err := dst.sqlite.SetLongestOutline(ctx, longest); err != nil {
			return 0, err
		}
	}
	return n, nil
}
