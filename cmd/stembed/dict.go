package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"stembed/internal/bytestream"
	"stembed/internal/command"
	"stembed/internal/config"
	"stembed/internal/dictionary"
	"stembed/internal/dictionary/bindict"
	"stembed/internal/dictionary/sqlitedict"
	"stembed/internal/formatter"
	"stembed/internal/stroke"
	"stembed/internal/translator"
)

type (
	binaryDict  = bindict.Dictionary[formatter.Command]
	sqliteDict  = sqlitedict.Dictionary[formatter.Command]
	commandList = command.List[formatter.Command]
)

// typeForPath picks the dictionary type from a file extension.
func typeForPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return config.DictionarySQLite
	case ".stembed", ".bin":
		return config.DictionaryBinary
	default:
		return fallback
	}
}

// openedDict is an open dictionary of either type, optionally behind a cache.
type openedDict struct {
	translator.Dictionary
	path   string
	kind   string
	binary *binaryDict
	file   *bytestream.File
	sqlite *sqliteDict
	cache  *dictionary.Cached[formatter.Command]
	close  func() error
}

func (d *openedDict) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// openDictionary opens the dictionary described by dc.
func (a *app) openDictionary(ctx context.Context, dc config.DictionaryConfig) (*openedDict, error) {
	layout, err := stroke.ByName(a.cfg.Layout)
	if err != nil {
		return nil, err
	}
	logger := a.logger.WithComponent("dictionary").Logger

	d := &openedDict{path: dc.Path, kind: dc.Type}
	switch dc.Type {
	case config.DictionaryBinary:
		f, err := bytestream.OpenFile(dc.Path)
		if err != nil {
			return nil, fmt.Errorf("open dictionary: %w", err)
		}
		bin, err := bindict.Open(ctx, f, bindict.Config[formatter.Command]{
			Layout:         layout,
			Codec:          formatter.Codec{},
			Fallback:       translator.LiteralFallback(),
			LongestOutline: dc.LongestOutline,
			Logger:         logger,
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open dictionary %s: %w", dc.Path, err)
		}
		d.Dictionary, d.binary, d.file, d.close = bin, bin, f, f.Close

	case config.DictionarySQLite:
		db, err := sqlitedict.Open(ctx, dc.Path, sqlitedict.Config[formatter.Command]{
			Layout:         layout,
			Codec:          formatter.Codec{},
			Fallback:       translator.LiteralFallback(),
			LongestOutline: dc.LongestOutline,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open dictionary %s: %w", dc.Path, err)
		}
		d.Dictionary, d.sqlite, d.close = db, db, db.Close

	default:
		return nil, fmt.Errorf("unknown dictionary type %q", dc.Type)
	}

	if dc.CacheSize > 0 {
		cache, err := dictionary.NewCached[formatter.Command](d.Dictionary, dc.CacheSize)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Dictionary, d.cache = cache, cache
	}

	a.logger.Debug("dictionary opened", "path", dc.Path, "type", dc.Type,
		"longest_outline", d.LongestOutlineLength())
	return d, nil
}

// walk visits every entry of d regardless of its type.
func (d *openedDict) walk(ctx context.Context, fn func(outline stroke.Outline, list commandList) error) error {
	switch {
	case d.binary != nil:
		return d.binary.Walk(ctx, func(_ uint32, o stroke.Outline, l commandList) error {
			return fn(o, l)
		})
	case d.sqlite != nil:
		return d.sqlite.Walk(ctx, fn)
	default:
		return errors.New("dictionary cannot be walked")
	}
}

// formatCommands renders a command list on one line.
func formatCommands(list commandList) string {
	parts := make([]string, 0, len(list))
	for _, c := range list {
		if e, ok := c.EngineValue(); ok {
			parts = append(parts, e.String())
			continue
		}
		o, _ := c.OutputValue()
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ", ")
}
