package main

import (
	"encoding/hex"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stembed/internal/dictionary/bindict"
	"stembed/internal/stroke"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dict, err := a.openDictionary(ctx, a.cfg.Dictionary)
			if err != nil {
				return err
			}
			defer dict.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Path:\t%s\n", dict.path)
			fmt.Fprintf(w, "Type:\t%s\n", dict.kind)
			fmt.Fprintf(w, "Layout:\t%s\n", a.cfg.Layout)
			fmt.Fprintf(w, "Longest outline:\t%d\n", dict.LongestOutlineLength())

			switch {
			case dict.binary != nil:
				sum, err := bindict.Fingerprint(ctx, dict.file)
				if err != nil {
					return err
				}
				s, err := dict.binary.Inspect(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Fingerprint:\tblake2b-256:%s\n", hex.EncodeToString(sum[:]))
				fmt.Fprintf(w, "Entries:\t%d\n", s.Entries)
				fmt.Fprintf(w, "Buckets used:\t%d of %d (%.2f%%)\n", s.UsedBuckets, bindict.HashTableSize,
					100*float64(s.UsedBuckets)/float64(bindict.HashTableSize))
				fmt.Fprintf(w, "Longest chain:\t%d\n", s.LongestChain)
				fmt.Fprintf(w, "Longest stored outline:\t%d\n", s.LongestOutline)
				fmt.Fprintf(w, "Region bytes:\t%d\n", s.RegionBytes)

			case dict.sqlite != nil:
				count, err := dict.sqlite.Count(ctx)
				if err != nil {
					return err
				}
				longest, err := dict.sqlite.LongestStored(ctx)
				if err != nil {
					return err
				}
				version, err := dict.sqlite.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Entries:\t%d\n", count)
				fmt.Fprintf(w, "Longest stored outline:\t%d\n", longest)
				fmt.Fprintf(w, "Schema version:\t%d\n", version)
			}
			return w.Flush()
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "List every dictionary entry",
		Long: `Print one line per entry: the outline, a tab, then its commands.
Binary dictionaries list entries in bucket order, SQLite ones by outline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := a.cfg.Dictionary
			dc.CacheSize = 0
			dict, err := a.openDictionary(cmd.Context(), dc)
			if err != nil {
				return err
			}
			defer dict.Close()

			out := cmd.OutOrStdout()
			return dict.walk(cmd.Context(), func(o stroke.Outline, list commandList) error {
				_, err := fmt.Fprintf(out, "%s\t%s\n", o, formatCommands(list))
				return err
			})
		},
	}
}
