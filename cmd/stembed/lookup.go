package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"stembed/internal/command"
	"stembed/internal/config"
	"stembed/internal/formatter"
	"stembed/internal/stroke"
)

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <outline>",
		Short: "Show what an outline translates to",
		Long: `Look up an outline such as KAT or KAT/-S and print its commands.

An outline without an entry is reported as an error; for a single stroke
the fallback translation is shown as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := stroke.ByName(a.cfg.Layout)
			if err != nil {
				return err
			}
			outline, err := layout.ParseOutline(args[0])
			if err != nil {
				return err
			}

			dict, err := a.openDictionary(cmd.Context(), a.cfg.Dictionary)
			if err != nil {
				return err
			}
			defer dict.Close()

			list, ok := dict.Lookup(cmd.Context(), outline)
			if !ok {
				if len(outline) == 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t(fallback) %s\n",
						outline, formatCommands(dict.FallbackCommands(outline[0])))
				}
				return fmt.Errorf("%s: no entry", outline)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", outline, formatCommands(list))
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		undo       bool
		capNext    bool
		attachNext bool
	)
	cmd := &cobra.Command{
		Use:   "add <outline> [text]",
		Short: "Add an entry to a SQLite dictionary",
		Long: `Add or replace an entry in a SQLite dictionary. Binary dictionaries are
read-only; build them with convert.

Examples:
  stembed add -d main.db KAT cat
  stembed add -d main.db --undo '*'
  stembed add -d main.db --cap-next --attach-next P-P .`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Dictionary.Type != config.DictionarySQLite {
				return errors.New("add needs a sqlite dictionary")
			}
			layout, err := stroke.ByName(a.cfg.Layout)
			if err != nil {
				return err
			}
			outline, err := layout.ParseOutline(args[0])
			if err != nil {
				return err
			}

			list := command.NewList[formatter.Command]()
			if undo {
				list = append(list, command.Engine[formatter.Command](command.UndoPrevious))
			}
			if capNext {
				list = append(list, command.Output(formatter.ChangeCapitalization(formatter.CapitalizationNext)))
			}
			if attachNext {
				list = append(list, command.Output(formatter.ChangeAttachment(formatter.AttachmentNext)))
			}
			if len(args) == 2 {
				list = append(list, command.Output(formatter.Write(args[1])))
			}
			if len(list) == 0 {
				return errors.New("nothing to add: give text or a flag")
			}

			dc := a.cfg.Dictionary
			dc.CacheSize = 0
			dict, err := a.openDictionary(cmd.Context(), dc)
			if err != nil {
				return err
			}
			defer dict.Close()

			if err := dict.sqlite.Put(cmd.Context(), outline, list); err != nil {
				return err
			}
			if len(outline) > dict.LongestOutlineLength() {
				if err := dict.sqlite.SetLongestOutline(cmd.Context(), len(outline)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", outline, formatCommands(list))
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Undo the previous outline")
	cmd.Flags().BoolVar(&capNext, "cap-next", false, "Capitalize the next word")
	cmd.Flags().BoolVar(&attachNext, "attach-next", false, "Attach the next word without a delimiter")
	return cmd
}
