package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"news-reread/internal/output"
	"news-reread/internal/store"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show display preferences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs := application.KV.Preferences()
		t := output.NewTable(printer.Out(), []string{"Preference", "Value"})
		t.AddRow(store.PrefShowURL, strconv.FormatBool(prefs.ShowURL))
		t.AddRow(store.PrefShowSummary, strconv.FormatBool(prefs.ShowSummary))
		t.AddRow(store.PrefShowMemo, strconv.FormatBool(prefs.ShowMemo))
		t.AddRow(store.PrefLocalMode, strconv.FormatBool(prefs.LocalMode))
		return t.Render()
	},
}

var prefsSetCmd = &cobra.Command{
	Use:       "set <name> <true|false>",
	Short:     "Change a display preference",
	Args:      cobra.ExactArgs(2),
	ValidArgs: prefKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(prefKeys(), args[0]) {
			return fmt.Errorf("unknown preference %q (use one of %s)", args[0], strings.Join(prefKeys(), ", "))
		}
		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return err
		}
		if err := application.KV.SetPreference(args[0], value); err != nil {
			return err
		}
		printer.Success("%s = %t", args[0], value)
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
