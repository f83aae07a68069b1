package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/timefmt"
)

type storeFunc func() *store.ProfileStore

func listCmd(profiles storeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			collection, err := profiles().Load(cmd.Context())
			if err != nil {
				return err
			}
			lastUser, err := profiles().LastUser(cmd.Context())
			if err != nil {
				return err
			}
			renderList(cmd.OutOrStdout(), collection, lastUser)
			return nil
		},
	}
}

func showCmd(profiles storeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show saved positions for one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := profiles().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no profile named %q", args[0])
			}
			renderProfile(cmd.OutOrStdout(), args[0], rec)
			return nil
		},
	}
}

func exportCmd(profiles storeFunc) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored profiles blob as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blob, err := profiles().Export(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(blob))
				return err
			}
			return os.WriteFile(out, blob, 0o600)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func importCmd(profiles storeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all stored profiles with the contents of a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, err := profiles().Import(cmd.Context(), blob)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profiles.\n", n)
			return nil
		},
	}
}

func renderList(w io.Writer, collection domain.ProfileCollection, lastUser string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Username", "PIN", "Rate", "Volume", "Files", "Last file", "Updated"})

	for _, name := range slices.Sorted(slices.Values(lo.Keys(collection))) {
		rec := collection[name]
		marker := ""
		if name == lastUser {
			marker = "*"
		}
		t.AppendRow(table.Row{
			marker,
			name,
			lo.Ternary(rec.PIN == "", "no", "yes"),
			lo.CoalesceOrEmpty(rec.PlaybackRate, "-"),
			lo.CoalesceOrEmpty(rec.Volume, "-"),
			len(rec.Progress),
			lo.CoalesceOrEmpty(rec.LastFileName, "-"),
			formatUpdated(lastUpdated(rec)),
		})
	}
	t.Render()
}

func renderProfile(w io.Writer, name string, rec domain.ProfileRecord) {
	fmt.Fprintf(w, "Profile %s", name)
	if rec.LastFileName != "" {
		fmt.Fprintf(w, " (last file: %s)", rec.LastFileName)
	}
	fmt.Fprintln(w)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Position", "Duration", "Progress", "Updated"})

	entries := lo.Entries(rec.Progress)
	slices.SortFunc(entries, func(a, b lo.Entry[string, domain.ProgressEntry]) int {
		return strings.Compare(a.Key, b.Key)
	})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Key,
			timefmt.Format(e.Value.Position),
			lo.Ternary(e.Value.Duration > 0, timefmt.Format(e.Value.Duration), "unknown"),
			fmt.Sprintf("%.0f%%", timefmt.Percent(e.Value.Position, e.Value.Duration)),
			formatUpdated(e.Value.UpdatedAt),
		})
	}
	t.Render()
}

func lastUpdated(rec domain.ProfileRecord) time.Time {
	if len(rec.Progress) == 0 {
		return time.Time{}
	}
	latest := lo.MaxBy(lo.Values(rec.Progress), func(a, b domain.ProgressEntry) bool {
		return a.UpdatedAt.After(b.UpdatedAt)
	})
	return latest.UpdatedAt
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateTime)
}
