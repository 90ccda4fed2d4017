package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sha1n/mcp-symdex-server/internal/app"
	"github.com/sha1n/mcp-symdex-server/internal/docindex"
	"github.com/sha1n/mcp-symdex-server/internal/searchdata"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats of the lookup command
const (
	outputText = "text"
	outputYAML = "yaml"
)

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Sync and index the documentation sources once, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runIndex(ctx, cmd)
		},
	}
	app.RegisterDocsFlags(cmd.Flags())
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command) error {
	params := app.DefaultRunParams()
	settings, err := params.LoadSettings(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	// The command exists to index; the server-side toggle does not apply.
	settings.Docs.Enabled = true
	settings.Cache.Enabled = false
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app.SetupLogging()
	docs, err := app.NewDocsComponents(ctx, settings, nil)
	if err != nil {
		return err
	}
	defer docs.Close()

	return writeIndexSummary(cmd.OutOrStdout(), docs.Service.Manifest())
}

func writeIndexSummary(w io.Writer, m *docindex.Manifest) error {
	for _, id := range m.SourceIDs() {
		state, _ := m.State(id)
		_, _ = fmt.Fprintf(w, "%s\t%d entries\t%s\n", docindex.SourceIDToDisplay(id), state.EntryCount, shortRevision(state.LastRevision))
	}
	_, _ = fmt.Fprintf(w, "total\t%d entries\n", m.TotalEntries())

	errs := m.Errors()
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, 0, len(errs))
	for _, id := range m.SourceIDs() {
		if msg, ok := errs[id]; ok {
			joined = append(joined, fmt.Errorf("%s: %s", docindex.SourceIDToDisplay(id), msg))
		}
	}
	return errors.Join(joined...)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func newLookupCommand() *cobra.Command {
	var (
		dir    string
		prefix bool
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "lookup <key>",
		Short: "Look up a symbol in the search data under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.OutOrStdout(), cmd.ErrOrStderr(), dir, args[0], prefix, limit, output)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Documentation directory to read search fragments from")
	cmd.Flags().BoolVar(&prefix, "prefix", false, "List keys starting with the given key")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries for prefix listing")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text or yaml")
	return cmd
}

func runLookup(out, errOut io.Writer, dir, key string, prefix bool, limit int, output string) error {
	if output != outputText && output != outputYAML {
		return fmt.Errorf("unknown output format %q, expected %s or %s", output, outputText, outputYAML)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	fragments, err := docindex.NewIndexer("", docindex.NewFragmentFilter(0)).Fragments(root)
	if err != nil {
		return err
	}
	if len(fragments) == 0 {
		return fmt.Errorf("no search fragments found under %s", root)
	}

	table, errs := docindex.LoadTable(root, fragments)
	for _, e := range errs {
		_, _ = fmt.Fprintf(errOut, "warning: %v\n", e)
	}

	var entries []searchdata.Entry
	if prefix {
		entries = table.Prefix(key, limit)
	} else {
		entries = table.Lookup(key)
	}
	if len(entries) == 0 {
		return fmt.Errorf("no symbol found for key: %s", key)
	}

	if output == outputYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode entries: %w", err)
		}
		return enc.Close()
	}

	for _, e := range entries {
		_, _ = fmt.Fprintf(out, "%s (%s)\n", e.Label, e.RawKey)
		for _, ref := range e.Refs {
			_, _ = fmt.Fprintf(out, "  [%s] %s", ref.Kind(), ref.URL())
			if ref.Scope != "" {
				_, _ = fmt.Fprintf(out, "  %s", ref.Scope)
			}
			_, _ = fmt.Fprintln(out)
		}
	}
	return nil
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file...>",
		Short: "Parse and validate search data fragments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args)
		},
	}
}

// runValidate checks every fragment on its own, then checks that the valid
// ones do not share raw keys, as fragments of one generated table must not.
func runValidate(out io.Writer, files []string) error {
	var (
		errs   []error
		tables []*searchdata.Table
	)
	for _, path := range files {
		table, err := searchdata.ParseFile(path)
		if err != nil {
			_, _ = fmt.Fprintf(out, "FAIL\t%s\n", path)
			errs = append(errs, err)
			continue
		}
		if err := table.Validate(); err != nil {
			_, _ = fmt.Fprintf(out, "FAIL\t%s\n", path)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		tables = append(tables, table)
		_, _ = fmt.Fprintf(out, "ok\t%s\t%d entries\n", path, table.Len())
	}
	if len(tables) > 1 {
		if _, err := searchdata.Concat(tables...); err != nil {
			_, _ = fmt.Fprintf(out, "FAIL\tfragments overlap\n")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
