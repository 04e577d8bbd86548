package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cuecast.ai/internal/names"
	"cuecast.ai/internal/persistence/indexdb"
)

var dbPath string

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Manage the SQLite copy of the display-name table",
}

var namesImportCmd = &cobra.Command{
	Use:   "import <names.json>",
	Short: "Replace the table in --db with the JSON table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := names.LoadJSON(args[0])
		if err != nil {
			return fmt.Errorf("load names: %w", err)
		}
		db, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()
		if err := db.ImportNames(cmd.Context(), t); err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if logger != nil {
			logger.Info("names imported", zap.String("db", dbPath), zap.Int("entries", len(t)))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d names into %s\n", len(t), dbPath)
		return nil
	},
}

var namesLookupCmd = &cobra.Command{
	Use:   "lookup <function-name>",
	Short: "Print the stored entry and the resolved display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := indexdb.OpenSQLiteReader(dbPath)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()

		name := strings.TrimSpace(args[0])
		entry, found, err := db.LookupName(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("lookup: %w", err)
		}
		t, err := db.LoadNames(cmd.Context())
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		resp := struct {
			Name    string      `json:"name"`
			Found   bool        `json:"found"`
			Entry   names.Entry `json:"entry"`
			Display struct {
				ZH string `json:"zh"`
				EN string `json:"en"`
			} `json:"display"`
		}{Name: name, Found: found, Entry: entry}
		resp.Display.ZH = names.NewResolver(t, names.LangZH, nil).Resolve(name)
		resp.Display.EN = names.NewResolver(t, names.LangEN, nil).Resolve(name)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	},
}

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Query the frame index written by cuecast-server --index",
}

var framesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-action frame, cue and failure counts (one JSON object per line)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := indexdb.OpenSQLiteReader(dbPath)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer db.Close()
		rows, err := db.FrameStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range rows {
			row := struct {
				Action   string `json:"action"`
				Frames   int    `json:"frames"`
				Cues     int    `json:"cues"`
				Failures int    `json:"failures"`
			}{r.Action, r.Frames, r.Cues, r.Failures}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{namesCmd, framesCmd} {
		c.PersistentFlags().StringVar(&dbPath, "db", "./data/cuecast.sqlite", "sqlite db path")
	}
	namesCmd.AddCommand(namesImportCmd, namesLookupCmd)
	framesCmd.AddCommand(framesStatsCmd)
}
