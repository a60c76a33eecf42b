package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

func indexCmd() *cobra.Command {
	var (
		dryRun    bool
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "index <export.jsonl>",
		Short: "Backfill the index from a message export (one JSON message event per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, closeEngine, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer closeEngine()
			engine.SetDryRun(dryRun)

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer f.Close()

			ctx := cmd.Context()
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
			line := 0
			for scanner.Scan() {
				line++
				if len(scanner.Bytes()) == 0 {
					continue
				}
				var ev model.RawMessageEvent
				if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				if err := engine.Ingest(ctx, ev); err != nil {
					return fmt.Errorf("line %d (%s): %w", line, ev.ID, err)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read export: %w", err)
			}

			stats := engine.Stats()
			mode := "indexed"
			if dryRun {
				mode = "would index"
			}
			fmt.Printf("%s %d of %d messages (%d skipped)\n", mode, stats.Indexed, stats.Processed, stats.Skipped)

			if showStats && !dryRun {
				printCorpusStats(engine)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and count without writing anything")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print corpus statistics after indexing")
	return cmd
}
