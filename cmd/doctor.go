package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/waindex/internal/search"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment, configuration, and index health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	fmt.Println("waindex doctor")
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	fmt.Printf("  Config:   %s", configPath)
	if _, err := os.Stat(configPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return nil
	}
	fmt.Printf("  Data dir: %s\n", cfg.DataDir)
	fmt.Printf("  Store:    %s\n", cfg.Store.Path)
	fmt.Printf("  Vectors:  %s\n", cfg.Vector.Dir)
	fmt.Printf("  WhatsApp: enabled=%v session=%s\n", cfg.WhatsApp.Enabled, cfg.WhatsApp.SessionPath)
	fmt.Println()

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		fmt.Printf("  Index open error: %s\n", err)
		return nil
	}
	defer closeEngine()

	printCorpusStats(engine)
	return nil
}

func printCorpusStats(engine *search.Engine) {
	cs, err := engine.CorpusStatsNow()
	if err != nil {
		fmt.Printf("  Stats error: %s\n", err)
		return
	}

	fmt.Println("  Corpus:")
	fmt.Printf("    Messages:  %d live (%d rows total)\n", cs.LiveMessages, cs.TotalRows)
	fmt.Printf("    Vectors:   %d live (%d total)\n", cs.LiveVectors, cs.Vectors)
	if cs.MostRecent > 0 {
		fmt.Printf("    Newest:    %s\n", time.UnixMilli(cs.MostRecent).Format(time.RFC3339))
	}
	if len(cs.Groups) > 0 {
		fmt.Printf("    Chats:     %d\n", len(cs.Groups))
	}
}
