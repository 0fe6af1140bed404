// photoproc is the batch photo runner. Stdout is a stream of
// "data: <html>\n\n" events consumed by the web layer; interactive mode asks
// the operator for dates on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
	photoingest "github.com/LPDavidbdeb/court-sub000/internal/ingest/photo"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

var (
	mode        string
	photoTypeID int
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	root := &cobra.Command{
		Use:   "photoproc <source_directory>",
		Short: "Importe un lot de photos dans la banque de preuves",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	root.Flags().StringVar(&mode, "mode", photoingest.ModeAddByPath,
		"add_by_path | add_by_timestamp | add_interactive | clean")
	root.Flags().IntVar(&photoTypeID, "photo-type-id", 0, "photo type id to stamp on imports")

	if err := root.Execute(); err != nil {
		// Unhandled failure: the only non-zero exit.
		log.Fatalf("photoproc: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	sourceDir := ""
	if len(args) > 0 {
		sourceDir = args[0]
	}
	if sourceDir == "" && mode != photoingest.ModeClean {
		return fmt.Errorf("source_directory is required for mode %s", mode)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	proc := photoingest.NewProcessor(s, cfg.Media.Root)
	if mode == photoingest.ModeAddInteractive {
		proc.Prompt = promptDate
	}

	events := make(chan photoingest.Event, 16)
	done := make(chan error, 1)
	go func() {
		_, err := proc.Run(context.Background(), sourceDir, mode, photoTypeID, events)
		done <- err
	}()
	for ev := range events {
		fmt.Printf("data: %s\n\n", ev.HTML)
	}
	return <-done
}

// promptDate reads a YYYY-MM-DD date on stdin; an empty line skips the file.
func promptDate(path string) (*time.Time, error) {
	fmt.Printf("data: <p>Date (AAAA-MM-JJ) pour %s ? (vide = ignorer)</p>\n\n", path)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", line)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", line, err)
	}
	return &t, nil
}
