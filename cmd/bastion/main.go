// Command bastion runs the matching engine process: replaying its journal
// on startup, then serving live traffic over the websocket front end.
// Adapted from the teacher's cmd/main.go, rebuilt around cobra subcommands
// per spec's CLI surface.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bastion/internal/bus"
	"bastion/internal/config"
	"bastion/internal/core"
	"bastion/internal/frontend"
	"bastion/internal/metrics"
)

const (
	defaultMaxSegmentBytes = 64 * 1024 * 1024
	inboxCapacity          = 1024
)

func main() {
	root := &cobra.Command{
		Use:   "bastion",
		Short: "Deterministic limit-order-book matching engine",
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the asset/market config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(replayCmd(&configPath))

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("bastion exited with error")
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Replay the journal, then serve live traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func replayCmd(configPath *string) *cobra.Command {
	var journalPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Dry-run replay a journal directory and print the final state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(*configPath, journalPath)
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "journal directory to replay (defaults to the config's journal_dir)")
	return cmd
}

func runServe(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(settings.JournalDir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}

	book := core.NewBook()
	balances := core.NewBalances(settings.Core)

	reader, err := core.NewRotatingReader(settings.JournalDir, core.FormatBinary)
	if err != nil {
		return fmt.Errorf("open journal for replay: %w", err)
	}
	replayEngine := core.NewEngine(nil, book, balances)
	sequence, err := replayAll(replayEngine, reader)
	reader.Close()
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	log.Info().Uint64("sequence", uint64(sequence)).Msg("replay complete")

	writer, err := core.NewRotatingWriter(settings.JournalDir, core.FormatBinary, defaultMaxSegmentBytes)
	if err != nil {
		return fmt.Errorf("open journal for writing: %w", err)
	}
	defer writer.Close()

	collector := metrics.GetCollector()

	engine := core.NewEngineAt(writer, book, balances, sequence)
	engine.SetMetrics(collector)

	publisher, err := bus.Connect(settings.NatsUrl, "")
	if err != nil {
		log.Warn().Err(err).Msg("event bus unavailable, continuing without trade broadcast")
		publisher = nil
	}
	defer publisher.Close()

	// inbox is the engine's inbound queue: every session goroutine in the
	// frontend pushes onto it, but Run below is the only goroutine that
	// ever calls engine.ProcessMessage, keeping Book/Sequencer/journal
	// writes single-threaded no matter how many clients are connected.
	inbox := core.NewInbox(engine, inboxCapacity)
	inbox.SetMetrics(collector)

	server := frontend.New(settings.ListenAddr, settings.Core, inbox)

	engine.OnTrades(func(trades []core.Trade) {
		server.ReportTrades(trades)
		publisher.Publish(trades)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go inbox.Run(ctx)
	go serveMetrics(settings.MetricsAddr)

	return server.Run(ctx)
}

func runReplay(configPath, journalPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if journalPath == "" {
		journalPath = settings.JournalDir
	}

	book := core.NewBook()
	balances := core.NewBalances(settings.Core)

	reader, err := core.NewRotatingReader(journalPath, core.FormatBinary)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer reader.Close()

	engine := core.NewEngine(nil, book, balances)
	sequence, err := replayAll(engine, reader)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	fmt.Printf("final sequence: %d\n", sequence)
	for _, asset := range settings.Core.Assets() {
		fmt.Printf("asset %s (id=%d)\n", asset.Name, asset.Id)
	}
	return nil
}

// replayAll drains every record off reader through engine.Replay and
// returns the final sequence number reached.
func replayAll(engine *core.Engine, reader *core.RotatingReader) (core.SequenceNumber, error) {
	for {
		msg, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Sequence(), err
		}
		if err := engine.Replay(msg); err != nil {
			return engine.Sequence(), err
		}
	}
	return engine.Sequence(), nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
