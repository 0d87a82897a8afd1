// Package main provides the Mentat CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orvandel/mentat/pkg/config"
	"github.com/orvandel/mentat/pkg/graph"
	"github.com/orvandel/mentat/pkg/mcp"
	"github.com/orvandel/mentat/pkg/mentat"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mentat",
		Short: "Mentat - Reasoning graph and verification cache engine",
		Long: `Mentat stores chains of reasoning as a typed thought graph,
scores every thought with bounded heuristics, and caches claim
verifications with session-scoped TTL deduplication.

Features:
  • Typed thought graph with automatic reciprocal connections
  • Hyperlinks grouping arbitrary sets of thoughts
  • Similarity-driven relation inference (embedding or keyword)
  • Confidence / relevance / quality / reliability scoring
  • Consensus verification status from weighted evidence
  • MCP tool surface over HTTP`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Mentat v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Mentat MCP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("config", "", "Config file path (YAML)")
	serveCmd.Flags().String("data-dir", "./data", "Data directory")
	serveCmd.Flags().String("address", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show graph and cache statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().String("config", "", "Config file path (YAML)")
	statsCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(statsCmd)

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the reasoning graph to a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().String("config", "", "Config file path (YAML)")
	exportCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON snapshot, replacing the current graph",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().String("config", "", "Config file path (YAML)")
	importCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(importCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print a bcrypt hash for the MCP bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := mcp.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(cmd *cobra.Command) (*mentat.DB, *config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("data-dir") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := mentat.Open(cfg.DataDir, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	serverConfig := mcp.DefaultServerConfig()
	if cfg.MCP.Address != "" {
		serverConfig.Address = cfg.MCP.Address
	}
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		serverConfig.Address = addr
	}
	serverConfig.TokenHash = cfg.MCP.TokenHash

	fmt.Printf("🚀 Starting Mentat v%s\n", version)
	fmt.Printf("   Data directory: %s\n", cfg.DataDir)
	fmt.Printf("   Storage:        %s\n", cfg.StorageBackend)
	fmt.Printf("   MCP endpoint:   http://%s/mcp\n", serverConfig.Address)
	if serverConfig.TokenHash == "" {
		fmt.Println("⚠️  Authentication disabled")
	}
	fmt.Println()

	server := mcp.NewServer(db, serverConfig)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	fmt.Println("\n🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, _, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	stats := db.GetStats()
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	db, _, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := db.ExportGraphJSON()
	if err != nil {
		return fmt.Errorf("exporting graph: %w", err)
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	fmt.Printf("✅ Exported %d thoughts to %s\n", db.GetStats().ThoughtCount, args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var export graph.EnrichedExport
	if err := json.Unmarshal(data, &export); err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	db, _, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if !db.ImportGraph(&export) {
		return fmt.Errorf("snapshot rejected: invalid thoughts or relations")
	}
	fmt.Printf("✅ Imported %d thoughts from %s\n", len(export.Thoughts), args[0])
	return nil
}
