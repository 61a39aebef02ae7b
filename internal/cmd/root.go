package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gather-kitchen/nutrition-label-server/internal/auth"
	"github.com/gather-kitchen/nutrition-label-server/internal/config"
	"github.com/gather-kitchen/nutrition-label-server/internal/dataset"
	"github.com/gather-kitchen/nutrition-label-server/internal/fooddata"
	"github.com/gather-kitchen/nutrition-label-server/internal/label"
	"github.com/gather-kitchen/nutrition-label-server/internal/mcpgo"
	"github.com/gather-kitchen/nutrition-label-server/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nutrition-label-server",
	Short: "Recipe nutrition label MCP server",
	Long: `Nutrition Label Server computes FDA-style nutrition labels from free-text
recipes, using the USDA FoodData Central dataset for ingredient data.

The server operates in three modes:

1. STDIO Mode (--stdio): For local Claude Desktop integration
   - Uses stdio pipes for communication
   - No authentication required
   - Perfect for local development and Claude Desktop

2. HTTP Mode (default): For remote deployment over the internet
   - Exposes HTTP endpoints with JSON-RPC 2.0
   - Requires Bearer token authentication (except /health)
   - Ideal for shared/remote MCP server deployments

3. Fetch Database Mode (--fetch-db): Download dataset and exit
   - Downloads/updates the FoodData Central Parquet snapshot
   - Checks if the local snapshot is up-to-date with remote
   - Exits after download completion (does not start server)
   - Useful for pre-populating the snapshot cache

Available MCP Tools:
- analyze_recipe: Parse a recipe and compute its nutrition label
- search_ingredients: Search the ingredient database
- get_nutrition_label: Fetch a saved record with formatted label rows
- apply_manual_override: Override nutrient values with an audit trail
- revert_to_calculated: Discard an override
- check_discrepancies: Compare displayed vs calculated values

Ingredient lookups go to a local DuckDB snapshot by default; set
FDC_API_KEY to query the FoodData Central API directly instead.

Authentication (HTTP Mode Only):
Bearer token authentication is required for all MCP endpoints except /health.
Use the AUTH_TOKEN environment variable to set the token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fetchDB, _ := cmd.Flags().GetBool("fetch-db")
		if fetchDB {
			return runFetchDBMode(cmd, args)
		}

		stdio, _ := cmd.Flags().GetBool("stdio")
		if stdio {
			return runStdioMode(cmd, args)
		}
		return runHTTPMode(cmd, args)
	},
}

func init() {
	rootCmd.Flags().Bool("stdio", false, "Run in stdio mode for local Claude Desktop integration (default: HTTP mode for remote deployment)")
	rootCmd.Flags().Bool("fetch-db", false, "Fetch the dataset snapshot and exit (useful for downloading without starting the server)")
}

// runFetchDBMode fetches the dataset snapshot and exits
func runFetchDBMode(cmd *cobra.Command, args []string) error {
	logger := config.NewTextLogger(os.Stdout)
	cfg := config.Load()

	logger.Info("🗄️  Starting snapshot fetch",
		"mode", "fetch-db",
		"description", "Download and cache the FoodData Central snapshot",
		"target_dir", filepath.Dir(cfg.ParquetPath))

	dataManager := dataset.NewManager(cfg, logger)

	ctx := context.Background()
	if err := dataManager.EnsureSnapshot(ctx); err != nil {
		logger.Error("Failed to fetch snapshot", "error", err)
		return err
	}

	logger.Info("✅ Snapshot fetch completed successfully",
		"parquet_path", cfg.ParquetPath,
		"metadata_path", cfg.MetadataPath)

	return nil
}

// runStdioMode runs the MCP server in stdio mode for Claude Desktop
func runStdioMode(cmd *cobra.Command, args []string) error {
	// Use a logger that writes to stderr to avoid interfering with stdio MCP communication
	logger := config.NewLogger(true)
	cfg := config.Load()

	logger.Info("🔌 Starting Nutrition Label MCP Server in STDIO mode",
		"mode", "stdio",
		"description", "Local MCP server for Claude Desktop integration",
		"auth", "not required for stdio mode",
		"transport", "stdio pipes")

	mcpSrv, cleanup, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpSrv.ServeStdio()
}

// runHTTPMode runs the MCP server in HTTP mode for remote deployment
func runHTTPMode(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(false)
	cfg := config.Load()

	logger.Info("🌐 Starting Nutrition Label MCP Server in HTTP mode",
		"mode", "http",
		"description", "Remote MCP server with API key authentication",
		"auth", "Bearer token required (except /health endpoint)",
		"transport", "HTTP/JSON-RPC 2.0",
		"port", cfg.Port)

	mcpSrv, cleanup, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpSrv.ServeHTTP(":" + cfg.Port)
}

// buildServer wires the food lookup, record store and label service into an
// MCP server. The snapshot is only fetched when lookups run against the
// local DuckDB engine.
func buildServer(cfg *config.Config, logger *slog.Logger) (*mcpgo.Server, func(), error) {
	ctx := context.Background()

	if !cfg.UseRemoteLookup() && os.Getenv("FOODDATA_MOCK") != "true" {
		dataManager := dataset.NewManager(cfg, logger)
		if err := dataManager.EnsureSnapshot(ctx); err != nil {
			logger.Error("Failed to ensure snapshot", "error", err)
			return nil, nil, err
		}
	}

	lookup, err := fooddata.NewLookup(cfg, logger)
	if err != nil {
		logger.Error("Failed to create food lookup", "error", err)
		return nil, nil, err
	}

	if err := lookup.HealthCheck(ctx); err != nil {
		logger.Error("Food lookup health check failed", "error", err)
		lookup.Close()
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0755); err != nil {
		logger.Error("Failed to create store directory", "error", err)
		lookup.Close()
		return nil, nil, err
	}
	recordStore, err := store.New(cfg.StorePath)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		lookup.Close()
		return nil, nil, err
	}

	labels := label.NewService(lookup, recordStore, cfg, logger)
	authenticator := auth.NewBearerTokenAuth(cfg.AuthToken)
	mcpSrv := mcpgo.NewServer(labels, lookup, authenticator, logger)

	cleanup := func() {
		recordStore.Close()
		lookup.Close()
	}
	return mcpSrv, cleanup, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// Run is the main entry point for the CLI application
func Run() error {
	return Execute()
}
