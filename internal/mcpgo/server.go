package mcpgo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gather-kitchen/nutrition-label-server/internal/audit"
	"github.com/gather-kitchen/nutrition-label-server/internal/auth"
	"github.com/gather-kitchen/nutrition-label-server/internal/fooddata"
	"github.com/gather-kitchen/nutrition-label-server/internal/label"
	"github.com/gather-kitchen/nutrition-label-server/internal/store"
)

// responseRecorder wraps http.ResponseWriter to capture response details
type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.headerWritten {
		return // Prevent duplicate WriteHeader calls
	}
	r.statusCode = code
	r.headerWritten = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.headerWritten {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytesWritten += n
	return n, err
}

// Server wraps the mark3labs MCP server with authentication
type Server struct {
	mcpServer *server.MCPServer
	labels    *label.Service
	lookup    fooddata.Lookup
	auth      *auth.BearerTokenAuth
	log       *slog.Logger

	// Health check caching to prevent DOS attacks
	healthMu        sync.RWMutex
	lastHealthCheck time.Time
	lastHealthError error
}

// SearchIngredientsResponse represents the response from search_ingredients
type SearchIngredientsResponse struct {
	Found bool            `json:"found"`
	Count int             `json:"count"`
	Foods []fooddata.Food `json:"foods"`
}

// LabelResponse represents a stored record plus its display-ready label
type LabelResponse struct {
	Record *store.Record     `json:"record"`
	Label  []label.LabelLine `json:"label"`
}

// DiscrepanciesResponse represents the response from check_discrepancies
type DiscrepanciesResponse struct {
	Found         bool                `json:"found"`
	Count         int                 `json:"count"`
	Discrepancies []audit.Discrepancy `json:"discrepancies"`
}

// NewServer creates a new MCP server with the mark3labs SDK
func NewServer(labels *label.Service, lookup fooddata.Lookup, authenticator *auth.BearerTokenAuth, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"Nutrition Label MCP Server",
		"1.0.0",
		server.WithToolCapabilities(false), // Tools don't change dynamically
		server.WithRecovery(),              // Recover from panics
		server.WithLogging(),               // Enable logging
	)

	s := &Server{
		mcpServer: mcpServer,
		labels:    labels,
		lookup:    lookup,
		auth:      authenticator,
		log:       logger,
	}

	s.addTools()

	return s
}

// checkHealthWithCache checks health with 10-second caching to prevent DOS attacks
func (s *Server) checkHealthWithCache(ctx context.Context) error {
	const cacheDuration = 10 * time.Second

	s.healthMu.RLock()
	if time.Since(s.lastHealthCheck) < cacheDuration {
		err := s.lastHealthError
		s.healthMu.RUnlock()
		s.log.Debug("Health check: using cached result",
			"cached_error", err != nil,
			"cache_age", time.Since(s.lastHealthCheck))
		return err
	}
	s.healthMu.RUnlock()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	// Double-check in case another goroutine updated while waiting for write lock
	if time.Since(s.lastHealthCheck) < cacheDuration {
		return s.lastHealthError
	}

	s.log.Debug("Health check: performing lookup check")
	err := s.lookup.HealthCheck(ctx)
	s.lastHealthCheck = time.Now()
	s.lastHealthError = err

	return err
}

func (s *Server) addTools() {
	analyzeTool := mcp.NewTool("analyze_recipe",
		mcp.WithDescription("Analyze a recipe and compute its nutrition label. The first line is the dish name, every following line is one ingredient (e.g. '2 cups flour'). A parenthetical ingredient list turns a line into a nested sub-recipe. Returns the saved record ID, the per-ingredient resolution detail and the computed label."),
		mcp.WithString("recipe_text",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Multi-line recipe text. Required and must be a non-empty string."),
		),
		mcp.WithOutputSchema[label.Analysis](),
	)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeRecipe)

	searchTool := mcp.NewTool("search_ingredients",
		mcp.WithDescription("Search the ingredient database for candidate foods matching a query string."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Ingredient search text. Required and must be a non-empty string."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 5, max: 25)"),
			mcp.DefaultNumber(5),
			mcp.Min(1),
			mcp.Max(25),
		),
		mcp.WithOutputSchema[SearchIngredientsResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchIngredients)

	getTool := mcp.NewTool("get_nutrition_label",
		mcp.WithDescription("Fetch a saved nutrition record by ID, including its display-formatted label rows."),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("The record ID returned by analyze_recipe"),
		),
		mcp.WithOutputSchema[LabelResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(getTool, s.handleGetNutritionLabel)

	overrideTool := mcp.NewTool("apply_manual_override",
		mcp.WithDescription("Manually override nutrient values on a saved record. Requires a reason; the calculated values are preserved alongside the override."),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("The record ID to edit"),
		),
		mcp.WithObject("overrides",
			mcp.Required(),
			mcp.Description("Map of nutrient field name (e.g. 'calories', 'totalFat') to new value"),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Why the values are being overridden. Required and must be a non-empty string."),
		),
		mcp.WithString("edited_by",
			mcp.Description("Who is making the edit"),
		),
		mcp.WithOutputSchema[LabelResponse](),
	)
	s.mcpServer.AddTool(overrideTool, s.handleApplyOverride)

	revertTool := mcp.NewTool("revert_to_calculated",
		mcp.WithDescription("Discard a record's manual override and restore the calculated values."),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("The record ID to revert"),
		),
		mcp.WithString("reason",
			mcp.Description("Optional note on why the override is being discarded"),
		),
		mcp.WithOutputSchema[LabelResponse](),
	)
	s.mcpServer.AddTool(revertTool, s.handleRevert)

	discrepanciesTool := mcp.NewTool("check_discrepancies",
		mcp.WithDescription("Compare a record's displayed values against its calculated values and report fields that diverge beyond tolerance."),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("The record ID to check"),
		),
		mcp.WithOutputSchema[DiscrepanciesResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(discrepanciesTool, s.handleCheckDiscrepancies)
}

func (s *Server) handleAnalyzeRecipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipeText, err := request.RequireString("recipe_text")
	if err != nil {
		s.log.Warn("handleAnalyzeRecipe: Missing 'recipe_text' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'recipe_text': %v", err)), nil
	}

	analysis, err := s.labels.AnalyzeRecipe(ctx, recipeText)
	if err != nil {
		s.log.Error("Recipe analysis failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	return structuredResult(s.log, analysis)
}

func (s *Server) handleSearchIngredients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		s.log.Warn("handleSearchIngredients: Missing 'query' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'query': %v", err)), nil
	}

	limit := int(request.GetFloat("limit", 5.0))
	if limit <= 0 {
		limit = 5
	}
	if limit > 25 {
		limit = 25
	}

	s.log.Debug("MCP SearchIngredients called", "query", query, "limit", limit)

	foods, err := s.lookup.SearchFoods(ctx, query, limit)
	if err != nil {
		s.log.Error("Ingredient search failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	return structuredResult(s.log, SearchIngredientsResponse{
		Found: len(foods) > 0,
		Count: len(foods),
		Foods: foods,
	})
}

func (s *Server) handleGetNutritionLabel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := request.RequireString("record_id")
	if err != nil {
		s.log.Warn("handleGetNutritionLabel: Missing 'record_id' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'record_id': %v", err)), nil
	}

	record, err := s.labels.GetRecord(recordID)
	if err != nil {
		s.log.Warn("Record fetch failed", "record_id", recordID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Fetch failed: %v", err)), nil
	}

	return structuredResult(s.log, LabelResponse{
		Record: record,
		Label:  s.labels.FormatLabel(record),
	})
}

func (s *Server) handleApplyOverride(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := request.RequireString("record_id")
	if err != nil {
		s.log.Warn("handleApplyOverride: Missing 'record_id' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'record_id': %v", err)), nil
	}

	reason, err := request.RequireString("reason")
	if err != nil {
		s.log.Warn("handleApplyOverride: Missing 'reason' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'reason': %v", err)), nil
	}

	rawOverrides, ok := request.GetArguments()["overrides"].(map[string]any)
	if !ok || len(rawOverrides) == 0 {
		s.log.Warn("handleApplyOverride: Missing or empty 'overrides' parameter")
		return mcp.NewToolResultError("Parameter 'overrides' must be a non-empty object of nutrient field to value"), nil
	}

	overrides := make(map[string]string, len(rawOverrides))
	for field, value := range rawOverrides {
		switch v := value.(type) {
		case string:
			overrides[field] = v
		case float64:
			overrides[field] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Unsupported value for field %q: %v", field, value)), nil
		}
	}

	record, err := s.labels.ApplyOverride(recordID, audit.OverrideRequest{
		Overrides: overrides,
		Reason:    reason,
		EditedBy:  request.GetString("edited_by", ""),
	})
	if err != nil {
		s.log.Warn("Manual override rejected", "record_id", recordID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Override failed: %v", err)), nil
	}

	return structuredResult(s.log, LabelResponse{
		Record: record,
		Label:  s.labels.FormatLabel(record),
	})
}

func (s *Server) handleRevert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := request.RequireString("record_id")
	if err != nil {
		s.log.Warn("handleRevert: Missing 'record_id' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'record_id': %v", err)), nil
	}

	record, err := s.labels.Revert(recordID, request.GetString("reason", ""))
	if err != nil {
		s.log.Warn("Revert failed", "record_id", recordID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Revert failed: %v", err)), nil
	}

	return structuredResult(s.log, LabelResponse{
		Record: record,
		Label:  s.labels.FormatLabel(record),
	})
}

func (s *Server) handleCheckDiscrepancies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := request.RequireString("record_id")
	if err != nil {
		s.log.Warn("handleCheckDiscrepancies: Missing 'record_id' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'record_id': %v", err)), nil
	}

	discrepancies, err := s.labels.CheckDiscrepancies(recordID)
	if err != nil {
		s.log.Warn("Discrepancy check failed", "record_id", recordID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Discrepancy check failed: %v", err)), nil
	}

	return structuredResult(s.log, DiscrepanciesResponse{
		Found:         len(discrepancies) > 0,
		Count:         len(discrepancies),
		Discrepancies: discrepancies,
	})
}

// structuredResult returns both structured content and a JSON text fallback
// for maximum client compatibility.
func structuredResult(log *slog.Logger, response any) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(response, string(responseJSON)), nil
}

// ServeHTTP serves the MCP server over HTTP with authentication
func (s *Server) ServeHTTP(addr string) error {
	mux := http.NewServeMux()

	// Health endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Use cached health check to prevent DOS attacks
		ctx := r.Context()
		if err := s.checkHealthWithCache(ctx); err != nil {
			s.log.Error("Health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "healthy",
		})
	})

	// Create the streamable HTTP server
	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true), // Stateless for better client compatibility
	)

	// MCP endpoint with authentication and enhanced error logging
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovery := recover(); recovery != nil {
				s.log.Error("MCP endpoint panic recovered",
					"panic", recovery,
					"method", r.Method,
					"url", r.URL.String(),
					"remote_addr", r.RemoteAddr)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			}
		}()

		s.log.Debug("MCP request received",
			"method", r.Method,
			"url", r.URL.String(),
			"content_type", r.Header.Get("Content-Type"),
			"content_length", r.ContentLength,
			"remote_addr", r.RemoteAddr)

		// Check authentication for all non-health endpoints
		if !s.auth.IsAuthorized(r) {
			s.auth.SetUnauthorizedHeaders(w)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			s.log.Warn("Unauthorized MCP request", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
			return
		}

		// Create a custom ResponseWriter to capture response details
		recorder := &responseRecorder{ResponseWriter: w}

		// Forward to the streamable HTTP server
		streamableServer.ServeHTTP(recorder, r)

		s.log.Debug("MCP response sent",
			"status_code", recorder.statusCode,
			"response_size", recorder.bytesWritten,
			"content_type", recorder.Header().Get("Content-Type"))
	})

	s.log.Info("Starting MCP server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// ServeStdio serves the MCP server over stdio (no auth required for local use)
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}
