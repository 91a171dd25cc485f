package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/chunk"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/index"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/pkg/version"
)

// ErrMissingSearcher is returned by NewServer without a search port.
var ErrMissingSearcher = errors.New("search port is required")

// Searcher ranks a query.
type Searcher interface {
	Rank(ctx context.Context, query string, opts search.Options) ([]search.HybridResult, error)
}

// StatusReporter describes the index.
type StatusReporter interface {
	Status(ctx context.Context) (index.Status, error)
}

// ChunkReader loads stored chunks.
type ChunkReader interface {
	Get(ctx context.Context, id string) (chunk.Chunk, error)
}

// Ports are the collaborators of a Server. Only Search is required.
type Ports struct {
	Search    Searcher
	Status    StatusReporter
	Documents document.Source
	Chunks    ChunkReader

	// Defaults are the ranking options the search tool starts from.
	Defaults search.Options
	Logger   *slog.Logger
}

// Validate checks the required ports.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearcher
	}
	return nil
}

// PortsFromService wires every port to svc.
func PortsFromService(svc *service.Service, logger *slog.Logger) *Ports {
	return &Ports{
		Search:    svc.Ranker,
		Status:    svc.Manager,
		Documents: svc.Source,
		Chunks:    svc.Chunks,
		Defaults:  svc.Ranker.Defaults(),
		Logger:    logger,
	}
}

// Server bridges MCP clients and the hybrid ranker.
type Server struct {
	ports  *Ports
	server *mcp.Server
	logger *slog.Logger
}

// NewServer creates a server with the search and index_status tools and the
// note:// and chunk:// resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	logger := ports.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ports:  ports,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search",
		Description: "Search the user's notes and chat history. Combines keyword and semantic matching " +
			"and returns the best matching passages with their note, section and tags.",
	}, s.handleSearch)

	if s.ports.Status != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_status",
			Description: "Report how many notes are indexed and whether semantic search is available.",
		}, s.handleIndexStatus)
	}
	s.logger.Debug("mcp_tools_registered")
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}

	opts := s.ports.Defaults
	opts.FinalTopK = clampLimit(input.Limit)
	if w := input.LexicalWeight; w != nil {
		if *w < 0 || *w > 1 {
			return nil, SearchOutput{}, NewInvalidParamsError("lexical_weight must be between 0 and 1")
		}
		opts.BM25Weight = *w
	}

	requestID := newRequestID()
	start := time.Now()
	results, err := s.ports.Search.Rank(ctx, query, opts)
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Query: query, Count: len(results), Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, toResultOutput(r))
	}
	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.Int("results", out.Count),
		slog.Duration("duration", time.Since(start)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(out)}},
	}, out, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	st, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	return nil, IndexStatusOutput{
		Ready:    st.Parents > 0,
		Notes:    st.Parents,
		Chunks:   st.Chunks,
		Embedded: st.Embedded,
		Embeddings: EmbeddingInfo{
			Model:          st.Model,
			Dimensions:     st.Dimensions,
			SemanticSearch: st.Dimensions > 0,
		},
		Lexical: LexicalInfo{
			Records:          st.Lexical.Records,
			Terms:            st.Lexical.Terms,
			LastConsolidated: formatTimestamp(st.Lexical.LastConsolidatedAt),
		},
		Issues: st.Issues,
	}, nil
}

// Serve runs the server until ctx is done. transport is "stdio" or "http";
// addr is the listen address for http.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("mcp_server_starting",
		slog.String("transport", transport),
		slog.String("addr", addr))

	var err error
	switch transport {
	case "", "stdio":
		err = s.server.Run(ctx, &mcp.StdioTransport{})
	case "http":
		err = s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, http)", transport)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRequestID creates a short id for log correlation.
func newRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
