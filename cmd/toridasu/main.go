// Package main is the Toridasu CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/toridasu/internal/cli"
	"github.com/hyperjump/toridasu/internal/config"
	"github.com/hyperjump/toridasu/internal/embedding"
	"github.com/hyperjump/toridasu/internal/indexer"
	"github.com/hyperjump/toridasu/internal/lexical"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/retrieval"
	"github.com/hyperjump/toridasu/internal/server"
	"github.com/hyperjump/toridasu/internal/storage"
	"github.com/hyperjump/toridasu/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/toridasu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "retrieve":
		runRetrieve()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "embed":
		runEmbed()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("toridasu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Worker,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// retrieveArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func retrieveArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printRetrieveUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: toridasu retrieve [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  toridasu retrieve database replication
  toridasu retrieve --mode keyword "replication strategies"
  toridasu retrieve --top-k 10 --min-similarity 0.5 your query
  toridasu retrieve --trace "why did this match"
  toridasu retrieve --output json "query"   # structured JSON for other apps
`)
}

// applyRetrievalDefaults fills unset query knobs from the retrieval section
// of the config, matching what /status reports.
func applyRetrievalDefaults(q *models.RetrievalQuery, cfg *config.Config) {
	if q.TopK == 0 {
		q.TopK = cfg.Retrieval.TopK
	}
	if q.MinSimilarity == 0 {
		q.MinSimilarity = cfg.Retrieval.MinSimilarity
	}
	if q.RRFK == 0 {
		q.RRFK = float64(cfg.Retrieval.RRFK)
	}
	if q.Mode == "" {
		q.Mode = models.Mode(cfg.Retrieval.Mode)
	}
}

func runRetrieve() {
	args := retrieveArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of chunks to return (0 = config default)")
	minSimilarity := fs.Float64("min-similarity", 0, "cosine similarity floor for vector candidates")
	rrfK := fs.Int("rrf-k", 0, "rank fusion constant (0 = config default)")
	mode := fs.String("mode", "", "retrieval mode: vector, keyword, or hybrid (default from config)")
	traceEnabled := fs.Bool("trace", false, "include the pipeline trace in the output")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRetrieveUsage(fs) }
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		printRetrieveUsage(fs)
		os.Exit(1)
	}
	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		printRetrieveUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	query := &models.RetrievalQuery{
		Query:         queryText,
		TopK:          *topK,
		MinSimilarity: *minSimilarity,
		RRFK:          float64(*rrfK),
		Mode:          models.Mode(*mode),
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a Bleve/SQLite lock conflict).
		result, trace, err := retrieveViaHTTP(*serverURL, query, *traceEnabled)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
			os.Exit(1)
		}
		writeRetrieveOutput(result, trace, format)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyRetrievalDefaults(query, cfg)
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if *traceEnabled {
		result, trace, err := components.Engine.RetrieveWithTrace(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
			os.Exit(1)
		}
		writeRetrieveOutput(result, trace, format)
		return
	}
	result, err := components.Engine.Retrieve(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}
	writeRetrieveOutput(result, nil, format)
}

func writeRetrieveOutput(result *models.RetrievalResult, trace *models.PipelineTrace, format cli.OutputFormat) {
	if err := cli.WriteRetrievalResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if trace != nil {
		if err := cli.WriteTrace(os.Stdout, trace, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func retrieveViaHTTP(serverURL string, query *models.RetrievalQuery, withTrace bool) (*models.RetrievalResult, *models.PipelineTrace, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, nil, err
	}
	path := "/api/v1/retrieve"
	if withTrace {
		path = "/api/v1/retrieve/trace"
	}
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if withTrace {
		var out struct {
			Result *models.RetrievalResult `json:"result"`
			Trace  *models.PipelineTrace   `json:"trace"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, nil, fmt.Errorf("decode response: %w", err)
		}
		return out.Result, out.Trace, nil
	}
	var result models.RetrievalResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil, nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	name := fs.String("name", "", "document name (default: base name of the file)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toridasu ingest [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}
	fileName := *name
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	input := &models.DocumentInput{FileName: fileName, Content: string(content)}

	if *serverURL != "" {
		body, _ := json.Marshal(input)
		resp, err := http.Post(*serverURL+"/api/v1/documents", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Printf("Ingest failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(b, &out)
		fmt.Printf("Document ingested: %s\n", out.ID)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	doc, err := components.Indexer.IngestDocument(context.Background(), input)
	if err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s\n", doc.ID)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toridasu delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	if *serverURL != "" {
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+docID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Document deleted: %s\n", docID)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Indexer.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/embeddings/generate", "application/json", nil)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("Embedding generation failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Processed int `json:"processed"`
			Failed    int `json:"failed"`
		}
		_ = json.Unmarshal(b, &out)
		fmt.Printf("Embedded %d chunk(s), %d failed\n", out.Processed, out.Failed)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	var final indexer.ProgressEvent
	for ev := range components.Worker.Run(context.Background()) {
		if !ev.Done {
			fmt.Printf("  embedded %d chunk(s), %d remaining\n", ev.Processed, ev.Remaining)
		}
		final = ev
	}
	if final.Err != nil {
		fmt.Printf("Embedding generation failed: %v\n", final.Err)
		os.Exit(1)
	}
	fmt.Printf("Embedded %d chunk(s), %d failed\n", final.Processed, final.Failed)
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Documents      int64                  `json:"documents"`
	Chunks         int64                  `json:"chunks"`
	EmbeddedChunks int64                  `json:"embedded_chunks"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		embeddedCount, err := components.Storage.CountEmbeddedChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count embedded chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:      docCount,
			Chunks:         chunkCount,
			EmbeddedChunks: embeddedCount,
		}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:        %d\n", status.Documents)
		fmt.Printf("chunks:           %d\n", status.Chunks)
		fmt.Printf("embedded_chunks:  %d\n", status.EmbeddedChunks)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes: %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.ChunkStore
	Embedder embedding.Embedder
	Lexical  lexical.Index
	Engine   *retrieval.Engine
	Indexer  *indexer.Indexer
	Worker   *indexer.Worker
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Lexical != nil {
		_ = c.Lexical.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX model unavailable, using mock embedder", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	lex, err := lexical.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engine := retrieval.NewEngine(store, embedder, lex, logger)
	idx := indexer.NewIndexer(store, lex, cfg.Chunking, logger)
	worker := indexer.NewWorker(store, embedder, cfg.Embedding.BatchSize, logger)

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Lexical:  lex,
		Engine:   engine,
		Indexer:  idx,
		Worker:   worker,
	}, nil
}

func printUsage() {
	fmt.Println(`toridasu - Hybrid retrieval engine for RAG pipelines

Usage:
  toridasu server [flags]            Start the HTTP server
  toridasu retrieve [flags] <query>  Retrieve chunks for a query
  toridasu ingest [flags] <file>     Ingest a document
  toridasu delete [flags] <id>       Delete a document
  toridasu embed [flags]             Generate embeddings for pending chunks
  toridasu status [flags]            Show storage and index status
  toridasu version                   Show version
  toridasu help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/toridasu/config.yaml)
  --debug            Enable debug logging

Retrieve Flags:
  --config string          Config file path (for direct storage mode)
  --server string          Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --top-k int              Number of chunks to return (default from config)
  --min-similarity float   Cosine similarity floor for vector candidates
  --mode string            Retrieval mode: vector, keyword, or hybrid
  --trace                  Include the pipeline trace in the output
  --output string          Output format: text or json (default: text)

Examples:
  toridasu server
  toridasu retrieve "database replication strategies"
  toridasu retrieve --mode keyword --top-k 10 "exact phrase terms"
  toridasu retrieve --trace "why did this chunk match"
  toridasu ingest --name "Operations Manual" manual.txt
  toridasu embed
  toridasu delete doc-123
  toridasu status --output json`)
}
