package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/toridasu/internal/config"
	"github.com/hyperjump/toridasu/internal/embedding"
	"github.com/hyperjump/toridasu/internal/indexer"
	"github.com/hyperjump/toridasu/internal/lexical"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/retrieval"
	"github.com/hyperjump/toridasu/internal/storage"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.Storage.BleveIndexPath = filepath.Join(t.TempDir(), "bleve")
	cfg.Chunking = config.ChunkingConfig{MaxChars: 300, OverlapChars: 50, MinChars: 20}

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	lex, err := lexical.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = lex.Close() })

	embedder := embedding.NewMockEmbedder(8)
	logger := zap.NewNop()
	engine := retrieval.NewEngine(store, embedder, lex, logger)
	idx := indexer.NewIndexer(store, lex, cfg.Chunking, logger)
	worker := indexer.NewWorker(store, embedder, cfg.Embedding.BatchSize, logger)
	return NewServer(engine, idx, worker, store, cfg, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func ingestTestDoc(t *testing.T, router http.Handler, fileName, content string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/documents", &models.DocumentInput{
		FileName: fileName,
		Content:  content,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decodeBody(t, rec, &resp)
	return resp["id"]
}

func TestHandleIngestAndGetDocument(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	id := ingestTestDoc(t, router, "manual.txt", strings.Repeat("Operating instructions for the device. ", 15))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get returned %d", rec.Code)
	}
	var doc models.Document
	decodeBody(t, rec, &doc)
	if doc.FileName != "manual.txt" {
		t.Errorf("file name = %q", doc.FileName)
	}
}

func TestHandleIngestEmptyDocument(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/documents", &models.DocumentInput{
		FileName: "void.txt",
		Content:  "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	ingestTestDoc(t, router, "a.txt", "First document about databases.")
	ingestTestDoc(t, router, "b.txt", "Second document about indices.")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var resp struct {
		Documents []*models.Document `json:"documents"`
		Count     int                `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.Documents) != 2 {
		t.Errorf("expected 2 documents, got %+v", resp)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	id := ingestTestDoc(t, router, "temp.txt", "Document that will be removed shortly.")

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandleRetrieve(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	ingestTestDoc(t, router, "kb.txt", "The blue whale is the largest living animal.")

	// Generate embeddings so the vector path has data.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/embeddings/generate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("embeddings generate returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/retrieve", &models.RetrievalQuery{
		Query: "largest animal",
		Mode:  models.ModeKeyword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve returned %d: %s", rec.Code, rec.Body.String())
	}
	var result models.RetrievalResult
	decodeBody(t, rec, &result)
	if len(result.Chunks) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(result.Chunks))
	}
	if result.Chunks[0].DocumentName != "kb.txt" {
		t.Errorf("document name = %q", result.Chunks[0].DocumentName)
	}
	if result.Metrics.ResultCount != 1 {
		t.Errorf("metrics result count = %d", result.Metrics.ResultCount)
	}
}

func TestHandleRetrieveValidation(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/retrieve", &models.RetrievalQuery{Query: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query should be 400, got %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/retrieve", &models.RetrievalQuery{
		Query: "x", Mode: "psychic",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode should be 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrieve", strings.NewReader("{not json"))
	recRaw := httptest.NewRecorder()
	router.ServeHTTP(recRaw, req)
	if recRaw.Code != http.StatusBadRequest {
		t.Errorf("malformed body should be 400, got %d", recRaw.Code)
	}
}

func TestHandleRetrieveWithTrace(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	ingestTestDoc(t, router, "traced.txt", "Tracing explains why a chunk was selected.")
	doJSON(t, router, http.MethodPost, "/api/v1/embeddings/generate", nil)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/retrieve/trace", &models.RetrievalQuery{
		Query: "chunk selected",
		Mode:  models.ModeKeyword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("trace returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Result *models.RetrievalResult `json:"result"`
		Trace  *models.PipelineTrace   `json:"trace"`
	}
	decodeBody(t, rec, &resp)
	if resp.Trace == nil {
		t.Fatal("trace missing from response")
	}
	if len(resp.Trace.Stages) == 0 {
		t.Error("trace should include stage timings")
	}
	if len(resp.Trace.Candidates) == 0 {
		t.Error("trace should include candidates")
	}
	if resp.Trace.FusionFormula == "" {
		t.Error("trace should state the fusion formula")
	}
}

func TestHandleGenerateEmbeddings(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()
	ingestTestDoc(t, router, "emb.txt", strings.Repeat("Text needing an embedding vector. ", 15))

	rec := doJSON(t, router, http.MethodPost, "/api/v1/embeddings/generate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Processed int    `json:"processed"`
		Status    string `json:"status"`
	}
	decodeBody(t, rec, &resp)
	if resp.Processed == 0 || resp.Status != "complete" {
		t.Errorf("unexpected response: %+v", resp)
	}

	// A second run has nothing left to do.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/embeddings/generate", nil)
	decodeBody(t, rec, &resp)
	if resp.Processed != 0 {
		t.Errorf("second run should process 0 chunks, got %d", resp.Processed)
	}
}

func TestHandleHealthAndStatus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}

	ingestTestDoc(t, router, "s.txt", "Status endpoint counts documents and chunks.")
	rec = doJSON(t, router, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d", rec.Code)
	}
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if resp["documents"].(float64) != 1 {
		t.Errorf("documents = %v", resp["documents"])
	}
	if resp["chunks"].(float64) < 1 {
		t.Errorf("chunks = %v", resp["chunks"])
	}
	if _, ok := resp["config"]; !ok {
		t.Error("status should include config")
	}
}

func TestServerStop(t *testing.T) {
	srv := newTestServer(t)
	// Stop before Start is a no-op.
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("stop on unstarted server: %v", err)
	}
}
