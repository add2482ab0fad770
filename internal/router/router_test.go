// router_test.go — End-to-end tests through the full middleware stack.
//
// Go Pattern: httptest.NewRecorder plus engine.ServeHTTP exercises routing,
// middleware and handlers exactly as a live server would, minus the socket.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf/pdftest"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/summary"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker/workertest"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

const testSecret = "router-test-secret"

type bridge struct {
	t      *testing.T
	engine *gin.Engine
	loop   *worker.Loop
	clock  *workertest.ManualClock
}

func newBridge(t *testing.T, maxUpload int64) *bridge {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := workertest.NewManualClock()
	loop := worker.NewLoop(64, clock)
	loop.Start()
	t.Cleanup(loop.Stop)

	pipeline, err := pdfservice.NewPipeline(pdfservice.Options{WorkerURL: "chrome-extension://abc/pdf.worker.min.js"})
	if err != nil {
		t.Fatalf("NewPipeline error: %v", err)
	}
	sess := session.New(loop, pipeline, summary.NewCatalog("en"), session.Options{
		MaxUploadBytes: maxUpload,
		ReplyDelay:     2 * time.Second,
		AnalysisDelay:  3 * time.Second,
	})
	h := handlers.NewHandler(sess, loop, handlers.Options{
		Version:        "test",
		WorkerURL:      pipeline.WorkerURL(),
		Locale:         "en",
		MaxUploadBytes: maxUpload,
		SessionSecret:  testSecret,
	})

	engine, limiter := Setup(h, testSecret, Options{})
	t.Cleanup(limiter.Stop)

	return &bridge{t: t, engine: engine, loop: loop, clock: clock}
}

func (b *bridge) do(method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "127.0.0.1:40000"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, req)
	return w
}

func (b *bridge) upload(name string, data []byte) *httptest.ResponseRecorder {
	b.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		b.t.Fatalf("CreateFormFile error: %v", err)
	}
	part.Write(data)
	mw.Close()
	return b.do(http.MethodPost, "/api/v1/session/document", "", body.Bytes(), mw.FormDataContentType())
}

func (b *bridge) open(name string, data []byte) string {
	b.t.Helper()
	w := b.upload(name, data)
	if w.Code != http.StatusCreated {
		b.t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SelectDocumentResponse
	decode(b.t, w, &resp)
	if resp.Token == "" {
		b.t.Fatal("upload returned no token")
	}
	return resp.Token
}

func (b *bridge) waitLoaded(token string) models.SessionSnapshot {
	b.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var snap models.SessionSnapshot
		decode(b.t, b.do(http.MethodGet, "/api/v1/session", token, nil, ""), &snap)
		if !snap.Loading {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.t.Fatal("document never finished loading")
	return models.SessionSnapshot{}
}

func (b *bridge) advance(d time.Duration) {
	b.clock.Advance(d)
	workertest.Settle(context.Background(), b.loop)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decode(t, w, &resp)
	return resp.Error
}

func TestPublicRoutes(t *testing.T) {
	b := newBridge(t, 0)

	w := b.do(http.MethodGet, "/api/v1/health", "", nil, "")
	var health models.HealthResponse
	decode(t, w, &health)
	if w.Code != http.StatusOK || health.EventLoop != "running" || health.Version != "test" {
		t.Errorf("health = %d %+v", w.Code, health)
	}

	w = b.do(http.MethodGet, "/api/v1/viewer/config", "", nil, "")
	var cfg models.ViewerConfigResponse
	decode(t, w, &cfg)
	if cfg.WorkerURL != "chrome-extension://abc/pdf.worker.min.js" || cfg.MinZoom != 50 || cfg.MaxZoom != 200 || cfg.ZoomStep != 25 {
		t.Errorf("viewer config = %+v", cfg)
	}

	w = b.do(http.MethodGet, "/api/docs/openapi.yaml", "", nil, "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("openapi:")) {
		t.Errorf("openapi.yaml: %d", w.Code)
	}

	w = b.do(http.MethodGet, "/api/docs", "", nil, "")
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("/api/docs/openapi.yaml")) {
		t.Errorf("docs page: %d", w.Code)
	}
}

func TestSessionRoutesNeedToken(t *testing.T) {
	b := newBridge(t, 0)
	if w := b.do(http.MethodGet, "/api/v1/session", "", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUploadErrors(t *testing.T) {
	b := newBridge(t, 4096)

	w := b.upload("notes.pdf", []byte("plain text, not a pdf"))
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != "invalid_pdf" {
		t.Errorf("invalid upload: %d %s", w.Code, w.Body.String())
	}

	w = b.upload("huge.pdf", bytes.Repeat([]byte("x"), 8192))
	if w.Code != http.StatusRequestEntityTooLarge || errorCode(t, w) != "file_too_large" {
		t.Errorf("oversized upload: %d %s", w.Code, w.Body.String())
	}

	w = b.do(http.MethodPost, "/api/v1/session/document", "", []byte("{}"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file: %d", w.Code)
	}
}

func TestViewerFlow(t *testing.T) {
	b := newBridge(t, 0)
	data := pdftest.Build("First page", "Second page")
	token := b.open("report.pdf", data)

	// Page 1 at 100% is US Letter at 612x792.
	w := b.do(http.MethodGet, "/api/v1/session/page", token, nil, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("page: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() != 612 || img.Bounds().Dy() != 792 {
		t.Errorf("page size = %v", img.Bounds())
	}

	var vs models.ViewerState
	decode(t, b.do(http.MethodPost, "/api/v1/session/zoom/in", token, nil, ""), &vs)
	if vs.Zoom != 125 || vs.Scale != 1.25 {
		t.Errorf("after zoom in: %+v", vs)
	}
	decode(t, b.do(http.MethodPost, "/api/v1/session/page", token, []byte(`{"page":2}`), "application/json"), &vs)
	if vs.CurrentPage != 2 || vs.Zoom != 125 {
		t.Errorf("after page 2: %+v", vs)
	}

	w = b.do(http.MethodGet, "/api/v1/session/page", token, nil, "")
	if w.Header().Get("X-Page-Index") != "2" || w.Header().Get("X-Page-Scale") != "1.25" {
		t.Errorf("page headers = %q / %q", w.Header().Get("X-Page-Index"), w.Header().Get("X-Page-Scale"))
	}

	w = b.do(http.MethodGet, "/api/v1/session/download", token, nil, "")
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("download: %d, %d bytes (want %d)", w.Code, w.Body.Len(), len(data))
	}
	if cd := w.Header().Get("Content-Disposition"); cd == "" || !bytes.Contains([]byte(cd), []byte(`filename="report.pdf"`)) {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestAnalysisAndChatFlow(t *testing.T) {
	b := newBridge(t, 0)
	token := b.open("paper.pdf", pdftest.Build("alpha beta gamma"))
	b.waitLoaded(token)

	w := b.do(http.MethodPost, "/api/v1/session/chat", token, []byte(`{"message":"hi"}`), "application/json")
	if w.Code != http.StatusConflict || errorCode(t, w) != "analysis_not_open" {
		t.Errorf("chat before analyze: %d %s", w.Code, w.Body.String())
	}

	if w := b.do(http.MethodPost, "/api/v1/session/analyze", token, nil, ""); w.Code != http.StatusAccepted {
		t.Fatalf("analyze: %d", w.Code)
	}
	w = b.do(http.MethodPost, "/api/v1/session/chat", token, []byte(`{"message":"hi"}`), "application/json")
	if w.Code != http.StatusConflict || errorCode(t, w) != "document_loading" {
		t.Errorf("chat while analyzing: %d %s", w.Code, w.Body.String())
	}

	b.advance(3 * time.Second)

	var sum models.SummaryResponse
	decode(t, b.do(http.MethodGet, "/api/v1/session/summary", token, nil, ""), &sum)
	if sum.IsAnalyzing || sum.Summary == nil || sum.Summary.WordCount != 3 {
		t.Errorf("summary = %+v", sum)
	}

	var submit models.ChatSubmitResponse
	w = b.do(http.MethodPost, "/api/v1/session/chat", token, []byte(`{"message":"   "}`), "application/json")
	decode(t, w, &submit)
	if w.Code != http.StatusOK || submit.Accepted || len(submit.Conversation.Messages) != 0 {
		t.Errorf("blank message: %d %+v", w.Code, submit)
	}

	w = b.do(http.MethodPost, "/api/v1/session/chat", token, []byte(`{"message":"What is it?"}`), "application/json")
	decode(t, w, &submit)
	if w.Code != http.StatusAccepted || !submit.Accepted || !submit.Conversation.PendingReply {
		t.Errorf("question: %d %+v", w.Code, submit)
	}

	b.advance(2 * time.Second)
	var conv models.ConversationState
	decode(t, b.do(http.MethodGet, "/api/v1/session/chat", token, nil, ""), &conv)
	if len(conv.Messages) != 2 || conv.Messages[1].Role != models.RoleAssistant {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestReplacedDocumentInvalidatesToken(t *testing.T) {
	b := newBridge(t, 0)
	first := b.open("first.pdf", pdftest.Build("one"))
	second := b.open("second.pdf", pdftest.Build("two"))

	w := b.do(http.MethodPost, "/api/v1/session/zoom/in", first, nil, "")
	if w.Code != http.StatusConflict || errorCode(t, w) != "document_changed" {
		t.Errorf("stale token: %d %s", w.Code, w.Body.String())
	}
	if w := b.do(http.MethodPost, "/api/v1/session/zoom/in", second, nil, ""); w.Code != http.StatusOK {
		t.Errorf("current token: %d", w.Code)
	}

	if w := b.do(http.MethodDelete, "/api/v1/session", second, nil, ""); w.Code != http.StatusNoContent {
		t.Errorf("close: %d", w.Code)
	}
	w = b.do(http.MethodGet, "/api/v1/session", second, nil, "")
	if w.Code != http.StatusConflict || errorCode(t, w) != "document_changed" {
		t.Errorf("after close: %d %s", w.Code, w.Body.String())
	}
}

func TestFirstPageRenderFailureRejectsUpload(t *testing.T) {
	b := newBridge(t, 0)
	token := b.open("good.pdf", pdftest.Build("content"))

	broken := pdftest.BuildPages([]pdftest.Page{{Content: pdftest.BadTextOperator}})
	w := b.upload("broken.pdf", broken)
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != "invalid_pdf" {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}

	// The rejected upload left the open document and its token alone.
	if w := b.do(http.MethodGet, "/api/v1/session/page", token, nil, ""); w.Code != http.StatusOK {
		t.Errorf("page after rejected upload: %d %s", w.Code, w.Body.String())
	}
}

// The upload succeeds because page 1 renders; extraction then fails on
// page 2. The token must still be able to read why.
func TestFailedExtractionIsVisibleToToken(t *testing.T) {
	b := newBridge(t, 0)
	data := pdftest.BuildPages([]pdftest.Page{{Text: "fine"}, {Content: pdftest.BadTextOperator}})
	token := b.open("broken.pdf", data)

	snap := b.waitLoaded(token)
	if snap.Mode != models.ModeNoDocument || snap.Metadata != nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if !bytes.Contains([]byte(snap.LastError), []byte("broken.pdf")) {
		t.Errorf("last_error = %q", snap.LastError)
	}

	w := b.do(http.MethodPost, "/api/v1/session/zoom/in", token, nil, "")
	if w.Code != http.StatusConflict || errorCode(t, w) != "no_document" {
		t.Errorf("zoom after failed load: %d %s", w.Code, w.Body.String())
	}
}
