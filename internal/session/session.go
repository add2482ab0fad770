// Package session is the page orchestrator: it owns the one open document and
// everything hanging off it (viewer, metadata, analysis panel, timers).
//
// Go Pattern: Every field below the "loop-confined" marker is read and written
// only on the event loop goroutine. Public methods hop onto the loop with
// loop.Do and return copies, so callers (the HTTP handlers) never touch live
// state. This replaces a mutex with ownership, the way a UI thread works.
//
// Mode transitions:
//
//	NoDocument ──select──▶ PreviewOnly ──analyze──▶ PreviewWithAnalysis
//	     ▲                     ▲                          │
//	     └──close / failed─────┴───────select─────────────┘
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Shimizu-Technology/pdf-analyzer/internal/models"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/chat"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/metadata"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/summary"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/viewer"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
)

var (
	// ErrNoDocument means the operation needs a selected document.
	ErrNoDocument = errors.New("no document selected")
	// ErrAnalysisNotOpen means the analysis panel has not been opened.
	ErrAnalysisNotOpen = errors.New("analysis panel is not open")
	// ErrDocumentTooLarge means the upload exceeds the configured limit.
	ErrDocumentTooLarge = errors.New("document exceeds the upload size limit")
	// ErrDocumentChanged means the call was bound to a document that has
	// since been replaced or closed.
	ErrDocumentChanged = errors.New("document was replaced or closed")
)

type expectedDocumentKey struct{}

// ExpectDocument binds every session call made with the returned context to
// the document with the given fingerprint. The check runs on the event loop
// together with the call itself, so a selection can never slip in between.
func ExpectDocument(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, expectedDocumentKey{}, fingerprint)
}

// ExpectedDocument returns the fingerprint bound by ExpectDocument.
func ExpectedDocument(ctx context.Context) (string, bool) {
	fp, ok := ctx.Value(expectedDocumentKey{}).(string)
	return fp, ok
}

// DefaultAnalysisDelay is how long the simulated analysis runs.
const DefaultAnalysisDelay = 3 * time.Second

// Options configures a Session.
type Options struct {
	MaxUploadBytes int64 // 0 disables the limit
	ReplyDelay     time.Duration
	AnalysisDelay  time.Duration
	StrictBounds   bool
}

// Session orchestrates one extension page.
type Session struct {
	loop     *worker.Loop
	pipeline *pdfservice.Pipeline
	catalog  *summary.Catalog
	opts     Options

	// loop-confined
	mode        models.ViewMode
	doc         *models.Document
	handle      *pdfservice.Handle
	viewer      *viewer.Viewer
	loading     bool
	meta        *models.DocumentMetadata
	isAnalyzing bool
	analysis    *worker.Task
	conv        *chat.Conversation
	lastError   string
	failed      string // fingerprint of the document whose extraction failed
	generation  uint64
	stopExtract context.CancelFunc

	// postResult hands an extraction result to the loop. Tests replace it to
	// hold a result back.
	postResult func(name string, fn func()) error
}

// New creates a session in NoDocument mode.
func New(loop *worker.Loop, pipeline *pdfservice.Pipeline, catalog *summary.Catalog, opts Options) *Session {
	if opts.AnalysisDelay <= 0 {
		opts.AnalysisDelay = DefaultAnalysisDelay
	}
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = chat.DefaultReplyDelay
	}
	s := &Session{
		loop:     loop,
		pipeline: pipeline,
		catalog:  catalog,
		opts:     opts,
		mode:     models.ModeNoDocument,
	}
	s.postResult = func(_ string, fn func()) error {
		return s.loop.Do(context.Background(), fn)
	}
	return s
}

// on runs fn on the event loop and waits for it. If ctx carries an expected
// document (see ExpectDocument) that is no longer the current one, fn is
// skipped and ErrDocumentChanged is returned.
func (s *Session) on(ctx context.Context, fn func()) error {
	want, bound := ExpectedDocument(ctx)
	changed := false
	err := s.loop.Do(ctx, func() {
		if bound && want != s.currentFingerprint() {
			changed = true
			return
		}
		fn()
	})
	if err != nil {
		return fmt.Errorf("session unavailable: %w", err)
	}
	if changed {
		return ErrDocumentChanged
	}
	return nil
}

// currentFingerprint is the open document's fingerprint. After a failed
// extraction it stays the failed document's, so its token can still read
// why the load failed.
func (s *Session) currentFingerprint() string {
	if s.doc != nil {
		return s.doc.Fingerprint
	}
	return s.failed
}

// Select opens a new document.
//
// The document is parsed and its first page rendered before any state
// changes, so a file that cannot be shown leaves the current session exactly
// as it was. On success the old document is torn down and text extraction
// starts in the background.
func (s *Session) Select(ctx context.Context, name string, data []byte) (models.SessionSnapshot, error) {
	if s.opts.MaxUploadBytes > 0 && int64(len(data)) > s.opts.MaxUploadBytes {
		return models.SessionSnapshot{}, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(data), s.opts.MaxUploadBytes)
	}

	content := make([]byte, len(data))
	copy(content, data)
	doc := &models.Document{
		Name:        name,
		SizeBytes:   int64(len(content)),
		Content:     content,
		Fingerprint: pdfservice.Fingerprint(content),
		SelectedAt:  s.loop.Clock().Now(),
	}

	handle, err := s.pipeline.Load(ctx, doc)
	if err != nil {
		log.Printf("❌ Rejected %q: %v", name, err)
		return models.SessionSnapshot{}, err
	}

	// The viewer is not shared until it is published on the loop, so the
	// first render can run here.
	v := viewer.New(doc, handle, viewer.Options{StrictBounds: s.opts.StrictBounds})
	if _, err := v.Render(); err != nil {
		log.Printf("❌ Rejected %q: first page does not render: %v", name, err)
		return models.SessionSnapshot{}, fmt.Errorf("%w: first page does not render: %v", pdfservice.ErrInvalidFormat, err)
	}

	var snap models.SessionSnapshot
	err = s.on(ctx, func() {
		s.teardown()

		s.mode = models.ModePreviewOnly
		s.doc = doc
		s.handle = handle
		s.viewer = v
		s.loading = true

		extractCtx, cancel := context.WithCancel(context.Background())
		s.stopExtract = cancel
		go s.extract(extractCtx, s.generation, handle)

		log.Printf("📄 Selected %q (%.2f MB, %d pages)", name, doc.SizeMB(), handle.PageCount())
		snap = s.snapshot()
	})
	return snap, err
}

// extract runs off the loop and posts its result back. A result for an
// older generation is dropped.
func (s *Session) extract(ctx context.Context, gen uint64, handle *pdfservice.Handle) {
	text, err := handle.ExtractText(ctx)

	postErr := s.postResult(handle.Name(), func() {
		if gen != s.generation {
			log.Printf("🗑️  Discarding extraction result for a replaced document")
			return
		}
		s.stopExtract = nil
		if err != nil {
			name, fp := s.doc.Name, s.doc.Fingerprint
			s.teardown()
			s.failed = fp
			s.lastError = fmt.Sprintf("failed to extract text from %q: %v", name, err)
			log.Printf("❌ %s", s.lastError)
			return
		}
		meta := metadata.Compute(text, handle.PageCount())
		s.meta = &meta
		s.loading = false
		log.Printf("✅ Extracted %q: %d words, %d min read", s.doc.Name, meta.WordCount, meta.ReadingTimeMinutes)
	})
	if postErr != nil && !errors.Is(postErr, worker.ErrStopped) {
		log.Printf("⚠️  Could not publish extraction result: %v", postErr)
	}
}

// teardown drops the current document and cancels its work. The session ends
// in NoDocument with no error recorded.
func (s *Session) teardown() {
	s.generation++
	if s.stopExtract != nil {
		s.stopExtract()
		s.stopExtract = nil
	}
	if s.analysis != nil {
		s.analysis.Cancel()
		s.analysis = nil
	}
	if s.conv != nil {
		s.conv.Close()
		s.conv = nil
	}
	s.mode = models.ModeNoDocument
	s.doc = nil
	s.handle = nil
	s.viewer = nil
	s.loading = false
	s.meta = nil
	s.isAnalyzing = false
	s.lastError = ""
	s.failed = ""
}

// Analyze opens the analysis panel and (re)starts the simulated analysis.
func (s *Session) Analyze(ctx context.Context) (models.SessionSnapshot, error) {
	var (
		snap models.SessionSnapshot
		err  error
	)
	onErr := s.on(ctx, func() {
		if s.doc == nil {
			err = ErrNoDocument
			return
		}

		task, schedErr := s.loop.Schedule("analysis", s.opts.AnalysisDelay, s.finishAnalysis)
		if schedErr != nil {
			err = fmt.Errorf("failed to schedule analysis: %w", schedErr)
			return
		}
		if s.analysis != nil {
			s.analysis.Cancel()
		}
		s.analysis = task
		s.isAnalyzing = true
		s.mode = models.ModePreviewWithAnalysis

		if s.conv == nil {
			s.conv = chat.New(s.loop, s.catalog, chat.Options{
				DocumentName: s.doc.Name,
				Delay:        s.opts.ReplyDelay,
				Ready:        s.acceptingInput,
			})
		}
		snap = s.snapshot()
	})
	if onErr != nil {
		return snap, onErr
	}
	return snap, err
}

func (s *Session) finishAnalysis() {
	s.analysis = nil
	s.isAnalyzing = false
	if s.doc != nil {
		log.Printf("🔍 Analysis finished for %q", s.doc.Name)
	}
}

// acceptingInput gates chat submissions.
func (s *Session) acceptingInput() bool {
	return !s.loading && !s.isAnalyzing
}

// Ask submits a chat message. ErrEmptySubmission and ErrNotReady come from
// the chat package unchanged.
func (s *Session) Ask(ctx context.Context, text string) (models.ConversationState, error) {
	var (
		state models.ConversationState
		err   error
	)
	onErr := s.on(ctx, func() {
		if err = s.requireAnalysis(); err != nil {
			return
		}
		_, err = s.conv.Submit(text)
		state = s.conv.State()
	})
	if onErr != nil {
		return state, onErr
	}
	return state, err
}

// Conversation returns the transcript.
func (s *Session) Conversation(ctx context.Context) (models.ConversationState, error) {
	var (
		state models.ConversationState
		err   error
	)
	onErr := s.on(ctx, func() {
		if err = s.requireAnalysis(); err != nil {
			return
		}
		state = s.conv.State()
	})
	if onErr != nil {
		return state, onErr
	}
	return state, err
}

// Summary returns the summary tab. Summary is nil while the analysis is
// running or the text is still being extracted.
func (s *Session) Summary(ctx context.Context) (models.SummaryResponse, error) {
	var (
		resp models.SummaryResponse
		err  error
	)
	onErr := s.on(ctx, func() {
		if err = s.requireAnalysis(); err != nil {
			return
		}
		if s.isAnalyzing || s.loading {
			resp.IsAnalyzing = true
			return
		}
		resp.Summary = s.catalog.Build(s.doc.Name, s.meta)
	})
	if onErr != nil {
		return resp, onErr
	}
	return resp, err
}

func (s *Session) requireAnalysis() error {
	if s.doc == nil {
		return ErrNoDocument
	}
	if s.mode != models.ModePreviewWithAnalysis || s.conv == nil {
		return ErrAnalysisNotOpen
	}
	return nil
}

// ZoomIn steps the viewer zoom up.
func (s *Session) ZoomIn(ctx context.Context) (models.ViewerState, error) {
	return s.withViewer(ctx, func(v *viewer.Viewer) error {
		_, err := v.ZoomIn()
		return err
	})
}

// ZoomOut steps the viewer zoom down.
func (s *Session) ZoomOut(ctx context.Context) (models.ViewerState, error) {
	return s.withViewer(ctx, func(v *viewer.Viewer) error {
		_, err := v.ZoomOut()
		return err
	})
}

// GoToPage moves the viewer to page.
func (s *Session) GoToPage(ctx context.Context, page int) (models.ViewerState, error) {
	return s.withViewer(ctx, func(v *viewer.Viewer) error {
		_, err := v.GoToPage(page)
		return err
	})
}

func (s *Session) withViewer(ctx context.Context, fn func(*viewer.Viewer) error) (models.ViewerState, error) {
	var (
		state models.ViewerState
		err   error
	)
	onErr := s.on(ctx, func() {
		if s.viewer == nil {
			err = ErrNoDocument
			return
		}
		err = fn(s.viewer)
		state = s.viewer.State()
	})
	if onErr != nil {
		return state, onErr
	}
	return state, err
}

// Page returns the page on display. Its pixel buffer is never drawn into
// again, so the caller may encode it off the loop.
func (s *Session) Page(ctx context.Context) (*models.RenderedPage, error) {
	var (
		rp  *models.RenderedPage
		err error
	)
	onErr := s.on(ctx, func() {
		if s.viewer == nil {
			err = ErrNoDocument
			return
		}
		rp, err = s.viewer.Current()
	})
	if onErr != nil {
		return nil, onErr
	}
	return rp, err
}

// Download returns the original filename and bytes.
func (s *Session) Download(ctx context.Context) (string, []byte, error) {
	var (
		name string
		data []byte
		err  error
	)
	onErr := s.on(ctx, func() {
		if s.viewer == nil {
			err = ErrNoDocument
			return
		}
		name, data, err = s.viewer.Download()
	})
	if onErr != nil {
		return "", nil, onErr
	}
	return name, data, err
}

// Fingerprint returns the open document's fingerprint, or "" in NoDocument.
func (s *Session) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.on(ctx, func() {
		if s.doc != nil {
			fp = s.doc.Fingerprint
		}
	})
	return fp, err
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot(ctx context.Context) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	err := s.on(ctx, func() {
		snap = s.snapshot()
	})
	return snap, err
}

// Close tears the session down to NoDocument, cancelling every timer.
func (s *Session) Close(ctx context.Context) error {
	return s.on(ctx, func() {
		if s.doc != nil {
			log.Printf("🧹 Closing %q", s.doc.Name)
		}
		s.teardown()
	})
}

func (s *Session) snapshot() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		Mode:        s.mode,
		Loading:     s.loading,
		IsAnalyzing: s.isAnalyzing,
		LastError:   s.lastError,
	}
	if s.doc != nil {
		doc := *s.doc
		doc.Content = nil
		snap.Document = &doc
	}
	if s.meta != nil {
		meta := *s.meta
		snap.Metadata = &meta
	}
	if s.viewer != nil {
		vs := s.viewer.State()
		snap.Viewer = &vs
	}
	if s.conv != nil {
		cs := s.conv.State()
		snap.Conversation = &cs
	}
	return snap
}
