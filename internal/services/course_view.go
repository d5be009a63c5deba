package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
)

var ErrSessionNotFound = fmt.Errorf("view session %w", ErrNotFound)

type ChapterSummary struct {
	ID        uuid.UUID `json:"id"`
	Position  int       `json:"position"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Resolved  bool      `json:"resolved"`
}

// ViewSnapshot is everything a viewer needs to render one course page.
type ViewSnapshot struct {
	SessionID         uuid.UUID        `json:"session_id"`
	CourseID          uuid.UUID        `json:"course_id"`
	CourseTitle       string           `json:"course_title"`
	SelectedChapterID uuid.UUID        `json:"selected_chapter_id"`
	Content           string           `json:"content"`
	ContentHTML       string           `json:"content_html"`
	Loading           bool             `json:"loading"`
	Progress          int              `json:"progress"`
	Chapters          []ChapterSummary `json:"chapters"`
}

type viewSession struct {
	id       uuid.UUID
	course   *types.Course
	selected uuid.UUID
	content  string
	loading  bool
	// Chapters with a resolve running for this session.
	inflight map[uuid.UUID]bool
	lastSeen time.Time
}

// CourseViewService holds open course pages. Selecting a chapter never waits for
// generation: the resolve runs in the background and its result is applied only
// while that chapter is still the one selected.
type CourseViewService struct {
	log      *logger.Logger
	store    CourseStore
	resolver *content.Resolver
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*viewSession
	wg       sync.WaitGroup
}

func NewCourseViewService(baseLog *logger.Logger, store CourseStore, resolver *content.Resolver, notifier Notifier) *CourseViewService {
	return &CourseViewService{
		log:      baseLog.With("service", "CourseViewService"),
		store:    store,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
		sessions: map[uuid.UUID]*viewSession{},
	}
}

// Open starts a session on courseID with the default chapter selected.
func (s *CourseViewService) Open(ctx context.Context, courseID uuid.UUID) (ViewSnapshot, error) {
	course, err := s.store.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.notifier.Error(ctx, courseID, MsgCourseNotFound)
		}
		return ViewSnapshot{}, err
	}

	sess := &viewSession{
		id:       uuid.New(),
		course:   course,
		inflight: map[uuid.UUID]bool{},
		lastSeen: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
	if ch := course.DefaultChapter(); ch != nil {
		s.selectLocked(ctx, sess, ch)
	}
	s.log.Debug("view session opened", "session_id", sess.id, "course_id", courseID)
	return s.snapshotLocked(sess), nil
}

// SelectChapter makes chapterID the displayed chapter and returns at once.
func (s *CourseViewService) SelectChapter(ctx context.Context, sessionID, chapterID uuid.UUID) (ViewSnapshot, error) {
	courseID, err := s.sessionCourse(sessionID)
	if err != nil {
		return ViewSnapshot{}, err
	}
	course, err := s.store.FindCourse(ctx, courseID)
	if err != nil {
		return ViewSnapshot{}, err
	}
	ch := course.Chapter(chapterID)
	if ch == nil {
		return ViewSnapshot{}, fmt.Errorf("%w: %s", ErrChapterNotFound, chapterID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ViewSnapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.course = course
	sess.lastSeen = s.now()
	s.selectLocked(ctx, sess, ch)
	return s.snapshotLocked(sess), nil
}

// Snapshot refreshes the session from the store and returns its current state.
func (s *CourseViewService) Snapshot(ctx context.Context, sessionID uuid.UUID) (ViewSnapshot, error) {
	courseID, err := s.sessionCourse(sessionID)
	if err != nil {
		return ViewSnapshot{}, err
	}
	course, err := s.store.FindCourse(ctx, courseID)
	if err != nil {
		return ViewSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ViewSnapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	changed := !course.UpdatedAt.Equal(sess.course.UpdatedAt)
	sess.course = course
	sess.lastSeen = s.now()

	ch := course.Chapter(sess.selected)
	switch {
	case ch == nil:
		sess.selected, sess.content, sess.loading = uuid.Nil, "", false
		if def := course.DefaultChapter(); def != nil {
			s.selectLocked(ctx, sess, def)
		}
	case !s.resolver.IsPlaceholder(ch.Content):
		if !sess.loading {
			sess.content = ch.Content
		}
	case changed && !sess.inflight[ch.ID]:
		s.selectLocked(ctx, sess, ch)
	}
	return s.snapshotLocked(sess), nil
}

func (s *CourseViewService) Close(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Sweep closes sessions idle for longer than maxIdle and returns how many it closed.
func (s *CourseViewService) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *CourseViewService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Wait blocks until background resolves started by this service have finished.
func (s *CourseViewService) Wait() {
	s.wg.Wait()
}

func (s *CourseViewService) sessionCourse(sessionID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess.course.ID, nil
}

func (s *CourseViewService) selectLocked(ctx context.Context, sess *viewSession, ch *types.Chapter) {
	sess.selected = ch.ID
	if !s.resolver.IsPlaceholder(ch.Content) {
		sess.content = ch.Content
		sess.loading = false
		return
	}
	sess.content = ""
	sess.loading = true
	if sess.inflight[ch.ID] {
		return
	}
	sess.inflight[ch.ID] = true

	req := content.Request{CourseID: sess.course.ID, ChapterID: ch.ID}
	bg := ctxutil.Detached(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.resolver.Resolve(bg, req)
		s.apply(sess.id, req, res, err)
	}()
}

func (s *CourseViewService) apply(sessionID uuid.UUID, req content.Request, res content.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(sess.inflight, req.ChapterID)
	if err != nil {
		s.log.Warn("chapter resolve failed", "session_id", sessionID, "chapter_id", req.ChapterID, "error", err)
		res = content.Result{Content: s.resolver.FallbackContent(), Source: content.SourceFallback, Err: err}
		if ch := sess.course.Chapter(req.ChapterID); ch != nil && ch.Content != "" {
			res.Content = ch.Content
		}
	}
	if res.Persisted {
		if ch := sess.course.Chapter(req.ChapterID); ch != nil {
			ch.Content = res.Content
		}
	}
	if sess.selected != req.ChapterID {
		s.log.Debug("discarding resolve for deselected chapter", "session_id", sessionID, "chapter_id", req.ChapterID)
		return
	}
	sess.content = res.Content
	sess.loading = false
}

func (s *CourseViewService) snapshotLocked(sess *viewSession) ViewSnapshot {
	snap := ViewSnapshot{
		SessionID:         sess.id,
		CourseID:          sess.course.ID,
		CourseTitle:       sess.course.Title,
		SelectedChapterID: sess.selected,
		Content:           sess.content,
		Loading:           sess.loading,
		Progress:          sess.course.Progress,
		Chapters:          make([]ChapterSummary, 0, len(sess.course.Chapters)),
	}
	if sess.content != "" {
		snap.ContentHTML = content.RenderHTML(sess.content)
	}
	for _, ch := range sess.course.Chapters {
		snap.Chapters = append(snap.Chapters, ChapterSummary{
			ID:        ch.ID,
			Position:  ch.Position,
			Title:     ch.Title,
			Completed: ch.Completed,
			Resolved:  !s.resolver.IsPlaceholder(ch.Content),
		})
	}
	return snap
}
