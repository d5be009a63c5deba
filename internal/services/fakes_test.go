package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-courseview/internal/data/repos"
	"github.com/yungbote/neurobridge-courseview/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-courseview/internal/domain"
	"github.com/yungbote/neurobridge-courseview/internal/modules/learning/content"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
)

var errProviderDown = errors.New("provider down")

type fakeProvider struct {
	mu       sync.Mutex
	calls    int32
	text     string
	err      error
	gates    map[string]chan struct{}
	syllabus []openai.SyllabusChapter
	titles   []string
}

func (p *fakeProvider) GenerateContent(ctx context.Context, title, hint string) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.titles = append(p.titles, title)
	gate := p.gates[title]
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if p.err != nil {
		return "", p.err
	}
	return p.text + " (" + title + ")", nil
}

func (p *fakeProvider) GenerateSyllabus(ctx context.Context, topic string) ([]openai.SyllabusChapter, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.syllabus, nil
}

func (p *fakeProvider) Model() string { return "test-model" }

func (p *fakeProvider) Calls() int { return int(atomic.LoadInt32(&p.calls)) }

func (p *fakeProvider) gate(title string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gates == nil {
		p.gates = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	p.gates[title] = ch
	return ch
}

type note struct {
	kind      string
	courseID  uuid.UUID
	chapterID uuid.UUID
	message   string
	progress  int
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) add(x note) {
	n.mu.Lock()
	n.notes = append(n.notes, x)
	n.mu.Unlock()
}

func (n *fakeNotifier) Success(ctx context.Context, courseID uuid.UUID, message string) {
	n.add(note{kind: "success", courseID: courseID, message: message})
}

func (n *fakeNotifier) Info(ctx context.Context, courseID uuid.UUID, message string) {
	n.add(note{kind: "info", courseID: courseID, message: message})
}

func (n *fakeNotifier) Error(ctx context.Context, courseID uuid.UUID, message string) {
	n.add(note{kind: "error", courseID: courseID, message: message})
}

func (n *fakeNotifier) ContentResolved(ctx context.Context, courseID, chapterID uuid.UUID) {
	n.add(note{kind: "resolved", courseID: courseID, chapterID: chapterID})
}

func (n *fakeNotifier) ContentFailed(ctx context.Context, courseID, chapterID uuid.UUID, message string) {
	n.add(note{kind: "failed", courseID: courseID, chapterID: chapterID, message: message})
}

func (n *fakeNotifier) CompletionChanged(ctx context.Context, courseID, chapterID uuid.UUID, completed bool, progress int) {
	n.add(note{kind: "completion", courseID: courseID, chapterID: chapterID, progress: progress})
}

func (n *fakeNotifier) CourseCreated(ctx context.Context, course *types.Course) {
	n.add(note{kind: "created", courseID: course.ID})
}

func (n *fakeNotifier) byKind(kind string) []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []note
	for _, x := range n.notes {
		if x.kind == kind {
			out = append(out, x)
		}
	}
	return out
}

type harness struct {
	db       *gorm.DB
	repos    repos.Repos
	store    CourseStore
	provider *fakeProvider
	notifier *fakeNotifier
	resolver *content.Resolver
	courses  CourseService
	views    *CourseViewService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := testutil.Logger(t)
	gdb := testutil.DB(t)
	r := repos.New(gdb, log)
	h := &harness{
		db:       gdb,
		repos:    r,
		store:    NewCourseStore(gdb, log, r.Course, r.Chapter),
		provider: &fakeProvider{text: resolvedBody},
		notifier: &fakeNotifier{},
	}
	h.resolver = content.NewResolver(log, content.Config{}, h.store, h.provider, h.notifier)
	h.courses = NewCourseService(log, h.store, h.resolver, h.provider, h.notifier)
	h.views = NewCourseViewService(log, h.store, h.resolver, h.notifier)
	t.Cleanup(h.views.Wait)
	return h
}

func (h *harness) seed(t *testing.T, chapters ...testutil.SeedChapter) *types.Course {
	t.Helper()
	return testutil.SeedCourse(t, context.Background(), h.db, "Distributed Systems", chapters...)
}

func (h *harness) chapter(t *testing.T, courseID, chapterID uuid.UUID) *types.Chapter {
	t.Helper()
	ch, err := h.repos.Chapter.GetByID(context.Background(), nil, courseID, chapterID)
	if err != nil || ch == nil {
		t.Fatalf("load chapter %s: %v", chapterID, err)
	}
	return ch
}
