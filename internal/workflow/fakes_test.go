package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"upscale-bot/internal/jobs"
	"upscale-bot/internal/session"
	"upscale-bot/internal/shared/storage/object/local"
	"upscale-bot/internal/tier"
	"upscale-bot/internal/usage"
)

type call struct {
	Op   string
	Ref  MessageRef
	Text string
	KB   Keyboard
	Doc  Document
}

type fakeTransport struct {
	mu     sync.Mutex
	calls  []call
	nextID int

	source         []byte
	fetchErr       error
	editErr        error
	sendDocErr     error
	panicOnSendDoc bool
}

func (f *fakeTransport) add(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error) {
	f.mu.Lock()
	f.nextID++
	ref := MessageRef{ChatID: chatID, MessageID: f.nextID}
	f.mu.Unlock()
	f.add(call{Op: "send", Ref: ref, Text: text, KB: kb})
	return ref, nil
}

func (f *fakeTransport) EditText(ctx context.Context, ref MessageRef, text string, kb Keyboard) error {
	f.add(call{Op: "edit", Ref: ref, Text: text, KB: kb})
	return f.editErr
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, ref MessageRef) error {
	f.add(call{Op: "delete", Ref: ref})
	return nil
}

func (f *fakeTransport) AnswerInteraction(ctx context.Context, interactionID, text string, alert bool) error {
	f.add(call{Op: "answer", Text: text})
	return nil
}

func (f *fakeTransport) FetchAttachment(ctx context.Context, att Attachment) (io.ReadCloser, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return io.NopCloser(bytes.NewReader(f.source)), nil
}

func (f *fakeTransport) SendDocument(ctx context.Context, chatID int64, doc Document) error {
	if f.panicOnSendDoc {
		panic("boom")
	}
	f.add(call{Op: "document", Doc: doc})
	return f.sendDocErr
}

func (f *fakeTransport) ops(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) texts(op string) []string {
	var out []string
	for _, c := range f.ops(op) {
		out = append(out, c.Text)
	}
	return out
}

type fakeGate struct {
	mu     sync.Mutex
	member bool
}

func (g *fakeGate) IsMember(ctx context.Context, userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.member
}

func (g *fakeGate) set(member bool) {
	g.mu.Lock()
	g.member = member
	g.mu.Unlock()
}

// fakeJobs answers Poll from a script; the last observation repeats.
type fakeJobs struct {
	mu        sync.Mutex
	submitErr error
	script    []jobs.Observation
	result    jobs.Result
	fetchErr  error

	// entered and hold, when set, park Submit until hold is closed.
	entered chan struct{}
	hold    chan struct{}

	submits, polls, fetches int
	submitted               []byte
}

func (j *fakeJobs) Submit(ctx context.Context, image []byte, t tier.Tier) (jobs.Job, error) {
	j.mu.Lock()
	j.submits++
	j.submitted = append([]byte(nil), image...)
	entered, hold := j.entered, j.hold
	j.mu.Unlock()
	if entered != nil {
		close(entered)
		<-hold
	}
	if j.submitErr != nil {
		return jobs.Job{}, j.submitErr
	}
	return jobs.Job{
		Handle:      jobs.Handle{Code: json.RawMessage(`"job-1"`), Type: "2"},
		Tier:        t,
		State:       jobs.StateSubmitted,
		MaxAttempts: jobs.DefaultMaxAttempts,
	}, nil
}

func (j *fakeJobs) Poll(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.polls++
	i := j.polls - 1
	if i >= len(j.script) {
		i = len(j.script) - 1
	}
	return jobs.Advance(job, j.script[i]), nil
}

func (j *fakeJobs) Fetch(ctx context.Context, ref string) (jobs.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fetches++
	if j.fetchErr != nil {
		return jobs.Result{}, j.fetchErr
	}
	r := j.result
	r.URL = ref
	return r, nil
}

func (j *fakeJobs) counts() (submits, polls, fetches int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.submits, j.polls, j.fetches
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []usage.Event
}

func (r *fakeRecorder) Record(e usage.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *fakeRecorder) kinds() []usage.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []usage.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	orch      *Orchestrator
	transport *fakeTransport
	gate      *fakeGate
	jobs      *fakeJobs
	usage     *fakeRecorder
	sessions  *session.MemoryRepo
	scratch   string
}

var testUser = User{ID: 42, ChatID: 4200}

func waitingObs() jobs.Observation { return jobs.Observation{Status: jobs.StatusWaiting} }

func successObs(ref string) jobs.Observation {
	return jobs.Observation{Status: jobs.StatusSuccess, ResultRef: ref}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{source: []byte("\xff\xd8\xff\xe0source-image")},
		gate:      &fakeGate{member: true},
		jobs: &fakeJobs{
			script: []jobs.Observation{successObs("https://x/result.jpg")},
			result: jobs.Result{Bytes: []byte("\xff\xd8\xff\xe0result-image"), ContentType: "image/jpeg"},
		},
		usage:    &fakeRecorder{},
		sessions: session.NewMemoryRepo(),
		scratch:  t.TempDir(),
	}
	h.orch = &Orchestrator{
		Transport: h.transport,
		Gate:      h.gate,
		Sessions:  h.sessions,
		Jobs:      h.jobs,
		Poller:    jobs.NewPoller(h.jobs, time.Millisecond),
		Usage:     h.usage,
		Scratch:   local.New(h.scratch),
		Channel:   "@WallSwipe",
		Brand:     "WallSwipe",
	}
	return h
}

func (h *harness) setTier(t *testing.T, tr tier.Tier) {
	t.Helper()
	require.NoError(t, h.sessions.SetTier(context.Background(), sessionKey(testUser.ID), tr))
}

// scratchFiles lists regular files left in the scratch directory.
func (h *harness) scratchFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(h.scratch, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}
