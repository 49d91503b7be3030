package indexcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
	"github.com/bft-labs/indexcheck/pkg/report"
)

// fakeStore is an in-memory collection store. Created entities become
// visible to queries after lag queries have been served.
type fakeStore struct {
	mu       sync.Mutex
	lag      int
	queries  int
	entities []map[string]any
	hidden   []map[string]any
	deletes  int
	posts    int
	token    string
	authCode int
	auth     []string
}

func (s *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/token") {
		if s.authCode != 0 {
			w.WriteHeader(s.authCode)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		writeJSON(w, map[string]any{"access_token": s.token})
		return
	}
	s.auth = append(s.auth, r.Header.Get("Authorization"))

	switch r.Method {
	case http.MethodPost:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.posts++
		body["uuid"] = uuid.NewString()
		s.hidden = append(s.hidden, body)
		writeJSON(w, map[string]any{"entities": []any{body}})
	case http.MethodGet:
		s.queries++
		if s.lag >= 0 && s.queries > s.lag {
			s.entities = append(s.entities, s.hidden...)
			s.hidden = nil
		}
		page, ok := s.page(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"entities": page})
	case http.MethodDelete:
		s.deletes++
		s.entities = append(s.entities, s.hidden...)
		s.hidden = nil
		page, ok := s.page(r)
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.remove(page)
		writeJSON(w, map[string]any{"entities": page})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

var predicate = regexp.MustCompile(`^select \* where (\w+)='(.*)'$`)

// page returns the visible entities matching the request's ql, up to limit.
// A ql the store does not understand yields ok == false.
func (s *fakeStore) page(r *http.Request) (page []map[string]any, ok bool) {
	m := predicate.FindStringSubmatch(r.URL.Query().Get("ql"))
	if m == nil {
		return nil, false
	}
	value := strings.ReplaceAll(m[2], `\'`, `'`)
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = len(s.entities)
	}
	page = []map[string]any{}
	for _, e := range s.entities {
		if len(page) == limit {
			break
		}
		if e[m[1]] == value {
			page = append(page, e)
		}
	}
	return page, true
}

func (s *fakeStore) remove(page []map[string]any) {
	gone := make(map[any]bool, len(page))
	for _, e := range page {
		gone[e["uuid"]] = true
	}
	kept := s.entities[:0]
	for _, e := range s.entities {
		if !gone[e["uuid"]] {
			kept = append(kept, e)
		}
	}
	s.entities = kept
}

// seed stores a visible entity that was not written by the run.
func (s *fakeStore) seed(e map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e["uuid"] = uuid.NewString()
	s.entities = append(s.entities, e)
}

func (s *fakeStore) stats() (posts, deletes, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts, s.deletes, len(s.entities) + len(s.hidden)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type recordingHandler struct {
	mu     sync.Mutex
	states []lifecycle.State
	writes int
	polls  []PollEvent
	onPoll func(PollEvent)
}

func (h *recordingHandler) OnStateChange(ev StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, ev.Current)
}

func (h *recordingHandler) OnWrite(WriteEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes++
}

func (h *recordingHandler) OnPoll(ev PollEvent) {
	h.mu.Lock()
	h.polls = append(h.polls, ev)
	fn := h.onPoll
	h.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func testConfig(baseURL string, count int) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Org = "org"
	cfg.App = "app"
	cfg.Count = count
	cfg.PollInterval = time.Millisecond
	cfg.MaxWait = 5 * time.Second
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	store := &fakeStore{lag: 2}
	srv := httptest.NewServer(store)
	defer srv.Close()

	handler := &recordingHandler{}
	repo := report.NewFileRepository(t.TempDir())
	r, err := New(testConfig(srv.URL, 10),
		WithHTTPClient(srv.Client()),
		WithEventHandler(handler),
		WithReportRepository(repo),
	)
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StateCompleted, rep.State)
	assert.Equal(t, 10, rep.Requested)
	assert.Equal(t, 10, rep.Created)
	assert.Zero(t, rep.WriteFailures)
	assert.True(t, rep.Convergence.Converged)
	assert.Zero(t, rep.Convergence.Missing)
	assert.Equal(t, 3, rep.Convergence.Polls)
	require.NotNil(t, rep.Purge)
	assert.Equal(t, 2, rep.Purge.Deletes)
	assert.True(t, rep.Purge.Verified)
	assert.Contains(t, rep.Collection, "-index-test-")
	assert.Contains(t, rep.QueryURL, "limit=10")

	u, err := url.Parse(rep.QueryURL)
	require.NoError(t, err)
	assert.Equal(t, "select * where dataType='entitlements'", u.Query().Get("ql"))

	posts, _, remaining := store.stats()
	assert.Equal(t, 10, posts)
	assert.Zero(t, remaining)

	assert.Equal(t, []lifecycle.State{
		lifecycle.StateWriting,
		lifecycle.StatePolling,
		lifecycle.StatePurging,
		lifecycle.StateCompleted,
	}, handler.states)
	assert.Equal(t, 10, handler.writes)
	assert.Len(t, handler.polls, 3)

	saved, err := repo.Load(context.Background(), rep.Collection)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, saved.RunID)
	assert.Equal(t, lifecycle.StateCompleted, saved.State)
}

func TestRun_Authenticates(t *testing.T) {
	store := &fakeStore{token: "tok"}
	srv := httptest.NewServer(store)
	defer srv.Close()

	cfg := testConfig(srv.URL, 3)
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotEmpty(t, store.auth)
	for _, h := range store.auth {
		assert.Equal(t, "Bearer tok", h)
	}
}

func TestRun_AuthFailureIsFatal(t *testing.T) {
	store := &fakeStore{authCode: http.StatusUnauthorized}
	srv := httptest.NewServer(store)
	defer srv.Close()

	cfg := testConfig(srv.URL, 3)
	cfg.ClientID = "id"
	cfg.ClientSecret = "bad"
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Equal(t, lifecycle.StateFailed, rep.State)
	assert.NotEmpty(t, rep.Error)

	posts, deletes, _ := store.stats()
	assert.Zero(t, posts)
	assert.Zero(t, deletes)
}

func TestRun_TimeoutStillPurges(t *testing.T) {
	store := &fakeStore{lag: -1}
	srv := httptest.NewServer(store)
	defer srv.Close()

	cfg := testConfig(srv.URL, 4)
	cfg.MaxPolls = 3
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConvergenceTimeout)
	assert.Equal(t, lifecycle.StateFailed, rep.State)
	assert.Equal(t, 4, rep.Convergence.Missing)
	assert.Equal(t, 3, rep.Convergence.Polls)
	assert.False(t, rep.Convergence.Converged)
	require.NotNil(t, rep.Purge)

	_, deletes, remaining := store.stats()
	assert.Positive(t, deletes)
	assert.Zero(t, remaining)
}

func TestRun_InterruptSkipsPurge(t *testing.T) {
	store := &fakeStore{lag: -1}
	srv := httptest.NewServer(store)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &recordingHandler{onPoll: func(PollEvent) { cancel() }}

	r, err := New(testConfig(srv.URL, 5), WithHTTPClient(srv.Client()), WithEventHandler(handler))
	require.NoError(t, err)

	rep, err := r.Run(ctx)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, lifecycle.StateInterrupted, rep.State)
	assert.Nil(t, rep.Purge)

	posts, deletes, remaining := store.stats()
	assert.Equal(t, 5, posts)
	assert.Zero(t, deletes)
	assert.Equal(t, 5, remaining)
}

func TestRun_SkipPurge(t *testing.T) {
	store := &fakeStore{}
	srv := httptest.NewServer(store)
	defer srv.Close()

	cfg := testConfig(srv.URL, 2)
	cfg.SkipPurge = true
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateCompleted, rep.State)
	assert.Nil(t, rep.Purge)

	_, deletes, remaining := store.stats()
	assert.Zero(t, deletes)
	assert.Equal(t, 2, remaining)
}

func TestRun_PurgeLeavesUnmarkedRecords(t *testing.T) {
	store := &fakeStore{}
	store.seed(map[string]any{"dataType": "invoices"})
	srv := httptest.NewServer(store)
	defer srv.Close()

	r, err := New(testConfig(srv.URL, 4), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Convergence.Found)
	require.NotNil(t, rep.Purge)
	assert.True(t, rep.Purge.Verified)

	_, _, remaining := store.stats()
	assert.Equal(t, 1, remaining)
}

func TestRun_CustomMarker(t *testing.T) {
	store := &fakeStore{}
	store.seed(map[string]any{"dataType": "entitlements"})
	srv := httptest.NewServer(store)
	defer srv.Close()

	cfg := testConfig(srv.URL, 3)
	cfg.MarkerField = "runTag"
	cfg.MarkerValue = "o'brien"
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Convergence.Converged)

	u, err := url.Parse(rep.QueryURL)
	require.NoError(t, err)
	assert.Equal(t, `select * where runTag='o\'brien'`, u.Query().Get("ql"))

	_, _, remaining := store.stats()
	assert.Equal(t, 1, remaining, "records with the default marker are not purged")
}

func TestRun_SingleUse(t *testing.T) {
	srv := httptest.NewServer(&fakeStore{})
	defer srv.Close()

	r, err := New(testConfig(srv.URL, 0), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestRun_RejectsReentrantRun(t *testing.T) {
	srv := httptest.NewServer(&fakeStore{})
	defer srv.Close()

	var r *Runner
	var nestedErr error
	handler := &recordingHandler{onPoll: func(PollEvent) {
		if nestedErr == nil {
			_, nestedErr = r.Run(context.Background())
		}
	}}

	var err error
	r, err = New(testConfig(srv.URL, 1), WithHTTPClient(srv.Client()), WithEventHandler(handler))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, lifecycle.ErrInvalidTransition)
	assert.Contains(t, nestedErr.Error(), "in progress")
}

func TestRun_ExplicitCollection(t *testing.T) {
	srv := httptest.NewServer(&fakeStore{})
	defer srv.Close()

	cfg := testConfig(srv.URL, 1)
	cfg.Collection = "fixed"
	cfg.QueryLimit = 50
	r, err := New(cfg, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed", rep.Collection)
	assert.Equal(t, srv.URL+"/org/app/fixed", rep.URL)
	assert.Contains(t, rep.QueryURL, "limit=50")
}
