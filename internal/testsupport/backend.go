package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mantrify/internal/queue"
)

// FakeMeditation is a meditation row served by FakeBackend.
type FakeMeditation struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	Listens     int64  `json:"listens"`
	Favorite    bool   `json:"favorite"`
	// CreatedAt is sent as createdAt; the zero value decodes as unknown.
	CreatedAt time.Time `json:"createdAt"`
}

// FakeUser is an account served by FakeBackend.
type FakeUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
	IsAdmin  bool   `json:"isAdmin"`
}

type cannedResponse struct {
	status int
	body   string
}

// FakeBackend emulates the Mantrify HTTP API. Queue records advance along
// scripted statuses each time the admin queue is listed, which lets tests
// drive a job through the pipeline by polling.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	token       string
	nextQueueID int64
	records     map[int64]*queue.Record
	scripts     map[int64][]queue.Status
	meditations map[int64]*FakeMeditation
	users       map[int64]*FakeUser
	creates     []json.RawMessage
	calls       map[string]int
	canned      map[string][]cannedResponse
	lastUserDel map[int64]json.RawMessage
	backups     map[string]fakeBackup
	restored    []byte
}

// NewFakeBackend starts a fake backend and registers its shutdown.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		nextQueueID: 1,
		records:     make(map[int64]*queue.Record),
		scripts:     make(map[int64][]queue.Status),
		meditations: make(map[int64]*FakeMeditation),
		users:       make(map[int64]*FakeUser),
		calls:       make(map[string]int),
		canned:      make(map[string][]cannedResponse),
		lastUserDel: make(map[int64]json.RawMessage),
		backups:     make(map[string]fakeBackup),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /meditations/create", b.authed(b.handleCreate))
	mux.HandleFunc("GET /meditations/all", b.handleListMeditations)
	mux.HandleFunc("POST /meditations/favorite/{id}/{flag}", b.authed(b.handleFavorite))
	mux.HandleFunc("PATCH /meditations/update/{id}", b.authed(b.handleUpdateMeditation))
	mux.HandleFunc("DELETE /meditations/{id}", b.authed(b.handleDeleteMeditation))
	mux.HandleFunc("GET /admin/queuer", b.authed(b.handleListQueue))
	mux.HandleFunc("DELETE /admin/queuer/{id}", b.authed(b.handleDeleteQueue))
	mux.HandleFunc("GET /admin/meditations", b.authed(b.handleAdminMeditations))
	mux.HandleFunc("DELETE /admin/meditations/{id}", b.authed(b.handleDeleteMeditation))
	mux.HandleFunc("GET /admin/users", b.authed(b.handleUsers))
	mux.HandleFunc("DELETE /admin/users/{id}", b.authed(b.handleDeleteUser))
	mux.HandleFunc("POST /users/login", b.handleLogin)
	mux.HandleFunc("GET /database/backups-list", b.authed(b.handleListBackups))
	mux.HandleFunc("POST /database/create-backup", b.authed(b.handleCreateBackup))
	mux.HandleFunc("GET /database/download-backup/{filename}", b.authed(b.handleDownloadBackup))
	mux.HandleFunc("DELETE /database/delete-backup/{filename}", b.authed(b.handleDeleteBackup))
	mux.HandleFunc("POST /database/replenish-database", b.authed(b.handleRestore))

	b.Server = httptest.NewServer(b.intercept(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the fake backend.
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// RequireToken makes authenticated endpoints reject any other bearer token.
func (b *FakeBackend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// AddRecord seeds a queue record.
func (b *FakeBackend) AddRecord(rec queue.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	b.records[cp.ID] = &cp
	if cp.ID >= b.nextQueueID {
		b.nextQueueID = cp.ID + 1
	}
}

// Script queues statuses the record takes on successive admin queue listings.
func (b *FakeBackend) Script(queueID int64, statuses ...queue.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[queueID] = append(b.scripts[queueID], statuses...)
}

// RemoveRecord drops a queue record as if an operator deleted it.
func (b *FakeBackend) RemoveRecord(queueID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, queueID)
	delete(b.scripts, queueID)
}

// Record returns a copy of a queue record, or nil.
func (b *FakeBackend) Record(queueID int64) *queue.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.records[queueID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// AddMeditation seeds a finished meditation.
func (b *FakeBackend) AddMeditation(m FakeMeditation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := m
	b.meditations[cp.ID] = &cp
}

// Meditation returns a copy of a meditation, or nil.
func (b *FakeBackend) Meditation(id int64) *FakeMeditation {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.meditations[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// AddUser seeds an account that can log in.
func (b *FakeBackend) AddUser(u FakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := u
	b.users[cp.ID] = &cp
}

// Respond makes the next request to "METHOD /path" return status and body
// instead of reaching the handler. Calls stack in FIFO order.
func (b *FakeBackend) Respond(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.canned[route] = append(b.canned[route], cannedResponse{status: status, body: body})
}

// CreateRequests returns the raw bodies received by POST /meditations/create.
func (b *FakeBackend) CreateRequests() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.creates)
}

// Calls returns how many requests hit "METHOD /path".
func (b *FakeBackend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// UserDeleteBody returns the body sent when deleting userID.
func (b *FakeBackend) UserDeleteBody(userID int64) json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUserDel[userID]
}

func (b *FakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls[route]++
		var canned *cannedResponse
		if queued := b.canned[route]; len(queued) > 0 {
			canned = &queued[0]
			b.canned[route] = queued[1:]
		}
		b.mu.Unlock()

		if canned != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.status)
			_, _ = w.Write([]byte(canned.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	token := b.token
	b.mu.Unlock()
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

func (b *FakeBackend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		h(w, r)
	}
}

func (b *FakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON")
		return
	}
	var body struct {
		Title           string            `json:"title"`
		MeditationArray []json.RawMessage `json:"meditationArray"`
	}
	_ = json.Unmarshal(raw, &body)

	b.mu.Lock()
	b.creates = append(b.creates, raw)
	if strings.TrimSpace(body.Title) == "" || len(body.MeditationArray) == 0 {
		b.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid meditation",
				"details": map[string]string{"title": "Title is required"},
			},
		})
		return
	}
	id := b.nextQueueID
	b.nextQueueID++
	now := time.Now().UTC().Truncate(time.Second)
	b.records[id] = &queue.Record{
		ID:          id,
		UserID:      1,
		Status:      queue.StatusQueued,
		JobFilename: fmt.Sprintf("job-%d.json", id),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Meditation queued",
		"queueId":  id,
		"filePath": fmt.Sprintf("/jobs/job-%d.json", id),
	})
}

func (b *FakeBackend) handleListQueue(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	for id, script := range b.scripts {
		rec, ok := b.records[id]
		if !ok || len(script) == 0 {
			continue
		}
		rec.Status = script[0]
		rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)
		b.scripts[id] = script[1:]
	}
	out := make([]queue.Record, 0, len(b.records))
	for _, rec := range b.records {
		out = append(out, *rec)
	}
	b.mu.Unlock()

	slices.SortFunc(out, func(a, c queue.Record) int { return int(a.ID - c.ID) })
	writeJSON(w, http.StatusOK, map[string]any{"queue": out})
}

func (b *FakeBackend) handleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	_, exists := b.records[id]
	delete(b.records, id)
	delete(b.scripts, id)
	b.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Queue record not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Queue record deleted", "queueId": id})
}

func (b *FakeBackend) handleListMeditations(w http.ResponseWriter, r *http.Request) {
	includePrivate := r.Header.Get("Authorization") != "" && b.authorized(r)
	b.mu.Lock()
	out := make([]FakeMeditation, 0, len(b.meditations))
	for _, m := range b.meditations {
		if m.Visibility == "private" && !includePrivate {
			continue
		}
		out = append(out, *m)
	}
	b.mu.Unlock()
	slices.SortFunc(out, func(a, c FakeMeditation) int { return int(a.ID - c.ID) })
	writeJSON(w, http.StatusOK, map[string]any{"meditationsArray": out})
}

func (b *FakeBackend) handleAdminMeditations(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]FakeMeditation, 0, len(b.meditations))
	for _, m := range b.meditations {
		out = append(out, *m)
	}
	b.mu.Unlock()
	slices.SortFunc(out, func(a, c FakeMeditation) int { return int(a.ID - c.ID) })
	writeJSON(w, http.StatusOK, map[string]any{"meditations": out})
}

func (b *FakeBackend) handleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	flag, err := strconv.ParseBool(r.PathValue("flag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "flag must be true or false")
		return
	}
	b.mu.Lock()
	m, exists := b.meditations[id]
	if exists {
		m.Favorite = flag
	}
	b.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Meditation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Favorite updated", "meditationId": id, "favorite": flag})
}

func (b *FakeBackend) handleUpdateMeditation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Visibility  *string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON")
		return
	}
	b.mu.Lock()
	m, exists := b.meditations[id]
	var out FakeMeditation
	if exists {
		if patch.Title != nil {
			m.Title = *patch.Title
		}
		if patch.Description != nil {
			m.Description = *patch.Description
		}
		if patch.Visibility != nil {
			m.Visibility = *patch.Visibility
		}
		out = *m
	}
	b.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Meditation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Meditation updated", "meditation": out})
}

func (b *FakeBackend) handleDeleteMeditation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	_, exists := b.meditations[id]
	delete(b.meditations, id)
	b.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Meditation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Meditation deleted", "meditationId": id})
}

func (b *FakeBackend) handleUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]FakeUser, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, *u)
	}
	b.mu.Unlock()
	slices.SortFunc(out, func(a, c FakeUser) int { return int(a.ID - c.ID) })
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (b *FakeBackend) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&raw)
	b.mu.Lock()
	_, exists := b.users[id]
	delete(b.users, id)
	b.lastUserDel[id] = raw
	b.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted", "userId": id})
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON")
		return
	}
	b.mu.Lock()
	var match *FakeUser
	for _, u := range b.users {
		if strings.EqualFold(u.Email, body.Email) && u.Password == body.Password {
			cp := *u
			match = &cp
			break
		}
	}
	token := b.token
	b.mu.Unlock()
	if match == nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if token == "" {
		token = fmt.Sprintf("token-%d", match.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Login successful",
		"accessToken": token,
		"user":        match,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
