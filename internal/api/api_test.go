package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leadnotes/leadnotes/internal/auth"
	"github.com/leadnotes/leadnotes/internal/mail"
	"github.com/leadnotes/leadnotes/internal/models"
	"github.com/leadnotes/leadnotes/internal/noteservice"
	"github.com/leadnotes/leadnotes/internal/store"
)

// stubMailer returns a canned dispatch result.
type stubMailer struct {
	result mail.Result
}

func (s *stubMailer) NotifyCreated(context.Context, string, string, string, time.Time) mail.Result {
	return s.result
}

type testEnv struct {
	router    http.Handler
	durable   *store.Memory
	fallback  *store.Memory
	connected *bool
}

// newTestEnv builds a router over a facade whose durable side is a second
// in-process store, so tests can flip connectivity without a database.
func newTestEnv(t *testing.T, authMode, secret string, mailer mail.Dispatcher) *testEnv {
	t.Helper()

	if mailer == nil {
		mailer = &stubMailer{}
	}
	durable := store.NewMemory()
	fallback := store.NewMemory()
	connected := false
	facade := store.NewFacade(durable, fallback, func() bool { return connected })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := noteservice.NewService(facade, mailer, logger)

	var verifier auth.Verifier
	if authMode == auth.ModeEnforced {
		verifier = auth.NewJWTVerifier(secret)
	}
	return &testEnv{
		router:    NewRouter(svc, authMode, verifier),
		durable:   durable,
		fallback:  fallback,
		connected: &connected,
	}
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "Backend is running" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestCreateNote_FallbackMode(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	before := time.Now().UTC()
	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "buy milk", "userId": "u1"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}

	var resp CreateNoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "buy milk" || resp.UserID != "u1" {
		t.Errorf("note = %+v", resp.Note)
	}
	if resp.ID != "1" {
		t.Errorf("fallback id = %q, want 1", resp.ID)
	}
	if resp.EmailSent {
		t.Error("emailSent should be false")
	}
	if resp.CreatedAt.Before(before) {
		t.Errorf("createdAt %v before request start %v", resp.CreatedAt, before)
	}
	if resp.Message == "" {
		t.Error("missing confirmation message")
	}
	if resp.PreviewURL != nil {
		t.Errorf("previewUrl = %v, want null", *resp.PreviewURL)
	}
}

func TestCreateNote_MissingText(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"userId": "u1"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("create without text = %d, want 400", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error == "" {
		t.Error("error body should carry an error string")
	}
}

func TestCreateNote_MissingOwner(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "orphan"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("create without owner = %d, want 400", w.Code)
	}
}

func TestCreateNote_WithEmailDispatch(t *testing.T) {
	preview := "file:///tmp/spool/abc.eml"
	mailer := &stubMailer{result: mail.Result{Success: true, MessageID: "abc", PreviewURL: preview}}
	env := newTestEnv(t, auth.ModeDisabled, "", mailer)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "mail me", "userId": "u1", "userEmail": "u1@example.com"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}

	var resp CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.EmailSent {
		t.Error("emailSent should be true after dispatch")
	}
	if resp.EmailSentAt == nil || resp.EmailSentAt.Before(resp.CreatedAt) {
		t.Errorf("emailSentAt = %v, want >= createdAt", resp.EmailSentAt)
	}
	if resp.PreviewURL == nil || *resp.PreviewURL != preview {
		t.Errorf("previewUrl = %v, want %q", resp.PreviewURL, preview)
	}
}

func TestCreateNote_DispatchFailureStill201(t *testing.T) {
	mailer := &stubMailer{result: mail.Result{Success: false, Err: context.DeadlineExceeded}}
	env := newTestEnv(t, auth.ModeDisabled, "", mailer)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "mail me", "userId": "u1", "userEmail": "u1@example.com"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201 despite dispatch failure", w.Code)
	}
	var resp CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.EmailSent {
		t.Error("emailSent should stay false")
	}
}

func TestListNotes(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "buy milk", "userId": "u1"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}
	doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "someone else's", "userId": "u2"}, nil)

	w = doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var notes []models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &notes); err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("len = %d, want exactly 1", len(notes))
	}
	if notes[0].Text != "buy milk" || notes[0].UserID != "u1" {
		t.Errorf("note = %+v", notes[0])
	}
}

func TestListNotes_NewestFirst(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	for _, text := range []string{"first", "second", "third"} {
		doJSON(t, env.router, http.MethodPost, "/notes",
			map[string]string{"text": text, "userId": "u1"}, nil)
		time.Sleep(2 * time.Millisecond)
	}

	w := doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	var notes []models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 3 {
		t.Fatalf("len = %d", len(notes))
	}
	for i := 0; i < len(notes)-1; i++ {
		if notes[i].CreatedAt.Before(notes[i+1].CreatedAt) {
			t.Errorf("notes not ordered newest-first: %v before %v",
				notes[i].CreatedAt, notes[i+1].CreatedAt)
		}
	}
	if notes[0].Text != "third" {
		t.Errorf("notes[0].Text = %q, want third", notes[0].Text)
	}
}

func TestListNotes_MissingOwner(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodGet, "/notes", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("list without owner = %d, want 400", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "bye", "userId": "u1"}, nil)
	var created CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, env.router, http.MethodDelete, "/notes/"+created.ID,
		map[string]string{"userId": "u1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Message == "" {
		t.Error("delete should return a confirmation message")
	}

	// Deleting the same id again is a 404.
	w = doJSON(t, env.router, http.MethodDelete, "/notes/"+created.ID,
		map[string]string{"userId": "u1"}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestDeleteNote_WrongOwner(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "u1's note", "userId": "u1"}, nil)
	var created CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, env.router, http.MethodDelete, "/notes/"+created.ID,
		map[string]string{"userId": "u2"}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete with wrong owner = %d, want 404", w.Code)
	}
}

func TestDeleteNote_MissingOwner(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	w := doJSON(t, env.router, http.MethodDelete, "/notes/1", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("delete without owner = %d, want 400", w.Code)
	}
}

// Notes written in fallback mode stay invisible once durable connectivity
// returns, and vice versa.
func TestModePartitionAcrossRequests(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	// Offline: write goes to the fallback store.
	*env.connected = false
	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "offline note", "userId": "u1"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	// Connectivity returns: the fallback note is gone from listings.
	*env.connected = true
	w = doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	var notes []models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 0 {
		t.Errorf("durable listing = %d notes, want 0", len(notes))
	}

	// A durable write is likewise invisible offline.
	doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "online note", "userId": "u1"}, nil)
	*env.connected = false
	w = doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	notes = nil
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 1 || notes[0].Text != "offline note" {
		t.Errorf("fallback listing = %+v, want only the offline note", notes)
	}
}

// Auth gate tests.

func signToken(t *testing.T, secret, sub, email string, expiry time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(expiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestEnforced_MissingToken(t *testing.T) {
	env := newTestEnv(t, auth.ModeEnforced, "secret123", nil)

	w := doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestEnforced_InvalidToken(t *testing.T) {
	env := newTestEnv(t, auth.ModeEnforced, "secret123", nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "u1", "", time.Hour))
	w := doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, header)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad signature = %d, want 401", w.Code)
	}
}

func TestEnforced_IdentitySuppliesOwner(t *testing.T) {
	env := newTestEnv(t, auth.ModeEnforced, "secret123", nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signToken(t, "secret123", "u-token", "u@example.com", time.Hour))

	// No userId in the body: the identity supplies it.
	w := doJSON(t, env.router, http.MethodPost, "/notes",
		map[string]string{"text": "owned by token"}, header)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	var created CreateNoteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.UserID != "u-token" {
		t.Errorf("owner = %q, want u-token", created.UserID)
	}

	// An explicit userId is overridden by the identity.
	w = doJSON(t, env.router, http.MethodGet, "/notes?userId=somebody-else", nil, header)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var notes []models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 1 || notes[0].UserID != "u-token" {
		t.Errorf("listing = %+v, want the token owner's note", notes)
	}
}

func TestHealth_BypassesAuth(t *testing.T) {
	env := newTestEnv(t, auth.ModeEnforced, "secret123", nil)

	w := doJSON(t, env.router, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("health behind auth = %d, want 200", w.Code)
	}
}

func TestCORS_PreflightAllowed(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	req := httptest.NewRequest(http.MethodOptions, "/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("preflight = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Errorf("allow-methods = %q, want POST allowed", got)
	}
}

func TestCORS_PreflightBypassesAuth(t *testing.T) {
	env := newTestEnv(t, auth.ModeEnforced, "secret123", nil)

	// Browsers never attach credentials to preflights.
	req := httptest.NewRequest(http.MethodOptions, "/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("preflight behind auth = %d, want 200", w.Code)
	}
}

func TestCORS_ActualRequestCarriesHeader(t *testing.T) {
	env := newTestEnv(t, auth.ModeDisabled, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/notes?userId=u1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}

func TestDevMode_BypassesVerification(t *testing.T) {
	env := newTestEnv(t, auth.ModeDev, "secret123", nil)

	w := doJSON(t, env.router, http.MethodGet, "/notes?userId=u1", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("dev mode without token = %d, want 200", w.Code)
	}
}
