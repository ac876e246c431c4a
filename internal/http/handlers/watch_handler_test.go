package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/watchdex/go-watch-backend/internal/domain"
	"github.com/watchdex/go-watch-backend/internal/services"
	"github.com/watchdex/go-watch-backend/internal/stats"
)

// ----- Fakes -----

type fakeWatchSvc struct {
	addErr     error
	added      *services.WatchInput
	list       []domain.Watch
	listErr    error
	summary    stats.Summary
	replaceErr error
	deleteErr  error
}

func (f *fakeWatchSvc) Add(ctx context.Context, userID string, in services.WatchInput) (*domain.Watch, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = &in
	return &domain.Watch{ID: "w1", UserID: userID, Brand: in.Brand}, nil
}

func (f *fakeWatchSvc) List(ctx context.Context, userID, typ string) ([]domain.Watch, error) {
	return f.list, f.listErr
}

func (f *fakeWatchSvc) Summary(ctx context.Context, userID string) (stats.Summary, error) {
	return f.summary, nil
}

func (f *fakeWatchSvc) Replace(ctx context.Context, userID, id string, in services.WatchInput) (*domain.Watch, error) {
	if f.replaceErr != nil {
		return nil, f.replaceErr
	}
	return &domain.Watch{ID: id, UserID: userID, Brand: in.Brand}, nil
}

func (f *fakeWatchSvc) Delete(ctx context.Context, userID, id string) error {
	return f.deleteErr
}

type fakeAuthSvc struct{}

func (fakeAuthSvc) SignUp(ctx context.Context, email, password string) (*services.Session, error) {
	return &services.Session{User: &domain.User{ID: "u1", Email: email}, Token: "tok"}, nil
}
func (fakeAuthSvc) SignIn(ctx context.Context, email, password string) (*services.Session, error) {
	return nil, services.ErrInvalidCredentials
}
func (fakeAuthSvc) SignInAnonymously(ctx context.Context) (*services.Session, error) {
	return &services.Session{User: &domain.User{ID: "anon", Anonymous: true}, Token: "tok"}, nil
}
func (fakeAuthSvc) DeleteAccount(ctx context.Context, userID string) error { return nil }
func (fakeAuthSvc) RequestEmailChange(ctx context.Context, userID, newEmail string) (string, error) {
	return "change-token", nil
}
func (fakeAuthSvc) ConfirmEmailChange(ctx context.Context, userID, token string) error {
	if token != "change-token" {
		return services.ErrBadToken
	}
	return nil
}
func (fakeAuthSvc) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return "reset-token", nil
}
func (fakeAuthSvc) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	return nil
}

type fakeTriageSvc struct {
	decided   []services.Direction
	ended     []string
	decideErr error
}

func (f *fakeTriageSvc) Load(userID string, cards []domain.Card) services.SessionState {
	return services.SessionState{Queue: cards, Current: cards[0].ID}
}
func (f *fakeTriageSvc) Decide(ctx context.Context, userID string, card domain.Card, dir services.Direction) (services.SessionState, error) {
	if f.decideErr != nil {
		return services.SessionState{}, f.decideErr
	}
	f.decided = append(f.decided, dir)
	return services.SessionState{Queue: []domain.Card{}, Empty: true}, nil
}
func (f *fakeTriageSvc) State(userID string) services.SessionState {
	return services.SessionState{Empty: true}
}
func (f *fakeTriageSvc) DrainOutcomes(userID string) []services.Outcome { return []services.Outcome{} }
func (f *fakeTriageSvc) EndSession(userID string)                       { f.ended = append(f.ended, userID) }

type fakeEntSvc struct{ active bool }

func (f *fakeEntSvc) Status(ctx context.Context, userID string) (bool, error) { return f.active, nil }
func (f *fakeEntSvc) Purchase(ctx context.Context, userID string) (bool, error) {
	f.active = true
	return true, nil
}
func (f *fakeEntSvc) Restore(ctx context.Context, userID string) (bool, error) {
	return f.active, nil
}

type fakeFeed struct{ cards []domain.Card }

func (f fakeFeed) Cards(ctx context.Context) ([]domain.Card, error) { return f.cards, nil }

type fakeImages struct{ url string }

func (f fakeImages) Save(r io.Reader) (string, error) { return f.url, nil }

func newTestHandlers(watch *fakeWatchSvc, triage *fakeTriageSvc) (*gin.Engine, *Handlers) {
	gin.SetMode(gin.TestMode)
	h := New(fakeAuthSvc{}, watch, triage, &fakeEntSvc{}, fakeFeed{cards: []domain.Card{{ID: "c1"}}}, fakeImages{url: "/uploads/x.jpg"})
	r := gin.New()
	r.POST("/watches", h.CreateWatch)
	r.GET("/watches", h.ListWatches)
	r.GET("/watches/summary", h.WatchSummary)
	r.PUT("/watches/:id", h.ReplaceWatch)
	r.DELETE("/watches/:id", h.DeleteWatch)
	r.GET("/triage/feed", h.TriageFeed)
	r.POST("/triage/decide", h.TriageDecide)
	r.POST("/auth/signout", h.SignOut)
	return r, h
}

func request(r *gin.Engine, method, path, user string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return resp.Code
}

// ----- Tests -----

func TestCreateWatch_OK(t *testing.T) {
	svc := &fakeWatchSvc{}
	r, _ := newTestHandlers(svc, &fakeTriageSvc{})

	w := request(r, http.MethodPost, "/watches", "u1",
		`{"brand":"Omega","model":"Seamaster","year":"2018","value":"4200.5","rarity_score":9.1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if svc.added == nil || svc.added.Value != "4200.5" {
		t.Fatalf("service got %+v", svc.added)
	}
}

func TestCreateWatch_AcceptsNumericValue(t *testing.T) {
	svc := &fakeWatchSvc{}
	r, _ := newTestHandlers(svc, &fakeTriageSvc{})

	w := request(r, http.MethodPost, "/watches", "u1",
		`{"brand":"Omega","model":"Seamaster","year":"2018","value":4200.5}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if svc.added.Value != "4200.5" {
		t.Fatalf("value = %q", svc.added.Value)
	}
}

func TestCreateWatch_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrValidation, http.StatusBadRequest, ErrCodeValidationFailed},
		{services.ErrQuotaExceeded, http.StatusForbidden, ErrCodeQuotaExceeded},
	}
	for _, tc := range cases {
		r, _ := newTestHandlers(&fakeWatchSvc{addErr: tc.err}, &fakeTriageSvc{})
		w := request(r, http.MethodPost, "/watches", "u1",
			`{"brand":"Omega","model":"Seamaster","year":"2018","value":"1"}`)
		if w.Code != tc.status || errCode(t, w) != tc.code {
			t.Fatalf("%v: status=%d code=%q", tc.err, w.Code, errCode(t, w))
		}
	}
}

func TestCreateWatch_Unauthenticated(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{}, &fakeTriageSvc{})
	w := request(r, http.MethodPost, "/watches", "", `{"brand":"Omega"}`)
	if w.Code != http.StatusUnauthorized || errCode(t, w) != ErrCodeUnauthorized {
		t.Fatalf("status=%d code=%q", w.Code, errCode(t, w))
	}
}

func TestListWatches_BadTypeFilter(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{}, &fakeTriageSvc{})
	w := request(r, http.MethodGet, "/watches?type=Archive", "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListWatches_TitleCasesTypeFilter(t *testing.T) {
	svc := &fakeWatchSvc{list: []domain.Watch{}}
	r, _ := newTestHandlers(svc, &fakeTriageSvc{})
	w := request(r, http.MethodGet, "/watches?type=wishlist", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestReplaceWatch_InvalidID(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{}, &fakeTriageSvc{})
	w := request(r, http.MethodPut, "/watches/not-a-uuid", "u1",
		`{"brand":"Omega","model":"Seamaster","year":"2018","value":"1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestReplaceWatch_NotFound(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{replaceErr: services.ErrWatchNotFound}, &fakeTriageSvc{})
	w := request(r, http.MethodPut, "/watches/141add05-4415-4938-b5a1-17e0d3171aff", "u1",
		`{"brand":"Omega","model":"Seamaster","year":"2018","value":"1"}`)
	if w.Code != http.StatusNotFound || errCode(t, w) != ErrCodeNotFound {
		t.Fatalf("status=%d code=%q", w.Code, errCode(t, w))
	}
}

func TestDeleteWatch_NotFound(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{deleteErr: services.ErrWatchNotFound}, &fakeTriageSvc{})
	w := request(r, http.MethodDelete, "/watches/w1", "u1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTriageFeed_LoadsCards(t *testing.T) {
	r, _ := newTestHandlers(&fakeWatchSvc{}, &fakeTriageSvc{})
	w := request(r, http.MethodGet, "/triage/feed", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"current":"c1"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestTriageDecide_Directions(t *testing.T) {
	triage := &fakeTriageSvc{}
	r, _ := newTestHandlers(&fakeWatchSvc{}, triage)

	w := request(r, http.MethodPost, "/triage/decide", "u1",
		`{"card":{"id":"c1"},"direction":"accept"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d: %s", w.Code, w.Body.String())
	}

	w = request(r, http.MethodPost, "/triage/decide", "u1",
		`{"card":{"id":"c1"},"direction":"sideways"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad direction status = %d", w.Code)
	}

	w = request(r, http.MethodPost, "/triage/decide", "u1", `{"direction":"accept"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing card status = %d", w.Code)
	}

	if len(triage.decided) != 1 || triage.decided[0] != services.DirectionAccept {
		t.Fatalf("decided = %v", triage.decided)
	}
}

func TestTriageDecide_Unauthenticated(t *testing.T) {
	triage := &fakeTriageSvc{}
	r, _ := newTestHandlers(&fakeWatchSvc{}, triage)

	w := request(r, http.MethodPost, "/triage/decide", "",
		`{"card":{"id":"c1"},"direction":"accept"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if len(triage.decided) != 0 {
		t.Fatal("unauthenticated decide must not reach the service")
	}
}

func TestSignOut_EndsTriageSession(t *testing.T) {
	triage := &fakeTriageSvc{}
	r, _ := newTestHandlers(&fakeWatchSvc{}, triage)

	w := request(r, http.MethodPost, "/auth/signout", "u1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if len(triage.ended) != 1 || triage.ended[0] != "u1" {
		t.Fatalf("ended = %v", triage.ended)
	}
}
