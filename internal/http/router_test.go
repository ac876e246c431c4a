package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/watchdex/go-watch-backend/internal/config"
	"github.com/watchdex/go-watch-backend/internal/repo"
	"github.com/watchdex/go-watch-backend/internal/services"
	"github.com/watchdex/go-watch-backend/internal/storage"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedCatalog(context.Background(), db); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return db
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Auth:        config.AuthConfig{JWTSecret: "router-test-secret", TokenTTL: 3600000000000, BcryptCost: 4},
		Quota:       config.QuotaConfig{FreeQuota: 3},
		Upload:      config.UploadConfig{Path: t.TempDir(), MaxBytes: 10 << 20, MaxDim: 256, JPEGQual: 80, PublicURL: "/uploads"},
	}
}

// newTestServer wires the full stack against an in-memory DB.
func newTestServer(t *testing.T) (*gin.Engine, *services.TriageService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig(t)
	db := newTestDB(t)
	images, err := storage.NewImageStore(cfg.Upload.Path, cfg.Upload.PublicURL, cfg.Upload.MaxDim, cfg.Upload.JPEGQual)
	if err != nil {
		t.Fatalf("image store: %v", err)
	}
	triage := RegisterRoutes(r, db, images, cfg)
	return r, triage
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

// signUp registers a throwaway account and returns its bearer token.
func signUp(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"email":    uuid.NewString() + "@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("signup returned no token")
	}
	return resp.Token
}

func watchBody(brand string) gin.H {
	return gin.H{
		"brand": brand, "model": "Speedmaster", "year": "1998", "value": 5200,
		"movement": "Manual", "material": "Stainless Steel", "style": "Chronograph",
		"type": "Collection",
	}
}

func TestRouter_HealthMetricsFallbacks(t *testing.T) {
	r, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	r, _ := newTestServer(t)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/watches"},
		{http.MethodPost, "/api/v1/watches"},
		{http.MethodGet, "/api/v1/triage/feed"},
		{http.MethodGet, "/api/v1/entitlement"},
	} {
		w := doJSON(t, r, probe.method, probe.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token = %d; want 401", probe.method, probe.path, w.Code)
		}
	}
}

func TestRouter_WatchLifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	token := signUp(t, r)

	// Create.
	w := doJSON(t, r, http.MethodPost, "/api/v1/watches", token, watchBody("Omega"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID    string  `json:"id"`
		Brand string  `json:"brand"`
		Value float64 `json:"value"`
	}
	decode(t, w, &created)
	if created.ID == "" || created.Brand != "Omega" || created.Value != 5200 {
		t.Fatalf("created = %+v", created)
	}

	// List carries an ETag; replaying it yields 304.
	w = doJSON(t, r, http.MethodGet, "/api/v1/watches", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("list response missing ETag")
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("conditional list = %d; want 304", w2.Code)
	}

	// Replace whole document.
	replacement := watchBody("Tudor")
	w = doJSON(t, r, http.MethodPut, "/api/v1/watches/"+created.ID, token, replacement)
	if w.Code != http.StatusOK {
		t.Fatalf("replace = %d: %s", w.Code, w.Body.String())
	}

	// Summary reflects the record.
	w = doJSON(t, r, http.MethodGet, "/api/v1/watches/summary", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d", w.Code)
	}
	var sum struct {
		TotalValue     float64 `json:"total_value"`
		MostOwnedBrand string  `json:"most_owned_brand"`
	}
	decode(t, w, &sum)
	if sum.TotalValue != 5200 || sum.MostOwnedBrand != "Tudor" {
		t.Fatalf("summary = %+v", sum)
	}

	// Delete.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/watches/"+created.ID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/v1/watches/"+created.ID, token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d; want 404", w.Code)
	}
}

func TestRouter_QuotaGateAndPurchase(t *testing.T) {
	r, _ := newTestServer(t)
	token := signUp(t, r)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/v1/watches", token, watchBody("Seiko"))
		if w.Code != http.StatusCreated {
			t.Fatalf("create %d = %d: %s", i, w.Code, w.Body.String())
		}
	}

	// Fourth record trips the free quota.
	w := doJSON(t, r, http.MethodPost, "/api/v1/watches", token, watchBody("Seiko"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("over-quota create = %d; want 403", w.Code)
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decode(t, w, &envelope)
	if envelope.Code != "quota_exceeded" {
		t.Fatalf("code = %q", envelope.Code)
	}

	// Purchasing premium lifts the gate.
	w = doJSON(t, r, http.MethodPost, "/api/v1/entitlement/purchase", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("purchase = %d", w.Code)
	}
	var ent struct {
		Premium bool `json:"premium"`
	}
	decode(t, w, &ent)
	if !ent.Premium {
		t.Fatal("purchase did not activate premium")
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/watches", token, watchBody("Seiko"))
	if w.Code != http.StatusCreated {
		t.Fatalf("entitled create = %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_TriageFlow(t *testing.T) {
	r, triage := newTestServer(t)
	token := signUp(t, r)

	// Load the feed from the seeded catalog.
	w := doJSON(t, r, http.MethodGet, "/api/v1/triage/feed", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("feed = %d: %s", w.Code, w.Body.String())
	}
	var state struct {
		Queue   []map[string]any `json:"queue"`
		Current string           `json:"current"`
		Empty   bool             `json:"empty"`
	}
	decode(t, w, &state)
	if state.Empty || len(state.Queue) == 0 {
		t.Fatalf("feed state = %+v", state)
	}
	// Copy the head card: decode reuses the maps in state.Queue, so a bare
	// alias would be overwritten by the next decode into state.
	first := make(map[string]any, len(state.Queue[0]))
	for k, v := range state.Queue[0] {
		first[k] = v
	}
	if state.Current != first["id"] {
		t.Fatalf("current = %v; want head of queue", state.Current)
	}

	// Accept the head card.
	w = doJSON(t, r, http.MethodPost, "/api/v1/triage/decide", token, gin.H{
		"card":      first,
		"direction": "accept",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("decide = %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &state)
	for _, c := range state.Queue {
		if c["id"] == first["id"] {
			t.Fatal("accepted card still in queue")
		}
	}

	// The background write lands and surfaces in the outcome feed.
	triage.Drain()
	w = doJSON(t, r, http.MethodGet, "/api/v1/triage/outcomes", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("outcomes = %d", w.Code)
	}
	var out struct {
		Outcomes []struct {
			OK    bool `json:"ok"`
			Watch *struct {
				ID string `json:"id"`
			} `json:"watch"`
		} `json:"outcomes"`
	}
	decode(t, w, &out)
	if len(out.Outcomes) != 1 || !out.Outcomes[0].OK || out.Outcomes[0].Watch == nil {
		t.Fatalf("outcomes = %+v", out)
	}
	if out.Outcomes[0].Watch.ID == first["id"] {
		t.Fatal("accepted copy reused the catalog identifier")
	}

	// The accepted copy is in the collection.
	w = doJSON(t, r, http.MethodGet, "/api/v1/watches", token, nil)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 1 {
		t.Fatalf("collection size = %d; want 1", list.Total)
	}

	// Bad direction is rejected.
	w = doJSON(t, r, http.MethodPost, "/api/v1/triage/decide", token, gin.H{
		"card":      first,
		"direction": "sideways",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad direction = %d; want 400", w.Code)
	}
}

func TestRouter_UploadAndServe(t *testing.T) {
	r, _ := newTestServer(t)
	token := signUp(t, r)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "watch.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}
	var up struct {
		URL string `json:"url"`
	}
	decode(t, w, &up)
	if up.URL == "" {
		t.Fatal("upload returned no URL")
	}

	// The returned URL resolves through the static route.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, up.URL, nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET %s = %d len=%d", up.URL, w.Code, w.Body.Len())
	}

	// Non-image payloads are rejected as image_invalid.
	var junk bytes.Buffer
	mw = multipart.NewWriter(&junk)
	part, _ = mw.CreateFormFile("image", "notes.txt")
	part.Write([]byte("not an image"))
	mw.Close()

	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &junk)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("junk upload = %d; want 400", w.Code)
	}
	var envelope struct {
		Code string `json:"code"`
	}
	decode(t, w, &envelope)
	if envelope.Code != "image_invalid" {
		t.Fatalf("code = %q", envelope.Code)
	}
}

func TestRouter_EmailChangeFlow(t *testing.T) {
	r, _ := newTestServer(t)
	token := signUp(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/email-change", token, gin.H{
		"new_email": "fresh@example.com",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("email-change = %d: %s", w.Code, w.Body.String())
	}
	var staged struct {
		Token string `json:"token"`
	}
	decode(t, w, &staged)
	if staged.Token == "" {
		t.Fatal("no verification token returned")
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/email-change/confirm", token, gin.H{
		"token": staged.Token,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("confirm = %d: %s", w.Code, w.Body.String())
	}

	// Sign in with the new address proves the change landed.
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/signin", "", gin.H{
		"email":    "fresh@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signin with new email = %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_DeleteAccountCascades(t *testing.T) {
	r, _ := newTestServer(t)
	token := signUp(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/watches", token, watchBody("Omega"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/auth/account", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete account = %d: %s", w.Code, w.Body.String())
	}

	// The token's subject no longer exists; the cascade removed the watches.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/auth/account", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d; want 404", w.Code)
	}
}
