package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/claimlab/annotation-backend/internal/config"
	"github.com/claimlab/annotation-backend/internal/dataset"
	"github.com/claimlab/annotation-backend/internal/handlers"
	"github.com/claimlab/annotation-backend/internal/logger"
	"github.com/claimlab/annotation-backend/internal/middleware"
	"github.com/claimlab/annotation-backend/internal/services"
	"github.com/claimlab/annotation-backend/internal/session"
	"github.com/claimlab/annotation-backend/internal/storage"
)

type testApp struct {
	router  *gin.Engine
	dataDir string
}

func newTestApp(t *testing.T, posts []map[string]string) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "pilot_data.json")
	data, err := json.Marshal(posts)
	if err != nil {
		t.Fatalf("marshal dataset: %v", err)
	}
	if err := os.WriteFile(datasetPath, data, 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	guidelinesPath := filepath.Join(dir, "guidelines.md")
	if err := os.WriteFile(guidelinesPath, []byte("# Guidelines\nFirst decide claim.<br>Then decide worth."), 0o644); err != nil {
		t.Fatalf("write guidelines: %v", err)
	}
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		t.Fatalf("mkdir images: %v", err)
	}

	cfg := &config.Config{
		StorageType:    config.StorageLocal,
		GuidelinesFile: guidelinesPath,
		ShuffleSeed:    42,
		Annotators:     []string{"annotator_01", "annotator_02"},
		Assignments: []config.Assignment{{
			Annotators:  []string{"annotator_01", "annotator_02"},
			DatasetFile: datasetPath,
			ImagesDir:   imagesDir,
		}},
	}

	dataDir := t.TempDir()
	local := storage.NewLocalBackend(dataDir, log)
	store := storage.NewStore(local, local, log)
	catalog := dataset.NewCatalog(cfg.ShuffleSeed, cfg.DatasetLimit, log)
	service := services.NewAnnotationService(cfg, catalog, store, session.NewRegistry(), log)

	router := NewRouter(RouterConfig{
		AuthHandler:       handlers.NewAuthHandler(log, service),
		AnnotationHandler: handlers.NewAnnotationHandler(log, service),
		ContentHandler:    handlers.NewContentHandler(log, service),
		StorageHandler:    handlers.NewStorageHandler(log, service),
		SessionMiddleware: middleware.NewSessionMiddleware(log, service),
	})
	return &testApp{router: router, dataDir: dataDir}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %s: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func (a *testApp) login(t *testing.T, annotatorID string) string {
	t.Helper()
	w, body := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"annotator_id": annotatorID})
	if w.Code != http.StatusOK {
		t.Fatalf("login status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func twoPosts() []map[string]string {
	return []map[string]string{
		{"postId": "p_a", "text": "claim text a", "image_id": ""},
		{"postId": "p_b", "text": "claim text b", "image_id": ""},
	}
}

func TestHealthcheck(t *testing.T) {
	app := newTestApp(t, twoPosts())
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthcheck status: want=200 got=%d", w.Code)
	}
}

func TestLoginRejectsUnknownAnnotator(t *testing.T) {
	app := newTestApp(t, twoPosts())
	w, body := app.do(t, http.MethodPost, "/api/login", "", map[string]string{"annotator_id": "annotator_99"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("login status: want=403 got=%d", w.Code)
	}
	if body["error"] == nil {
		t.Fatalf("expected error envelope, got %v", body)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t, twoPosts())
	w, _ := app.do(t, http.MethodGet, "/api/item", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("item without token: want=401 got=%d", w.Code)
	}
	w, _ = app.do(t, http.MethodGet, "/api/item", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("item with bogus token: want=401 got=%d", w.Code)
	}
}

func TestAnnotationFlow(t *testing.T) {
	app := newTestApp(t, twoPosts())
	token := app.login(t, "annotator_01")

	// Submitting before annotating anything is rejected.
	w, _ := app.do(t, http.MethodPost, "/api/annotations/submit", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty submit: want=400 got=%d", w.Code)
	}

	// The first item arrives with the pre-selected defaults.
	w, body := app.do(t, http.MethodGet, "/api/item", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("item status: want=200 got=%d", w.Code)
	}
	display, _ := body["display"].(map[string]any)
	if display["claim_status"] != "No Claim" {
		t.Fatalf("default claim status: want=No Claim got=%v", display["claim_status"])
	}

	// An inconsistent answer is rejected without advancing.
	w, _ = app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{"claim_status": "Claim"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("claim without checkworthiness: want=400 got=%d", w.Code)
	}

	w, _ = app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{
		"claim_status":    "Claim",
		"checkworthiness": "Check-worthy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("first answer: want=200 got=%d body=%s", w.Code, w.Body.String())
	}

	// Submit is a completion-page action; mid-sequence it is rejected.
	w, _ = app.do(t, http.MethodPost, "/api/annotations/submit", token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("mid-sequence submit: want=409 got=%d", w.Code)
	}

	w, body = app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{"claim_status": "No Claim"})
	if w.Code != http.StatusOK {
		t.Fatalf("second answer: want=200 got=%d", w.Code)
	}
	if body["state"] != "complete" {
		t.Fatalf("state after last item: want=complete got=%v", body["state"])
	}

	// Past the end only submit remains available.
	w, _ = app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{"claim_status": "No Claim"})
	if w.Code != http.StatusConflict {
		t.Fatalf("next past the end: want=409 got=%d", w.Code)
	}

	w, body = app.do(t, http.MethodPost, "/api/annotations/submit", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if body["submitted"] != float64(2) {
		t.Fatalf("submitted count: want=2 got=%v", body["submitted"])
	}

	// The commit landed as the annotator's JSONL file.
	path := filepath.Join(app.dataDir, "annotator_01", "annotations", "annotator_01_annotations.jsonl")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected committed file at %s: %v", path, err)
	}

	// A committed record can be amended by post id.
	w, _ = app.do(t, http.MethodPut, "/api/annotations/p_a", token, map[string]any{
		"claim_status":    "Claim",
		"checkworthiness": "Not Check-worthy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	w, _ = app.do(t, http.MethodPut, "/api/annotations/p_missing", token, map[string]any{"claim_status": "No Claim"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("update of unknown post: want=404 got=%d", w.Code)
	}
}

func TestPreviousRestoresPendingAnswer(t *testing.T) {
	app := newTestApp(t, twoPosts())
	token := app.login(t, "annotator_01")

	w, _ := app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{
		"claim_status":    "Claim",
		"checkworthiness": "Not Check-worthy",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("next: want=200 got=%d", w.Code)
	}

	w, body := app.do(t, http.MethodPost, "/api/item/previous", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("previous: want=200 got=%d", w.Code)
	}
	display, _ := body["display"].(map[string]any)
	if display["claim_status"] != "Claim" || display["checkworthiness"] != "Not Check-worthy" {
		t.Fatalf("revisited display: %v", display)
	}
}

func TestResumeAfterRelogin(t *testing.T) {
	app := newTestApp(t, []map[string]string{
		{"postId": "p_a", "text": "claim text a", "image_id": ""},
	})
	token := app.login(t, "annotator_01")

	w, _ := app.do(t, http.MethodPost, "/api/item/next", token, map[string]any{"claim_status": "No Claim"})
	if w.Code != http.StatusOK {
		t.Fatalf("next: want=200 got=%d", w.Code)
	}
	w, _ = app.do(t, http.MethodPost, "/api/annotations/submit", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: want=200 got=%d", w.Code)
	}

	// Re-login invalidates the old token and resumes past committed work.
	newToken := app.login(t, "annotator_01")
	w, _ = app.do(t, http.MethodGet, "/api/item", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("stale token: want=401 got=%d", w.Code)
	}
	w, body := app.do(t, http.MethodGet, "/api/progress", newToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("progress: want=200 got=%d", w.Code)
	}
	if body["submitted"] != float64(0) {
		t.Fatalf("fresh session submitted counter: want=0 got=%v", body["submitted"])
	}
	if body["cursor"] != float64(1) {
		t.Fatalf("resumed cursor: want=1 got=%v", body["cursor"])
	}
	w, body = app.do(t, http.MethodGet, "/api/item", newToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("item: want=200 got=%d", w.Code)
	}
	if body["state"] != "complete" {
		t.Fatalf("resumed state: want=complete got=%v", body["state"])
	}
}

func TestGuidelinesEndpoint(t *testing.T) {
	app := newTestApp(t, twoPosts())
	token := app.login(t, "annotator_01")

	w, body := app.do(t, http.MethodGet, "/api/guidelines", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("guidelines: want=200 got=%d", w.Code)
	}
	text, _ := body["guidelines"].(string)
	if text == "" {
		t.Fatalf("guidelines payload: %v", body)
	}
	if bytes.Contains([]byte(text), []byte("<br>")) {
		t.Fatal("guidelines still contain <br> markers")
	}
}

func TestStorageStatusEndpoint(t *testing.T) {
	app := newTestApp(t, twoPosts())
	token := app.login(t, "annotator_01")

	w, body := app.do(t, http.MethodGet, "/api/storage/status", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("storage status: want=200 got=%d", w.Code)
	}
	if body["primary"] != "local" {
		t.Fatalf("primary: want=local got=%v", body["primary"])
	}
}
