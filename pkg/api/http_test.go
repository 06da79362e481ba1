package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"parrotdb/pkg/chat"
	"parrotdb/pkg/fallback"
	"parrotdb/pkg/models"
	"parrotdb/pkg/security"
	"parrotdb/pkg/store"
	"parrotdb/pkg/utils"
)

const testAdminKey = "test-admin-key"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close() })
	fb, err := fallback.NewPool("")
	if err != nil {
		t.Fatalf("fallback.NewPool: %v", err)
	}
	svc := chat.New(catalog, fb, chat.Config{})

	r := mux.NewRouter()
	srv := NewServer(svc, catalog, 5*time.Second)
	srv.Register(r)
	srv.RegisterAdmin(r)
	return security.Middleware(security.SecConfig{
		AdminKey: testAdminKey, RPS: 1000, Burst: 1000,
	})(r)
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestTeachThenLookupFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := doGet(t, h, "/v1/chat?teach=hi&reply=Hello,Hi+there&senderID=u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("teach status %d: %s", rec.Code, rec.Body.String())
	}
	taught := decode[models.TeachResult](t, rec)
	if !taught.Created || taught.ReplyCount != 2 {
		t.Fatalf("teach result: %+v", taught)
	}

	rec = doGet(t, h, "/v1/chat?text=hi&mode=sequential")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[models.LookupResult](t, rec)
	if !got.Found || got.Matched != "hi" || got.Reply == "" {
		t.Fatalf("lookup result: %+v", got)
	}
	if got.Reactions == nil {
		t.Fatalf("reactions must serialize as [], got null")
	}
}

func TestLookupMissReturnsFallback(t *testing.T) {
	h := newTestHandler(t)
	rec := doGet(t, h, "/v1/chat?text=nothing+taught+yet&mode=sequential")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	got := decode[models.LookupResult](t, rec)
	if got.Found || got.Reply == "" {
		t.Fatalf("miss result: %+v", got)
	}
}

func TestErrorPayloadShape(t *testing.T) {
	h := newTestHandler(t)

	rec := doGet(t, h, "/v1/chat?remove=ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove missing: status %d", rec.Code)
	}
	p := decode[utils.ErrorPayload](t, rec)
	if p.Status || p.Error != "not_found" || p.Message == "" || p.Timestamp == "" {
		t.Fatalf("error payload: %+v", p)
	}
}

func TestEditConflict(t *testing.T) {
	h := newTestHandler(t)
	doGet(t, h, "/v1/chat?teach=hi&reply=a")
	doGet(t, h, "/v1/chat?teach=bye&reply=b")

	rec := doGet(t, h, "/v1/chat?edit=hi&replace=bye")
	if rec.Code != http.StatusConflict {
		t.Fatalf("edit conflict: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = doGet(t, h, "/v1/chat?edit=hi&replace=hi")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("identical edit: status %d", rec.Code)
	}
	rec = doGet(t, h, "/v1/chat?edit=hi&replace=hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestListSearchStats(t *testing.T) {
	h := newTestHandler(t)
	doGet(t, h, "/v1/chat?teach=good+morning&reply=Morning!")
	doGet(t, h, "/v1/chat?teach=bye&reply=Later")

	rec := doGet(t, h, "/v1/chat?list=all")
	list := decode[models.ListResult](t, rec)
	if rec.Code != http.StatusOK || list.Pagination.Total != 2 {
		t.Fatalf("list: %d %+v", rec.Code, list)
	}

	rec = doGet(t, h, "/v1/chat?search=morning")
	found := decode[models.SearchResult](t, rec)
	if rec.Code != http.StatusOK || len(found.Results) != 1 {
		t.Fatalf("search: %d %+v", rec.Code, found)
	}

	rec = doGet(t, h, "/v1/stats")
	st := decode[models.Stats](t, rec)
	if rec.Code != http.StatusOK || st.TotalMessages != 2 {
		t.Fatalf("stats: %d %+v", rec.Code, st)
	}
}

func TestServiceInfoOnBareChat(t *testing.T) {
	h := newTestHandler(t)
	rec := doGet(t, h, "/v1/chat")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	info := decode[map[string]any](t, rec)
	if info["service"] != "parrotdb" {
		t.Fatalf("info payload: %v", info)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	h := newTestHandler(t)
	doGet(t, h, "/v1/chat?teach=hi&reply=a")

	rec := doGet(t, h, "/v1/admin/backup")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("backup without key: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/backup", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("backup with key: status %d body %s", rec.Code, rec.Body.String())
	}
	dump := decode[map[string]any](t, rec)
	if dump["count"].(float64) != 1 {
		t.Fatalf("backup payload: %v", dump)
	}

	// the password query parameter works as well, for curl-driven admin
	rec = doGet(t, h, "/v1/admin/status?password="+testAdminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with password: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/admin/catalog", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: status %d", rec.Code)
	}
	cleared := decode[map[string]any](t, rec)
	if cleared["cleared"].(float64) != 1 {
		t.Fatalf("clear payload: %v", cleared)
	}

	rec = doGet(t, h, "/v1/chat?list=all")
	list := decode[models.ListResult](t, rec)
	if list.Pagination.Total != 0 {
		t.Fatalf("catalog not cleared: %+v", list)
	}
}
