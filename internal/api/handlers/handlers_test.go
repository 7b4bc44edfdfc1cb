package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/store"
	"github.com/playmatatu/pooltable/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router  *gin.Engine
	manager *room.Manager
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &config.Config{
		JWTSecret:      "secret",
		SeatTokenHours: 1,
		TickHz:         60,
		BroadcastHz:    20,
		TableWidth:     1000,
		TableHeight:    700,
		MaxTables:      2,
	}
	hub := ws.NewHub()
	manager := room.NewManager(ctx, cfg, hub)
	st := store.New(nil, nil)
	t.Cleanup(func() {
		manager.Shutdown()
		cancel()
	})

	r := gin.New()
	r.GET("/health", HealthCheck(manager, nil, nil))
	r.POST("/tables", CreateTable(manager, nil, cfg))
	r.GET("/tables/:token", GetTable(manager, st))
	r.GET("/tables/:token/events", ListTableEvents(st))
	r.POST("/tables/:token/reset", ResetTable(manager, cfg))
	r.GET("/admin/tables", AdminListTables(manager, hub))
	r.DELETE("/admin/tables/:token", AdminCloseTable(manager, nil))
	return &fixture{router: r, manager: manager, cfg: cfg}
}

func (f *fixture) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) create(t *testing.T, body string) CreateTableResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/tables", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	var resp CreateTableResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["redis"] != "disabled" || body["postgres"] != "disabled" {
		t.Errorf("body = %v", body)
	}
}

func TestCreateAndGetTable(t *testing.T) {
	f := newFixture(t)
	resp := f.create(t, "")

	if resp.Kind != "pool" || resp.Width != 1000 || resp.SeatToken == "" {
		t.Errorf("resp = %+v", resp)
	}

	w := f.do(http.MethodGet, "/tables/"+resp.Token, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var body struct {
		Live     bool `json:"live"`
		Snapshot struct {
			Balls []json.RawMessage `json:"balls"`
			Holes []json.RawMessage `json:"holes"`
		} `json:"snapshot"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if !body.Live || len(body.Snapshot.Balls) != 11 || len(body.Snapshot.Holes) != 6 {
		t.Errorf("live=%v balls=%d holes=%d", body.Live, len(body.Snapshot.Balls), len(body.Snapshot.Holes))
	}
}

func TestCreateTableValidation(t *testing.T) {
	f := newFixture(t)
	cases := []string{
		`{"kind":"snooker"}`,
		`{"width":50}`,
		`{"kind":`,
	}
	for _, body := range cases {
		if w := f.do(http.MethodPost, "/tables", body, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestCreateTableLimit(t *testing.T) {
	f := newFixture(t)
	f.create(t, `{"kind":"cannon"}`)
	f.create(t, "")
	if w := f.do(http.MethodPost, "/tables", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestGetUnknownTable(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodGet, "/tables/nope", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestEventsWithoutHistory(t *testing.T) {
	f := newFixture(t)
	if w := f.do(http.MethodGet, "/tables/nope/events", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestResetTable(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "")
	b := f.create(t, `{"kind":"cannon"}`)

	if w := f.do(http.MethodPost, "/tables/"+a.Token+"/reset", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/tables/"+a.Token+"/reset", "", b.SeatToken); w.Code != http.StatusForbidden {
		t.Errorf("other table's seat: status = %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/tables/"+a.Token+"/reset", "", a.SeatToken); w.Code != http.StatusAccepted {
		t.Errorf("valid seat: status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestAdminListAndClose(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "")

	w := f.do(http.MethodGet, "/admin/tables", "", "")
	var list struct {
		Count  int `json:"count"`
		Tables []struct {
			Token   string `json:"token"`
			Clients int    `json:"clients"`
		} `json:"tables"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 1 || list.Tables[0].Token != a.Token {
		t.Fatalf("list = %+v", list)
	}

	if w := f.do(http.MethodDelete, "/admin/tables/"+a.Token, "", ""); w.Code != http.StatusOK {
		t.Errorf("close status = %d", w.Code)
	}
	if w := f.do(http.MethodDelete, "/admin/tables/"+a.Token, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("second close status = %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/tables/"+a.Token, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("get after close status = %d", w.Code)
	}
}

func TestGetClosedTableWithoutBackends(t *testing.T) {
	f := newFixture(t)
	resp := f.create(t, "")
	if err := f.manager.Close(resp.Token); err != nil {
		t.Fatal(err)
	}
	if w := f.do(http.MethodGet, "/tables/"+resp.Token, "", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
