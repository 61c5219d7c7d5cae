package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/awidyan/homeboard/internal/models"
)

func TestWatch_PushesMarkerOnSave(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv.engine)
	defer httpSrv.Close()

	// Materialize the document so the initial frame carries a marker.
	resp, err := http.Get(httpSrv.URL + "/api/config")
	if err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	_ = resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/config/watch"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial watch endpoint: %v", err)
	}
	defer func() { _ = ws.Close() }()

	var initial struct {
		ModificationMarker int64 `json:"modification_marker"`
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&initial); err != nil {
		t.Fatalf("failed to read initial frame: %v", err)
	}
	if initial.ModificationMarker == 0 {
		t.Error("expected a non-zero initial marker")
	}

	doc := models.DefaultDashboard()
	doc.Services = []models.Service{{Name: "Grafana", URL: "http://grafana.local:3000"}}
	go func() {
		// Save through the store directly; the hub is wired to it.
		_, _ = srv.store.Save(doc)
	}()

	var pushed struct {
		ModificationMarker int64 `json:"modification_marker"`
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&pushed); err != nil {
		t.Fatalf("failed to read pushed frame: %v", err)
	}
	if pushed.ModificationMarker <= initial.ModificationMarker {
		t.Errorf("expected pushed marker to advance: %d -> %d", initial.ModificationMarker, pushed.ModificationMarker)
	}
}
