package sizing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewStatusServerDisabled(t *testing.T) {
	server := NewStatusServer(0)
	if server != nil {
		t.Fatal("port 0 should disable the server")
	}

	// every method must be a no-op on the disabled server
	server.Start()
	server.ReportProgress(Progress{Phase: "sampling"})
	server.SetResult(&Result{})
	if err := server.Stop(nil); err != nil {
		t.Errorf("Stop on disabled server returned %v", err)
	}
}

func TestHealthHandler(t *testing.T) {
	server := NewStatusServer(8080)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	server.healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}

	req = httptest.NewRequest(http.MethodPost, "/api/health", nil)
	rec = httptest.NewRecorder()
	server.healthHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestStatusHandlerCarriesProgressAndResult(t *testing.T) {
	server := NewStatusServer(8080)
	server.ReportProgress(Progress{Phase: "constraints", Scenario: 3, Scenarios: 10})
	server.SetResult(&Result{NumberOfModules: 5, StorageSizeKwh: 12.5, Status: "optimal"})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.statusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Type     string   `json:"type"`
		Progress Progress `json:"progress"`
		Result   *Result  `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Type != "status" {
		t.Errorf("type = %q, want status", body.Type)
	}
	if body.Progress.Phase != "constraints" || body.Progress.Scenario != 3 {
		t.Errorf("progress = %+v, want constraints scenario 3", body.Progress)
	}
	if body.Result == nil || body.Result.NumberOfModules != 5 {
		t.Errorf("result = %+v, want 5 modules", body.Result)
	}
}
