package cases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/amp-care/caselink/internal/platform/auth"
	"github.com/amp-care/caselink/internal/platform/matrix"
)

func setupAPI(t *testing.T, svc *Service, roles []string) *echo.Echo {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e
}

func TestCreateCaseEndpoint(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(newFakeRepo(), transport)
	e := setupAPI(t, svc, []string{"physician"})

	body := `{"title":"Fever","severity":"urgent","pulse":"72"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/!r:amp.care/case", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcomes []SendOutcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Outcomes) != 2 {
		t.Errorf("outcomes = %+v, want case + observation", resp.Outcomes)
	}
}

func TestCreateCaseEndpointPartialFailure(t *testing.T) {
	transport := &fakeTransport{failOn: matrix.EventTypeObservation}
	svc := newTestService(newFakeRepo(), transport)
	e := setupAPI(t, svc, []string{"physician"})

	body := `{"title":"Fever","pulse":"72"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/!r:amp.care/case", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusMultiStatus {
		t.Errorf("status = %d, want 207 on partial failure", rec.Code)
	}
}

func TestEndpointsRequireRole(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeTransport{})
	e := setupAPI(t, svc, []string{"billing"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/!r:amp.care/projection", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestIngestThenProjectionEndpoint(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeTransport{})
	e := setupAPI(t, svc, []string{"nurse"})

	ingest := `{"events":[
		{"event_id":"$case","type":"care.amp.case","state_key":"care.amp.case",
		 "content":{"title":"Fall at home","severity":"critical"}},
		{"event_id":"$obs","type":"m.room.encrypted","content":{"algorithm":"m.megolm.v1.aes-sha2"},
		 "clear_type":"care.amp.observation",
		 "clear_content":{"id":"body-temperature","valueQuantity":{"value":"38.9"},"effectiveDateTime":"2026-03-01T08:00:00Z"}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/!r:amp.care/events", strings.NewReader(ingest))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rooms/!r:amp.care/projection", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("projection status = %d", rec.Code)
	}

	var p struct {
		Header struct {
			Title    string `json:"title"`
			Severity string `json:"severity"`
		} `json:"header"`
		LatestByKind map[string]struct {
			Value string `json:"value"`
		} `json:"latestByKind"`
		SeverityStyle string `json:"severityStyle"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode projection: %v", err)
	}
	if p.Header.Title != "Fall at home" || p.SeverityStyle != "severity-critical" {
		t.Errorf("projection header = %+v, style %q", p.Header, p.SeverityStyle)
	}
	if p.LatestByKind["body-temperature"].Value != "38.9" {
		t.Errorf("latestByKind = %+v", p.LatestByKind)
	}
}

func TestCloseCaseEndpoint(t *testing.T) {
	transport := &fakeTransport{}
	svc := newTestService(newFakeRepo(), transport)
	e := setupAPI(t, svc, []string{"physician"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/!r:amp.care/close", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(transport.sent) != 1 || transport.sent[0].eventType != matrix.EventTypeDone {
		t.Errorf("sent = %+v", transport.sent)
	}
}

func TestReportEndpoint(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeTransport{})
	e := setupAPI(t, svc, []string{"physician"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/!r:amp.care/report?room_name=Ward+3", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var r struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.RoomName != "Ward 3" {
		t.Errorf("room name = %q", r.RoomName)
	}
}
