package assessment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func gate(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, r := range roles {
			if user.CurrentRole(c) == r {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Unauthorized. Insufficient permissions.")
	}
}

func newApp(svc *Service, id string, role user.Role) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logging.Discard())})
	auth := func(c *fiber.Ctx) error {
		user.SetCurrent(c, id, role)
		return c.Next()
	}
	RegisterRoutes(app, svc, auth, gate)
	return app
}

func postJSON(app *fiber.App, path string, body any) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req)
}

func TestRequestHandlerValidation(t *testing.T) {
	app := newApp(newService(newMock(t)), "p1", user.RolePlayer)
	resp, err := postJSON(app, "/player/assessments", map[string]string{
		"issue_type": "broken heart", "message": "x", "date": "2026-03-02", "hour": "15:00",
	})
	if err != nil || resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %v", resp.StatusCode, err)
	}

	resp, _ = postJSON(app, "/player/assessments", map[string]string{
		"issue_type": "injury", "message": "x", "date": "2026-03-02", "hour": "3pm",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for hour, got %d", resp.StatusCode)
	}
}

func TestRequestHandlerForbiddenForDoctor(t *testing.T) {
	app := newApp(newService(newMock(t)), "d1", user.RoleDoctor)
	resp, _ := postJSON(app, "/player/assessments", map[string]string{})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestPendingHandlerEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`a.status='pending'`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "player_id", "name", "requested_at", "status"}))

	app := newApp(newService(mock), "d1", user.RoleDoctor)
	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/doctor/assessments", nil))
	var out struct {
		Message string `json:"message"`
		Data    struct {
			Assessments []Pending `json:"assessments"`
		} `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || out.Message != "No pending assessment requests found" || out.Data.Assessments == nil {
		t.Fatalf("unexpected response: %d %+v", resp.StatusCode, out)
	}
}

func TestApproveHandlerConflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("a1").WillReturnRows(assessmentRow("pending", "d1"))
	expectReserve(mock, "d1")
	expectTaken(mock, "doctor_id", true)
	mock.ExpectRollback()

	app := newApp(newService(mock), "d1", user.RoleDoctor)
	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/doctor/assessments/a1/approve", nil))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["message"] != "You already have another assessment at this time." {
		t.Fatalf("unexpected body: %+v", out)
	}
}

func TestRescheduleHandlerForbidden(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("a1").WillReturnRows(assessmentRow("pending", "d1"))
	mock.ExpectRollback()

	app := newApp(newService(mock), "d2", user.RoleDoctor)
	resp, _ := postJSON(app, "/doctor/assessments/a1/reschedule", map[string]string{"new_date": "2026-03-05", "new_time": "09:30"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
