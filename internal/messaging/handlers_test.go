package messaging

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func newApp(svc *Service, id string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logging.Discard())})
	RegisterRoutes(app, svc, func(c *fiber.Ctx) error {
		user.SetCurrent(c, id, user.RolePlayer)
		return c.Next()
	})
	return app
}

func TestUnreadCountHandler(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`recipient_id=\$1 AND read_at IS NULL`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	resp, err := newApp(newService(mock, nil, &recorder{}), "u1").Test(httptest.NewRequest(http.MethodGet, "/messages/unread-count", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("unread count: %v", err)
	}
	var out map[string]int
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["count"] != 4 {
		t.Fatalf("unexpected count: %+v", out)
	}
}

func TestSendHandlerValidation(t *testing.T) {
	app := newApp(newService(newMock(t), nil, &recorder{}), "u1")
	req := httptest.NewRequest(http.MethodPost, "/messages/conversation/u2", bytes.NewReader([]byte(`{"type":"video"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestSendHandlerSelf(t *testing.T) {
	app := newApp(newService(newMock(t), nil, &recorder{}), "u1")
	req := httptest.NewRequest(http.MethodPost, "/messages/conversation/u1", bytes.NewReader([]byte(`{"type":"text","content":"hi"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusUnprocessableEntity || out["message"] != "You cannot message yourself" {
		t.Fatalf("unexpected response: %d %+v", resp.StatusCode, out)
	}
}

func TestSendHandlerMultipartPhoto(t *testing.T) {
	mock := newMock(t)
	expectUser(mock, "u2", "rita")
	expectUser(mock, "u1", "sam")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM conversations`).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cv1"))
	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(pgxmock.AnyArg(), "cv1", "u1", "u2", "photo", "", "/storage/messages/photos/u1_x.png", "sent").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(clock))
	mock.ExpectExec(`UPDATE conversations`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectCommit()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("type", "photo")
	fw, _ := w.CreateFormFile("file", "pic.png")
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	_ = w.Close()

	files := &fakeFiles{}
	app := newApp(newService(mock, files, &recorder{}), "u1")
	req := httptest.NewRequest(http.MethodPost, "/messages/conversation/u2", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("send photo: %d %v", resp.StatusCode, err)
	}
	if len(files.stored) != 1 {
		t.Fatalf("expected stored attachment")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
