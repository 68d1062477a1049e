package notify

import (
	"context"
	"strings"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"
	"backend-optikick/internal/stream"
	"backend-optikick/internal/user"

	"github.com/jackc/pgx/v5"
)

const inboxLimit = 50

const viewColumns = `
	n.id, n.user_id, n.type, n.title, n.body,
	COALESCE(n.sender_id,''), COALESCE(n.training_program_id,''),
	COALESCE(n.assessment_request_id,''), COALESCE(n.message_id,''),
	n.data, n.read_at, n.is_pinned, n.created_at,
	COALESCE(s.name,''), COALESCE(s.email,'')`

// Service serves a user's notification inbox. Every operation is scoped to
// the owner; another user's notification reads as not found.
type Service struct {
	db  db.Querier
	pub stream.Publisher
}

func NewService(db db.Querier, pub stream.Publisher) *Service {
	return &Service{db: db, pub: pub}
}

func (s *Service) List(ctx context.Context, userID string, f Filter) ([]View, error) {
	where := ""
	switch f {
	case Unread:
		where = " AND n.read_at IS NULL"
	case Pinned:
		where = " AND n.is_pinned"
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+viewColumns+`
		FROM notifications n
		LEFT JOIN users s ON s.id = n.sender_id
		WHERE n.user_id = $1`+where+`
		ORDER BY n.created_at DESC
		LIMIT $2
	`, userID, inboxLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (s *Service) Get(ctx context.Context, userID, id string) (View, error) {
	v, err := scanView(s.db.QueryRow(ctx, `
		SELECT `+viewColumns+`
		FROM notifications n
		LEFT JOIN users s ON s.id = n.sender_id
		WHERE n.id = $1 AND n.user_id = $2
	`, id, userID))
	if err != nil {
		return View{}, apperr.FromRow(err, "notification")
	}
	return v, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL
	`, userID).Scan(&count)
	return count, err
}

// MarkRead sets read_at once; marking an already read notification keeps the
// first timestamp.
func (s *Service) MarkRead(ctx context.Context, userID, id, connID string) error {
	return s.change(ctx, userID, id, connID, EventRead, `
		UPDATE notifications SET read_at = COALESCE(read_at, now())
		WHERE id = $1 AND user_id = $2
	`)
}

func (s *Service) MarkAllRead(ctx context.Context, userID, connID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE user_id = $1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return 0, err
	}
	s.publish(userID, stream.Event{Name: EventAllRead, Data: map[string]any{"count": tag.RowsAffected()}}, connID)
	return tag.RowsAffected(), nil
}

func (s *Service) Pin(ctx context.Context, userID, id, connID string) error {
	return s.change(ctx, userID, id, connID, EventPinned, `
		UPDATE notifications SET is_pinned = true WHERE id = $1 AND user_id = $2
	`)
}

func (s *Service) Unpin(ctx context.Context, userID, id, connID string) error {
	return s.change(ctx, userID, id, connID, EventUnpinned, `
		UPDATE notifications SET is_pinned = false WHERE id = $1 AND user_id = $2
	`)
}

func (s *Service) Delete(ctx context.Context, userID, id, connID string) error {
	return s.change(ctx, userID, id, connID, EventDeleted, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`)
}

func (s *Service) change(ctx context.Context, userID, id, connID, event, sql string) error {
	tag, err := s.db.Exec(ctx, sql, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found")
	}
	s.publish(userID, stream.Event{Name: event, Data: map[string]any{"notification_id": id}}, connID)
	return nil
}

func (s *Service) publish(userID string, ev stream.Event, connID string) {
	if s.pub != nil {
		s.pub.Publish(userID, ev, connID)
	}
}

// NavigateTo is the client route a notification opens.
func NavigateTo(n Notification) string {
	switch n.Type {
	case TypeMessage, TypeReaction:
		if n.SenderID == "" {
			return ""
		}
		return "/messages/conversation/" + n.SenderID
	case TypeTrainingProgram:
		return "/training-program/current"
	}
	return noAction
}

func scanView(row pgx.Row) (View, error) {
	var v View
	var typ, senderName, senderEmail string
	var data []byte
	var readAt *time.Time
	if err := row.Scan(
		&v.ID, &v.UserID, &typ, &v.Title, &v.Body,
		&v.SenderID, &v.ProgramID, &v.AssessmentID, &v.MessageID,
		&data, &readAt, &v.IsPinned, &v.CreatedAt,
		&senderName, &senderEmail,
	); err != nil {
		return View{}, err
	}
	v.Type = Type(typ)
	v.ReadAt = readAt
	v.IsRead = readAt != nil
	if len(data) > 0 && !strings.EqualFold(string(data), "null") {
		v.Data = data
	}
	if v.SenderID != "" {
		sender := user.User{ID: v.SenderID, Name: senderName, Email: senderEmail}.Summary()
		sender.Role = ""
		v.Sender = &sender
	}
	v.NavigateTo = NavigateTo(v.Notification)
	return v, nil
}
