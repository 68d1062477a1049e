package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/storage"
	"backend-optikick/internal/stream"
	"backend-optikick/internal/user"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phuslu/log"
)

var ErrSelfMessage = apperr.Validation("You cannot message yourself")

const messageColumns = `id, conversation_id, sender_id, recipient_id, type, COALESCE(content,''),
	COALESCE(file_url,''), COALESCE(reaction,''), status, delivered_at, read_at, created_at`

// Attachments stores and removes message files.
type Attachments interface {
	Store(ctx context.Context, userID string, kind storage.Kind, data []byte) (storage.Object, error)
	Delete(ctx context.Context, url string) error
}

type Service struct {
	db       db.TxQuerier
	users    *user.Service
	files    Attachments
	notifier *notify.Notifier
	pub      stream.Publisher
	logger   *log.Logger
	now      func() time.Time
}

func NewService(db db.TxQuerier, users *user.Service, files Attachments, notifier *notify.Notifier, pub stream.Publisher, logger *log.Logger) *Service {
	return &Service{
		db:       db,
		users:    users,
		files:    files,
		notifier: notifier,
		pub:      pub,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

// conversationID finds the conversation between two users, creating it on
// first contact. The pair is unique regardless of who started it.
func conversationID(ctx context.Context, q db.Querier, selfID, otherID string) (string, error) {
	if selfID == otherID {
		return "", ErrSelfMessage
	}
	find := func() (string, error) {
		var id string
		err := q.QueryRow(ctx, `
			SELECT id FROM conversations
			WHERE (user_id=$1 AND participant_id=$2) OR (user_id=$2 AND participant_id=$1)
		`, selfID, otherID).Scan(&id)
		return id, err
	}

	id, err := find()
	if !errors.Is(err, pgx.ErrNoRows) {
		return id, err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, participant_id, last_message_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT DO NOTHING
		RETURNING id
	`, uuid.NewString(), selfID, otherID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// lost the race to the other participant
		return find()
	}
	return id, err
}

// Conversations lists the user's conversations, most recently active first.
// A query starting with "@" matches the other participant's username;
// anything else matches name or email.
func (s *Service) Conversations(ctx context.Context, userID, query string) ([]Conversation, error) {
	mode, pattern := "", ""
	if q := strings.TrimSpace(query); q != "" {
		if name, ok := strings.CutPrefix(q, "@"); ok {
			mode, pattern = "username", name+"@%"
		} else {
			mode, pattern = "text", "%"+q+"%"
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT c.id, o.id, o.name, COALESCE(o.email,''), o.role,
			COALESCE(m.id,''), COALESCE(m.type,''), COALESCE(m.content,''), m.created_at, m.read_at,
			(SELECT count(*) FROM messages u
			 WHERE u.conversation_id=c.id AND u.recipient_id=$1 AND u.read_at IS NULL)
		FROM conversations c
		JOIN users o ON o.id = CASE WHEN c.user_id=$1 THEN c.participant_id ELSE c.user_id END
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE (c.user_id=$1 OR c.participant_id=$1)
		  AND ($2 = ''
		       OR ($2 = 'username' AND o.email ILIKE $3)
		       OR ($2 = 'text' AND (o.name ILIKE $3 OR o.email ILIKE $3)))
		ORDER BY c.last_message_at DESC NULLS LAST
	`, userID, mode, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := s.now()
	out := []Conversation{}
	for rows.Next() {
		var cv Conversation
		var other user.User
		var role, lastID, lastType, lastContent string
		var lastAt, lastRead *time.Time
		if err := rows.Scan(&cv.ID, &other.ID, &other.Name, &other.Email, &role,
			&lastID, &lastType, &lastContent, &lastAt, &lastRead, &cv.UnreadCount); err != nil {
			return nil, err
		}
		other.Role = user.Role(role)
		cv.Participant = other.Summary()
		if lastID != "" {
			lm := &LastMessage{
				ID:      lastID,
				Type:    Kind(lastType),
				Content: notify.Preview(lastType, lastContent),
				IsRead:  lastRead != nil,
			}
			if lastAt != nil {
				lm.CreatedAt = humanize.RelTime(*lastAt, now, "ago", "from now")
			}
			cv.LastMessage = lm
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

// History returns the newest messages exchanged with otherID. Messages
// addressed to the caller are marked delivered before the read and read
// after it.
func (s *Service) History(ctx context.Context, selfID, otherID string) ([]View, error) {
	if _, err := s.users.Get(ctx, otherID); err != nil {
		return nil, err
	}
	convID, err := conversationID(ctx, s.db, selfID, otherID)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, `
		UPDATE messages SET status='delivered', delivered_at=now()
		WHERE conversation_id=$1 AND recipient_id=$2 AND status='sent'
	`, convID, selfID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.recipient_id, m.type, COALESCE(m.content,''),
			COALESCE(m.file_url,''), COALESCE(m.reaction,''), m.status, m.delivered_at, m.read_at, m.created_at,
			u.name, COALESCE(u.email,''), u.role
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id=$1
		ORDER BY m.created_at DESC
		LIMIT $2
	`, convID, historyLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := s.now()
	views := []View{}
	for rows.Next() {
		var v View
		var kind, status, role string
		var sender user.User
		if err := rows.Scan(&v.ID, &v.ConversationID, &v.SenderID, &v.RecipientID, &kind, &v.Content,
			&v.FileURL, &v.Reaction, &status, &v.DeliveredAt, &v.ReadAt, &v.CreatedAt,
			&sender.Name, &sender.Email, &role); err != nil {
			return nil, err
		}
		v.Type, v.Status = Kind(kind), Status(status)
		sender.ID, sender.Role = v.SenderID, user.Role(role)
		v.Sender = sender.Summary()
		v.Age = age(v.CreatedAt, now)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	_, err = s.db.Exec(ctx, `
		UPDATE messages SET status='read', read_at=now()
		WHERE conversation_id=$1 AND recipient_id=$2 AND status IN ('sent','delivered')
	`, convID, selfID)
	return views, err
}

// Send delivers a text, voice or photo message. Attachments are stored
// before the message transaction and removed again if it fails.
func (s *Service) Send(ctx context.Context, senderID, recipientID, connID string, in SendInput, file []byte) (View, error) {
	if senderID == recipientID {
		return View{}, ErrSelfMessage
	}
	recipient, err := s.users.Get(ctx, recipientID)
	if err != nil {
		return View{}, apperr.FromRow(err, "recipient")
	}
	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return View{}, err
	}

	m := Message{
		ID:          uuid.NewString(),
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Type:        Kind(in.Type),
		Status:      StatusSent,
	}
	switch m.Type {
	case KindText:
		m.Content = strings.TrimSpace(in.Content)
		if m.Content == "" {
			return View{}, apperr.Validation("content is required for text messages")
		}
		if len([]rune(m.Content)) > maxTextRunes {
			return View{}, apperr.Validation("content must be at most %d characters", maxTextRunes)
		}
	case KindVoice, KindPhoto:
		if len(file) == 0 {
			return View{}, apperr.Validation("file is required for %s messages", m.Type)
		}
		obj, err := s.files.Store(ctx, sender.ID, storage.Kind(m.Type), file)
		if err != nil {
			return View{}, err
		}
		m.FileURL = obj.URL
	default:
		return View{}, apperr.Validation("type must be one of [text voice photo]")
	}

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		convID, err := conversationID(ctx, tx, sender.ID, recipient.ID)
		if err != nil {
			return err
		}
		m.ConversationID = convID
		err = tx.QueryRow(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, recipient_id, type, content, file_url, status)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8)
			RETURNING created_at
		`, m.ID, m.ConversationID, m.SenderID, m.RecipientID, string(m.Type), m.Content, m.FileURL, string(m.Status)).Scan(&m.CreatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE conversations SET last_message_id=$2, last_message_at=$3, updated_at=now() WHERE id=$1
		`, m.ConversationID, m.ID, m.CreatedAt); err != nil {
			return err
		}
		s.notifier.MessageSent(ctx, tx, notify.MessageRef{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			SenderID:       sender.ID,
			SenderName:     sender.Name,
			RecipientID:    recipient.ID,
			Kind:           string(m.Type),
			Text:           m.Content,
		})
		return nil
	})
	if err != nil {
		if m.FileURL != "" {
			if derr := s.files.Delete(ctx, m.FileURL); derr != nil {
				s.logger.Warn().Err(derr).Str("url", m.FileURL).Msg("orphaned attachment")
			}
		}
		return View{}, err
	}

	v := View{Message: m, Age: age(m.CreatedAt, s.now()), Sender: sender.Summary()}
	ev := stream.Event{Name: EventNewMessage, Data: v}
	s.pub.Publish(recipient.ID, ev, "")
	s.pub.Publish(sender.ID, ev, connID)
	return v, nil
}

func (s *Service) get(ctx context.Context, id string) (Message, error) {
	var m Message
	var kind, status string
	err := s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &kind, &m.Content,
		&m.FileURL, &m.Reaction, &status, &m.DeliveredAt, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return Message{}, apperr.FromRow(err, "message")
	}
	m.Type, m.Status = Kind(kind), Status(status)
	return m, nil
}

// MarkRead is allowed for the recipient only. The sender is told in
// realtime.
func (s *Service) MarkRead(ctx context.Context, userID, messageID string) error {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.RecipientID != userID {
		return apperr.Forbidden("Unauthorized")
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE messages SET status='read', read_at=COALESCE(read_at, now()) WHERE id=$1
	`, m.ID); err != nil {
		return err
	}
	s.pub.Publish(m.SenderID, stream.Event{Name: EventMessageRead, Data: map[string]string{
		"message_id":      m.ID,
		"conversation_id": m.ConversationID,
	}}, "")
	return nil
}

// React sets or, with an empty reaction, clears the message's reaction.
// Only the two participants may react.
func (s *Service) React(ctx context.Context, userID, messageID, reaction, connID string) error {
	reaction = strings.TrimSpace(reaction)
	if reaction != "" && !singleEmoji(reaction) {
		return apperr.Validation("reaction must be a single emoji")
	}
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID && m.RecipientID != userID {
		return apperr.Forbidden("Unauthorized")
	}
	reactor, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE messages SET reaction=NULLIF($2,'') WHERE id=$1`, m.ID, reaction); err != nil {
			return err
		}
		if reaction != "" {
			s.notifier.ReactionAdded(ctx, tx, notify.MessageRef{
				MessageID:      m.ID,
				ConversationID: m.ConversationID,
				SenderID:       m.SenderID,
				RecipientID:    m.RecipientID,
				Kind:           string(m.Type),
			}, reactor.ID, reactor.Name, reaction)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ev := stream.Event{Name: EventMessageReaction, Data: map[string]any{"message_id": m.ID, "reaction": reaction}}
	if reaction == "" {
		ev = stream.Event{Name: notify.EventReactionOff, Data: map[string]any{"message_id": m.ID}}
	}
	other := m.SenderID
	if other == userID {
		other = m.RecipientID
	}
	s.pub.Publish(other, ev, "")
	s.pub.Publish(userID, ev, connID)
	return nil
}

// Delete removes the caller's own message and its attachment.
func (s *Service) Delete(ctx context.Context, userID, messageID string) error {
	m, err := s.get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return apperr.Forbidden("Unauthorized")
	}
	if m.FileURL != "" {
		if err := s.files.Delete(ctx, m.FileURL); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM messages WHERE id=$1`, m.ID); err != nil {
		return err
	}
	s.pub.Publish(m.RecipientID, stream.Event{Name: EventMessageDeleted, Data: map[string]string{
		"message_id":      m.ID,
		"conversation_id": m.ConversationID,
	}}, "")
	return nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM messages WHERE recipient_id=$1 AND read_at IS NULL`, userID).Scan(&n)
	return n, err
}
