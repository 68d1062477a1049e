package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-optikick/internal/db"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phuslu/log"
)

// Risk thresholds on a metric sample's derived scores.
const (
	fatigueAlertScore = 70
	injuryAlertScore  = 70
)

const postponedLayout = "Jan 02, 2006 15:04"

// Roster resolves the staff responsible for a player.
type Roster interface {
	CoachFor(ctx context.Context, playerID string) (user.User, error)
	DoctorFor(ctx context.Context, playerID string) (user.User, error)
}

// Notifier records notifications for domain events. Every record is written
// in a savepoint of the caller's transaction; a failed insert is logged and
// never fails the caller.
type Notifier struct {
	roster Roster
	logger *log.Logger
	now    func() time.Time
}

func NewNotifier(roster Roster, logger *log.Logger) *Notifier {
	return &Notifier{roster: roster, logger: logging.OrDiscard(logger), now: time.Now}
}

// AssessmentRequested notifies the doctor chosen for the request and the
// player's coach.
func (n *Notifier) AssessmentRequested(ctx context.Context, q db.TxQuerier, a AssessmentRef) {
	body := fmt.Sprintf("%s has requested an assessment for %s", a.PlayerName, a.Issue)
	rec := Notification{
		Type:         TypeAssessment,
		Title:        "New Assessment Request",
		Body:         body,
		SenderID:     a.PlayerID,
		AssessmentID: a.AssessmentID,
	}

	doctor := rec
	doctor.UserID = a.DoctorID
	n.record(ctx, q, doctor)

	if coach, ok := n.coach(ctx, a.PlayerID); ok {
		rec.UserID = coach.ID
		n.record(ctx, q, rec)
	}
}

// MetricRecorded alerts the coach when a sample crosses a risk threshold.
// Nil scores are treated as absent.
func (n *Notifier) MetricRecorded(ctx context.Context, q db.TxQuerier, s Subject, fatigue, injuryRisk *float64) {
	var crossed []string
	if fatigue != nil && *fatigue > fatigueAlertScore {
		crossed = append(crossed, "high fatigue")
	}
	if injuryRisk != nil && *injuryRisk > injuryAlertScore {
		crossed = append(crossed, "elevated injury risk")
	}
	if len(crossed) == 0 {
		return
	}

	coach, ok := n.coach(ctx, s.PlayerID)
	if !ok {
		return
	}
	n.record(ctx, q, Notification{
		UserID: coach.ID,
		Type:   TypeMetricAlert,
		Title:  "Player Metric Alert",
		Body:   fmt.Sprintf("%s shows %s", s.PlayerName, strings.Join(crossed, " and ")),
		Data:   mustJSON(map[string]any{"player_id": s.PlayerID}),
	})
}

func (n *Notifier) ProgramCreated(ctx context.Context, q db.TxQuerier, p ProgramRef) {
	coach, ok := n.coach(ctx, p.PlayerID)
	if !ok {
		return
	}
	n.record(ctx, q, Notification{
		UserID:    coach.ID,
		Type:      TypeProgramCreated,
		Title:     "New Training Program",
		Body:      "A new training program has been created for " + p.PlayerName,
		ProgramID: p.ProgramID,
	})
}

// ProgramStatusChanged notifies the coach only when the status value
// actually changes.
func (n *Notifier) ProgramStatusChanged(ctx context.Context, q db.TxQuerier, p ProgramRef, from, to string) {
	if from == to {
		return
	}
	coach, ok := n.coach(ctx, p.PlayerID)
	if !ok {
		return
	}
	n.record(ctx, q, Notification{
		UserID:    coach.ID,
		Type:      TypeProgramUpdate,
		Title:     "Training Program Update",
		Body:      fmt.Sprintf("%s's training program status: %s", p.PlayerName, to),
		ProgramID: p.ProgramID,
	})
}

func (n *Notifier) ProgramEdited(ctx context.Context, q db.TxQuerier, p ProgramRef, doctorID string) {
	n.record(ctx, q, Notification{
		UserID:    p.PlayerID,
		Type:      TypeTrainingProgram,
		Title:     "Training Program Updated",
		Body:      "Your training program has been updated by the doctor.",
		SenderID:  doctorID,
		ProgramID: p.ProgramID,
	})
}

// AIProgramPendingReview fans out to the reviewing doctor, the coach and the
// player. An empty doctorID falls back to the player's assigned doctor. Each
// notification stands alone; a missing doctor or coach only drops that one.
func (n *Notifier) AIProgramPendingReview(ctx context.Context, q db.TxQuerier, p ProgramRef, doctorID, actorID string) {
	base := Notification{Type: TypeTrainingProgram, ProgramID: p.ProgramID, SenderID: actorID}

	if doctorID == "" {
		doctor, err := n.roster.DoctorFor(ctx, p.PlayerID)
		if err != nil {
			n.skip(err, "doctor", p.PlayerID)
		}
		doctorID = doctor.ID
	}
	if doctorID != "" {
		rec := base
		rec.UserID = doctorID
		rec.Title = "Training Program Requires Review"
		rec.Body = fmt.Sprintf("A new training program has been generated for player %s. Please review and approve.", p.PlayerName)
		n.record(ctx, q, rec)
	}

	if coach, ok := n.coach(ctx, p.PlayerID); ok {
		rec := base
		rec.UserID = coach.ID
		rec.Title = "Training Program Generated"
		rec.Body = fmt.Sprintf("A training program has been set for player %s and is pending doctor approval.", p.PlayerName)
		n.record(ctx, q, rec)
	}

	rec := base
	rec.UserID = p.PlayerID
	rec.Title = "Training Program Generated"
	rec.Body = "A new training program has been generated for you. It is currently pending doctor approval."
	n.record(ctx, q, rec)
}

func (n *Notifier) AssessmentApproved(ctx context.Context, q db.TxQuerier, a AssessmentRef) {
	n.record(ctx, q, Notification{
		UserID:       a.PlayerID,
		Type:         TypeAssessment,
		Title:        "Assessment Request Approved",
		Body:         "Your assessment request has been approved.",
		SenderID:     a.DoctorID,
		AssessmentID: a.AssessmentID,
	})
}

func (n *Notifier) AssessmentPostponed(ctx context.Context, q db.TxQuerier, a AssessmentRef, at time.Time) {
	n.record(ctx, q, Notification{
		UserID:       a.PlayerID,
		Type:         TypeAssessment,
		Title:        "Assessment Request Postponed",
		Body:         "Your assessment request has been postponed to " + at.Format(postponedLayout),
		SenderID:     a.DoctorID,
		AssessmentID: a.AssessmentID,
	})
}

func (n *Notifier) MessageSent(ctx context.Context, q db.TxQuerier, m MessageRef) {
	n.record(ctx, q, Notification{
		UserID:    m.RecipientID,
		Type:      TypeMessage,
		Title:     m.SenderName + " sent you a message",
		Body:      Preview(m.Kind, m.Text),
		SenderID:  m.SenderID,
		MessageID: m.MessageID,
		Data: mustJSON(map[string]any{
			"conversation_id": m.ConversationID,
			"message_id":      m.MessageID,
			"message_type":    m.Kind,
		}),
	})
}

// ReactionAdded notifies the message's sender unless they reacted to their
// own message.
func (n *Notifier) ReactionAdded(ctx context.Context, q db.TxQuerier, m MessageRef, reactorID, reactorName, emoji string) {
	if reactorID == m.SenderID {
		return
	}
	n.record(ctx, q, Notification{
		UserID:    m.SenderID,
		Type:      TypeReaction,
		Title:     reactorName + " reacted to your message",
		Body:      reactorName + " added reaction " + emoji,
		SenderID:  reactorID,
		MessageID: m.MessageID,
		Data:      mustJSON(map[string]any{"message_id": m.MessageID, "reaction": emoji}),
	})
}

// Preview is the one-line summary of a message shown in notifications and
// conversation lists.
func Preview(kind, text string) string {
	switch kind {
	case "text":
		r := []rune(text)
		if len(r) > 50 {
			r = r[:50]
		}
		return string(r)
	case "voice":
		return "Sent a voice message"
	case "photo":
		return "Sent a photo"
	default:
		return "Sent a message"
	}
}

func (n *Notifier) coach(ctx context.Context, playerID string) (user.User, bool) {
	coach, err := n.roster.CoachFor(ctx, playerID)
	if err != nil {
		n.skip(err, "coach", playerID)
		return user.User{}, false
	}
	return coach, true
}

func (n *Notifier) skip(err error, role, playerID string) {
	if errors.Is(err, user.ErrNoCoach) || errors.Is(err, user.ErrNoDoctor) {
		n.logger.Warn().Str("role", role).Str("player_id", playerID).Msg("no recipient for notification")
		return
	}
	n.logger.Error().Err(err).Str("role", role).Str("player_id", playerID).Msg("resolve notification recipient")
}

func (n *Notifier) record(ctx context.Context, q db.TxQuerier, rec Notification) {
	rec.ID = uuid.NewString()
	err := db.WithTx(ctx, q, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, user_id, type, title, body, sender_id, training_program_id, assessment_request_id, message_id, data, created_at)
			VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),$10,$11)
		`, rec.ID, rec.UserID, string(rec.Type), rec.Title, rec.Body, rec.SenderID, rec.ProgramID, rec.AssessmentID, rec.MessageID, []byte(rec.Data), n.now())
		return err
	})
	if err != nil {
		n.logger.Error().Err(err).
			Str("type", string(rec.Type)).
			Str("recipient", rec.UserID).
			Msg("notification insert failed")
	}
}

func mustJSON(v map[string]any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
