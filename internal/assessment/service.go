package assessment

import (
	"context"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errDoubleBooked = apperr.Conflict("You already have another assessment at this time.")

const assessmentColumns = `id, player_id, doctor_id, issue_type, message, requested_at, status,
	approved_at, COALESCE(approved_by,''), created_at`

type Service struct {
	db       db.TxQuerier
	users    *user.Service
	notifier *notify.Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewService interprets requested dates and hours in loc.
func NewService(db db.TxQuerier, users *user.Service, notifier *notify.Notifier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, users: users, notifier: notifier, loc: loc, now: time.Now}
}

func (s *Service) parse(date, hour string) (time.Time, error) {
	at, err := time.ParseInLocation(dateLayout+" "+hourLayout, date+" "+hour, s.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("The time must be in 24-hour format (e.g., 14:30)")
	}
	return at, nil
}

// Request files a player's assessment request with the player's doctor.
func (s *Service) Request(ctx context.Context, playerID string, in RequestInput) (Assessment, error) {
	at, err := s.parse(in.Date, in.Hour)
	if err != nil {
		return Assessment{}, err
	}
	if !at.After(s.now()) {
		return Assessment{}, apperr.Validation("The appointment time must be in the future.")
	}

	player, err := s.users.GetPlayer(ctx, playerID)
	if err != nil {
		return Assessment{}, err
	}
	doctor, err := s.users.DoctorFor(ctx, player.ID)
	if err != nil {
		return Assessment{}, err
	}

	a := Assessment{
		ID:          uuid.NewString(),
		PlayerID:    player.ID,
		DoctorID:    doctor.ID,
		IssueType:   in.IssueType,
		Message:     in.Message,
		RequestedAt: at,
		Status:      StatusPending,
	}
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO assessment_requests (id, player_id, doctor_id, issue_type, message, requested_at, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at
		`, a.ID, a.PlayerID, a.DoctorID, a.IssueType, a.Message, a.RequestedAt, string(a.Status)).Scan(&a.CreatedAt)
		if err != nil {
			return err
		}
		s.notifier.AssessmentRequested(ctx, tx, s.ref(a, player.Name))
		return nil
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// Pending lists the doctor's pending requests, newest first.
func (s *Service) Pending(ctx context.Context, doctorID string) ([]Pending, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.player_id, u.name, a.requested_at, a.status
		FROM assessment_requests a
		JOIN users u ON u.id = a.player_id
		WHERE a.doctor_id=$1 AND a.status='pending'
		ORDER BY a.created_at DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Pending{}
	for rows.Next() {
		var p Pending
		var at time.Time
		var status string
		if err := rows.Scan(&p.ID, &p.PlayerID, &p.PlayerName, &at, &status); err != nil {
			return nil, err
		}
		at = at.In(s.loc)
		p.RequestedAt = at.Format(time.DateTime)
		p.Message = pendingMessage(at)
		p.Status = Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns a request addressed to the doctor.
func (s *Service) Get(ctx context.Context, doctorID, id string) (Detail, error) {
	a, err := scanAssessment(s.db.QueryRow(ctx, `
		SELECT `+assessmentColumns+` FROM assessment_requests WHERE id=$1 AND doctor_id=$2
	`, id, doctorID))
	if err != nil {
		return Detail{}, apperr.FromRow(err, "assessment")
	}
	a.RequestedAt = a.RequestedAt.In(s.loc)
	return newDetail(a), nil
}

// Approve locks the request, rejects a double booking of the doctor's slot
// and marks it approved.
func (s *Service) Approve(ctx context.Context, doctorID, id string) (Assessment, error) {
	var a Assessment
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if a, err = lock(ctx, tx, id); err != nil {
			return err
		}
		if a.DoctorID != doctorID {
			return apperr.Forbidden("You are not authorized to approve this assessment.")
		}
		if a.Status != StatusPending {
			return apperr.Validation("This assessment cannot be approved.")
		}

		if err := reserve(ctx, tx, doctorID); err != nil {
			return err
		}
		busy, err := taken(ctx, tx, "doctor_id", doctorID, a.RequestedAt, a.ID, StatusApproved)
		if err != nil {
			return err
		}
		if busy {
			return errDoubleBooked
		}

		err = tx.QueryRow(ctx, `
			UPDATE assessment_requests
			SET status='approved', approved_at=now(), approved_by=$2, updated_at=now()
			WHERE id=$1
			RETURNING approved_at
		`, a.ID, doctorID).Scan(&a.ApprovedAt)
		if db.IsUniqueViolation(err) {
			return errDoubleBooked
		}
		if err != nil {
			return err
		}
		a.Status, a.ApprovedBy = StatusApproved, doctorID

		player, err := s.users.Get(ctx, a.PlayerID)
		if err != nil {
			return err
		}
		s.notifier.AssessmentApproved(ctx, tx, s.ref(a, player.Name))
		return nil
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// Reschedule moves the request to a new slot and marks it postponed. Both
// the doctor and the player must be free at the new time.
func (s *Service) Reschedule(ctx context.Context, doctorID, id string, in RescheduleInput) (Assessment, error) {
	at, err := s.parse(in.NewDate, in.NewTime)
	if err != nil {
		return Assessment{}, err
	}

	var a Assessment
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if a, err = lock(ctx, tx, id); err != nil {
			return err
		}
		if a.DoctorID != doctorID {
			return apperr.Forbidden("You are not authorized to reschedule this assessment.")
		}
		if err := reserve(ctx, tx, doctorID, a.PlayerID); err != nil {
			return err
		}

		busy, err := taken(ctx, tx, "doctor_id", doctorID, at, a.ID, StatusPending, StatusApproved)
		if err != nil {
			return err
		}
		if busy {
			return apperr.Conflict("You already have an assessment scheduled at this time.")
		}
		busy, err = taken(ctx, tx, "player_id", a.PlayerID, at, a.ID, StatusPending, StatusApproved)
		if err != nil {
			return err
		}
		if busy {
			return apperr.Conflict("This player already has an assessment scheduled at this time.")
		}

		if _, err := tx.Exec(ctx, `
			UPDATE assessment_requests SET requested_at=$2, status='postponed', updated_at=now() WHERE id=$1
		`, a.ID, at); err != nil {
			return err
		}
		a.RequestedAt, a.Status = at, StatusPostponed

		player, err := s.users.Get(ctx, a.PlayerID)
		if err != nil {
			return err
		}
		s.notifier.AssessmentPostponed(ctx, tx, s.ref(a, player.Name), at)
		return nil
	})
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *Service) ref(a Assessment, playerName string) notify.AssessmentRef {
	return notify.AssessmentRef{
		Subject:      notify.Subject{PlayerID: a.PlayerID, PlayerName: playerName},
		AssessmentID: a.ID,
		DoctorID:     a.DoctorID,
		Issue:        a.IssueType,
	}
}

func lock(ctx context.Context, tx pgx.Tx, id string) (Assessment, error) {
	a, err := scanAssessment(tx.QueryRow(ctx, `
		SELECT `+assessmentColumns+` FROM assessment_requests WHERE id=$1 FOR UPDATE
	`, id))
	if err != nil {
		return Assessment{}, apperr.FromRow(err, "assessment")
	}
	return a, nil
}

// reserve row-locks the given users in id order. Slot checks for the same
// doctor or player run one at a time until the holder commits.
func reserve(ctx context.Context, tx pgx.Tx, userIDs ...string) error {
	var n int
	return tx.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR NO KEY UPDATE
		) locked
	`, userIDs).Scan(&n)
}

// taken reports whether another request of owner (doctor_id or player_id)
// holds the slot in one of the given statuses.
func taken(ctx context.Context, tx pgx.Tx, column, ownerID string, at time.Time, exceptID string, statuses ...Status) (bool, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assessment_requests
			WHERE `+column+`=$1 AND requested_at=$2 AND id<>$3 AND status = ANY($4)
		)
	`, ownerID, at, exceptID, names).Scan(&exists)
	return exists, err
}

func scanAssessment(row pgx.Row) (Assessment, error) {
	var a Assessment
	var status string
	err := row.Scan(&a.ID, &a.PlayerID, &a.DoctorID, &a.IssueType, &a.Message, &a.RequestedAt, &status,
		&a.ApprovedAt, &a.ApprovedBy, &a.CreatedAt)
	a.Status = Status(status)
	return a, err
}
