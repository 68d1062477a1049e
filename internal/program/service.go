package program

import (
	"context"
	"encoding/json"
	"errors"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/classifier"
	"backend-optikick/internal/db"
	"backend-optikick/internal/metrics"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNoProgram = apperr.NotFound("No training program found")

const programColumns = `id, player_id, COALESCE(doctor_id,''), COALESCE(focus_area,''), exercises, status,
	ai_generated, approved_at, created_at, updated_at`

type Classifier interface {
	Classify(ctx context.Context, s classifier.Scores) classifier.Result
}

type Samples interface {
	Latest(ctx context.Context, playerID string) (*metrics.Sample, error)
}

type Service struct {
	db         db.TxQuerier
	users      *user.Service
	samples    Samples
	classifier Classifier
	notifier   *notify.Notifier
}

func NewService(db db.TxQuerier, users *user.Service, samples Samples, c Classifier, notifier *notify.Notifier) *Service {
	return &Service{db: db, users: users, samples: samples, classifier: c, notifier: notifier}
}

// Latest returns the player's newest program, or nil.
func (s *Service) Latest(ctx context.Context, playerID string) (*Program, error) {
	p, err := scanProgram(s.db.QueryRow(ctx, `
		SELECT `+programColumns+` FROM training_programs
		WHERE player_id=$1 ORDER BY created_at DESC LIMIT 1
	`, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Current is the player's own view of their newest program.
func (s *Service) Current(ctx context.Context, playerID string) (Program, error) {
	p, err := s.Latest(ctx, playerID)
	if err != nil {
		return Program{}, err
	}
	if p == nil {
		return Program{}, ErrNoProgram
	}
	return *p, nil
}

// Reviewed is what a doctor sees: the newest program when approved,
// otherwise the newest approved one before it. Nil when neither exists.
func (s *Service) Reviewed(ctx context.Context, playerID string) (*Program, error) {
	if _, err := s.users.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	p, err := scanProgram(s.db.QueryRow(ctx, `
		SELECT `+programColumns+` FROM training_programs
		WHERE player_id=$1 AND status='approved'
		ORDER BY created_at DESC LIMIT 1
	`, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a hand-written program and tells the coach.
func (s *Service) Create(ctx context.Context, authorID string, in CreateInput) (Program, error) {
	player, err := s.users.GetPlayer(ctx, in.PlayerID)
	if err != nil {
		return Program{}, err
	}
	p := Program{
		ID:        uuid.NewString(),
		PlayerID:  player.ID,
		DoctorID:  authorID,
		FocusArea: in.FocusArea,
		Exercises: in.Exercises,
		Status:    StatusPending,
	}
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := insert(ctx, tx, &p); err != nil {
			return err
		}
		s.notifier.ProgramCreated(ctx, tx, ref(p, player.Name))
		return nil
	})
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

// Generate classifies the player's latest sample and stores the result as a
// pending AI program. The classifier runs before the transaction opens.
func (s *Service) Generate(ctx context.Context, actor user.User, playerID string, in GenerateInput) (Program, error) {
	player, err := s.users.GetPlayer(ctx, playerID)
	if err != nil {
		return Program{}, err
	}
	sample, err := s.samples.Latest(ctx, player.ID)
	if err != nil {
		return Program{}, err
	}
	if sample == nil {
		return Program{}, apperr.NotFound("No metrics available for this player")
	}

	doctorID := in.DoctorID
	if doctorID == "" && actor.Role == user.RoleDoctor {
		doctorID = actor.ID
	}
	if doctorID == "" {
		doctor, err := s.users.DoctorFor(ctx, player.ID)
		if err != nil {
			return Program{}, err
		}
		doctorID = doctor.ID
	}

	res := s.classifier.Classify(ctx, scores(*sample))

	p := Program{
		ID:          uuid.NewString(),
		PlayerID:    player.ID,
		DoctorID:    doctorID,
		FocusArea:   res.FocusArea,
		Exercises:   res.Exercises,
		Status:      StatusPending,
		AIGenerated: true,
	}
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := insert(ctx, tx, &p); err != nil {
			return err
		}
		if err := user.SetStatus(ctx, tx, player.ID, res.Status); err != nil {
			return err
		}
		s.notifier.AIProgramPendingReview(ctx, tx, ref(p, player.Name), doctorID, actor.ID)
		return nil
	})
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

// Edit applies a doctor's changes to the player's newest program. Any edit
// clears the AI flag.
func (s *Service) Edit(ctx context.Context, doctorID, playerID string, in EditInput) (Program, error) {
	player, err := s.users.GetPlayer(ctx, playerID)
	if err != nil {
		return Program{}, err
	}

	var p Program
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		p, err = scanProgram(tx.QueryRow(ctx, `
			SELECT `+programColumns+` FROM training_programs
			WHERE player_id=$1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE
		`, player.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("No training program found for this player")
		}
		if err != nil {
			return err
		}

		from := p.Status
		if in.FocusArea != nil {
			p.FocusArea = *in.FocusArea
		}
		if in.Exercises != nil {
			p.Exercises = *in.Exercises
		}
		if in.Status != nil {
			p.Status = Status(*in.Status)
		}
		p.AIGenerated = false

		if err := update(ctx, tx, &p, from); err != nil {
			return err
		}
		r := ref(p, player.Name)
		s.notifier.ProgramEdited(ctx, tx, r, doctorID)
		s.notifier.ProgramStatusChanged(ctx, tx, r, string(from), string(p.Status))
		return nil
	})
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

// Approve marks a program approved and tells the coach.
func (s *Service) Approve(ctx context.Context, programID string) (Program, error) {
	var p Program
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		p, err = scanProgram(tx.QueryRow(ctx, `
			SELECT `+programColumns+` FROM training_programs WHERE id=$1 FOR UPDATE
		`, programID))
		if err != nil {
			return apperr.FromRow(err, "training program")
		}
		if p.Status == StatusApproved {
			return apperr.Validation("This training program is already approved.")
		}

		from := p.Status
		p.Status = StatusApproved
		if err := update(ctx, tx, &p, from); err != nil {
			return err
		}
		player, err := s.users.Get(ctx, p.PlayerID)
		if err != nil {
			return err
		}
		s.notifier.ProgramStatusChanged(ctx, tx, ref(p, player.Name), string(from), string(p.Status))
		return nil
	})
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

func insert(ctx context.Context, tx pgx.Tx, p *Program) error {
	doc, err := p.plan()
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO training_programs (id, player_id, doctor_id, focus_area, exercises, status, ai_generated)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.PlayerID, p.DoctorID, p.FocusArea, doc, string(p.Status), p.AIGenerated).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// update writes p back. approved_at is stamped when the status moves to
// approved.
func update(ctx context.Context, tx pgx.Tx, p *Program, from Status) error {
	doc, err := p.plan()
	if err != nil {
		return err
	}
	stamp := from != StatusApproved && p.Status == StatusApproved
	return tx.QueryRow(ctx, `
		UPDATE training_programs
		SET focus_area=$2, exercises=$3, status=$4, ai_generated=$5,
		    approved_at = CASE WHEN $6 THEN now() ELSE approved_at END,
		    updated_at = now()
		WHERE id=$1
		RETURNING approved_at, updated_at
	`, p.ID, p.FocusArea, doc, string(p.Status), p.AIGenerated, stamp).Scan(&p.ApprovedAt, &p.UpdatedAt)
}

func ref(p Program, playerName string) notify.ProgramRef {
	return notify.ProgramRef{
		Subject:   notify.Subject{PlayerID: p.PlayerID, PlayerName: playerName},
		ProgramID: p.ID,
	}
}

func scores(sm metrics.Sample) classifier.Scores {
	var sc classifier.Scores
	if sm.FatigueScore != nil {
		sc.Fatigue = *sm.FatigueScore
	}
	if sm.InjuryRisk != nil {
		sc.InjuryRisk = *sm.InjuryRisk
	}
	if sm.ReadinessScore != nil {
		sc.Readiness = *sm.ReadinessScore
	}
	return sc
}

func scanProgram(row pgx.Row) (Program, error) {
	var p Program
	var status string
	var doc []byte
	err := row.Scan(&p.ID, &p.PlayerID, &p.DoctorID, &p.FocusArea, &doc, &status,
		&p.AIGenerated, &p.ApprovedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Program{}, err
	}
	p.Status = Status(status)
	var pl plan
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &pl); err != nil {
			return Program{}, err
		}
	}
	p.Exercises = pl.Program
	if p.Exercises == nil {
		p.Exercises = []string{}
	}
	if p.FocusArea == "" {
		p.FocusArea = pl.FocusArea
	}
	return p, nil
}
