package metrics

import (
	"context"
	"errors"
	"time"

	"backend-optikick/internal/analysis"
	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sampleColumns = `id, player_id, resting_hr, max_hr, hrv, vo2_max, weight, reaction_time,
	match_consistency, minutes_played, training_hours, injury_frequency, recovery_time,
	fatigue_score, injury_risk, readiness_score, recorded_at, created_at`

type Service struct {
	db       db.TxQuerier
	users    *user.Service
	notifier *notify.Notifier
	now      func() time.Time
}

func NewService(db db.TxQuerier, users *user.Service, notifier *notify.Notifier) *Service {
	return &Service{db: db, users: users, notifier: notifier, now: time.Now}
}

// Record stores a sample and raises a metric alert in the same transaction.
func (s *Service) Record(ctx context.Context, req RecordRequest) (Sample, error) {
	player, err := s.users.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		return Sample{}, err
	}

	sm := Sample{
		ID:               uuid.NewString(),
		PlayerID:         player.ID,
		RestingHR:        req.RestingHR,
		MaxHR:            req.MaxHR,
		HRV:              req.HRV,
		VO2Max:           req.VO2Max,
		Weight:           req.Weight,
		ReactionTime:     req.ReactionTime,
		MatchConsistency: req.MatchConsistency,
		MinutesPlayed:    req.MinutesPlayed,
		TrainingHours:    req.TrainingHours,
		InjuryFrequency:  req.InjuryFrequency,
		RecoveryTime:     req.RecoveryTime,
		FatigueScore:     req.FatigueScore,
		InjuryRisk:       req.InjuryRisk,
		ReadinessScore:   req.ReadinessScore,
		RecordedAt:       s.now().UTC(),
	}
	if req.RecordedAt != nil {
		sm.RecordedAt = req.RecordedAt.UTC()
	}

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO player_metrics (id, player_id, resting_hr, max_hr, hrv, vo2_max, weight, reaction_time,
				match_consistency, minutes_played, training_hours, injury_frequency, recovery_time,
				fatigue_score, injury_risk, readiness_score, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			RETURNING created_at
		`, sm.ID, sm.PlayerID, sm.RestingHR, sm.MaxHR, sm.HRV, sm.VO2Max, sm.Weight, sm.ReactionTime,
			sm.MatchConsistency, sm.MinutesPlayed, sm.TrainingHours, sm.InjuryFrequency, sm.RecoveryTime,
			sm.FatigueScore, sm.InjuryRisk, sm.ReadinessScore, sm.RecordedAt).Scan(&sm.CreatedAt)
		if err != nil {
			return err
		}
		s.notifier.MetricRecorded(ctx, tx, notify.Subject{PlayerID: player.ID, PlayerName: player.Name}, sm.FatigueScore, sm.InjuryRisk)
		return nil
	})
	if err != nil {
		return Sample{}, err
	}
	return sm, nil
}

// List returns a player's samples, newest first.
func (s *Service) List(ctx context.Context, playerID string) ([]Sample, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+sampleColumns+`
		FROM player_metrics
		WHERE player_id=$1
		ORDER BY created_at DESC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		sm, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

// Latest returns nil when the player has no samples.
func (s *Service) Latest(ctx context.Context, playerID string) (*Sample, error) {
	sm, err := scanSample(s.db.QueryRow(ctx, `
		SELECT `+sampleColumns+`
		FROM player_metrics
		WHERE player_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, playerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sm, nil
}

// Detail runs the trend analyzer over one metric within the period window.
func (s *Service) Detail(ctx context.Context, playerID string, metric analysis.MetricType, period Period) (Detail, error) {
	if !metric.Valid() {
		return Detail{}, apperr.Validation("Invalid metric type: '%s'.", metric)
	}
	player, err := s.users.GetPlayer(ctx, playerID)
	if err != nil {
		return Detail{}, err
	}

	// metric is one of the enumerated column names at this point. Samples
	// are placed at their measurement time, falling back to entry time.
	rows, err := s.db.Query(ctx, `
		SELECT `+string(metric)+`, COALESCE(recorded_at, created_at) AS taken_at
		FROM player_metrics
		WHERE player_id=$1 AND COALESCE(recorded_at, created_at) >= $2 AND `+string(metric)+` IS NOT NULL
		ORDER BY taken_at ASC
	`, player.ID, period.Since(s.now()))
	if err != nil {
		return Detail{}, err
	}
	defer rows.Close()

	var values []float64
	points := []GraphPoint{}
	for rows.Next() {
		var v float64
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return Detail{}, err
		}
		values = append(values, v)
		points = append(points, GraphPoint{Date: at.Format("Mon"), Value: v})
	}
	if err := rows.Err(); err != nil {
		return Detail{}, err
	}

	res := analysis.Analyze(values, metric)
	return Detail{
		Player:     player.Summary(),
		MetricType: metric,
		Period:     period,
		GraphData:  points,
		Highlights: res.Highlights,
		Trend:      res.Trend,
		Peak:       res.Peak,
		Lowest:     res.Lowest,
	}, nil
}

func scanSample(row pgx.Row) (Sample, error) {
	var sm Sample
	err := row.Scan(&sm.ID, &sm.PlayerID, &sm.RestingHR, &sm.MaxHR, &sm.HRV, &sm.VO2Max, &sm.Weight, &sm.ReactionTime,
		&sm.MatchConsistency, &sm.MinutesPlayed, &sm.TrainingHours, &sm.InjuryFrequency, &sm.RecoveryTime,
		&sm.FatigueScore, &sm.InjuryRisk, &sm.ReadinessScore, &sm.RecordedAt, &sm.CreatedAt)
	return sm, err
}
