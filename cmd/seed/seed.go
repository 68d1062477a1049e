package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"backend-optikick/internal/auth"
	"backend-optikick/internal/db"
	"backend-optikick/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Options struct {
	Days     int
	Password string
	Now      time.Time
	// Rand drives the generated metric values; nil uses a fixed seed.
	Rand     *rand.Rand
}

type Result struct {
	Users   int
	Samples int
}

const demoTeam = "OptiKick FC"

type account struct {
	name     string
	role     user.Role
	status   string
	sex      string
	position string
	blood    string
	born     string
}

var demoStaff = []account{
	{name: "Alex Admin", role: user.RoleAdmin, sex: "male", position: "Administrator", blood: "A+", born: "1988-02-11"},
	{name: "Carla Coach", role: user.RoleCoach, sex: "female", position: "Head Coach", blood: "B+", born: "1979-09-23"},
	{name: "Diego Doctor", role: user.RoleDoctor, sex: "male", position: "Team Doctor", blood: "O-", born: "1983-06-02"},
}

var demoPlayers = []account{
	{name: "Ana Silva", role: user.RolePlayer, status: user.StatusOptimal, sex: "female", position: "Midfielder", blood: "O+", born: "2001-05-15"},
	{name: "Ben Okoro", role: user.RolePlayer, status: user.StatusAtRisk, sex: "male", position: "Defender", blood: "A-", born: "1999-11-30"},
	{name: "Chen Wei", role: user.RolePlayer, status: user.StatusRecovering, sex: "male", position: "Forward", blood: "AB+", born: "2003-01-08"},
}

func loginID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "."))
}

// Seed inserts the demo roster in one transaction. Existing accounts with
// the same login id are left untouched.
func Seed(ctx context.Context, q db.TxQuerier, opts Options) (Result, error) {
	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return Result{}, err
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}

	var res Result
	err = db.WithTx(ctx, q, func(tx pgx.Tx) error {
		staff := map[user.Role]string{}
		for _, a := range demoStaff {
			id, err := insertUser(ctx, tx, a, hash, opts.Now)
			if err != nil {
				return err
			}
			staff[a.role] = id
			res.Users++
		}
		teamID, err := insertTeam(ctx, tx, staff[user.RoleCoach])
		if err != nil {
			return err
		}
		assign := user.NewService(tx)
		for _, a := range demoPlayers {
			id, err := insertUser(ctx, tx, a, hash, opts.Now)
			if err != nil {
				return err
			}
			res.Users++
			if _, err := tx.Exec(ctx, `
				INSERT INTO team_players (team_id, player_id) VALUES ($1,$2) ON CONFLICT DO NOTHING
			`, teamID, id); err != nil {
				return fmt.Errorf("join team %s: %w", a.name, err)
			}
			if err := assign.Assign(ctx, user.Assignment{PlayerID: id, CoachID: staff[user.RoleCoach], DoctorID: staff[user.RoleDoctor]}); err != nil {
				return fmt.Errorf("assign %s: %w", a.name, err)
			}
			for d := opts.Days - 1; d >= 0; d-- {
				if err := insertSample(ctx, tx, id, opts.Now.AddDate(0, 0, -d), rng); err != nil {
					return err
				}
				res.Samples++
			}
		}
		return nil
	})
	return res, err
}

func insertUser(ctx context.Context, tx pgx.Tx, a account, hash string, now time.Time) (string, error) {
	login := loginID(a.name)
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO users (id, login_id, name, email, password_hash, role, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)
		ON CONFLICT (login_id) DO UPDATE SET login_id = EXCLUDED.login_id
		RETURNING id
	`, uuid.NewString(), login, a.name, login+"@optikick.test", hash, string(a.role), a.status, now).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", login, err)
	}

	first, last, _ := strings.Cut(a.name, " ")
	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (user_id, first_name, last_name, date_of_birth, sex, position, blood_type)
		VALUES ($1,$2,$3,$4::date,$5,$6,$7)
		ON CONFLICT (user_id) DO NOTHING
	`, id, first, last, a.born, a.sex, a.position, a.blood)
	if err != nil {
		return "", fmt.Errorf("profile %s: %w", login, err)
	}
	return id, nil
}

func insertTeam(ctx context.Context, tx pgx.Tx, coachID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO teams (id, name, coach_id, location, description)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET coach_id = EXCLUDED.coach_id
		RETURNING id
	`, uuid.NewString(), demoTeam, coachID, "Lisbon", "Demo squad").Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert team: %w", err)
	}
	return id, nil
}

// between returns a value in [lo, hi) rounded to one decimal.
func between(rng *rand.Rand, lo, hi float64) float64 {
	v := lo + rng.Float64()*(hi-lo)
	return float64(int(v*10+0.5)) / 10
}

func insertSample(ctx context.Context, tx pgx.Tx, playerID string, at time.Time, rng *rand.Rand) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO player_metrics (id, player_id, resting_hr, max_hr, hrv, vo2_max, weight, reaction_time,
			match_consistency, minutes_played, training_hours, injury_frequency, recovery_time,
			fatigue_score, injury_risk, readiness_score, recorded_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)
	`, uuid.NewString(), playerID,
		between(rng, 50, 70), between(rng, 175, 200), between(rng, 40, 90), between(rng, 45, 60),
		between(rng, 65, 85), between(rng, 180, 260), between(rng, 60, 95), between(rng, 30, 90),
		between(rng, 1, 3), between(rng, 0, 2), between(rng, 12, 48),
		between(rng, 20, 85), between(rng, 10, 80), between(rng, 30, 95), at)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}
