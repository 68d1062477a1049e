package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/db"

	"github.com/jackc/pgx/v5"
)

const perPage = 10

var (
	ErrNoCoach   = apperr.NotFound("no coach exists")
	ErrNoDoctor  = apperr.NotFound("no doctor available")
	ErrNoProfile = apperr.NotFound("Profile not found")
)

const userColumns = `id, COALESCE(login_id,''), name, COALESCE(email,''), role, COALESCE(status,''), created_at`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		return User{}, apperr.FromRow(err, "user")
	}
	return u, nil
}

// GetPlayer loads a user and rejects anyone who is not a player.
func (s *Service) GetPlayer(ctx context.Context, id string) (User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Role != RolePlayer {
		return User{}, apperr.Validation("Invalid player selected")
	}
	return u, nil
}

// CoachFor resolves the coach assigned to a player. Players without an
// assignment fall back to the earliest registered coach.
func (s *Service) CoachFor(ctx context.Context, playerID string) (User, error) {
	return s.assigned(ctx, playerID, RoleCoach)
}

// DoctorFor resolves the doctor assigned to a player, with the same
// fallback as CoachFor.
func (s *Service) DoctorFor(ctx context.Context, playerID string) (User, error) {
	return s.assigned(ctx, playerID, RoleDoctor)
}

func (s *Service) assigned(ctx context.Context, playerID string, role Role) (User, error) {
	var column string
	var missing error
	switch role {
	case RoleCoach:
		column, missing = "coach_id", ErrNoCoach
	case RoleDoctor:
		column, missing = "doctor_id", ErrNoDoctor
	default:
		return User{}, fmt.Errorf("role %s is not assignable", role)
	}

	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = COALESCE(
			(SELECT `+column+` FROM player_assignments WHERE player_id=$1),
			(SELECT id FROM users WHERE role=$2 ORDER BY created_at, id LIMIT 1)
		)
	`, playerID, string(role))
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, missing
	}
	return u, err
}

func (s *Service) Assign(ctx context.Context, a Assignment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO player_assignments (player_id, coach_id, doctor_id)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''))
		ON CONFLICT (player_id) DO UPDATE
		SET coach_id = COALESCE(EXCLUDED.coach_id, player_assignments.coach_id),
		    doctor_id = COALESCE(EXCLUDED.doctor_id, player_assignments.doctor_id)
	`, a.PlayerID, a.CoachID, a.DoctorID)
	return err
}

// Search finds messaging contacts by name or email, excluding the caller
// and administrators.
func (s *Service) Search(ctx context.Context, selfID, query string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id <> $1 AND role <> 'admin'
		  AND (name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY name
		LIMIT 10
	`, selfID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Summary{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, u.Summary())
	}
	return results, rows.Err()
}

func (s *Service) List(ctx context.Context, f ListFilter) (Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	page := Page{Page: f.Page, PerPage: perPage, Users: []User{}}

	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
	`, string(f.Role), f.Search).Scan(&page.Total); err != nil {
		return Page{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, string(f.Role), f.Search, perPage, (f.Page-1)*perPage)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return Page{}, err
		}
		page.Users = append(page.Users, u)
	}
	return page, rows.Err()
}

// Profile loads the caller's profile card, with age computed on the given day.
func (s *Service) Profile(ctx context.Context, id string, on time.Time) (Profile, error) {
	var p Profile
	var role string
	var dob *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(p.first_name,''), COALESCE(p.last_name,''), p.date_of_birth, COALESCE(p.sex,''),
		       COALESCE(p.position,''), COALESCE(p.blood_type,''), COALESCE(u.email,''), COALESCE(u.status,''), u.role
		FROM users u JOIN profiles p ON p.user_id = u.id
		WHERE u.id=$1
	`, id).Scan(&p.FirstName, &p.LastName, &dob, &p.Sex, &p.Position, &p.BloodType, &p.Email, &p.Status, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNoProfile
	}
	if err != nil {
		return Profile{}, err
	}
	if Role(role) != RolePlayer {
		p.Status = ""
	}
	p.DateOfBirth = formatBirth(dob, on)
	return p, nil
}

// SetStatus updates a player's health status, typically inside the
// transaction that produced the status.
func SetStatus(ctx context.Context, q db.Querier, playerID, status string) error {
	_, err := q.Exec(ctx, `UPDATE users SET status=$2, updated_at=now() WHERE id=$1`, playerID, status)
	return err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.LoginID, &u.Name, &u.Email, &role, &u.Status, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}
