package team

import (
	"context"

	"backend-optikick/internal/db"
	"backend-optikick/internal/user"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// List pages through teams matching search on name or location, each with
// its coach and roster.
func (s *Service) List(ctx context.Context, search string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	out := Page{Page: page, PerPage: perPage, Teams: []Team{}}

	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM teams t
		WHERE ($1 = '' OR t.name ILIKE '%' || $1 || '%' OR t.location ILIKE '%' || $1 || '%')
	`, search).Scan(&out.Total); err != nil {
		return Page{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.name, COALESCE(t.logo,''), COALESCE(t.description,''), COALESCE(t.location,''),
		       t.status, t.created_at, COALESCE(c.id,''), COALESCE(c.name,''), COALESCE(c.email,'')
		FROM teams t LEFT JOIN users c ON c.id = t.coach_id
		WHERE ($1 = '' OR t.name ILIKE '%' || $1 || '%' OR t.location ILIKE '%' || $1 || '%')
		ORDER BY t.name
		LIMIT $2 OFFSET $3
	`, search, perPage, (page-1)*perPage)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		var t Team
		var coach user.User
		if err := rows.Scan(&t.ID, &t.Name, &t.Logo, &t.Description, &t.Location, &t.Status, &t.CreatedAt,
			&coach.ID, &coach.Name, &coach.Email); err != nil {
			return Page{}, err
		}
		if coach.ID != "" {
			coach.Role = user.RoleCoach
			sum := coach.Summary()
			t.Coach = &sum
		}
		t.Players = []user.Summary{}
		index[t.ID] = len(out.Teams)
		ids = append(ids, t.ID)
		out.Teams = append(out.Teams, t)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	rows.Close()

	if len(ids) == 0 {
		return out, nil
	}
	return out, s.attachPlayers(ctx, &out, index, ids)
}

func (s *Service) attachPlayers(ctx context.Context, out *Page, index map[string]int, ids []string) error {
	rows, err := s.db.Query(ctx, `
		SELECT tp.team_id, u.id, u.name, COALESCE(u.email,''), COALESCE(u.status,'')
		FROM team_players tp JOIN users u ON u.id = tp.player_id
		WHERE tp.team_id = ANY($1)
		ORDER BY u.name
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var teamID string
		p := user.User{Role: user.RolePlayer}
		if err := rows.Scan(&teamID, &p.ID, &p.Name, &p.Email, &p.Status); err != nil {
			return err
		}
		i, ok := index[teamID]
		if !ok {
			continue
		}
		out.Teams[i].Players = append(out.Teams[i].Players, p.Summary())
	}
	return rows.Err()
}
