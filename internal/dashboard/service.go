package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-optikick/internal/analysis"
	"backend-optikick/internal/db"
	"backend-optikick/internal/logging"
	"backend-optikick/internal/metrics"
	"backend-optikick/internal/user"

	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statsKey      = "optikick:dashboard:stats"
	statsTTL      = 30 * time.Second
	recentLimit   = 5
	activeWindow  = "7 days"
	activityStamp = "2006-01-02 15:04"
)

type Samples interface {
	Latest(ctx context.Context, playerID string) (*metrics.Sample, error)
}

type Service struct {
	db      db.Querier
	users   *user.Service
	samples Samples
	cache   *redis.Client
	logger  *log.Logger
}

// NewService caches system stats in redis when cache is non-nil. Cache
// failures are logged and the stats computed from the database.
func NewService(db db.Querier, users *user.Service, samples Samples, cache *redis.Client, logger *log.Logger) *Service {
	return &Service{db: db, users: users, samples: samples, cache: cache, logger: logging.OrDiscard(logger)}
}

func (s *Service) count(ctx context.Context, dst *int, sql string, args ...any) func() error {
	return func() error {
		return s.db.QueryRow(ctx, sql, args...).Scan(dst)
	}
}

// Overview counts players per health status. Players without a known
// status are part of the total only.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(status,''), count(*) FROM users WHERE role='player' GROUP BY 1
	`)
	if err != nil {
		return Overview{}, err
	}
	defer rows.Close()

	counts := map[string]int{}
	total := 0
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return Overview{}, err
		}
		counts[st] += n
		total += n
	}
	if err := rows.Err(); err != nil {
		return Overview{}, err
	}
	return newOverview(counts, total), nil
}

// Players lists the team roster by name.
func (s *Service) Players(ctx context.Context) ([]user.Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, COALESCE(email,''), COALESCE(status,'')
		FROM users WHERE role='player' ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []user.Summary{}
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Status); err != nil {
			return nil, err
		}
		u.Role = user.RolePlayer
		out = append(out, u.Summary())
	}
	return out, rows.Err()
}

// Player returns the player's latest vitals. Readings are empty when no
// sample exists yet.
func (s *Service) Player(ctx context.Context, playerID string) (PlayerDashboard, error) {
	p, err := s.users.GetPlayer(ctx, playerID)
	if err != nil {
		return PlayerDashboard{}, err
	}
	sm, err := s.samples.Latest(ctx, p.ID)
	if err != nil {
		return PlayerDashboard{}, err
	}
	d := PlayerDashboard{Player: p.Summary()}
	if sm != nil {
		d.Metrics = metrics.NewVitals(*sm)
		return d, nil
	}
	d.Metrics = metrics.Vitals{Readings: make(map[analysis.MetricType]metrics.Reading, len(analysis.MetricTypes))}
	for _, m := range analysis.MetricTypes {
		d.Metrics.Readings[m] = metrics.Reading{Unit: m.Unit()}
	}
	return d, nil
}

func (s *Service) roles(ctx context.Context) ([]RoleCount, error) {
	rows, err := s.db.Query(ctx, `SELECT role, count(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoleCount{}
	for rows.Next() {
		var rc RoleCount
		var role string
		if err := rows.Scan(&role, &rc.Count); err != nil {
			return nil, err
		}
		rc.Role = user.Role(role)
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (s *Service) recent(ctx context.Context, table string) ([]Activity, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.id, COALESCE(p.name,''), COALESCE(d.name,''), t.status, t.created_at
		FROM `+table+` t
		LEFT JOIN users p ON p.id = t.player_id
		LEFT JOIN users d ON d.id = t.doctor_id
		ORDER BY t.created_at DESC
		LIMIT $1
	`, recentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Activity{}
	for rows.Next() {
		var a Activity
		var at time.Time
		if err := rows.Scan(&a.ID, &a.PlayerName, &a.DoctorName, &a.Status, &at); err != nil {
			return nil, err
		}
		a.CreatedAt = at.Format(activityStamp)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Admin gathers the admin dashboard. The independent queries run
// concurrently.
func (s *Service) Admin(ctx context.Context) (AdminDashboard, error) {
	var d AdminDashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.count(ctx, &d.Overview.TotalUsers, `SELECT count(*) FROM users`))
	g.Go(s.count(ctx, &d.Overview.TotalAssessments, `SELECT count(*) FROM assessment_requests`))
	g.Go(s.count(ctx, &d.Overview.TotalPrograms, `SELECT count(*) FROM training_programs`))
	g.Go(s.count(ctx, &d.SystemHealth.ActiveUsers, activeUsersSQL))
	g.Go(s.count(ctx, &d.SystemHealth.PendingAssessments, `SELECT count(*) FROM assessment_requests WHERE status=$1`, "pending"))
	g.Go(s.count(ctx, &d.SystemHealth.PendingPrograms, `SELECT count(*) FROM training_programs WHERE status=$1`, "pending"))
	g.Go(func() (err error) {
		d.UsersByRole, err = s.roles(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.RecentActivities.Assessments, err = s.recent(ctx, "assessment_requests")
		return err
	})
	g.Go(func() (err error) {
		d.RecentActivities.Programs, err = s.recent(ctx, "training_programs")
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminDashboard{}, err
	}
	return d, nil
}

const activeUsersSQL = `SELECT count(DISTINCT user_id) FROM refresh_tokens WHERE created_at >= now() - interval '` + activeWindow + `'`

// Stats returns system-wide counters, served from redis for a short while
// after each computation.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsKey).Bytes()
		if err == nil {
			var st Stats
			if json.Unmarshal(raw, &st) == nil {
				return st, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", statsKey).Msg("read cached stats")
		}
	}

	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.count(gctx, &st.Users.Total, `SELECT count(*) FROM users`))
	g.Go(s.count(gctx, &st.Users.Active, activeUsersSQL))
	g.Go(func() (err error) {
		st.Users.ByRole, err = s.roles(gctx)
		return err
	})
	g.Go(s.count(gctx, &st.Assessments.Total, `SELECT count(*) FROM assessment_requests`))
	g.Go(s.count(gctx, &st.Assessments.Pending, `SELECT count(*) FROM assessment_requests WHERE status=$1`, "pending"))
	g.Go(s.count(gctx, &st.Assessments.Approved, `SELECT count(*) FROM assessment_requests WHERE status=$1`, "approved"))
	g.Go(s.count(gctx, &st.Assessments.Postponed, `SELECT count(*) FROM assessment_requests WHERE status=$1`, "postponed"))
	g.Go(s.count(gctx, &st.Programs.Total, `SELECT count(*) FROM training_programs`))
	g.Go(s.count(gctx, &st.Programs.Pending, `SELECT count(*) FROM training_programs WHERE status=$1`, "pending"))
	g.Go(s.count(gctx, &st.Programs.Approved, `SELECT count(*) FROM training_programs WHERE status=$1`, "approved"))
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(st); err == nil {
			if err := s.cache.Set(ctx, statsKey, raw, statsTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Str("key", statsKey).Msg("cache stats")
			}
		}
	}
	return st, nil
}
