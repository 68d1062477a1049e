package dashboard

import (
	"fmt"
	"math"

	"backend-optikick/internal/metrics"
	"backend-optikick/internal/user"
)

type StatusCount struct {
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Label      string `json:"label"`
}

// Overview is the status breakdown shown to coaches and doctors.
type Overview struct {
	StatusOverview map[string]StatusCount `json:"status_overview"`
	TotalPlayers   int                    `json:"total_players"`
}

func newOverview(counts map[string]int, total int) Overview {
	o := Overview{StatusOverview: make(map[string]StatusCount, len(user.PlayerStatuses)), TotalPlayers: total}
	for _, st := range user.PlayerStatuses {
		n := counts[st]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(n) / float64(total) * 100))
		}
		o.StatusOverview[st] = StatusCount{
			Count:      n,
			Percentage: pct,
			Label:      fmt.Sprintf("%s: %d%% (%d players)", st, pct, n),
		}
	}
	return o
}

type PlayerDashboard struct {
	Player  user.Summary   `json:"player"`
	Metrics metrics.Vitals `json:"metrics"`
}

type RoleCount struct {
	Role  user.Role `json:"role"`
	Count int       `json:"count"`
}

type Activity struct {
	ID         string `json:"id"`
	PlayerName string `json:"player_name"`
	DoctorName string `json:"doctor_name"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type AdminDashboard struct {
	Overview struct {
		TotalUsers       int `json:"total_users"`
		TotalAssessments int `json:"total_assessments"`
		TotalPrograms    int `json:"total_programs"`
	} `json:"overview"`
	UsersByRole      []RoleCount `json:"users_by_role"`
	RecentActivities struct {
		Assessments []Activity `json:"assessments"`
		Programs    []Activity `json:"programs"`
	} `json:"recent_activities"`
	SystemHealth struct {
		ActiveUsers        int `json:"active_users"`
		PendingAssessments int `json:"pending_assessments"`
		PendingPrograms    int `json:"pending_programs"`
	} `json:"system_health"`
}

type Stats struct {
	Users struct {
		Total  int         `json:"total"`
		Active int         `json:"active"`
		ByRole []RoleCount `json:"by_role"`
	} `json:"users"`
	Assessments struct {
		Total     int `json:"total"`
		Pending   int `json:"pending"`
		Approved  int `json:"approved"`
		Postponed int `json:"postponed"`
	} `json:"assessments"`
	Programs struct {
		Total    int `json:"total"`
		Pending  int `json:"pending"`
		Approved int `json:"approved"`
	} `json:"programs"`
}
