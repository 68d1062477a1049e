package assessment

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPostponed Status = "postponed"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04"
)

type Assessment struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	DoctorID    string     `json:"doctor_id"`
	IssueType   string     `json:"issue_type"`
	Message     string     `json:"message"`
	RequestedAt time.Time  `json:"requested_at"`
	Status      Status     `json:"status"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type RequestInput struct {
	IssueType string `json:"issue_type" validate:"required,oneof=injury illness other"`
	Message   string `json:"message" validate:"required,max=500"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Hour      string `json:"hour" validate:"required,datetime=15:04"`
}

type RescheduleInput struct {
	NewDate string `json:"new_date" validate:"required,datetime=2006-01-02"`
	NewTime string `json:"new_time" validate:"required,datetime=15:04"`
}

// Pending is a row of the doctor's pending request list.
type Pending struct {
	ID          string `json:"id"`
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	RequestedAt string `json:"requested_at"`
	Message     string `json:"message"`
	Status      Status `json:"status"`
}

type Detail struct {
	ID        string `json:"id"`
	IssueType string `json:"issue_type"`
	Date      string `json:"date"`
	Hour      string `json:"hour"`
	Message   string `json:"message"`
	Status    Status `json:"status"`
}

// dayMonth renders "2nd Mar".
func dayMonth(t time.Time) string {
	return fmt.Sprintf("%s %s", humanize.Ordinal(t.Day()), t.Format("Jan"))
}

func pendingMessage(at time.Time) string {
	return "Requesting an assessment on " + dayMonth(at) + " at " + at.Format("3 PM")
}

func newDetail(a Assessment) Detail {
	return Detail{
		ID:        a.ID,
		IssueType: a.IssueType,
		Date:      dayMonth(a.RequestedAt) + a.RequestedAt.Format(" 2006"),
		Hour:      a.RequestedAt.Format("3 PM"),
		Message:   a.Message,
		Status:    a.Status,
	}
}
