package program

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"backend-optikick/internal/apperr"
	"backend-optikick/internal/classifier"
	"backend-optikick/internal/metrics"
	"backend-optikick/internal/notify"
	"backend-optikick/internal/user"

	"github.com/pashagolub/pgxmock/v3"
)

var (
	userCols    = []string{"id", "login_id", "name", "email", "role", "status", "created_at"}
	programCols = []string{"id", "player_id", "doctor_id", "focus_area", "exercises", "status",
		"ai_generated", "approved_at", "created_at", "updated_at"}
	stamp = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

type roster struct{}

func (roster) CoachFor(context.Context, string) (user.User, error) {
	return user.User{ID: "c1", Name: "Cara", Role: user.RoleCoach}, nil
}

func (roster) DoctorFor(context.Context, string) (user.User, error) {
	return user.User{ID: "d1", Name: "Dan", Role: user.RoleDoctor}, nil
}

type fakeSamples struct{ sample *metrics.Sample }

func (f fakeSamples) Latest(context.Context, string) (*metrics.Sample, error) { return f.sample, nil }

type fakeClassifier struct {
	got classifier.Scores
	res classifier.Result
}

func (f *fakeClassifier) Classify(_ context.Context, s classifier.Scores) classifier.Result {
	f.got = s
	return f.res
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func newService(mock pgxmock.PgxPoolIface, samples Samples, c Classifier) *Service {
	return NewService(mock, user.NewService(mock), samples, c, notify.NewNotifier(roster{}, nil))
}

func ptr(v float64) *float64 { return &v }

func expectPlayer(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow("p1", "", "Ana", "ana@club.io", "player", "", stamp))
}

func expectNotification(mock pgxmock.PgxPoolIface, recipient string, typ notify.Type, title string) {
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(pgxmock.AnyArg(), recipient, string(typ), title, pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}

func programRow(status string) *pgxmock.Rows {
	doc := []byte(`{"focus_area":"General Fitness","program":["Warm-up","Run"]}`)
	return pgxmock.NewRows(programCols).
		AddRow("tp1", "p1", "d1", "General Fitness", doc, status, true, (*time.Time)(nil), stamp, stamp)
}

func TestGenerateClassifiesBeforeTransaction(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)
	mock.ExpectQuery(`player_assignments`).
		WithArgs("p1", "doctor").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow("d1", "", "Dan", "dan@club.io", "doctor", "", stamp))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO training_programs`).
		WithArgs(pgxmock.AnyArg(), "p1", "d1", "Recovery and Rest", pgxmock.AnyArg(), "pending", true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	mock.ExpectExec(`^UPDATE users SET status=\$2, updated_at=now\(\) WHERE id=\$1$`).
		WithArgs("p1", "At Risk").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectNotification(mock, "d1", notify.TypeTrainingProgram, "Training Program Requires Review")
	expectNotification(mock, "c1", notify.TypeTrainingProgram, "Training Program Generated")
	expectNotification(mock, "p1", notify.TypeTrainingProgram, "Training Program Generated")
	mock.ExpectCommit()

	cls := &fakeClassifier{res: classifier.Result{
		Status: "At Risk", FocusArea: "Recovery and Rest", Exercises: []string{"Rest", "Stretch"},
	}}
	sample := &metrics.Sample{FatigueScore: ptr(85), InjuryRisk: ptr(40), ReadinessScore: ptr(20)}
	svc := newService(mock, fakeSamples{sample: sample}, cls)

	p, err := svc.Generate(context.Background(), user.User{ID: "admin1", Role: user.RoleAdmin}, "p1", GenerateInput{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !p.AIGenerated || p.Status != StatusPending || p.DoctorID != "d1" || len(p.Exercises) != 2 {
		t.Fatalf("unexpected program: %+v", p)
	}
	if cls.got != (classifier.Scores{Fatigue: 85, InjuryRisk: 40, Readiness: 20}) {
		t.Fatalf("unexpected scores: %+v", cls.got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateByDoctorUsesActor(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO training_programs`).
		WithArgs(pgxmock.AnyArg(), "p1", "d7", pgxmock.AnyArg(), pgxmock.AnyArg(), "pending", true).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	mock.ExpectExec(`^UPDATE users SET status=\$2, updated_at=now\(\) WHERE id=\$1$`).WithArgs("p1", pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectNotification(mock, "d7", notify.TypeTrainingProgram, "Training Program Requires Review")
	expectNotification(mock, "c1", notify.TypeTrainingProgram, "Training Program Generated")
	expectNotification(mock, "p1", notify.TypeTrainingProgram, "Training Program Generated")
	mock.ExpectCommit()

	svc := newService(mock, fakeSamples{sample: &metrics.Sample{}}, &fakeClassifier{res: classifier.Fallback(classifier.Scores{})})
	if _, err := svc.Generate(context.Background(), user.User{ID: "d7", Role: user.RoleDoctor}, "p1", GenerateInput{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGenerateWithoutMetrics(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)

	svc := newService(mock, fakeSamples{}, &fakeClassifier{})
	_, err := svc.Generate(context.Background(), user.User{ID: "admin1", Role: user.RoleAdmin}, "p1", GenerateInput{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEditClearsAIFlagAndNotifies(t *testing.T) {
	mock := newMock(t)
	approvedAt := stamp
	expectPlayer(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("p1").WillReturnRows(programRow("pending"))
	mock.ExpectQuery(`UPDATE training_programs`).
		WithArgs("tp1", "Mobility", pgxmock.AnyArg(), "approved", false, true).
		WillReturnRows(pgxmock.NewRows([]string{"approved_at", "updated_at"}).AddRow(&approvedAt, stamp))
	expectNotification(mock, "p1", notify.TypeTrainingProgram, "Training Program Updated")
	expectNotification(mock, "c1", notify.TypeProgramUpdate, "Training Program Update")
	mock.ExpectCommit()

	focus, status := "Mobility", "approved"
	p, err := newService(mock, nil, nil).Edit(context.Background(), "d1", "p1", EditInput{FocusArea: &focus, Status: &status})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if p.AIGenerated || p.FocusArea != "Mobility" || p.Status != StatusApproved || p.ApprovedAt == nil || len(p.Exercises) != 2 {
		t.Fatalf("unexpected program: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEditSameStatusSkipsCoach(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("p1").WillReturnRows(programRow("pending"))
	mock.ExpectQuery(`UPDATE training_programs`).
		WithArgs("tp1", "General Fitness", pgxmock.AnyArg(), "pending", false, false).
		WillReturnRows(pgxmock.NewRows([]string{"approved_at", "updated_at"}).AddRow((*time.Time)(nil), stamp))
	expectNotification(mock, "p1", notify.TypeTrainingProgram, "Training Program Updated")
	mock.ExpectCommit()

	exercises := []string{"Swim"}
	p, err := newService(mock, nil, nil).Edit(context.Background(), "d1", "p1", EditInput{Exercises: &exercises})
	if err != nil || p.Exercises[0] != "Swim" {
		t.Fatalf("edit: %+v %v", p, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEditWithoutProgram(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(pgxmock.NewRows(programCols))
	mock.ExpectRollback()

	_, err := newService(mock, nil, nil).Edit(context.Background(), "d1", "p1", EditInput{})
	if !errors.Is(err, apperr.ErrNotFound) || apperr.Public(err) != "No training program found for this player" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	mock := newMock(t)
	approvedAt := stamp
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id=\$1 FOR UPDATE`).WithArgs("tp1").WillReturnRows(programRow("pending"))
	mock.ExpectQuery(`UPDATE training_programs`).
		WithArgs("tp1", "General Fitness", pgxmock.AnyArg(), "approved", true, true).
		WillReturnRows(pgxmock.NewRows([]string{"approved_at", "updated_at"}).AddRow(&approvedAt, stamp))
	expectPlayer(mock)
	expectNotification(mock, "c1", notify.TypeProgramUpdate, "Training Program Update")
	mock.ExpectCommit()

	p, err := newService(mock, nil, nil).Approve(context.Background(), "tp1")
	if err != nil || p.Status != StatusApproved || p.ApprovedAt == nil {
		t.Fatalf("approve: %+v %v", p, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveAlreadyApproved(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(programRow("approved"))
	mock.ExpectRollback()

	if _, err := newService(mock, nil, nil).Approve(context.Background(), "tp1"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateNotifiesCoach(t *testing.T) {
	mock := newMock(t)
	expectPlayer(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO training_programs`).
		WithArgs(pgxmock.AnyArg(), "p1", "d1", "Speed", pgxmock.AnyArg(), "pending", false).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	expectNotification(mock, "c1", notify.TypeProgramCreated, "New Training Program")
	mock.ExpectCommit()

	_, err := newService(mock, nil, nil).Create(context.Background(), "d1", CreateInput{PlayerID: "p1", FocusArea: "Speed", Exercises: []string{"Sprints"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCurrentAndReviewed(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`WHERE player_id=\$1 ORDER BY created_at DESC LIMIT 1`).WithArgs("p1").WillReturnRows(pgxmock.NewRows(programCols))
	expectPlayer(mock)
	mock.ExpectQuery(`status='approved'`).WithArgs("p1").WillReturnRows(programRow("approved"))

	svc := newService(mock, nil, nil)
	if _, err := svc.Current(context.Background(), "p1"); !errors.Is(err, ErrNoProgram) {
		t.Fatalf("expected no program, got %v", err)
	}
	p, err := svc.Reviewed(context.Background(), "p1")
	if err != nil || p == nil || p.Status != StatusApproved || p.Exercises[1] != "Run" {
		t.Fatalf("reviewed: %+v %v", p, err)
	}
}

func TestPlanDocument(t *testing.T) {
	raw, err := Program{FocusArea: "Speed"}.plan()
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	if doc["focus_area"] != "Speed" || doc["program"] == nil {
		t.Fatalf("unexpected plan: %s", raw)
	}
}
