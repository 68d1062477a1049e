package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func TestSeedInsertsRoster(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectUser := func(id, first, last string) {
		mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
		mock.ExpectExec(`INSERT INTO profiles`).
			WithArgs(id, first, last, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	expectUser("a1", "Alex", "Admin")
	expectUser("c1", "Carla", "Coach")
	expectUser("d1", "Diego", "Doctor")
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs(pgxmock.AnyArg(), demoTeam, "c1", "Lisbon", "Demo squad").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("t1"))
	players := []struct{ id, first, last string }{{"p1", "Ana", "Silva"}, {"p2", "Ben", "Okoro"}, {"p3", "Chen", "Wei"}}
	for _, p := range players {
		expectUser(p.id, p.first, p.last)
		mock.ExpectExec(`INSERT INTO team_players`).
			WithArgs("t1", p.id).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`INSERT INTO player_assignments`).
			WithArgs(p.id, "c1", "d1").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		for d := 1; d >= 0; d-- {
			mock.ExpectExec(`INSERT INTO player_metrics`).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
	}
	mock.ExpectCommit()

	res, err := Seed(context.Background(), mock, Options{Days: 2, Password: "secret123", Now: now, Rand: rand.New(rand.NewPCG(7, 7))})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Users != 6 || res.Samples != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeedRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if _, err := Seed(context.Background(), mock, Options{Days: 1, Password: "x", Now: time.Now()}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBetweenStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 100; i++ {
		if v := between(rng, 10, 20); v < 10 || v > 20 {
			t.Fatalf("value out of range: %v", v)
		}
	}
}

func TestRootCmdRejectsDays(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"--days", "0"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for zero days")
	}
}

func TestLoginID(t *testing.T) {
	if got := loginID("Ana Silva"); got != "ana.silva" {
		t.Fatalf("unexpected login id: %s", got)
	}
}
