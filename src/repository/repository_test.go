package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"agentarena/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestCompetitionRepositoryFindByIDReturnsNilWhenMissing(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&CompetitionRepository{}).WithDB(mockDB)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "competitions" WHERE id = $1 ORDER BY "competitions"."id" LIMIT $2`)).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil competition for missing row, got %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestParticipantRepositoryLeaderboardOrdersByEquityDescending(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&ParticipantRepository{}).WithDB(mockDB)

	competitionID := uuid.New()
	top := uuid.New()
	bottom := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "competition_id", "name", "current_equity"}).
		AddRow(top, competitionID, "agent-a", "11000.00").
		AddRow(bottom, competitionID, "agent-b", "9000.00")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "participants" WHERE competition_id = $1 ORDER BY current_equity DESC`)).
		WithArgs(competitionID).
		WillReturnRows(rows)

	got, err := repo.Leaderboard(context.Background(), competitionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(got))
	}
	if got[0].ID != top || got[1].ID != bottom {
		t.Fatalf("leaderboard not in the order sqlmock returned: %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestExceptionRepositoryCreateInsertsRow(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&ExceptionRepository{}).WithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "exceptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), &model.Exception{
		Service: "scheduler",
		Module:  "decision",
		Method:  "Run",
		Message: "boom",
		Level:   "error",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestSortPositionsBySymbolIsStableAndAscending(t *testing.T) {
	positions := []model.Position{
		{Symbol: "ETH-USD"},
		{Symbol: "BTC-USD"},
		{Symbol: "SOL-USD"},
	}
	sorted := SortPositionsBySymbol(positions)
	if sorted[0].Symbol != "BTC-USD" || sorted[1].Symbol != "ETH-USD" || sorted[2].Symbol != "SOL-USD" {
		t.Fatalf("positions not sorted by symbol: %+v", sorted)
	}
	if positions[0].Symbol != "ETH-USD" {
		t.Fatalf("SortPositionsBySymbol must not mutate its input")
	}
}
