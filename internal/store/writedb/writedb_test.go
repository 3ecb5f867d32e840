package writedb

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/perpwatch/perpwatch/internal/model"
)

// newMockStore mirrors the teacher's sqlx.NewDb(mockDB, "postgres") +
// go-sqlmock pairing (tests/unit/infrastructure/db/connection_test.go).
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return &Store{DB: sqlx.NewDb(mockDB, "postgres"), Timeout: time.Second}, mock
}

func validTick(symbol string) model.RawTick {
	return model.RawTick{
		Exchange:        "hyperliquid",
		OriginalSymbol:  symbol,
		MarkPrice:       "100.5",
		IndexPrice:      "100.4",
		LastPrice:       "100.5",
		OpenInterest:    "1000",
		OpenInterestUSD: "100500",
		FundingRate:     "0.0001",
		RecordedAt:      1700000000000,
		CreatedAt:       1700000000,
	}
}

func TestInsertTicksEmptyIsNoOp(t *testing.T) {
	store, mock := newMockStore(t)
	err := store.InsertTicks(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTicksCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO market_stats"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO market_stats")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO market_stats")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.InsertTicks(context.Background(), []model.RawTick{
		validTick("BTC"), validTick("ETH"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTicksRejectsInvalidTickBeforeExec(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO market_stats"))
	mock.ExpectRollback()

	bad := validTick("BTC")
	bad.MarkPrice = "not-a-number"

	err := store.InsertTicks(context.Background(), []model.RawTick{bad})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTicksRollsBackOnExecError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO market_stats"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO market_stats")).
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err := store.InsertTicks(context.Background(), []model.RawTick{validTick("BTC")})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
