package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction(t *testing.T) {
	t.Parallel()

	fnErr := errors.New("function failed")
	beginErr := errors.New("begin failed")
	commitErr := errors.New("commit failed")
	rollbackErr := errors.New("rollback failed")

	testCases := []struct {
		name        string
		expect      func(mock sqlmock.Sqlmock)
		fn          TxFn
		wantErrIs   error
		wantErrText string
	}{
		{
			name: "commits on success",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx *sql.Tx) error { return nil },
		},
		{
			name: "rolls back on error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn:        func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs: fnErr,
		},
		{
			name: "begin failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(beginErr)
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs:   beginErr,
			wantErrText: "failed to begin transaction",
		},
		{
			name: "commit failure",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(commitErr)
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return nil },
			wantErrIs:   commitErr,
			wantErrText: "failed to commit transaction",
		},
		{
			name: "rollback failure keeps original error",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback().WillReturnError(rollbackErr)
			},
			fn:          func(ctx context.Context, tx *sql.Tx) error { return fnErr },
			wantErrIs:   fnErr,
			wantErrText: "rollback failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tc.expect(mock)
			err = RunInTransaction(context.Background(), db, tc.fn)

			if tc.wantErrIs == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErrIs)
			}
			if tc.wantErrText != "" {
				assert.Contains(t, err.Error(), tc.wantErrText)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunInTransactionPanicRollsBack(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
