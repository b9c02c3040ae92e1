package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/recipereel/workers/internal/database"
)

var notificationColumns = []string{
	"id", "comment_id", "recipe_id", "recipient_id", "sent",
	"notifications_enabled", "created_at",
}

func TestNotificationRepository_FetchUnsent(t *testing.T) {
	t.Helper()
	runFetchUnsentTests(t)
}

func runFetchUnsentTests(t *testing.T) {
	t.Helper()

	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewNotificationRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		setupMock func()
		wantCount int
		wantErr   bool
	}{
		{
			name: "returns records with joined preference",
			setupMock: func() {
				rows := sqlmock.NewRows(notificationColumns).
					AddRow("n2", "c2", "r1", "alice", false, true, created.Add(time.Minute)).
					AddRow("n1", "c1", "r1", "bob", false, false, created)
				mock.ExpectQuery("SELECT (.+) FROM notification_queue").
					WillReturnRows(rows)
			},
			wantCount: 2,
			wantErr:   false,
		},
		{
			name: "returns empty slice when nothing pending",
			setupMock: func() {
				mock.ExpectQuery("SELECT (.+) FROM notification_queue").
					WillReturnRows(sqlmock.NewRows(notificationColumns))
			},
			wantCount: 0,
			wantErr:   false,
		},
		{
			name: "database error returns error",
			setupMock: func() {
				mock.ExpectQuery("SELECT (.+) FROM notification_queue").
					WillReturnError(sql.ErrConnDone)
			},
			wantCount: 0,
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			records, callErr := repo.FetchUnsent(ctx)
			if (callErr != nil) != tc.wantErr {
				t.Errorf("FetchUnsent() error = %v, wantErr %v", callErr, tc.wantErr)
			}
			if len(records) != tc.wantCount {
				t.Errorf("FetchUnsent() returned %d records, want %d", len(records), tc.wantCount)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestNotificationRepository_FetchUnsentPreservesOrderAndPreference(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewNotificationRepository(db)
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(notificationColumns).
		AddRow("n2", "c2", "r1", "alice", false, true, created.Add(time.Minute)).
		AddRow("n1", "c1", "r1", "muted", false, false, created)
	mock.ExpectQuery("SELECT (.+) FROM notification_queue").WillReturnRows(rows)

	records, callErr := repo.FetchUnsent(context.Background())
	if callErr != nil {
		t.Fatalf("FetchUnsent() error = %v", callErr)
	}
	if records[0].ID != "n2" || records[1].ID != "n1" {
		t.Errorf("records out of query order: %q, %q", records[0].ID, records[1].ID)
	}
	if !records[0].NotificationsEnabled {
		t.Error("expected alice's preference to scan as enabled")
	}
	if records[1].NotificationsEnabled {
		t.Error("expected muted recipient's preference to scan as disabled")
	}
}

func TestNotificationRepository_MarkSent(t *testing.T) {
	t.Helper()
	runMarkSentTests(t)
}

func runMarkSentTests(t *testing.T) {
	t.Helper()

	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewNotificationRepository(db)
	ctx := context.Background()
	ids := []string{"n1", "n2", "n3"}

	testCases := []struct {
		name      string
		setupMock func()
		wantErr   bool
	}{
		{
			name: "updates every id in one statement",
			setupMock: func() {
				mock.ExpectExec("UPDATE notification_queue").
					WithArgs(pq.Array(ids)).
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			wantErr: false,
		},
		{
			name: "partial update returns error",
			setupMock: func() {
				mock.ExpectExec("UPDATE notification_queue").
					WithArgs(pq.Array(ids)).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
			wantErr: true,
		},
		{
			name: "database error returns error",
			setupMock: func() {
				mock.ExpectExec("UPDATE notification_queue").
					WithArgs(pq.Array(ids)).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			callErr := repo.MarkSent(ctx, ids)
			if (callErr != nil) != tc.wantErr {
				t.Errorf("MarkSent() error = %v, wantErr %v", callErr, tc.wantErr)
			}

			if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
				t.Errorf("unfulfilled expectations: %v", expectErr)
			}
		})
	}
}

func TestNotificationRepository_MarkSentEmptySliceIsNoop(t *testing.T) {
	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}
	defer db.Close()

	repo := database.NewNotificationRepository(db)
	if callErr := repo.MarkSent(context.Background(), nil); callErr != nil {
		t.Errorf("MarkSent(nil) error = %v, want nil", callErr)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unexpected statement executed: %v", expectErr)
	}
}
