package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/transfer"
)

type fakeScheduleRepo struct {
	batches   [][]*models.ScheduledPost
	owned     map[int64]bool
	updatedOK bool
	updates   []int64
	removed   []int64
	listed    []*models.ScheduledPost
	total     int
}

func (f *fakeScheduleRepo) Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeScheduleRepo) CreateBatch(ctx context.Context, schedules []*models.ScheduledPost) ([]int64, error) {
	f.batches = append(f.batches, schedules)
	ids := make([]int64, len(schedules))
	for i := range schedules {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.ScheduledPost, error) {
	return f.listed, nil
}

func (f *fakeScheduleRepo) CountByUserID(ctx context.Context, userID int64) (int, error) {
	return f.total, nil
}

func (f *fakeScheduleRepo) CheckByUserID(ctx context.Context, scheduleID, userID int64) (bool, error) {
	return f.owned[scheduleID], nil
}

func (f *fakeScheduleRepo) UpdateScheduledTime(ctx context.Context, id int64, newTime time.Time) (bool, error) {
	f.updates = append(f.updates, id)
	return f.updatedOK, nil
}

func (f *fakeScheduleRepo) MarkPublished(ctx context.Context, id int64, platformPostID string, postedAt time.Time) (bool, error) {
	return true, nil
}

func (f *fakeScheduleRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	return true, nil
}

func (f *fakeScheduleRepo) Remove(ctx context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeGeneratedPostRepo struct {
	owned map[int64]bool
	posts map[int64]*models.GeneratedPost
}

func (f *fakeGeneratedPostRepo) GetByID(ctx context.Context, id int64) (*models.GeneratedPost, error) {
	return f.posts[id], nil
}

func (f *fakeGeneratedPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return f.owned[postID], nil
}

type fakeSocialAccountRepo struct {
	owned    map[int64]bool
	accounts map[int64]*models.SocialAccount
}

func (f *fakeSocialAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return f.accounts[id], nil
}

func (f *fakeSocialAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return f.owned[accountID], nil
}

func (f *fakeSocialAccountRepo) ListByTokenExpiry(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeSocialAccountRepo) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

func futureTime() string {
	return time.Now().Add(2 * time.Hour).Format(time.RFC3339)
}

func newScheduleFixture() (*fakeScheduleRepo, *fakeGeneratedPostRepo, *fakeSocialAccountRepo, ScheduleService) {
	sr := &fakeScheduleRepo{owned: map[int64]bool{}, updatedOK: true}
	gp := &fakeGeneratedPostRepo{owned: map[int64]bool{10: true}, posts: map[int64]*models.GeneratedPost{}}
	ac := &fakeSocialAccountRepo{owned: map[int64]bool{1: true, 2: true}, accounts: map[int64]*models.SocialAccount{}}
	return sr, gp, ac, NewScheduleService(sr, gp, ac)
}

func TestCreateFansOutPerAccount(t *testing.T) {
	sr, _, _, svc := newScheduleFixture()

	ids, err := svc.Create(context.Background(), 7, &transfer.ScheduleCreation{
		GeneratedPostID:  10,
		SocialAccountIDs: []int64{1, 2},
		ScheduledTime:    futureTime(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 schedule ids, got %d", len(ids))
	}

	if len(sr.batches) != 1 {
		t.Fatalf("expected one batch insert, got %d", len(sr.batches))
	}
	batch := sr.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 rows in batch, got %d", len(batch))
	}
	if batch[0].SocialAccountID == batch[1].SocialAccountID {
		t.Error("rows must target distinct accounts")
	}
	for _, sp := range batch {
		if sp.GeneratedPostID != 10 {
			t.Errorf("expected generated_post_id 10, got %d", sp.GeneratedPostID)
		}
		if sp.Status != models.ScheduleStatusPending {
			t.Errorf("expected pending status, got %s", sp.Status)
		}
	}
}

func TestCreateRejectsPastAndPresentTimes(t *testing.T) {
	_, _, _, svc := newScheduleFixture()

	for _, value := range []string{
		time.Now().Add(-time.Hour).Format(time.RFC3339),
		time.Now().Format(time.RFC3339),
		"not-a-time",
		"",
	} {
		_, err := svc.Create(context.Background(), 7, &transfer.ScheduleCreation{
			GeneratedPostID:  10,
			SocialAccountIDs: []int64{1},
			ScheduledTime:    value,
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("scheduled_time %q: expected ErrValidation, got %v", value, err)
		}
	}
}

func TestCreateRejectsUnownedContentAndAccounts(t *testing.T) {
	sr, gp, ac, svc := newScheduleFixture()

	gp.owned[10] = false
	_, err := svc.Create(context.Background(), 7, &transfer.ScheduleCreation{
		GeneratedPostID:  10,
		SocialAccountIDs: []int64{1},
		ScheduledTime:    futureTime(),
	})
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("unowned content: expected ErrAuthorization, got %v", err)
	}

	gp.owned[10] = true
	ac.owned[2] = false
	_, err = svc.Create(context.Background(), 7, &transfer.ScheduleCreation{
		GeneratedPostID:  10,
		SocialAccountIDs: []int64{1, 2},
		ScheduledTime:    futureTime(),
	})
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("unowned account: expected ErrAuthorization, got %v", err)
	}

	if len(sr.batches) != 0 {
		t.Errorf("no rows may be written on authorization failure, got %d batches", len(sr.batches))
	}
}

func TestCreateRejectsEmptyAccountList(t *testing.T) {
	_, _, _, svc := newScheduleFixture()

	_, err := svc.Create(context.Background(), 7, &transfer.ScheduleCreation{
		GeneratedPostID: 10,
		ScheduledTime:   futureTime(),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRescheduleOwnershipAndPendingGuard(t *testing.T) {
	sr, _, _, svc := newScheduleFixture()

	// Not reachable through the caller's content.
	err := svc.Reschedule(context.Background(), 7, 99, futureTime())
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	// Owned but already terminal: conditional update affects no rows.
	sr.owned[5] = true
	sr.updatedOK = false
	err = svc.Reschedule(context.Background(), 7, 5, futureTime())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sr.updatedOK = true
	if err := svc.Reschedule(context.Background(), 7, 5, futureTime()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestRemoveChecksOwnership(t *testing.T) {
	sr, _, _, svc := newScheduleFixture()

	if err := svc.Remove(context.Background(), 7, 99); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	sr.owned[5] = true
	if err := svc.Remove(context.Background(), 7, 5); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(sr.removed) != 1 || sr.removed[0] != 5 {
		t.Errorf("expected schedule 5 removed, got %v", sr.removed)
	}
}

func TestListPagination(t *testing.T) {
	sr, _, _, svc := newScheduleFixture()
	sr.total = 45
	sr.listed = []*models.ScheduledPost{{ID: 1}, {ID: 2}}

	list, err := svc.List(context.Background(), 7, 2, 20)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if list.Page != 2 || list.Limit != 20 || list.Total != 45 {
		t.Errorf("unexpected pagination: %+v", list)
	}
	if !list.HasMore {
		t.Error("expected hasMore with 45 rows over 2 pages of 20")
	}

	list, err = svc.List(context.Background(), 7, 3, 20)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if list.HasMore {
		t.Error("expected hasMore=false on the last page")
	}
}
