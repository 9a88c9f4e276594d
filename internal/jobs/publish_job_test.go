package job

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type terminalWrite struct {
	scheduleID     int64
	status         string
	platformPostID string
	errorMessage   string
}

type fakeScheduleRepo struct {
	mu     sync.Mutex
	due    []*models.ScheduledPost
	writes []terminalWrite
	// ids that refuse the conditional update (already terminal)
	alreadyTerminal map[int64]bool
}

func (f *fakeScheduleRepo) Create(ctx context.Context, tx *sql.Tx, sp *models.ScheduledPost) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeScheduleRepo) CreateBatch(ctx context.Context, schedules []*models.ScheduledPost) ([]int64, error) {
	return nil, errors.New("not used")
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	return f.due, nil
}

func (f *fakeScheduleRepo) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) CountByUserID(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}

func (f *fakeScheduleRepo) CheckByUserID(ctx context.Context, scheduleID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakeScheduleRepo) UpdateScheduledTime(ctx context.Context, id int64, newTime time.Time) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeScheduleRepo) MarkPublished(ctx context.Context, id int64, platformPostID string, postedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alreadyTerminal[id] {
		return false, nil
	}
	f.writes = append(f.writes, terminalWrite{scheduleID: id, status: models.ScheduleStatusPublished, platformPostID: platformPostID})
	return true, nil
}

func (f *fakeScheduleRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alreadyTerminal[id] {
		return false, nil
	}
	f.writes = append(f.writes, terminalWrite{scheduleID: id, status: models.ScheduleStatusFailed, errorMessage: errorMessage})
	return true, nil
}

func (f *fakeScheduleRepo) Remove(ctx context.Context, id int64) error {
	return errors.New("not used")
}

func (f *fakeScheduleRepo) writeFor(id int64) *terminalWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.writes {
		if f.writes[i].scheduleID == id {
			return &f.writes[i]
		}
	}
	return nil
}

type fakeGeneratedPostRepo struct {
	posts map[int64]*models.GeneratedPost
}

func (f *fakeGeneratedPostRepo) GetByID(ctx context.Context, id int64) (*models.GeneratedPost, error) {
	return f.posts[id], nil
}

func (f *fakeGeneratedPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

type fakeSocialAccountRepo struct {
	accounts map[int64]*models.SocialAccount
}

func (f *fakeSocialAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	return f.accounts[id], nil
}

func (f *fakeSocialAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakeSocialAccountRepo) ListByTokenExpiry(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeSocialAccountRepo) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	return nil
}

type fakeBusinessRepo struct {
	businesses map[int64]*models.Business
}

func (f *fakeBusinessRepo) GetByID(ctx context.Context, id int64) (*models.Business, error) {
	return f.businesses[id], nil
}

type fakeLinkService struct {
	mu    sync.Mutex
	code  string
	err   error
	calls int
}

func (f *fakeLinkService) CreateShortLink(ctx context.Context, originalURL string, scheduledPostID, userID int64, platform string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.code, nil
}

func (f *fakeLinkService) TrackClick(ctx context.Context, shortCode, userAgent, referrer, ip string) (string, error) {
	return "", errors.New("not used")
}

type publishCall struct {
	platform string
	token    string
	caption  string
	imageURL string
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, account *models.SocialAccount, accessToken, caption, imageURL string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, publishCall{platform: account.Platform, token: accessToken, caption: caption, imageURL: imageURL})
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "platform_post_1", nil
}

func encryptToken(t *testing.T, token string) string {
	t.Helper()
	enc, err := utils.Encrypt([]byte(token), []byte(testSecretKey))
	if err != nil {
		t.Fatalf("encrypting test token: %v", err)
	}
	return enc
}

type fixture struct {
	sr    *fakeScheduleRepo
	gp    *fakeGeneratedPostRepo
	ac    *fakeSocialAccountRepo
	br    *fakeBusinessRepo
	links *fakeLinkService
	pub   *fakePublisher
	job   *PublishJob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sr:    &fakeScheduleRepo{alreadyTerminal: map[int64]bool{}},
		gp:    &fakeGeneratedPostRepo{posts: map[int64]*models.GeneratedPost{}},
		ac:    &fakeSocialAccountRepo{accounts: map[int64]*models.SocialAccount{}},
		br:    &fakeBusinessRepo{businesses: map[int64]*models.Business{}},
		links: &fakeLinkService{code: "abc12345"},
		pub:   &fakePublisher{},
	}

	cfg := config.Config{BaseURL: "https://app.example", SecretKey: testSecretKey}
	f.job = NewPublishJob(cfg, f.sr, f.gp, f.ac, f.br, f.links, nil, f.pub)

	return f
}

func (f *fixture) addDue(scheduleID, postID, accountID int64) {
	f.sr.due = append(f.sr.due, &models.ScheduledPost{
		ID:              scheduleID,
		GeneratedPostID: postID,
		SocialAccountID: accountID,
		Status:          models.ScheduleStatusPending,
	})
}

func (f *fixture) addPost(t *testing.T, id, userID int64, caption string) {
	f.gp.posts[id] = &models.GeneratedPost{ID: id, UserID: userID, Caption: caption, ImageURL: "https://img.example/a.jpg"}
}

func (f *fixture) addAccount(t *testing.T, id, businessID int64, platform string) {
	f.ac.accounts[id] = &models.SocialAccount{
		ID:          id,
		BusinessID:  businessID,
		Platform:    platform,
		AccountID:   "acc",
		AccessToken: encryptToken(t, "plain-token"),
	}
}

func TestSweepPublishesDueRecord(t *testing.T) {
	f := newFixture(t)
	f.addDue(1, 10, 20)
	f.addPost(t, 10, 7, "hello world")
	f.addAccount(t, 20, 30, models.PlatformFacebook)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7, WebsiteURL: "https://example.com"}

	f.job.PublishDuePosts()

	write := f.sr.writeFor(1)
	if write == nil || write.status != models.ScheduleStatusPublished {
		t.Fatalf("expected schedule 1 published, got %+v", write)
	}
	if write.platformPostID != "platform_post_1" {
		t.Errorf("expected platform post id recorded, got %q", write.platformPostID)
	}
	if write.errorMessage != "" {
		t.Errorf("published write must not carry an error message, got %q", write.errorMessage)
	}

	if len(f.pub.calls) != 1 {
		t.Fatalf("expected one publish call, got %d", len(f.pub.calls))
	}
	call := f.pub.calls[0]
	if call.token != "plain-token" {
		t.Errorf("expected decrypted token, got %q", call.token)
	}
	if !strings.Contains(call.caption, "hello world") {
		t.Errorf("caption lost: %q", call.caption)
	}
	if !strings.Contains(call.caption, "https://app.example/r/abc12345") {
		t.Errorf("expected short link appended to caption, got %q", call.caption)
	}
}

func TestSweepSkipsShortLinkWithoutWebsite(t *testing.T) {
	f := newFixture(t)
	f.addDue(1, 10, 20)
	f.addPost(t, 10, 7, "hello world")
	f.addAccount(t, 20, 30, models.PlatformFacebook)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7}

	f.job.PublishDuePosts()

	if f.links.calls != 0 {
		t.Errorf("no short link may be minted without a website url, got %d calls", f.links.calls)
	}
	if len(f.pub.calls) != 1 || f.pub.calls[0].caption != "hello world" {
		t.Fatalf("expected unmodified caption, got %+v", f.pub.calls)
	}
}

func TestSweepMarksMissingDataAndContinues(t *testing.T) {
	f := newFixture(t)
	// Schedule 1 points at a deleted generated post; schedule 2 is healthy.
	f.addDue(1, 99, 20)
	f.addDue(2, 10, 20)
	f.addPost(t, 10, 7, "still fine")
	f.addAccount(t, 20, 30, models.PlatformInstagram)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7, WebsiteURL: "https://example.com"}

	f.job.PublishDuePosts()

	bad := f.sr.writeFor(1)
	if bad == nil || bad.status != models.ScheduleStatusFailed || bad.errorMessage != "Missing data" {
		t.Fatalf("expected schedule 1 failed with Missing data, got %+v", bad)
	}
	if bad.platformPostID != "" {
		t.Errorf("failed write must not carry a platform post id, got %q", bad.platformPostID)
	}

	good := f.sr.writeFor(2)
	if good == nil || good.status != models.ScheduleStatusPublished {
		t.Fatalf("a bad record must not stop the sweep; schedule 2 got %+v", good)
	}
}

func TestSweepMarksFailedOnPublishError(t *testing.T) {
	f := newFixture(t)
	f.addDue(1, 10, 20)
	f.addPost(t, 10, 7, "hello")
	f.addAccount(t, 20, 30, models.PlatformFacebook)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7}
	f.pub.err = errors.New("platform error: Invalid OAuth access token.")

	f.job.PublishDuePosts()

	write := f.sr.writeFor(1)
	if write == nil || write.status != models.ScheduleStatusFailed {
		t.Fatalf("expected failed, got %+v", write)
	}
	if !strings.Contains(write.errorMessage, "Invalid OAuth access token.") {
		t.Errorf("expected upstream message preserved, got %q", write.errorMessage)
	}
}

func TestSweepMarksFailedOnLinkMintError(t *testing.T) {
	f := newFixture(t)
	f.addDue(1, 10, 20)
	f.addPost(t, 10, 7, "hello")
	f.addAccount(t, 20, 30, models.PlatformFacebook)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7, WebsiteURL: "https://example.com"}
	f.links.err = errors.New("persistence error: insert failed")

	f.job.PublishDuePosts()

	write := f.sr.writeFor(1)
	if write == nil || write.status != models.ScheduleStatusFailed {
		t.Fatalf("expected failed, got %+v", write)
	}
	if len(f.pub.calls) != 0 {
		t.Errorf("publish must not run after link mint failure, got %d calls", len(f.pub.calls))
	}
}

func TestSweepIsIdempotentOnTerminalRecords(t *testing.T) {
	f := newFixture(t)
	f.addDue(1, 10, 20)
	f.addPost(t, 10, 7, "hello")
	f.addAccount(t, 20, 30, models.PlatformFacebook)
	f.br.businesses[30] = &models.Business{ID: 30, UserID: 7}
	// Another scanner instance already won the conditional update.
	f.sr.alreadyTerminal[1] = true

	f.job.PublishDuePosts()

	if write := f.sr.writeFor(1); write != nil {
		t.Fatalf("terminal record must not be rewritten, got %+v", write)
	}
}
