package job

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	config "github.com/postpilot/postpilot/configs"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/service"
	"github.com/postpilot/postpilot/pkg/utils"
)

const sweepConcurrency = 10

// PublishJob is the due-post scanner. Cron fires PublishDuePosts every
// minute; each sweep drives every due pending schedule to a terminal state.
type PublishJob struct {
	cfg   config.Config
	sr    repository.ScheduleRepository
	gp    repository.GeneratedPostRepository
	ac    repository.SocialAccountRepository
	br    repository.BusinessRepository
	links service.LinkService
	media service.MediaService
	pub   service.Publisher
}

func NewPublishJob(
	cfg config.Config,
	sr repository.ScheduleRepository,
	gp repository.GeneratedPostRepository,
	ac repository.SocialAccountRepository,
	br repository.BusinessRepository,
	links service.LinkService,
	media service.MediaService,
	pub service.Publisher) *PublishJob {
	return &PublishJob{
		cfg:   cfg,
		sr:    sr,
		gp:    gp,
		ac:    ac,
		br:    br,
		links: links,
		media: media,
		pub:   pub,
	}
}

func (j *PublishJob) PublishDuePosts() {
	ctx := context.Background()

	due, err := j.sr.ListDue(ctx, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(due) == 0 {
		return
	}

	log.Printf("Sweep found %d due posts", len(due))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, sweepConcurrency)

	// Records are independent: one per account, terminal writes guarded by
	// status. The Instagram poll loop can hold a slot for ~30s.
	for _, sp := range due {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(sp *models.ScheduledPost) {
			defer wg.Done()
			defer func() { <-semaphore }()
			j.processDuePost(ctx, sp)
		}(sp)
	}

	wg.Wait()
}

// processDuePost runs one record to a terminal state. Every failure path ends
// in markFailed; nothing propagates out of the sweep.
func (j *PublishJob) processDuePost(ctx context.Context, sp *models.ScheduledPost) {
	post, err := j.gp.GetByID(ctx, sp.GeneratedPostID)
	if err != nil {
		j.markFailed(ctx, sp.ID, err.Error())
		return
	}
	account, accErr := j.ac.GetByID(ctx, sp.SocialAccountID)
	if accErr != nil {
		j.markFailed(ctx, sp.ID, accErr.Error())
		return
	}
	if post == nil || account == nil {
		j.markFailed(ctx, sp.ID, "Missing data")
		return
	}

	business, err := j.br.GetByID(ctx, account.BusinessID)
	if err != nil {
		j.markFailed(ctx, sp.ID, err.Error())
		return
	}
	if business == nil {
		j.markFailed(ctx, sp.ID, "Missing data")
		return
	}

	caption := post.Caption
	if business.WebsiteURL != "" {
		code, err := j.links.CreateShortLink(ctx, business.WebsiteURL, sp.ID, post.UserID, account.Platform)
		if err != nil {
			j.markFailed(ctx, sp.ID, err.Error())
			return
		}
		caption = caption + "\n\n" + j.cfg.BaseURL + "/r/" + code
	}

	imageURL := post.ImageURL
	if j.media != nil && j.media.Enabled() {
		mirrored, err := j.media.MirrorImage(ctx, imageURL)
		if err != nil {
			j.markFailed(ctx, sp.ID, err.Error())
			return
		}
		imageURL = mirrored
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(j.cfg.SecretKey))
	if err != nil {
		j.markFailed(ctx, sp.ID, err.Error())
		return
	}

	platformPostID, err := j.pub.Publish(ctx, account, accessToken, caption, imageURL)
	if err != nil {
		log.Printf("Error publishing schedule %d to %s: %v", sp.ID, account.Platform, err)
		j.markFailed(ctx, sp.ID, err.Error())
		return
	}

	updated, err := j.sr.MarkPublished(ctx, sp.ID, platformPostID, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if !updated {
		log.Printf("Schedule %d already left pending, publish result %s dropped", sp.ID, platformPostID)
		return
	}

	log.Printf("Published schedule %d as %s post %s", sp.ID, account.Platform, platformPostID)
}

func (j *PublishJob) markFailed(ctx context.Context, scheduleID int64, message string) {
	updated, err := j.sr.MarkFailed(ctx, scheduleID, message)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if !updated {
		log.Printf("Schedule %d already left pending, failure %q dropped", scheduleID, message)
	}
}
