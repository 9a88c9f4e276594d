package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/transfer"
)

const maxAccountsPerSchedule = 20

type ScheduleService interface {
	Create(ctx context.Context, userID int64, sc *transfer.ScheduleCreation) ([]int64, error)
	Reschedule(ctx context.Context, userID, scheduleID int64, newTime string) error
	Remove(ctx context.Context, userID, scheduleID int64) error
	List(ctx context.Context, userID int64, page, limit int) (*transfer.ScheduleList, error)
}

type scheduleService struct {
	sr repository.ScheduleRepository
	gp repository.GeneratedPostRepository
	ac repository.SocialAccountRepository
}

func NewScheduleService(
	sr repository.ScheduleRepository,
	gp repository.GeneratedPostRepository,
	ac repository.SocialAccountRepository) ScheduleService {
	return &scheduleService{
		sr: sr,
		gp: gp,
		ac: ac,
	}
}

// parseScheduledTime accepts the frontend's datetime-local format as well as
// RFC 3339 and requires the instant to be strictly in the future.
func parseScheduledTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: scheduled_time is required", ErrValidation)
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04", value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid scheduled_time format", ErrValidation)
	}

	if !t.After(time.Now()) {
		return time.Time{}, fmt.Errorf("%w: scheduled_time must be in the future", ErrValidation)
	}

	return t, nil
}

func (s *scheduleService) Create(ctx context.Context, userID int64, sc *transfer.ScheduleCreation) ([]int64, error) {
	if sc == nil || sc.GeneratedPostID == 0 {
		return nil, fmt.Errorf("%w: generated_post_id is required", ErrValidation)
	}
	if len(sc.SocialAccountIDs) == 0 {
		return nil, fmt.Errorf("%w: no social accounts selected", ErrValidation)
	}
	if len(sc.SocialAccountIDs) > maxAccountsPerSchedule {
		return nil, fmt.Errorf("%w: too many social accounts selected", ErrValidation)
	}

	scheduledTime, err := parseScheduledTime(sc.ScheduledTime)
	if err != nil {
		return nil, err
	}

	owned, err := s.gp.CheckByUserID(ctx, sc.GeneratedPostID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking post ownership: %v", ErrPersistence, err)
	}
	if !owned {
		return nil, fmt.Errorf("%w: post does not belong to caller", ErrAuthorization)
	}

	for _, accountID := range sc.SocialAccountIDs {
		owned, err := s.ac.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: checking account %d: %v", ErrPersistence, accountID, err)
		}
		if !owned {
			return nil, fmt.Errorf("%w: account %d does not belong to caller", ErrAuthorization, accountID)
		}
	}

	// One row per account, all inserted or none.
	schedules := make([]*models.ScheduledPost, 0, len(sc.SocialAccountIDs))
	for _, accountID := range sc.SocialAccountIDs {
		schedules = append(schedules, &models.ScheduledPost{
			GeneratedPostID: sc.GeneratedPostID,
			SocialAccountID: accountID,
			ScheduledTime:   scheduledTime,
			Status:          models.ScheduleStatusPending,
		})
	}

	ids, err := s.sr.CreateBatch(ctx, schedules)
	if err != nil {
		return nil, fmt.Errorf("%w: creating schedules: %v", ErrPersistence, err)
	}

	return ids, nil
}

func (s *scheduleService) Reschedule(ctx context.Context, userID, scheduleID int64, newTime string) error {
	if scheduleID == 0 {
		return fmt.Errorf("%w: schedule id is required", ErrValidation)
	}

	scheduledTime, err := parseScheduledTime(newTime)
	if err != nil {
		return err
	}

	owned, err := s.sr.CheckByUserID(ctx, scheduleID, userID)
	if err != nil {
		return fmt.Errorf("%w: checking schedule ownership: %v", ErrPersistence, err)
	}
	if !owned {
		return fmt.Errorf("%w: schedule not found for caller", ErrAuthorization)
	}

	updated, err := s.sr.UpdateScheduledTime(ctx, scheduleID, scheduledTime)
	if err != nil {
		return fmt.Errorf("%w: updating schedule: %v", ErrPersistence, err)
	}
	if !updated {
		// Row exists and is owned, so it must have left pending already.
		return fmt.Errorf("%w: no pending schedule to reschedule", ErrNotFound)
	}

	return nil
}

func (s *scheduleService) Remove(ctx context.Context, userID, scheduleID int64) error {
	if scheduleID == 0 {
		return fmt.Errorf("%w: schedule id is required", ErrValidation)
	}

	owned, err := s.sr.CheckByUserID(ctx, scheduleID, userID)
	if err != nil {
		return fmt.Errorf("%w: checking schedule ownership: %v", ErrPersistence, err)
	}
	if !owned {
		return fmt.Errorf("%w: schedule not found for caller", ErrAuthorization)
	}

	if err := s.sr.Remove(ctx, scheduleID); err != nil {
		return fmt.Errorf("%w: removing schedule: %v", ErrPersistence, err)
	}

	return nil
}

func (s *scheduleService) List(ctx context.Context, userID int64, page, limit int) (*transfer.ScheduleList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total, err := s.sr.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: counting schedules: %v", ErrPersistence, err)
	}

	schedules, err := s.sr.ListByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: listing schedules: %v", ErrPersistence, err)
	}
	if schedules == nil {
		schedules = []*models.ScheduledPost{}
	}

	return &transfer.ScheduleList{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: page*limit < total,
		Data:    schedules,
	}, nil
}
