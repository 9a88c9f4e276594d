package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
	"github.com/postpilot/postpilot/internal/models"
	"github.com/postpilot/postpilot/internal/repository"
)

type Worker struct {
	lc repository.LinkClickRepository
}

func NewWorker(lc repository.LinkClickRepository) *Worker {
	return &Worker{lc: lc}
}

// HandleLinkClickTask records one click event. Failures are logged and the
// task is dropped; analytics must never back up onto the redirect path.
func (w *Worker) HandleLinkClickTask(ctx context.Context, task *asynq.Task) error {
	var payload ClickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		log.Printf("Invalid click payload: %v", err)
		return nil
	}

	click := models.LinkClick{
		LinkID:    payload.LinkID,
		UserAgent: payload.UserAgent,
		IP:        payload.IP,
		Referrer:  payload.Referrer,
		Platform:  payload.Platform,
	}

	if _, err := w.lc.Create(ctx, &click); err != nil {
		log.Printf("Error saving click for link %d: %v", payload.LinkID, err)
	}

	return nil
}
