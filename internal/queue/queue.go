package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskTypeLinkClick = "analytics:click"

type ClickPayload struct {
	LinkID    int64  `json:"link_id"`
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
	Referrer  string `json:"referrer"`
	Platform  string `json:"platform"`
}

// Client wraps the asynq client so services depend on a small interface
// instead of the SDK type.
type Client struct {
	asynqClient *asynq.Client
}

func NewClient(asynqClient *asynq.Client) *Client {
	return &Client{asynqClient: asynqClient}
}

func (c *Client) EnqueueClick(payload ClickPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeLinkClick, taskPayload)

	_, err = c.asynqClient.Enqueue(task)
	if err != nil {
		return err
	}

	return nil
}
