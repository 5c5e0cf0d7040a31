package sms

import (
	"context"
	"fmt"
	"strings"

	"libraryadmin/internal/apperrors"
	"libraryadmin/internal/logger"
	"libraryadmin/internal/queue"
)

// JobType tags queued SMS messages.
const JobType = "sms"

// Job is the payload of a queued SMS.
type Job struct {
	Numbers []string `json:"numbers"`
	Body    string   `json:"body"`
}

// Dispatcher sends messages directly or hands them to the worker through the queue.
type Dispatcher struct {
	sender Sender
	queue  queue.Queue
}

func NewDispatcher(sender Sender, q queue.Queue) *Dispatcher {
	return &Dispatcher{sender: sender, queue: q}
}

// SendNow delivers synchronously. mobile may hold several comma-separated numbers.
func (d *Dispatcher) SendNow(ctx context.Context, mobile, body string) error {
	return d.sender.Send(ctx, splitNumbers(mobile), body)
}

// Broadcast queues one job per number and returns how many were queued.
func (d *Dispatcher) Broadcast(ctx context.Context, numbers []string, body string) (int, error) {
	if strings.TrimSpace(body) == "" {
		return 0, apperrors.Validation("message is required")
	}
	queued := 0
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		msg, err := queue.NewMessage(JobType, Job{Numbers: []string{n}, Body: body})
		if err != nil {
			return queued, err
		}
		if err := d.queue.Publish(ctx, msg); err != nil {
			return queued, apperrors.Storage("queue sms job", err)
		}
		queued++
	}
	return queued, nil
}

// Handle processes one queued message. Unknown types are ignored.
func Handle(ctx context.Context, sender Sender, msg queue.Message) error {
	if msg.Type != JobType {
		return nil
	}
	var job Job
	if err := msg.Decode(&job); err != nil {
		return fmt.Errorf("decode sms job %s: %w", msg.ID, err)
	}
	if err := sender.Send(ctx, job.Numbers, job.Body); err != nil {
		return err
	}
	logger.Debug().Str("jobID", msg.ID).Int("numbers", len(job.Numbers)).Msg("sms job delivered")
	return nil
}

func splitNumbers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
