package schedule

import (
	"context"
	"errors"

	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

// Errors returned by schedule operations.
var (
	ErrJobNotFound  = errors.New("schedule job not found")
	ErrDuplicateJob = errors.New("schedule job already registered")
)

// Job is a named broadcast, run by cron when Pattern is set or on demand.
type Job struct {
	Name     string
	Pattern  string
	Category subscriptions.Category
	Factory  broadcast.MessageFactory
}

// Broadcaster sends a category broadcast.
type Broadcaster interface {
	Broadcast(ctx context.Context, category subscriptions.Category, factory broadcast.MessageFactory) (broadcast.Report, error)
}

// Job names registered at startup.
const (
	BirthdayJob = "birthday"
	StatusJob   = "status"
)

// StatusMessage is sent to status subscribers once the bot is online.
const StatusMessage = "Back online 👋"

// DefaultJobs returns the daily birthday job and the on-demand status job.
func DefaultJobs(birthdayPattern string, birthdays broadcast.MessageFactory) []Job {
	return []Job{
		{
			Name:     BirthdayJob,
			Pattern:  birthdayPattern,
			Category: subscriptions.CategoryBirthday,
			Factory:  birthdays,
		},
		{
			Name:     StatusJob,
			Category: subscriptions.CategoryStatus,
			Factory:  broadcast.Static(StatusMessage),
		},
	}
}
