// Package broadcast fans a message out to every chat subscribed to a category.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/congresbot/congresbot/internal/subscriptions"
)

// ErrNothingToSend is returned by a MessageFactory when a chat should be skipped.
var ErrNothingToSend = errors.New("nothing to send")

// Sender delivers text to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Lister returns the subscriptions of a category.
type Lister interface {
	ListByCategory(ctx context.Context, category subscriptions.Category) ([]subscriptions.Subscription, error)
}

// MessageFactory builds the text for one chat.
type MessageFactory func(ctx context.Context, chatID int64) (string, error)

// Static returns a factory that sends text to every chat.
func Static(text string) MessageFactory {
	return func(context.Context, int64) (string, error) {
		return text, nil
	}
}

// Result is the outcome of delivering to one chat.
type Result struct {
	ChatID  int64
	Skipped bool
	Err     error
}

// Report collects one Result per subscribed chat.
type Report struct {
	Category subscriptions.Category
	Results  []Result
}

// Sent counts successful deliveries.
func (r Report) Sent() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && !res.Skipped {
			n++
		}
	}
	return n
}

// Failed counts deliveries that returned an error.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Skipped counts chats the factory had nothing for.
func (r Report) Skipped() int {
	n := 0
	for _, res := range r.Results {
		if res.Skipped {
			n++
		}
	}
	return n
}

// Dispatcher sends broadcasts through a shared rate limiter.
type Dispatcher struct {
	lister  Lister
	sender  Sender
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher allowing at most perSecond sends per second.
// perSecond <= 0 disables pacing.
func NewDispatcher(log *slog.Logger, lister Lister, sender Sender, perSecond int) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return &Dispatcher{
		lister:  lister,
		sender:  sender,
		limiter: limiter,
		logger:  log.With(slog.String("service", "broadcast")),
	}
}

// Broadcast delivers the factory's message to every chat subscribed to
// category. Every chat is attempted; failures are recorded in the report and
// logged, not retried. The error is non-nil only when the subscriptions could
// not be loaded.
func (d *Dispatcher) Broadcast(ctx context.Context, category subscriptions.Category, factory MessageFactory) (Report, error) {
	subs, err := d.lister.ListByCategory(ctx, category)
	if err != nil {
		return Report{Category: category}, fmt.Errorf("load %s subscriptions: %w", category, err)
	}

	report := Report{Category: category, Results: make([]Result, len(subs))}
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, chatID int64) {
			defer wg.Done()
			report.Results[i] = d.deliver(ctx, chatID, factory)
		}(i, sub.ChatID)
	}
	wg.Wait()

	delivered := make([]int64, 0, len(report.Results))
	for _, res := range report.Results {
		switch {
		case res.Err != nil:
			d.logger.Error("broadcast delivery failed",
				slog.String("category", string(category)),
				slog.Int64("chat_id", res.ChatID),
				slog.Any("error", res.Err),
			)
		case !res.Skipped:
			delivered = append(delivered, res.ChatID)
		}
	}
	if len(delivered) > 0 {
		d.logger.Debug("broadcast delivered",
			slog.String("category", string(category)),
			slog.Any("chat_ids", delivered),
		)
	}
	d.logger.Info("broadcast finished",
		slog.String("category", string(category)),
		slog.Int("chats", len(subs)),
		slog.Int("sent", report.Sent()),
		slog.Int("skipped", report.Skipped()),
		slog.Int("failed", report.Failed()),
	)
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, chatID int64, factory MessageFactory) (res Result) {
	res.ChatID = chatID
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	text, err := factory(ctx, chatID)
	if errors.Is(err, ErrNothingToSend) {
		res.Skipped = true
		return res
	}
	if err != nil {
		res.Err = fmt.Errorf("build message: %w", err)
		return res
	}
	if err := d.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}
	if err := d.sender.Send(ctx, chatID, text); err != nil {
		res.Err = err
	}
	return res
}
