// Package birthdays finds members whose birthday is today and renders the
// daily message.
package birthdays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/congresbot/congresbot/internal/broadcast"
	"github.com/congresbot/congresbot/internal/congressus"
)

// ErrNoBirthdays is returned by Message when nobody has a birthday today.
var ErrNoBirthdays = errors.New("no birthdays today")

const (
	cacheTTL     = 25 * time.Hour
	cacheCleanup = time.Hour
)

// MemberSource lists association members.
type MemberSource interface {
	ListMembers(ctx context.Context) ([]congressus.Member, error)
}

// Person is a member celebrating today.
type Person struct {
	Name string
	Age  int
}

// Service answers "whose birthday is it today", caching one member lookup per day.
type Service struct {
	source MemberSource
	loc    *time.Location
	cache  *gocache.Cache
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a birthday service evaluating dates in loc.
func NewService(log *slog.Logger, source MemberSource, loc *time.Location) *Service {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		source: source,
		loc:    loc,
		cache:  gocache.New(cacheTTL, cacheCleanup),
		now:    time.Now,
		logger: log.With(slog.String("service", "birthdays")),
	}
}

// Today returns the members with a birthday on the current local date, sorted by name.
func (s *Service) Today(ctx context.Context) ([]Person, error) {
	today := s.now().In(s.loc)
	key := today.Format(time.DateOnly)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]Person), nil
	}

	members, err := s.source.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	people := celebrating(members, today)
	s.cache.Set(key, people, gocache.DefaultExpiration)
	s.logger.Debug("birthdays resolved", slog.String("date", key), slog.Int("count", len(people)))
	return people, nil
}

// Message renders today's birthday announcement.
func (s *Service) Message(ctx context.Context) (string, error) {
	people, err := s.Today(ctx)
	if err != nil {
		return "", err
	}
	if len(people) == 0 {
		return "", ErrNoBirthdays
	}
	return render(people), nil
}

// MessageFactory adapts Message for the broadcast dispatcher. Days without
// birthdays skip every chat.
func (s *Service) MessageFactory() broadcast.MessageFactory {
	return func(ctx context.Context, _ int64) (string, error) {
		text, err := s.Message(ctx)
		if errors.Is(err, ErrNoBirthdays) {
			return "", broadcast.ErrNothingToSend
		}
		return text, err
	}
}

func celebrating(members []congressus.Member, today time.Time) []Person {
	var people []Person
	for _, m := range members {
		born, ok := m.Birthday()
		if !ok || !sameDay(born, today) {
			continue
		}
		name := m.DisplayName()
		if name == "" {
			continue
		}
		people = append(people, Person{Name: name, Age: today.Year() - born.Year()})
	}
	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people
}

// sameDay reports whether born falls on today's month and day. Members born on
// 29 February celebrate on the 28th in common years.
func sameDay(born, today time.Time) bool {
	month, day := born.Month(), born.Day()
	if month == time.February && day == 29 && !isLeap(today.Year()) {
		day = 28
	}
	return month == today.Month() && day == today.Day()
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func render(people []Person) string {
	var b strings.Builder
	if len(people) == 1 {
		b.WriteString("🎂 Today is a birthday!\n")
	} else {
		b.WriteString("🎂 Today we have birthdays!\n")
	}
	for _, p := range people {
		if p.Age > 0 && p.Age < 130 {
			fmt.Fprintf(&b, "\n• %s turns %d", p.Name, p.Age)
		} else {
			fmt.Fprintf(&b, "\n• %s", p.Name)
		}
	}
	b.WriteString("\n\nCongratulations!")
	return b.String()
}
