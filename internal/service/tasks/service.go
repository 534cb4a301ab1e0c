package tasks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ignite/courier-ops/internal/apperr"
	"github.com/ignite/courier-ops/internal/domain"
	"github.com/ignite/courier-ops/internal/pkg/logger"
)

const (
	StatusEligible    = "Eligible"
	notEligibleMarker = "Not Eligible"

	ReplyInvited     = "Invited"
	ReplyChangedMind = "Changed Mind"
	ReplyNoResponse  = "No Responses"

	unknownGroup = "Unknown"
)

// GroupBy selects the dimension of a summary.
type GroupBy string

const (
	GroupByUser    GroupBy = "user"
	GroupByProject GroupBy = "project"
	GroupByCity    GroupBy = "city"
)

// ParseGroupBy accepts user, project or city. Empty means user.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByUser, nil
	case GroupByUser, GroupByProject, GroupByCity:
		return g, nil
	}
	return "", fmt.Errorf("%w %q: must be user, project or city", ErrInvalidGroupBy, s)
}

// UserPerformance is the task tally of one user.
type UserPerformance struct {
	UserName       string   `json:"userName"`
	TotalTasks     int      `json:"totalTasks"`
	Eligible       int      `json:"eligible"`
	NotEligible    int      `json:"notEligible"`
	Invited        int      `json:"invited"`
	ChangedMind    int      `json:"changedMind"`
	NoResponse     int      `json:"noResponse"`
	Projects       []string `json:"projects"`
	Cities         []string `json:"cities"`
	SuccessRate    float64  `json:"successRate"`    // eligible per task, percent
	ConversionRate float64  `json:"conversionRate"` // eligible per invite, percent
}

// Summary holds the totals across every matched task.
type Summary struct {
	Total           int `json:"total"`
	Eligible        int `json:"eligible"`
	NotEligible     int `json:"notEligible"`
	AvgTasksPerUser int `json:"avgTasksPerUser"`
}

// Performance is the per-user breakdown, busiest user first.
type Performance struct {
	Users      []UserPerformance `json:"users"`
	Summary    Summary           `json:"summary"`
	TotalUsers int               `json:"totalUsers"`
}

// GroupCount is one bucket of a grouped summary.
type GroupCount struct {
	Count       int `json:"count"`
	Eligible    int `json:"eligible"`
	NotEligible int `json:"notEligible"`
}

// Service computes task analytics. It is safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a task analytics service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func isEligible(t domain.Task) bool { return t.FinalStatus == StatusEligible }

func isNotEligible(t domain.Task) bool { return strings.Contains(t.FinalStatus, notEligibleMarker) }

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(of)*1000) / 10
}

func (s *Service) load(ctx context.Context, f Filter) ([]domain.Task, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.Validation("invalid date range",
			[]apperr.FieldError{{Field: "startDate", Issue: "must not be after endDate"}})
	}
	var users []string
	for _, u := range f.Users {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	f.Users = users

	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.Infrastructure("storage error while reading tasks", err)
	}
	return list, nil
}

type userAcc struct {
	UserPerformance
	projects map[string]bool
	cities   map[string]bool
}

func (a *userAcc) add(t domain.Task) {
	a.TotalTasks++
	switch {
	case isEligible(t):
		a.Eligible++
	case isNotEligible(t):
		a.NotEligible++
	}
	switch t.ReplyRecord {
	case ReplyInvited:
		a.Invited++
	case ReplyChangedMind:
		a.ChangedMind++
	case ReplyNoResponse:
		a.NoResponse++
	}
	if t.Project != "" {
		a.projects[t.Project] = true
	}
	if t.City != "" {
		a.cities[t.City] = true
	}
}

func (a *userAcc) finish() UserPerformance {
	p := a.UserPerformance
	p.Projects = sortedKeys(a.projects)
	p.Cities = sortedKeys(a.cities)
	p.SuccessRate = percent(p.Eligible, p.TotalTasks)
	p.ConversionRate = percent(p.Eligible, p.Invited)
	return p
}

func newAcc(name string) *userAcc {
	return &userAcc{
		UserPerformance: UserPerformance{UserName: name},
		projects:        make(map[string]bool),
		cities:          make(map[string]bool),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func userName(t domain.Task) string {
	if t.User == "" {
		return unknownGroup
	}
	return t.User
}

// Performance tallies tasks per user.
func (s *Service) Performance(ctx context.Context, f Filter) (*Performance, error) {
	list, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}

	accs := make(map[string]*userAcc)
	var sum Summary
	for _, t := range list {
		name := userName(t)
		a, ok := accs[name]
		if !ok {
			a = newAcc(name)
			accs[name] = a
		}
		a.add(t)
		sum.Total++
		if isEligible(t) {
			sum.Eligible++
		} else if isNotEligible(t) {
			sum.NotEligible++
		}
	}

	users := make([]UserPerformance, 0, len(accs))
	for _, a := range accs {
		users = append(users, a.finish())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalTasks != users[j].TotalTasks {
			return users[i].TotalTasks > users[j].TotalTasks
		}
		return users[i].UserName < users[j].UserName
	})
	if len(users) > 0 {
		sum.AvgTasksPerUser = int(math.Round(float64(sum.Total) / float64(len(users))))
	}

	logger.Info("task performance computed", "tasks", sum.Total, "users", len(users))
	return &Performance{Users: users, Summary: sum, TotalUsers: len(users)}, nil
}

// User tallies the tasks of one user. A user without tasks yields zeros.
func (s *Service) User(ctx context.Context, name string, f Filter) (*UserPerformance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: "user is required", Err: ErrUserRequired}
	}
	f.Users = []string{name}
	list, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	a := newAcc(name)
	for _, t := range list {
		a.add(t)
	}
	p := a.finish()
	return &p, nil
}

// Summary counts tasks per user, project or city. Blank values fall into
// the "Unknown" bucket.
func (s *Service) Summary(ctx context.Context, g GroupBy, f Filter) (map[string]GroupCount, error) {
	list, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make(map[string]GroupCount)
	for _, t := range list {
		var key string
		switch g {
		case GroupByProject:
			key = t.Project
		case GroupByCity:
			key = t.City
		default:
			key = t.User
		}
		if key == "" {
			key = unknownGroup
		}
		c := out[key]
		c.Count++
		if isEligible(t) {
			c.Eligible++
		}
		if isNotEligible(t) {
			c.NotEligible++
		}
		out[key] = c
	}
	return out, nil
}
