package congressus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	membersPageSize = 100
	maxMembersPages = 200
)

// Member is the subset of a Congressus member record the bot needs.
type Member struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"primary_last_name_main"`
	DateOfBirth string `json:"date_of_birth"`
}

// DisplayName returns "First Last", falling back to the username.
func (m Member) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
	if name == "" {
		name = strings.TrimSpace(m.Username)
	}
	return name
}

// Birthday parses DateOfBirth (YYYY-MM-DD). ok is false when it is absent or malformed.
func (m Member) Birthday() (time.Time, bool) {
	raw := strings.TrimSpace(m.DateOfBirth)
	if len(raw) < len("2006-01-02") {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type membersPage struct {
	Data    []Member `json:"data"`
	HasNext bool     `json:"has_next"`
}

// MembersClient lists members through the Congressus REST API using the
// service's API token.
type MembersClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewMembersClient creates a members API client rooted at baseURL (e.g. https://api.congressus.nl/v30).
func NewMembersClient(log *slog.Logger, baseURL, token string, httpClient *http.Client) *MembersClient {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &MembersClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		logger:     log.With(slog.String("client", "congressus_members")),
	}
}

// ListMembers fetches every member page by page.
func (c *MembersClient) ListMembers(ctx context.Context) ([]Member, error) {
	var all []Member
	for page := 1; page <= maxMembersPages; page++ {
		result, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Data...)
		if !result.HasNext || len(result.Data) == 0 {
			c.logger.Debug("members fetched", slog.Int("count", len(all)), slog.Int("pages", page))
			return all, nil
		}
	}
	return nil, fmt.Errorf("members listing exceeded %d pages", maxMembersPages)
}

func (c *MembersClient) fetchPage(ctx context.Context, page int) (membersPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(membersPageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/members?"+query.Encode(), nil)
	if err != nil {
		return membersPage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return membersPage{}, fmt.Errorf("list members: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return membersPage{}, fmt.Errorf("list members: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result membersPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return membersPage{}, fmt.Errorf("decode members page %d: %w", page, err)
	}
	return result, nil
}
