// CLAUDE:SUMMARY GitHub latest-commit probe: explicit year mention first, then the annual release window.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/hazyhaar/worldpulse/horosafe"
)

// DefaultGitHubBase is the public GitHub REST API host.
const DefaultGitHubBase = "https://api.github.com"

var commitYearRE = regexp.MustCompile(`\b(\d{4})\b`)

// CommitProbe inspects the latest commit touching a file in a GitHub
// repository. Two signals, checked in order:
//
//  1. The commit message mentions a 4-digit year past the known one.
//  2. The commit is dated past the known data year, or inside the
//     publisher's annual release window of the current year.
//
// The second signal runs even when the message mentions a year, because
// publishers routinely name the year they are updating rather than the
// new one ("Update data through 2024" pushed in November 2024 is the
// 2024 release landing, not a no-op).
type CommitProbe struct {
	slug  string
	owner string
	repo  string
	path  string
	// releaseMonth is the earliest month the publisher ships the annual
	// update.
	releaseMonth time.Month

	client *http.Client
	base   string
	token  string
	now    func() time.Time
}

// CommitProbeOption configures a CommitProbe.
type CommitProbeOption func(*CommitProbe)

// WithGitHubBase points the probe at a different API host (tests).
func WithGitHubBase(base string) CommitProbeOption {
	return func(p *CommitProbe) { p.base = base }
}

// WithGitHubToken attaches a bearer token to raise the rate limit.
func WithGitHubToken(token string) CommitProbeOption {
	return func(p *CommitProbe) { p.token = token }
}

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(hc *http.Client) CommitProbeOption {
	return func(p *CommitProbe) { p.client = hc }
}

// NewCommitProbe builds a probe over owner/repo watching path.
func NewCommitProbe(slug, owner, repo, path string, releaseMonth time.Month, opts ...CommitProbeOption) *CommitProbe {
	p := &CommitProbe{
		slug:         slug,
		owner:        owner,
		repo:         repo,
		path:         path,
		releaseMonth: releaseMonth,
		client:       &http.Client{Timeout: 15 * time.Second},
		base:         DefaultGitHubBase,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CommitProbe) Slug() string { return p.slug }

func (p *CommitProbe) Check(ctx context.Context, previousYear int) Result {
	res := Result{
		Slug:         p.slug,
		PreviousYear: previousYear,
		CheckedAt:    p.now().UTC(),
	}

	message, committedAt, err := p.latestCommit(ctx)
	if err != nil {
		res.Err = err
		res.Method = "github commit lookup failed"
		return res
	}

	if year := maxMentionedYear(message); year > previousYear {
		res.Changed = true
		res.DetectedYear = year
		res.Method = fmt.Sprintf("commit message mentions %d", year)
		return res
	}

	inWindow := committedAt.Month() >= p.releaseMonth && committedAt.Year() == p.now().Year()
	if committedAt.Year() > previousYear || inWindow {
		res.Changed = true
		res.DetectedYear = committedAt.Year()
		res.Method = fmt.Sprintf("commit dated %s inside annual release window", committedAt.Format("2006-01-02"))
		return res
	}

	res.Method = "no release signal in latest commit"
	return res
}

// commitResponse is the subset of the GitHub commits listing we read.
type commitResponse struct {
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

func (p *CommitProbe) latestCommit(ctx context.Context) (string, time.Time, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/commits?%s",
		p.base, p.owner, p.repo,
		url.Values{"path": {p.path}, "per_page": {"1"}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("github returned HTTP %d", resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return "", time.Time{}, err
	}
	var commits []commitResponse
	if err := json.Unmarshal(body, &commits); err != nil {
		return "", time.Time{}, fmt.Errorf("github: %w", err)
	}
	if len(commits) == 0 {
		return "", time.Time{}, fmt.Errorf("github: no commits for path %s", p.path)
	}
	c := commits[0].Commit
	return c.Message, c.Committer.Date, nil
}

// maxMentionedYear extracts the largest plausible data year (>= 2000)
// mentioned in a commit message, or 0.
func maxMentionedYear(message string) int {
	best := 0
	for _, m := range commitYearRE.FindAllString(message, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y < 2000 {
			continue
		}
		if y > best {
			best = y
		}
	}
	return best
}
