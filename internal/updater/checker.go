package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"woo-customer-orders-report/report-backend/internal/metrics"
	"woo-customer-orders-report/report-backend/pkg/workflows"
)

// Status is where an update check ended up
type Status string

const (
	StatusIdle            Status = "idle"
	StatusChecking        Status = "checking"
	StatusUpToDate        Status = "up_to_date"
	StatusUpdateAvailable Status = "update_available"
	StatusUnknown         Status = "unknown"
)

// checkTransitions allows a finished check to be rerun
var checkTransitions = map[string][]string{
	string(StatusIdle):            {string(StatusChecking)},
	string(StatusChecking):        {string(StatusUpToDate), string(StatusUpdateAvailable), string(StatusUnknown)},
	string(StatusUpToDate):        {string(StatusChecking)},
	string(StatusUpdateAvailable): {string(StatusChecking)},
	string(StatusUnknown):         {string(StatusChecking)},
}

const (
	githubHomeURL      = "https://github.com"
	noChangelogMessage = "No changelog available."
	pluginDescription  = "Customer orders reporting for WooCommerce with filtering, analytics and export."
	maxReleaseBodySize = 1 << 20
)

var (
	errMissingTag  = errors.New("release has no tag_name")
	errInvalidTag  = errors.New("release tag is not a semantic version")
	errBadResponse = errors.New("unexpected release feed response")
)

// Config points the checker at a release feed
type Config struct {
	APIBaseURL     string
	Owner          string
	Repo           string
	PluginName     string
	CurrentVersion string
	Token          string
	Timeout        time.Duration
}

// Release is the subset of the release feed the checker reads
type Release struct {
	TagName     string `json:"tag_name"`
	ZipballURL  string `json:"zipball_url"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`
}

// CheckResult is returned by the update-check endpoint
type CheckResult struct {
	Status         Status `json:"status"`
	HasUpdate      bool   `json:"has_update"`
	Message        string `json:"message"`
	CurrentVersion string `json:"current_version"`
	NewVersion     string `json:"new_version,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// PluginInfo describes the latest release for the plugin-information screen
type PluginInfo struct {
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Version      string            `json:"version"`
	Homepage     string            `json:"homepage"`
	DownloadLink string            `json:"download_link,omitempty"`
	LastUpdated  string            `json:"last_updated"`
	Sections     map[string]string `json:"sections"`
	Status       Status            `json:"status"`
}

// Checker polls the release feed. Each call is a single attempt; failures
// never surface as errors. The checker moves idle → checking → outcome and
// back to checking on the next call; only one check runs at a time.
type Checker struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	state *workflows.StateMachine
}

// NewChecker creates a checker. A nil client gets one bounded by cfg.Timeout.
func NewChecker(cfg Config, client *http.Client, m *metrics.Metrics, logger *zap.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "release-feed",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Release feed circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Checker{
		cfg:     cfg,
		client:  client,
		breaker: breaker,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		state:   workflows.NewStateMachine(string(StatusIdle), checkTransitions),
	}
}

// State returns where the checker currently is
func (c *Checker) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status(c.state.Current())
}

func (c *Checker) transition(to Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Transition(string(to))
}

// Check compares the running version with the latest release. While
// another check is running it returns status checking without calling the
// feed.
func (c *Checker) Check(ctx context.Context) *CheckResult {
	result := &CheckResult{CurrentVersion: c.cfg.CurrentVersion}

	if err := c.transition(StatusChecking); err != nil {
		c.logger.Info("Update check already running")
		result.Status = StatusChecking
		result.Message = "An update check is already running."
		return result
	}

	release, err := c.latestRelease(ctx)
	var remote string
	if err == nil {
		remote, err = releaseVersion(release)
	}

	switch {
	case err != nil:
		c.logger.Warn("Update check failed", zap.Error(err))
		result.Status = StatusUnknown
		result.Message = "Could not check for updates. Please try again later."
	case IsNewer(c.cfg.CurrentVersion, remote):
		result.Status = StatusUpdateAvailable
		result.HasUpdate = true
		result.NewVersion = remote
		result.DownloadURL = release.ZipballURL
		result.Message = fmt.Sprintf("Update available! Version %s is ready to install.", remote)
	default:
		result.Status = StatusUpToDate
		result.Message = "No updates available. You have the latest version!"
	}

	if err := c.transition(result.Status); err != nil {
		c.logger.Error("Update check state corrupted", zap.Error(err))
	}
	c.metrics.ObserveUpdateCheck(string(result.Status))
	c.logger.Info("Update check finished",
		zap.String("status", string(result.Status)),
		zap.String("current_version", c.cfg.CurrentVersion),
		zap.String("remote_version", remote),
	)
	return result
}

// Info describes the latest release, falling back to the running version
// when the feed cannot be read
func (c *Checker) Info(ctx context.Context) *PluginInfo {
	info := &PluginInfo{
		Name:        c.cfg.PluginName,
		Slug:        c.cfg.Repo,
		Version:     c.cfg.CurrentVersion,
		Homepage:    fmt.Sprintf("%s/%s/%s", githubHomeURL, c.cfg.Owner, c.cfg.Repo),
		LastUpdated: c.now().Format("2006-01-02"),
		Sections: map[string]string{
			"description": pluginDescription,
			"changelog":   noChangelogMessage,
		},
		Status: StatusUnknown,
	}

	release, err := c.latestRelease(ctx)
	if err != nil {
		c.logger.Warn("Release info unavailable", zap.Error(err))
		return info
	}

	if remote, err := releaseVersion(release); err == nil {
		info.Version = remote
		if IsNewer(c.cfg.CurrentVersion, remote) {
			info.Status = StatusUpdateAvailable
		} else {
			info.Status = StatusUpToDate
		}
	}
	info.DownloadLink = release.ZipballURL
	if published, err := time.Parse(time.RFC3339, release.PublishedAt); err == nil {
		info.LastUpdated = published.Format("2006-01-02")
	}
	if release.Body != "" {
		info.Sections["changelog"] = release.Body
	}
	return info
}

// latestRelease fetches the latest release through the circuit breaker
func (c *Checker) latestRelease(ctx context.Context) (*Release, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchLatest(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Release), nil
}

func (c *Checker) fetchLatest(ctx context.Context) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.cfg.Repo+"/"+c.cfg.CurrentVersion)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errBadResponse, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReleaseBodySize)).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}
	return &release, nil
}

// releaseVersion returns the release tag without its leading "v"
func releaseVersion(release *Release) (string, error) {
	tag := strings.TrimSpace(release.TagName)
	if tag == "" {
		return "", errMissingTag
	}
	if !semver.IsValid(canonical(tag)) {
		return "", fmt.Errorf("%w: %q", errInvalidTag, tag)
	}
	return strings.TrimPrefix(tag, "v"), nil
}

// IsNewer reports whether remote has higher semantic precedence than current.
// An unparseable current version is treated as older than any valid remote.
func IsNewer(current, remote string) bool {
	r := canonical(remote)
	if !semver.IsValid(r) {
		return false
	}
	cur := canonical(current)
	if !semver.IsValid(cur) {
		return true
	}
	return semver.Compare(cur, r) < 0
}

func canonical(version string) string {
	return "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
}
