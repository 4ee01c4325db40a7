// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken       string
	GitHubUsername    string
	Repos             []string
	InitialWait       time.Duration
	CheckInterval     time.Duration
	DiscoveryInterval time.Duration
	MaxIterations     int
	AutoFix           bool
	// EscalationKeywords overrides the default escalation keyword set.
	// Override semantics are full replacement, not merge; empty keeps the
	// documented defaults.
	EscalationKeywords []string
	RequiredReviewers  []string
	Workdir            string
	ListenAddr         string
	DBPath             string
}

// Load reads configuration from environment variables and returns a validated
// Config. PRSHEPHERD_GITHUB_TOKEN, PRSHEPHERD_GITHUB_USERNAME, and
// PRSHEPHERD_REPOS are required. Optional variables with defaults:
// PRSHEPHERD_INITIAL_WAIT (5m), PRSHEPHERD_CHECK_INTERVAL (2m),
// PRSHEPHERD_DISCOVERY_INTERVAL (5m), PRSHEPHERD_MAX_ITERATIONS (5),
// PRSHEPHERD_AUTO_FIX (true), PRSHEPHERD_WORKDIR (prshepherd-work),
// PRSHEPHERD_LISTEN_ADDR (127.0.0.1:8080), PRSHEPHERD_DB_PATH (prshepherd.db).
func Load() (*Config, error) {
	token := os.Getenv("PRSHEPHERD_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("PRSHEPHERD_GITHUB_TOKEN is required")
	}

	username := os.Getenv("PRSHEPHERD_GITHUB_USERNAME")
	if username == "" {
		return nil, fmt.Errorf("PRSHEPHERD_GITHUB_USERNAME is required")
	}

	repos := splitList(os.Getenv("PRSHEPHERD_REPOS"))
	if len(repos) == 0 {
		return nil, fmt.Errorf("PRSHEPHERD_REPOS is required (comma-separated owner/repo list)")
	}
	for _, repo := range repos {
		if !strings.Contains(repo, "/") {
			return nil, fmt.Errorf("PRSHEPHERD_REPOS entry %q: expected owner/repo", repo)
		}
	}

	initialWait, err := durationEnv("PRSHEPHERD_INITIAL_WAIT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	checkInterval, err := durationEnv("PRSHEPHERD_CHECK_INTERVAL", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	discoveryInterval, err := durationEnv("PRSHEPHERD_DISCOVERY_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	maxIterations := 5
	if v, ok := os.LookupEnv("PRSHEPHERD_MAX_ITERATIONS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("PRSHEPHERD_MAX_ITERATIONS has invalid value %q: expected positive integer", v)
		}
		maxIterations = parsed
	}

	autoFix := true
	if v, ok := os.LookupEnv("PRSHEPHERD_AUTO_FIX"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("PRSHEPHERD_AUTO_FIX has invalid value %q: %w", v, err)
		}
		autoFix = parsed
	}

	workdir := "prshepherd-work"
	if v, ok := os.LookupEnv("PRSHEPHERD_WORKDIR"); ok {
		workdir = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PRSHEPHERD_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "prshepherd.db"
	if v, ok := os.LookupEnv("PRSHEPHERD_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		GitHubToken:        token,
		GitHubUsername:     username,
		Repos:              repos,
		InitialWait:        initialWait,
		CheckInterval:      checkInterval,
		DiscoveryInterval:  discoveryInterval,
		MaxIterations:      maxIterations,
		AutoFix:            autoFix,
		EscalationKeywords: splitList(os.Getenv("PRSHEPHERD_ESCALATION_KEYWORDS")),
		RequiredReviewers:  splitList(os.Getenv("PRSHEPHERD_REQUIRED_REVIEWERS")),
		Workdir:            workdir,
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	return parsed, nil
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries. Returns an empty (non-nil) slice for empty input.
func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
