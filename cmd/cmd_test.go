package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/spiffcs/boardsync/config"
	"github.com/spiffcs/boardsync/internal/ghclient"
	"github.com/spiffcs/boardsync/internal/history"
	"github.com/spiffcs/boardsync/internal/model"
	"github.com/spiffcs/boardsync/internal/output"
	"github.com/spiffcs/boardsync/internal/service"
)

func TestNew(t *testing.T) {
	cmd := New()
	if cmd.Use != "boardsync" {
		t.Errorf("expected Use to be 'boardsync', got %q", cmd.Use)
	}

	want := map[string]bool{"run": false, "schedule": false, "config": false, "history": false, "ratelimit": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}

	for _, flag := range []string{"label", "dry-run", "workers", "format", "verbose", "tui", "no-history", "log-format"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("root command missing --%s", flag)
		}
	}
}

func TestNewCmdSchedule(t *testing.T) {
	cmd := NewCmdSchedule(NewOptions())
	if cmd.Use != "schedule" {
		t.Errorf("expected Use to be 'schedule', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("cron") == nil || cmd.Flags().Lookup("now") == nil {
		t.Error("schedule should have --cron and --now")
	}
	if cmd.Flags().Lookup("tui") != nil {
		t.Error("schedule should not offer the TUI")
	}
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.0.0", "abc123", "2024-01-01")

	var buf bytes.Buffer
	cmd := NewCmdVersion()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.Contains(buf.String(), "boardsync 1.0.0") || !strings.Contains(buf.String(), "abc123") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}

func TestTUIFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"true", "true", false},
		{"yes", "true", false},
		{"0", "false", false},
		{"auto", "auto", false},
		{"maybe", "auto", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			opts := NewOptions()
			f := newTUIFlag(opts)
			err := f.Set(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q) error = %v", tt.in, err)
			}
			if f.String() != tt.want {
				t.Errorf("String() = %q, want %q", f.String(), tt.want)
			}
		})
	}
}

func TestShouldUseTUI(t *testing.T) {
	on, off := true, false
	tests := []struct {
		name   string
		opts   *Options
		format output.Format
		want   bool
	}{
		{"forced on", NewOptions(WithTUI(&on)), output.FormatTable, true},
		{"forced off", NewOptions(WithTUI(&off)), output.FormatTable, false},
		{"verbose disables", NewOptions(WithTUI(&on), WithVerbosity(1)), output.FormatTable, false},
		{"json disables", NewOptions(WithTUI(&on)), output.FormatJSON, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldUseTUI(tt.opts, tt.format); got != tt.want {
				t.Errorf("shouldUseTUI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectLabels(t *testing.T) {
	configured := []config.LabelConfig{
		{Name: "good first issue"},
		{Name: "help wanted"},
		{Name: "Community PR", ComputeActivity: true},
	}

	tests := []struct {
		name    string
		only    []string
		want    []service.Label
		wantErr bool
	}{
		{
			name: "all in config order",
			want: []service.Label{{Name: "good first issue"}, {Name: "help wanted"}, {Name: "Community PR", ComputeActivity: true}},
		},
		{
			name: "restricted keeps config order",
			only: []string{"Community PR", "good first issue"},
			want: []service.Label{{Name: "good first issue"}, {Name: "Community PR", ComputeActivity: true}},
		},
		{
			name:    "unknown label",
			only:    []string{"wontfix"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectLabels(configured, tt.only)
			if tt.wantErr {
				var ce *config.ConfigurationError
				if !errors.As(err, &ce) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("selectLabels() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("label %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	cfg := &config.Config{DefaultFormat: "json"}
	if f, _ := resolveFormat(NewOptions(), cfg); f != output.FormatJSON {
		t.Errorf("expected config default, got %q", f)
	}
	if f, _ := resolveFormat(NewOptions(WithFormat("markdown")), cfg); f != output.FormatMarkdown {
		t.Errorf("expected flag to win, got %q", f)
	}
	if _, err := resolveFormat(NewOptions(WithFormat("xml")), cfg); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestPrintRateLimits(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limits := &gh.RateLimits{
		Core:   &gh.Rate{Limit: 5000, Remaining: 4990, Reset: gh.Timestamp{Time: now.Add(10 * time.Minute)}},
		Search: &gh.Rate{Limit: 30, Remaining: 0, Reset: gh.Timestamp{Time: now.Add(-time.Second)}},
	}

	var buf bytes.Buffer
	printRateLimits(&buf, limits, now)
	out := buf.String()

	for _, want := range []string{"4990/5000 remaining (resets in 10m0s)", "0/30 remaining (resets in 0s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "GraphQL") {
		t.Error("absent GraphQL limits should not print")
	}
}

func TestCronLogger(t *testing.T) {
	// Both methods must accept cron's key/value pairs.
	l := cronLogger{}
	l.Info("wake", "now", time.Now(), "entries", 1)
	l.Error(errors.New("boom"), "panic", "stack", "...")
}

// stubClient is a minimal GitHub with one open issue per configured label.
type stubClient struct {
	mu      sync.Mutex
	authErr error
	issues  map[string][]model.Issue
	adds    []string
	updates []model.FieldUpdate
}

func (s *stubClient) AuthenticatedUser(context.Context) (string, error) {
	if s.authErr != nil {
		return "", s.authErr
	}
	return "octocat", nil
}

func (s *stubClient) RateLimitStatus() ghclient.RateLimitStatus {
	return ghclient.RateLimitStatus{Remaining: 5000, Limit: 5000}
}

func (s *stubClient) SearchIssues(_ context.Context, _, label string) ([]model.Issue, error) {
	return s.issues[label], nil
}

func (s *stubClient) ProjectItems(context.Context, string) ([]model.BoardItem, error) {
	return nil, nil
}

func (s *stubClient) AddItem(_ context.Context, _, contentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds = append(s.adds, contentID)
	return "PVTI_" + contentID, nil
}

func (s *stubClient) UpdateField(_ context.Context, u model.FieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return nil
}

func (s *stubClient) Timeline(context.Context, string) ([]model.TimelineEvent, error) {
	return nil, nil
}

func withStubs(t *testing.T, client *stubClient) *history.Store {
	t.Helper()
	store := history.NewStoreWithPath(filepath.Join(t.TempDir(), "history.jsonl"))

	prevClient, prevHistory := newSyncClient, openHistory
	newSyncClient = func(*config.Config) (syncClient, error) { return client, nil }
	openHistory = func() (*history.Store, error) { return store, nil }
	t.Cleanup(func() {
		newSyncClient, openHistory = prevClient, prevHistory
	})
	return store
}

func stubConfig() *config.Config {
	return &config.Config{
		ProjectID: "PVT_1",
		Repo:      "octo/repo",
		Labels:    []config.LabelConfig{{Name: "Community PR", ComputeActivity: true}},
		Fields: &config.FieldsConfig{
			DaysSinceUpdate: &model.FieldBinding{ID: "F_UPDATE"},
		},
	}
}

func TestSyncOnce(t *testing.T) {
	client := &stubClient{issues: map[string][]model.Issue{
		"Community PR": {{NodeID: "I_7", Number: 7, Author: "alice", UpdatedAt: time.Now().Add(-72 * time.Hour)}},
	}}
	store := withStubs(t, client)

	cfg := stubConfig()
	labels, err := selectLabels(cfg.Labels, nil)
	if err != nil {
		t.Fatal(err)
	}

	run, err := syncOnce(context.Background(), syncEnv{cfg: cfg, opts: NewOptions(), labels: labels})
	if err != nil {
		t.Fatalf("syncOnce() error: %v", err)
	}
	if run.Failed() {
		t.Fatalf("unexpected failures: %v", run.Err())
	}

	l := run.Labels[0]
	if l.Enrolled != 1 || l.Annotated != 1 || l.FieldsWritten != 1 {
		t.Errorf("label report = %+v", l)
	}
	if len(client.updates) != 1 || client.updates[0].ItemID != "PVTI_I_7" || client.updates[0].Value.String() != "3" {
		t.Errorf("updates = %+v", client.updates)
	}

	runs, err := store.List(time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("history = %+v, want the run recorded", runs)
	}
}

func TestSyncOnce_DryRunWithoutHistory(t *testing.T) {
	client := &stubClient{issues: map[string][]model.Issue{
		"Community PR": {{NodeID: "I_7", Number: 7, UpdatedAt: time.Now()}},
	}}
	store := withStubs(t, client)

	cfg := stubConfig()
	labels, _ := selectLabels(cfg.Labels, nil)
	opts := NewOptions(WithDryRun(true))
	opts.NoHistory = true

	run, err := syncOnce(context.Background(), syncEnv{cfg: cfg, opts: opts, labels: labels})
	if err != nil {
		t.Fatal(err)
	}
	if !run.DryRun || len(client.adds) != 0 || len(client.updates) != 0 {
		t.Errorf("dry run wrote to the board: adds=%v updates=%v", client.adds, client.updates)
	}
	if runs, _ := store.List(time.Time{}, 0); len(runs) != 0 {
		t.Errorf("expected no history, got %d runs", len(runs))
	}
}

func TestSyncOnce_AuthFailure(t *testing.T) {
	client := &stubClient{authErr: errors.New("401 Bad credentials")}
	store := withStubs(t, client)

	cfg := stubConfig()
	labels, _ := selectLabels(cfg.Labels, nil)

	run, err := syncOnce(context.Background(), syncEnv{cfg: cfg, opts: NewOptions(), labels: labels})
	if err == nil || run != nil {
		t.Fatalf("expected auth error and no run, got run=%v err=%v", run, err)
	}
	if runs, _ := store.List(time.Time{}, 0); len(runs) != 0 {
		t.Error("failed authentication should not be recorded")
	}
}

func TestWriteConfig(t *testing.T) {
	cfg := stubConfig()

	var buf bytes.Buffer
	if err := writeConfig(&buf, cfg, "yaml"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "repo: octo/repo") {
		t.Errorf("yaml output missing repo:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeConfig(&buf, cfg, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"project_id": "PVT_1"`) {
		t.Errorf("json output should use file keys:\n%s", buf.String())
	}

	if err := writeConfig(&buf, cfg, "toml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
