package vcs

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/smolder/pkg/debug"
	"github.com/vanderheijden86/smolder/pkg/metrics"
)

const (
	// DefaultTTL rate-limits subprocess refreshes.
	DefaultTTL = time.Second

	// refreshTimeout bounds one refresh (both git invocations together)
	// so a wedged subprocess can never stall the event loop.
	refreshTimeout = 2 * time.Second

	// maxOutput is the largest porcelain output accepted. The runner
	// captures git's full output; a larger result fails the refresh.
	maxOutput = 10 << 20 // 10 MiB
)

var errOutputTooLarge = errors.New("git status output exceeds cap")

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithTTL overrides the refresh rate limit.
func WithTTL(ttl time.Duration) SourceOption {
	return func(s *Source) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRunner replaces the git subprocess runner. Tests use this to feed
// canned porcelain output.
func WithRunner(run Runner) SourceOption {
	return func(s *Source) {
		s.run = run
	}
}

// Runner executes a git command in the watch root and returns its stdout.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Source produces status snapshots for one repository root, with a TTL
// cache in front of the subprocess and concurrent refreshes collapsed
// into one flight. A failed refresh keeps the previous good snapshot.
type Source struct {
	root     string
	ttl      time.Duration
	disabled bool
	run      Runner

	group singleflight.Group

	mu      sync.RWMutex
	snap    *Snapshot
	fetched time.Time
}

// NewSource creates a status source for root. When disabled is true every
// call returns a nil snapshot and git is never invoked.
func NewSource(root string, disabled bool, opts ...SourceOption) *Source {
	s := &Source{
		root:     root,
		ttl:      DefaultTTL,
		disabled: disabled,
	}
	s.run = s.runGit
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the last good snapshot without refreshing. May be nil.
func (s *Source) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh returns a snapshot no older than the TTL, running git if the
// cache has expired. Errors are swallowed: the previous snapshot (or nil)
// comes back instead.
func (s *Source) Refresh(ctx context.Context) *Snapshot {
	if s.disabled {
		return nil
	}

	s.mu.RLock()
	fresh := s.snap != nil && time.Since(s.fetched) < s.ttl
	snap := s.snap
	s.mu.RUnlock()
	if fresh {
		return snap
	}

	v, _, _ := s.group.Do("refresh", func() (any, error) {
		next, err := s.fetch(ctx)
		if err != nil {
			debug.Log("vcs refresh failed: %v", err)
			return s.Current(), nil
		}
		s.mu.Lock()
		s.snap = next
		s.fetched = time.Now()
		s.mu.Unlock()
		return next, nil
	})
	result, _ := v.(*Snapshot)
	return result
}

// fetch assembles a snapshot in a scratch structure; the caller swaps it
// in whole so readers never see a partial map.
func (s *Source) fetch(ctx context.Context) (*Snapshot, error) {
	defer metrics.Timer(metrics.VcsRefresh)()

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	porcelain, err := s.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if len(porcelain) > maxOutput {
		return nil, errOutputTooLarge
	}

	// Ahead/behind is optional: no upstream is normal and not an error.
	ahead, behind := 0, 0
	if out, err := s.run(ctx, "rev-list", "--left-right", "--count", "HEAD...@{upstream}"); err == nil {
		ahead, behind = parseAheadBehind(out)
	}

	return parsePorcelain(s.root, porcelain, ahead, behind), nil
}

func (s *Source) runGit(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.root
	return cmd.Output()
}

// parseAheadBehind reads "N\tM" from rev-list --left-right --count.
func parseAheadBehind(out []byte) (ahead, behind int) {
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, 0
	}
	ahead, _ = strconv.Atoi(fields[0])
	behind, _ = strconv.Atoi(fields[1])
	return ahead, behind
}
