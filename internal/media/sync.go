package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"freakfest/internal/fsx"
	"freakfest/internal/httpx"
	"freakfest/internal/manifest"
)

// EventUpdated is broadcast after a target has new files and a manifest.
const EventUpdated = "media.updated"

var errEmptyArchive = errors.New("archive contained no files")

// Notifier receives media events; the live hub implements it.
type Notifier interface {
	BroadcastJSON(event string, payload any)
}

// Result is the outcome of syncing one target.
type Result struct {
	Target   string    `json:"target"`
	Tag      string    `json:"tag"`
	Files    int       `json:"files"`
	Manifest int       `json:"manifest"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type Syncer struct {
	AssetsRoot  string
	ReleaseBase string
	Tag         string
	Targets     []Target
	Slots       []manifest.Slot

	Client   *http.Client
	Builder  *manifest.Builder
	Notifier Notifier
	Log      *zap.Logger

	flight singleflight.Group

	mu      sync.Mutex
	last    map[string]Result
	targets map[string]*sync.Mutex
}

func NewSyncer(assetsRoot string, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		AssetsRoot:  assetsRoot,
		ReleaseBase: DefaultReleaseBase,
		Tag:         DefaultReleaseTag,
		Targets:     DefaultTargets(),
		Client:      httpx.NewDownloadClient(),
		Builder:     manifest.NewBuilder(log.Named("manifest")),
		Log:         log,
		last:        make(map[string]Result),
		targets:     make(map[string]*sync.Mutex),
	}
}

// Ensure refreshes every target from the configured release in parallel.
// Failures are per target and only logged; Ensure itself never fails.
func (s *Syncer) Ensure(ctx context.Context) []Result {
	results := make([]Result, len(s.Targets))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, t := range s.Targets {
		eg.Go(func() error {
			results[i] = s.Sync(egCtx, t, s.Tag)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// EnsureOnce runs Ensure unless one is already in flight, in which case it
// waits for and shares that run.
func (s *Syncer) EnsureOnce(ctx context.Context) []Result {
	v, _, _ := s.flight.Do("ensure", func() (any, error) {
		return s.Ensure(ctx), nil
	})
	return v.([]Result)
}

// Sync downloads and installs one target from the release tagged tag, then
// rebuilds its manifest. A failed download leaves the old files in place,
// but the manifest is rebuilt either way. Syncs of the same target run one
// at a time.
func (s *Syncer) Sync(ctx context.Context, t Target, tag string) Result {
	unlock := s.lockTarget(t.Name)
	defer unlock()

	log := s.Log.With(zap.String("target", t.Name), zap.String("tag", tag))
	dir := s.dir(t)
	res := Result{Target: t.Name, Tag: tag}

	log.Info("ensuring media", zap.String("archive", t.Archive))
	n, err := s.install(ctx, t, tag, dir)
	if err != nil {
		log.Warn("media fetch failed", zap.Error(err))
		res.Error = err.Error()
	} else {
		res.Files = n
		log.Info("media extracted", zap.Int("files", n), zap.String("dir", dir))
	}

	opts := manifest.Options{Kind: t.Kind}
	if t.UseSlots {
		opts.Slots = s.Slots
	}
	mres, merr := s.Builder.Build(dir, opts)
	res.Manifest = len(mres.Files)
	if merr != nil && res.Error == "" {
		res.Error = merr.Error()
	}

	res.At = time.Now().UTC()
	s.record(res)

	if err == nil && merr == nil && s.Notifier != nil {
		s.Notifier.BroadcastJSON(EventUpdated, res)
	}
	return res
}

func (s *Syncer) install(ctx context.Context, t Target, tag, dir string) (int, error) {
	src := ReleaseURL(s.ReleaseBase, tag, t.Archive)
	resp, err := httpx.Get(ctx, s.Client, src, nil)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", t.Archive, err)
	}
	defer resp.Body.Close()

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return 0, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	st, err := ExtractTarGz(resp.Body, staging, t.Strip)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", t.Archive, err)
	}
	if st.Files == 0 {
		return 0, fmt.Errorf("extract %s: %w", t.Archive, errEmptyArchive)
	}
	if st.Skipped > 0 {
		s.Log.Debug("archive entries skipped", zap.String("archive", t.Archive), zap.Int("skipped", st.Skipped))
	}

	if err := swapDir(staging, dir); err != nil {
		return 0, err
	}
	return st.Files, nil
}

// swapDir replaces dst with src. The old dst is moved aside first and put
// back if the second rename fails.
func swapDir(src, dst string) error {
	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		backup = fmt.Sprintf("%s.old-%d", dst, time.Now().UnixNano())
		if err := fsx.Rename(dst, backup); err != nil {
			return fmt.Errorf("move old media aside: %w", err)
		}
	}
	if err := fsx.Rename(src, dst); err != nil {
		if backup != "" {
			_ = fsx.Rename(backup, dst)
		}
		return fmt.Errorf("install media: %w", err)
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}

func (s *Syncer) dir(t Target) string {
	return filepath.Join(s.AssetsRoot, filepath.FromSlash(t.Dir))
}

func (s *Syncer) lockTarget(name string) func() {
	s.mu.Lock()
	m, ok := s.targets[name]
	if !ok {
		m = &sync.Mutex{}
		s.targets[name] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Syncer) record(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = make(map[string]Result)
	}
	s.last[r.Target] = r
}

// Status returns the last result per target in target order.
func (s *Syncer) Status() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, 0, len(s.Targets))
	for _, t := range s.Targets {
		if r, ok := s.last[t.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

// BuildManifests rebuilds every target's manifest from what is on disk,
// without downloading anything.
func (s *Syncer) BuildManifests() error {
	var errs []error
	for _, t := range s.Targets {
		opts := manifest.Options{Kind: t.Kind}
		if t.UseSlots {
			opts.Slots = s.Slots
		}
		unlock := s.lockTarget(t.Name)
		_, err := s.Builder.Build(s.dir(t), opts)
		unlock()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
