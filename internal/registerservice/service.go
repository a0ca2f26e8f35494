// Package registerservice serializes every access to the register engine and
// coordinates persistence, the lemma index and change notifications around
// update batches.
package registerservice

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/lexikon/internal/apperr"
	"github.com/starford/lexikon/internal/batch"
	"github.com/starford/lexikon/internal/export"
	"github.com/starford/lexikon/internal/index"
	"github.com/starford/lexikon/internal/metrics"
	"github.com/starford/lexikon/internal/register"
	"github.com/starford/lexikon/internal/sortkey"
	"github.com/starford/lexikon/internal/sse"
)

// Publisher receives change notifications after a batch.
type Publisher interface {
	Publish(event sse.Event)
	PublishRegisterChange(change sse.RegisterChange)
}

// Outcome is one applied update.
type Outcome struct {
	Volume   string `json:"volume"`
	Lemma    string `json:"lemma"`
	Strategy string `json:"strategy"`
}

// Failure is one rejected update.
type Failure struct {
	Index  int    `json:"index"`
	Volume string `json:"volume"`
	Lemma  string `json:"lemma"`
	Error  string `json:"error"`
}

// Result summarizes a batch.
type Result struct {
	Applied     []Outcome `json:"applied"`
	Failed      []Failure `json:"failed"`
	Persisted   []string  `json:"persisted"`
	Interrupted bool      `json:"interrupted,omitempty"`
}

// VolumeSummary describes one cataloged volume.
type VolumeSummary struct {
	Name    string `json:"name"`
	Year    string `json:"year"`
	Type    string `json:"type"`
	SortKey string `json:"sort_key"`
	Loaded  bool   `json:"loaded"`
	Lemmas  int    `json:"lemmas"`
}

// Service is safe for concurrent use; all calls are serialized.
type Service struct {
	mu     sync.Mutex
	regs   *register.Registers
	db     index.LemmaIndex
	keys   *sortkey.Cache
	check  register.CheckOptions
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIndex keeps db in sync after every batch and serves lookups from it.
func WithIndex(db index.LemmaIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithPublisher sets the change notification target.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithCheckOptions sets the integrity check thresholds.
func WithCheckOptions(o register.CheckOptions) Option {
	return func(s *Service) { s.check = o }
}

// WithKeyCache sets the cache used to normalize lookup queries.
func WithKeyCache(c *sortkey.Cache) Option {
	return func(s *Service) { s.keys = c }
}

// WithClock overrides the time source used for rendering.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service around loaded registers.
func New(regs *register.Registers, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{regs: regs, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ApplyBatch applies items in order. Record errors are logged and collected;
// they never stop the batch. Cancelling ctx stops before the next item, and
// whatever was applied is persisted.
func (s *Service) ApplyBatch(ctx context.Context, items []batch.Item) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{Applied: []Outcome{}, Failed: []Failure{}}
	changes := make(map[string]*sse.RegisterChange)
	var order []string
	track := func(volume string) *sse.RegisterChange {
		c, ok := changes[volume]
		if !ok {
			c = &sse.RegisterChange{Volume: volume}
			changes[volume] = c
			order = append(order, volume)
		}
		return c
	}

	for n, item := range items {
		if ctx.Err() != nil {
			res.Interrupted = true
			s.logger.Warn("batch: interrupted", slog.Int("remaining", len(items)-n))
			break
		}
		strategy, err := s.regs.Update(item.Volume, item.Record, item.Remove, item.Options()...)
		if err != nil {
			if !apperr.IsRecordError(err) {
				return res, fmt.Errorf("registerservice: apply item %d: %w", n, err)
			}
			s.logger.Warn("batch: update rejected",
				slog.String("volume", item.Volume),
				slog.String("lemma", item.Record.Lemma),
				slog.Any("record", item.Record),
				slog.String("error", err.Error()))
			metrics.UpdateResults.WithLabelValues(register.StrategyNone.String(), metrics.ResultRejected).Inc()
			res.Failed = append(res.Failed, Failure{Index: n, Volume: item.Volume, Lemma: item.Record.Lemma, Error: err.Error()})
			track(item.Volume).Failed++
			continue
		}
		s.logger.Debug("batch: update applied",
			slog.String("volume", item.Volume),
			slog.String("lemma", item.Record.Lemma),
			slog.String("strategy", strategy.String()))
		metrics.UpdateResults.WithLabelValues(strategy.String(), metrics.ResultApplied).Inc()
		res.Applied = append(res.Applied, Outcome{Volume: item.Volume, Lemma: item.Record.Lemma, Strategy: strategy.String()})
		track(item.Volume).Applied++
	}

	if len(res.Applied) > 0 {
		written, err := s.regs.Persist()
		res.Persisted = written
		if err != nil {
			return res, fmt.Errorf("registerservice: persist: %w", err)
		}
		s.syncIndex()
	}

	if s.pub != nil {
		for _, volume := range order {
			s.pub.PublishRegisterChange(*changes[volume])
		}
	}
	s.logger.Info("batch: done",
		slog.Int("applied", len(res.Applied)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("persisted", len(res.Persisted)))
	return res, nil
}

// ApplyFile decodes and applies a batch file. It reports an error when the
// file cannot be decoded or any record was rejected, so the inbox sorts the
// file into failed/ for review.
func (s *Service) ApplyFile(ctx context.Context, path string, data []byte) error {
	items, err := batch.Decode(data)
	if err != nil {
		return err
	}
	res, err := s.ApplyBatch(ctx, items)
	if err != nil {
		return err
	}
	if s.pub != nil {
		s.pub.Publish(sse.Event{Type: sse.TypeBatchApplied, Data: map[string]any{
			"path":    path,
			"applied": len(res.Applied),
			"failed":  len(res.Failed),
		}})
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("registerservice: %d of %d records rejected", len(res.Failed), len(items))
	}
	return nil
}

// Seed installs records as the register of a cataloged volume and persists
// it. A loaded register is only replaced when replace is set.
func (s *Service) Seed(_ context.Context, volume string, records []register.Record, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.regs.Volume(volume); err == nil && !replace {
		return &apperr.RegisterError{Volume: volume, Message: "register already loaded", Err: apperr.ErrAlreadyExists}
	}
	if err := s.regs.Seed(volume, records); err != nil {
		return err
	}
	if _, err := s.regs.Persist(); err != nil {
		return fmt.Errorf("registerservice: persist: %w", err)
	}
	s.syncIndex()
	s.logger.Info("register seeded", slog.String("volume", volume), slog.Int("lemmas", len(records)))

	if s.pub != nil {
		s.pub.PublishRegisterChange(sse.RegisterChange{Volume: volume, Applied: len(records)})
	}
	return nil
}

// Drop unloads a volume's register and deletes its file. The index forgets
// the volume on the following sync.
func (s *Service) Drop(_ context.Context, volume string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.regs.Drop(volume)
	if err != nil {
		return err
	}
	s.syncIndex()
	s.logger.Info("register dropped", slog.String("volume", volume), slog.Int("lemmas", n))

	if s.pub != nil {
		s.pub.PublishRegisterChange(sse.RegisterChange{Volume: volume, Applied: n})
	}
	return nil
}

// SyncIndex brings the lemma index up to date with the registers.
func (s *Service) SyncIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncIndex()
}

func (s *Service) syncIndex() {
	if s.db == nil {
		return
	}
	if _, err := index.Sync(s.db, s.regs, s.logger); err != nil {
		s.logger.Warn("index sync failed", slog.String("error", err.Error()))
	}
}

// Volumes lists every cataloged volume.
func (s *Service) Volumes(_ context.Context) []VolumeSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.regs.Catalog().All()
	out := make([]VolumeSummary, 0, len(all))
	for _, v := range all {
		sum := VolumeSummary{Name: v.Name, Year: v.Year, Type: v.Type.String(), SortKey: v.SortKey}
		if reg, err := s.regs.Volume(v.Name); err == nil {
			sum.Loaded = true
			sum.Lemmas = reg.Len()
		}
		out = append(out, sum)
	}
	return out
}

// Stats reports the size of every loaded register.
func (s *Service) Stats() []metrics.VolumeStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []metrics.VolumeStat
	for _, reg := range s.regs.Volumes() {
		stat := metrics.VolumeStat{Volume: reg.Volume().Name, Lemmas: reg.Len()}
		for _, l := range reg.Lemmas() {
			if !l.IsValid() {
				stat.Invalid++
			}
		}
		out = append(out, stat)
	}
	return out
}

// Volume returns the persisted form of a volume's register.
func (s *Service) Volume(_ context.Context, name string) ([]register.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.regs.Volume(name)
	if err != nil {
		return nil, err
	}
	return reg.Records(), nil
}

// RenderVolume returns the wiki table of a volume's register.
func (s *Service) RenderVolume(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.regs.Volume(name)
	if err != nil {
		return "", err
	}
	return reg.Render(s.renderContext()), nil
}

// AlphabeticRanges lists the alphabetic register ranges.
func (s *Service) AlphabeticRanges(_ context.Context) []register.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs.AlphabeticRanges()
}

// RenderAlphabetic returns the wiki table of the alphabetic register
// starting at start.
func (s *Service) RenderAlphabetic(_ context.Context, start string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.regs.Alphabetic(start)
	if err != nil {
		return "", err
	}
	return a.Render(s.renderContext()), nil
}

func (s *Service) renderContext() register.RenderContext {
	return register.RenderContext{Authors: s.regs.Authors(), Now: s.now()}
}

// Lookup finds lemmas whose sort key starts with the normalized query,
// across every volume.
func (s *Service) Lookup(_ context.Context, query string, limit int) ([]index.LemmaRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	key := s.normalize(query)
	if s.db != nil {
		return s.db.Lookup(key, limit)
	}

	var out []index.LemmaRow
	for _, reg := range s.regs.Volumes() {
		for _, row := range index.Rows(reg, s.regs.Authors()) {
			if strings.HasPrefix(row.SortKey, key) {
				out = append(out, row)
			}
		}
	}
	sortRows(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Referrers lists entries whose neighbor or redirect link names title.
func (s *Service) Referrers(_ context.Context, title string) ([]index.LemmaRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, fmt.Errorf("registerservice: referrers: %w", apperr.ErrNotFound)
	}
	return s.db.Referrers(title)
}

// sortRows orders rows the way the index does: by sort key, then volume,
// then position.
func sortRows(rows []index.LemmaRow) {
	slices.SortStableFunc(rows, func(a, b index.LemmaRow) int {
		return cmp.Or(
			cmp.Compare(a.SortKey, b.SortKey),
			cmp.Compare(a.VolumeSort, b.VolumeSort),
			cmp.Compare(a.Position, b.Position),
		)
	})
}

func (s *Service) normalize(query string) string {
	if s.keys != nil {
		return s.keys.Key(query)
	}
	return sortkey.Normalize(query)
}

// Check runs the integrity check over every loaded register.
func (s *Service) Check(_ context.Context) []register.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs.Check(s.check)
}

// Export writes every register as Parquet to w and returns the row count.
func (s *Service) Export(_ context.Context, w io.Writer) (int, error) {
	s.mu.Lock()
	rows := export.Rows(s.regs.Volumes(), s.regs.Authors())
	s.mu.Unlock()

	if err := export.Write(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
