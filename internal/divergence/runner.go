// internal/divergence/runner.go
package divergence

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/xkilldash9x/farbler/internal/config"
	"github.com/xkilldash9x/farbler/internal/farbling"
)

// shuffleListSize is the length of the list whose farbled order is compared.
const shuffleListSize = 6

// Report summarizes how much farbled output two unrelated contexts share.
type Report struct {
	Level   farbling.Level `json:"level"`
	Samples int            `json:"samples"`

	// Same site, two browsing sessions.
	SessionStringCollisions int     `json:"session_string_collisions"`
	SessionCollisionRate    float64 `json:"session_collision_rate"`

	// Same session, two sites.
	SiteStringCollisions int     `json:"site_string_collisions"`
	SiteCollisionRate    float64 `json:"site_collision_rate"`

	ShuffleCollisionRate float64 `json:"shuffle_collision_rate"`

	AudioFudgeMean   float64 `json:"audio_fudge_mean"`
	AudioFudgeStdDev float64 `json:"audio_fudge_stddev"`
	AudioFudgeMin    float64 `json:"audio_fudge_min"`
	AudioFudgeMax    float64 `json:"audio_fudge_max"`

	HardwareConcurrencyMean float64 `json:"hardware_concurrency_mean"`
}

// sample is the outcome of one sampled pair of contexts.
type sample struct {
	sessionCollision bool
	siteCollision    bool
	shuffleCollision bool
	fudge            float64
	cores            float64
}

// Runner draws random browsing contexts and measures their divergence.
type Runner struct {
	cfg         config.DivergenceConfig
	actualCores int
	logger      *zap.Logger
}

// NewRunner creates a runner. actualCores is the real core count fed to the
// hardware concurrency policy.
func NewRunner(cfg config.DivergenceConfig, actualCores int, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, actualCores: actualCores, logger: logger.Named("divergence")}, nil
}

// Run samples cfg.Samples context pairs at level in parallel.
func (r *Runner) Run(ctx context.Context, level farbling.Level) (*Report, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %s", farbling.ErrUnknownLevel, level)
	}
	r.logger.Info("Starting divergence run.",
		zap.Stringer("level", level),
		zap.Int("samples", r.cfg.Samples),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	results := make([]sample, r.cfg.Samples)
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i := range results {
		if groupCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			s, err := r.sampleOnce(i, level)
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			results[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation that raced the last Go call may leave samples unset.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := summarize(level, results)
	r.logger.Info("Divergence run complete.",
		zap.Float64("session_collision_rate", report.SessionCollisionRate),
		zap.Float64("site_collision_rate", report.SiteCollisionRate),
		zap.Float64("shuffle_collision_rate", report.ShuffleCollisionRate),
	)
	return report, nil
}

func (r *Runner) sampleOnce(i int, level farbling.Level) (sample, error) {
	keyA, err := farbling.NewSessionKey()
	if err != nil {
		return sample{}, err
	}
	keyB, err := farbling.NewSessionKey()
	if err != nil {
		return sample{}, err
	}
	site := fmt.Sprintf("https://site%d.example", i)
	otherSite := fmt.Sprintf("https://other%d.example", i)

	a, err := r.cache(site, keyA)
	if err != nil {
		return sample{}, err
	}
	b, err := r.cache(site, keyB)
	if err != nil {
		return sample{}, err
	}
	c, err := r.cache(otherSite, keyA)
	if err != nil {
		return sample{}, err
	}

	label := farbling.DefaultPluginSpecs()[0].Name.Label
	n := r.cfg.StringLength
	s := sample{
		sessionCollision: a.GenerateRandomString(label, n) == b.GenerateRandomString(label, n),
		siteCollision:    a.GenerateRandomString(label, n) == c.GenerateRandomString(label, n),
		shuffleCollision: slices.Equal(shuffledOrder(a), shuffledOrder(b)),
		fudge:            farbling.NewAudioPerturber(level, a, r.logger)(1, i),
		cores:            float64(farbling.FarbleHardwareConcurrency(level, a, r.actualCores, r.logger)),
	}
	return s, nil
}

func (r *Runner) cache(rawURL string, sessionKey []byte) (*farbling.SessionCache, error) {
	key, err := farbling.NewBrowsingContextKey(rawURL, sessionKey)
	if err != nil {
		return nil, err
	}
	return farbling.NewSessionCache(key, r.logger), nil
}

// shuffledOrder returns the permutation the collection shuffle applies.
func shuffledOrder(cache *farbling.SessionCache) []int {
	order := make(farbling.Slice[int], shuffleListSize)
	for i := range order {
		order[i] = i
	}
	cache.MakePseudoRandomGenerator().Shuffle(order.Len(), order.Swap)
	return order
}

func summarize(level farbling.Level, results []sample) *Report {
	report := &Report{Level: level, Samples: len(results)}
	if len(results) == 0 {
		return report
	}

	fudges := make([]float64, len(results))
	cores := make([]float64, len(results))
	var shuffles int
	for i, s := range results {
		if s.sessionCollision {
			report.SessionStringCollisions++
		}
		if s.siteCollision {
			report.SiteStringCollisions++
		}
		if s.shuffleCollision {
			shuffles++
		}
		fudges[i] = s.fudge
		cores[i] = s.cores
	}

	total := float64(len(results))
	report.SessionCollisionRate = float64(report.SessionStringCollisions) / total
	report.SiteCollisionRate = float64(report.SiteStringCollisions) / total
	report.ShuffleCollisionRate = float64(shuffles) / total
	report.AudioFudgeMean, report.AudioFudgeStdDev = stat.MeanStdDev(fudges, nil)
	if len(results) == 1 {
		report.AudioFudgeStdDev = 0
	}
	report.AudioFudgeMin = floats.Min(fudges)
	report.AudioFudgeMax = floats.Max(fudges)
	report.HardwareConcurrencyMean = stat.Mean(cores, nil)
	return report
}
