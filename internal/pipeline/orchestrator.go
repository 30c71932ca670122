package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briefbot/briefbot/internal/brief"
	"github.com/briefbot/briefbot/internal/config"
	"github.com/briefbot/briefbot/internal/enrich"
	"github.com/briefbot/briefbot/internal/httpx"
	"github.com/briefbot/briefbot/internal/intent"
	"github.com/briefbot/briefbot/internal/metrics"
	"github.com/briefbot/briefbot/internal/providers"
	"github.com/briefbot/briefbot/internal/rank"
	"github.com/briefbot/briefbot/internal/registry"
	"github.com/briefbot/briefbot/internal/timeframe"
)

// fanoutLimit bounds the provider worker pool; four covers every
// simultaneously queried channel.
const fanoutLimit = 4

const decomposeTimeout = 25 * time.Second

// Request describes one research run.
type Request struct {
	Topic          string
	Mode           string
	Span           brief.Span
	Sampling       providers.Tier
	Mock           bool
	Refresh        bool
	ExcludeUndated bool
	WebResults     []providers.WebResult

	// Mock model listings bypass the live model-listing endpoints in
	// tests.
	MockOpenAIModels []registry.ModelInfo
	MockXAIModels    []registry.ModelInfo
}

// Orchestrator runs the research pipeline.
type Orchestrator struct {
	deps    providers.Deps
	store   registry.Store
	models  *registry.ModelSelector
	creds   config.Credentials
	metrics *metrics.Set
	sink    ProgressSink
	logger  zerolog.Logger

	dedupThreshold float64
}

// Options configures an Orchestrator.
type Options struct {
	Client      *httpx.Client
	Store       registry.Store
	Models      *registry.ModelSelector
	Credentials config.Credentials
	Metrics     *metrics.Set
	Sink        ProgressSink
	Logger      zerolog.Logger
	FixturesDir string
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	return &Orchestrator{
		deps: providers.Deps{
			Client:      opts.Client,
			Models:      opts.Models,
			Logger:      opts.Logger,
			FixturesDir: opts.FixturesDir,
		},
		store:          opts.Store,
		models:         opts.Models,
		creds:          opts.Credentials,
		metrics:        opts.Metrics,
		sink:           opts.Sink,
		logger:         opts.Logger,
		dedupThreshold: rank.DefaultDedupThreshold,
	}
}

type channelResult struct {
	items []brief.Signal
	err   error
}

// Run executes the pipeline and returns the populated Brief. Only an
// invalid span or mode fails the run outright; provider failures land
// in the Brief's error slots.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*brief.Brief, error) {
	return o.RunWithSink(ctx, req, o.sink)
}

// RunWithSink runs the pipeline reporting progress to an alternate
// sink, used by callers that stream progress per request.
func (o *Orchestrator) RunWithSink(ctx context.Context, req Request, sink ProgressSink) (*brief.Brief, error) {
	if sink == nil {
		sink = NopSink{}
	}
	started := time.Now()

	if err := validateSpan(req.Span); err != nil {
		return nil, err
	}
	if req.Sampling == "" {
		req.Sampling = providers.TierStandard
	}

	res, err := ResolveSources(req.Mode, o.creds, len(req.WebResults) > 0)
	if err != nil {
		return nil, err
	}

	b := &brief.Brief{
		Topic:       req.Topic,
		Span:        req.Span,
		GeneratedAt: time.Now().UTC(),
		Mode:        res.Mode,
	}
	b.Metrics.RunID = uuid.NewString()
	if res.Warning != "" {
		o.logger.Warn().Str("topic", req.Topic).Msg(res.Warning)
	}

	// The cache key depends only on topic, span, and channels, so the
	// lookup runs before classification: a hit must not pay for the
	// decomposition call.
	cacheKey := o.cacheKey(req, res)
	if !req.Refresh && o.tryCache(ctx, cacheKey, b) {
		return b, nil
	}
	o.metrics.CacheMisses.Inc()

	o.classify(ctx, req, b)

	sel, err := o.selectModels(ctx, req)
	if err != nil {
		// Model selection failing for one family should not kill the
		// run; the affected channels will error individually.
		o.logger.Warn().Err(err).Msg("model selection incomplete")
	}
	b.Models = brief.Models{OpenAI: sel.OpenAI, XAI: sel.XAI}

	results := o.fanout(ctx, req, res, sel, sink)

	sink.StartProcessing()
	var items []brief.Signal
	for _, ch := range res.Channels {
		r := results[ch]
		b.SetChannelError(ch, r.err)
		items = append(items, r.items...)
	}
	if res.IncludeWeb {
		items = append(items, providers.ProcessWebResults(req.WebResults, req.Topic, req.Span.Start, req.Span.End)...)
	}

	o.enrichReddit(ctx, req, items, sink)
	items = o.normalize(items, req)
	items = o.score(items, b)
	b.Items = items
	sink.EndProcessing()

	elapsed := time.Since(started)
	b.Metrics.SearchSeconds = elapsed.Seconds()
	b.Metrics.ItemCount = len(items)
	o.metrics.RunDuration.Observe(elapsed.Seconds())
	o.metrics.ItemsRanked.Add(float64(len(items)))
	sink.ShowComplete(len(items), elapsed)

	// Cache writes are best-effort and all-or-nothing.
	if ctx.Err() == nil && o.store != nil {
		if err := o.store.Save(ctx, cacheKey, b); err != nil {
			o.logger.Debug().Err(err).Msg("brief cache write failed")
		}
	}
	return b, nil
}

func validateSpan(sp brief.Span) error {
	for _, d := range []string{sp.Start, sp.End} {
		if _, err := time.Parse(timeframe.ISODate, d); err != nil {
			return fmt.Errorf("invalid span date %q", d)
		}
	}
	if sp.Start > sp.End {
		return fmt.Errorf("span start %s after end %s", sp.Start, sp.End)
	}
	return nil
}

func (o *Orchestrator) classify(ctx context.Context, req Request, b *brief.Brief) {
	complexityClass, complexityReason := intent.ClassifyComplexity(req.Topic)
	stance, stanceReason := intent.ClassifyStance(req.Topic)
	b.Intent = brief.Intent{
		ComplexityClass:     complexityClass,
		ComplexityReason:    complexityReason,
		EpistemicStance:     stance,
		EpistemicReason:     stanceReason,
		DecompositionSource: "skipped",
	}
	if complexityClass == intent.ComplexAnalytical && !req.Mock {
		model := o.creds.OpenAIModelPin
		if model == "" {
			model = "gpt-5"
		}
		questions, source := intent.DecomposeQuery(ctx, o.deps.Client, req.Topic, o.creds.OpenAIKey, model, decomposeTimeout)
		b.Intent.Decomposition = questions
		b.Intent.DecompositionSource = source
	}
}

func (o *Orchestrator) cacheKey(req Request, res Resolution) string {
	names := make([]string, 0, len(res.Channels)+1)
	for _, ch := range res.Channels {
		names = append(names, string(ch))
	}
	if res.IncludeWeb {
		names = append(names, string(brief.ChannelWeb))
	}
	return registry.Key(req.Topic, req.Span.Start, req.Span.End, names)
}

// tryCache serves the brief from the store when a fresh entry exists.
func (o *Orchestrator) tryCache(ctx context.Context, key string, b *brief.Brief) bool {
	if o.store == nil {
		return false
	}
	raw, age, err := o.store.LoadWithAge(ctx, key, registry.ResponseTTL)
	if err != nil {
		return false
	}
	var cached brief.Brief
	if err := json.Unmarshal(raw, &cached); err != nil {
		return false
	}
	*b = cached
	b.Cache = brief.CacheInfo{Enabled: true, AgeHours: age.Hours()}
	o.metrics.CacheHits.Inc()
	return true
}

func (o *Orchestrator) selectModels(ctx context.Context, req Request) (registry.Selection, error) {
	if o.models == nil {
		return registry.Selection{}, nil
	}
	return o.models.GetModels(ctx,
		o.creds.OpenAIKey, o.creds.XAIKey,
		o.creds.OpenAIModelPolicy, o.creds.OpenAIModelPin,
		o.creds.XAIModelPolicy, o.creds.XAIModelPin,
		req.MockOpenAIModels, req.MockXAIModels)
}

// fanout dispatches one task per channel on a bounded pool. Tasks never
// return an error to the group: a provider failure is isolated to its
// own result so siblings keep running.
func (o *Orchestrator) fanout(ctx context.Context, req Request, res Resolution, sel registry.Selection, sink ProgressSink) map[brief.Channel]*channelResult {
	results := make(map[brief.Channel]*channelResult, len(res.Channels))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutLimit)

	for _, ch := range res.Channels {
		ch := ch
		g.Go(func() error {
			sink.StartChannel(ch)
			taskCtx, cancel := context.WithTimeout(gctx, req.Sampling.Timeout(ch))
			items, err := o.searchChannel(taskCtx, ch, req, sel)
			cancel()
			mu.Lock()
			results[ch] = &channelResult{items: items, err: err}
			mu.Unlock()
			outcome := "ok"
			if err != nil {
				outcome = "error"
				sink.ShowError(fmt.Sprintf("%s: %v", ch, err))
			}
			o.metrics.ProviderCalls.WithLabelValues(string(ch), outcome).Inc()
			sink.EndChannel(ch, len(items))
			return nil
		})
	}
	_ = g.Wait()

	for _, ch := range res.Channels {
		if results[ch] == nil {
			results[ch] = &channelResult{}
		}
	}
	return results
}

func (o *Orchestrator) searchChannel(ctx context.Context, ch brief.Channel, req Request, sel registry.Selection) ([]brief.Signal, error) {
	topic, start, end := req.Topic, req.Span.Start, req.Span.End
	switch ch {
	case brief.ChannelReddit:
		raw, err := o.deps.SearchReddit(ctx, o.creds.OpenAIKey, sel.OpenAI, topic, start, end, req.Sampling, req.Mock)
		if err != nil {
			return nil, err
		}
		return signalsFromReddit(providers.ParseReddit(raw)), nil
	case brief.ChannelX:
		raw, err := o.deps.SearchX(ctx, o.creds.XAIKey, sel.XAI, topic, start, end, req.Sampling, req.Mock)
		if err != nil {
			return nil, err
		}
		return signalsFromX(providers.ParseX(raw)), nil
	case brief.ChannelYouTube:
		raw, err := o.deps.SearchYouTube(ctx, o.creds.OpenAIKey, sel.OpenAI, topic, start, end, req.Sampling, req.Mock)
		if err != nil {
			return nil, err
		}
		return signalsFromYouTube(providers.ParseYouTube(raw)), nil
	case brief.ChannelLinkedIn:
		raw, err := o.deps.SearchLinkedIn(ctx, o.creds.OpenAIKey, sel.OpenAI, topic, start, end, req.Sampling, req.Mock)
		if err != nil {
			return nil, err
		}
		return signalsFromLinkedIn(providers.ParseLinkedIn(raw)), nil
	default:
		return nil, fmt.Errorf("channel %s has no provider", ch)
	}
}

func signalsFromReddit(threads []providers.RedditThread) []brief.Signal {
	out := make([]brief.Signal, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.Signal())
	}
	return out
}

func signalsFromX(posts []providers.XPost) []brief.Signal {
	out := make([]brief.Signal, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Signal())
	}
	return out
}

func signalsFromYouTube(videos []providers.YouTubeVideo) []brief.Signal {
	out := make([]brief.Signal, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.Signal())
	}
	return out
}

func signalsFromLinkedIn(posts []providers.LinkedInPost) []brief.Signal {
	out := make([]brief.Signal, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Signal())
	}
	return out
}

// enrichReddit runs sequential thread fetches after the concurrent
// fan-out; each failure passes the item through un-enriched.
func (o *Orchestrator) enrichReddit(ctx context.Context, req Request, items []brief.Signal, sink ProgressSink) {
	var redditIdx []int
	for i := range items {
		if items[i].Channel == brief.ChannelReddit {
			redditIdx = append(redditIdx, i)
		}
	}
	if len(redditIdx) == 0 {
		return
	}
	fixture := ""
	if req.Mock {
		fixture = filepath.Join(o.deps.FixturesDir, "reddit_thread_sample.json")
	}
	enricher := enrich.New(o.deps.Client, o.logger, fixture)

	sink.StartEnrich(len(redditIdx))
	for n, i := range redditIdx {
		sink.UpdateEnrich(n+1, len(redditIdx))
		if err := enricher.Enrich(ctx, &items[i]); err != nil {
			sink.ShowError(fmt.Sprintf("enrich %s: %v", items[i].Key, err))
			o.logger.Debug().Err(err).Str("key", items[i].Key).Msg("enrichment failed")
		}
	}
	sink.EndEnrich()
}

// normalize assigns time confidence and applies the hard date filter.
func (o *Orchestrator) normalize(items []brief.Signal, req Request) []brief.Signal {
	out := items[:0]
	for _, item := range items {
		if item.Channel != brief.ChannelWeb {
			if item.Dated == "" {
				item.TimeConfidence = timeframe.ConfidenceUnknown
			} else {
				item.TimeConfidence = timeframe.DateConfidence(item.Dated, req.Span.Start, req.Span.End)
			}
		}
		if item.Dated != "" && !req.Span.Contains(item.Dated) {
			continue
		}
		if item.Dated == "" && req.ExcludeUndated {
			continue
		}
		out = append(out, item)
	}
	return out
}

// score ranks per channel, deduplicates, applies stance weights, and
// fixes the global order.
func (o *Orchestrator) score(items []brief.Signal, b *brief.Brief) []brief.Signal {
	byChannel := map[brief.Channel][]int{}
	for i := range items {
		byChannel[items[i].Channel] = append(byChannel[items[i].Channel], i)
	}
	for ch, idx := range byChannel {
		batch := make([]brief.Signal, len(idx))
		for n, i := range idx {
			batch[n] = items[i]
		}
		if ch == brief.ChannelWeb {
			rank.ScoreWeb(batch)
		} else {
			rank.ScorePlatform(batch)
		}
		for n, i := range idx {
			items[i] = batch[n]
		}
	}

	items = rank.Deduplicate(items, o.dedupThreshold)
	rank.ApplyStanceWeights(items, intent.StanceWeights(b.Intent.EpistemicStance))
	rank.SortGlobal(items)
	return items
}
