package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"media-json/internal/document"
	"media-json/internal/logging"
	"media-json/internal/media"
	"media-json/internal/mediatypes"
	"media-json/internal/metrics"
	"media-json/internal/namespace"
	"media-json/internal/ratiocache"
	"media-json/internal/source"
	"media-json/internal/tree"

	"github.com/google/uuid"
)

// RunState tracks what one run has seen.
type RunState struct {
	// Observed counts assets that entered processing. A run with zero
	// observed assets produces no document.
	Observed int
	// Skipped counts null assets (directories).
	Skipped  int
	Rejected int
	ByType   map[mediatypes.AssetType]int

	DecodeFailures int
	EncodeFailures int
	// LastPath is the path of the last observed asset.
	LastPath string
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	// Document is nil when no asset was observed.
	Document     []byte
	State        RunState
	Placeholders int
	Warnings     []Issue
	Errors       []Issue
	Started      time.Time
	Duration     time.Duration
}

// Empty reports whether the run produced no document.
func (r *Result) Empty() bool {
	return r.Document == nil
}

// RunContext owns everything a single run mutates: the aggregation tree, the
// ratio cache and the run state. Nothing is shared between runs.
type RunContext struct {
	ID    string
	Tree  *tree.Node
	Cache *ratiocache.Cache
	State RunState

	opts       Options
	warnings   []Issue
	errors     []Issue
	ratioOrder []string
	ratioSeen  map[string]struct{}
	started    time.Time
}

// NewRunContext prepares a run. The start object is cloned so the same
// Options can be reused across runs.
func NewRunContext(opts Options) *RunContext {
	opts.normalize()

	root := tree.New()
	if opts.StartObj != nil {
		root = opts.StartObj.Clone()
	}

	return &RunContext{
		ID:        uuid.NewString(),
		Tree:      root,
		Cache:     ratiocache.New(),
		State:     RunState{ByType: make(map[mediatypes.AssetType]int)},
		opts:      opts,
		ratioSeen: make(map[string]struct{}),
		started:   time.Now(),
	}
}

type job struct {
	asset     source.Asset
	key       namespace.Key
	path      []string
	assetType mediatypes.AssetType
	measure   bool
	// existing is how many objects along the key's parent path were in
	// the tree before the record was installed.
	existing int
}

type measurement struct {
	md        media.Metadata
	payload   string
	decodeErr error
	encodeErr error
}

// Process runs one asset through every stage: classification and the
// namespace record first, then decoding and the placeholder, then the image
// fields. A failing asset never fails the run; only a canceled context does.
func (rc *RunContext) Process(ctx context.Context, asset source.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j, ok := rc.prepare(asset)
	if !ok {
		return nil
	}
	rc.install(j)

	var m measurement
	if j.measure {
		if err := rc.waitForMemory(ctx); err != nil {
			return err
		}
		m = rc.measure(ctx, j)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	rc.complete(j, m)
	return nil
}

func (rc *RunContext) waitForMemory(ctx context.Context) error {
	if rc.opts.Backpressure == nil {
		return nil
	}
	return rc.opts.Backpressure.Wait(ctx)
}

// prepare classifies the asset and computes its key. It reports false for
// assets that need no further work.
func (rc *RunContext) prepare(asset source.Asset) (*job, bool) {
	if asset.IsNull() {
		rc.State.Skipped++
		logging.Debug("Skipping null asset %s", asset.Path)
		return nil, false
	}

	mimeType := asset.MimeType
	if mimeType == "" {
		mimeType = mediatypes.LookupMimeType(asset.Base)
	}
	assetType := mediatypes.Classify(mimeType)

	if asset.IsStream() {
		rc.State.Rejected++
		metrics.AssetsTotal.WithLabelValues(string(assetType), "rejected").Inc()
		rc.fail(Issue{Path: asset.Path, Err: &UnsupportedInputError{Path: asset.Path}})
		return nil, false
	}

	rc.State.Observed++
	rc.State.LastPath = asset.Path
	rc.State.ByType[assetType]++

	key := namespace.Build(asset.Dir, rc.opts.BasePath, asset.Stem, asset.Ext, rc.opts.Escape)
	path := key.Segments()
	if len(path) == 0 {
		metrics.AssetsTotal.WithLabelValues(string(assetType), "skipped").Inc()
		rc.warn(Issue{Path: asset.Path, Err: ErrEmptyNamespace})
		return nil, false
	}

	if asset.MimeType == "" {
		asset.MimeType = mimeType
	}
	return &job{
		asset:     asset,
		key:       key,
		path:      path,
		assetType: assetType,
		measure:   assetType == mediatypes.AssetTypeImage && rc.opts.ImageInfo,
	}, true
}

// install writes the fields known without decoding.
func (rc *RunContext) install(j *job) {
	j.existing = tree.Depth(rc.Tree, j.path[:len(j.path)-1])
	rec := rc.record(j)
	f := rc.opts.Fields
	a := j.asset

	if f.Src {
		rec.Put("src", namespace.SourcePath(a.Dir, rc.opts.BasePath, a.Base))
	}
	if f.Ext {
		rec.Put("ext", strings.TrimPrefix(a.Ext, "."))
	}
	if f.Mime {
		rec.Put("mime", a.MimeType)
	}
	if f.Type {
		rec.Put("type", string(j.assetType))
	}
}

// measure decodes the image and fetches its placeholder. It only touches
// the decoder and the ratio cache, so jobs may be measured concurrently.
func (rc *RunContext) measure(ctx context.Context, j *job) measurement {
	a := j.asset
	md, err := media.Extract(ctx, rc.opts.Decoder, media.Input{
		Path:    a.Path,
		Reader:  a.ReadSeeker(),
		Size:    a.Size,
		ModTime: a.ModTime,
	})
	if err != nil {
		return measurement{decodeErr: &DecodeError{Path: a.Path, Err: err}}
	}

	m := measurement{md: md}
	if !rc.opts.Placeholder {
		return m
	}

	payload, err := rc.Cache.GetOrCreate(ctx, md.Ratio, rc.opts.Encoder.Encode)
	if err != nil {
		m.encodeErr = &EncodeError{Path: a.Path, Ratio: md.Ratio.Key(), Err: err}
		return m
	}
	m.payload = payload
	return m
}

// complete applies a measurement to the tree in input order.
func (rc *RunContext) complete(j *job, m measurement) {
	typ := string(j.assetType)

	if m.decodeErr != nil {
		tree.DeletePath(rc.Tree, j.path, j.existing)
		rc.State.DecodeFailures++
		metrics.AssetsTotal.WithLabelValues(typ, "decode_error").Inc()
		rc.warn(Issue{Path: j.asset.Path, Key: j.key, Err: m.decodeErr})
		return
	}
	metrics.AssetsTotal.WithLabelValues(typ, "ok").Inc()
	if !j.measure {
		logging.Debug("Recorded %s as %s (%s)", j.asset.Path, j.key, typ)
		return
	}

	rec := rc.record(j)
	f := rc.opts.Fields
	md := m.md
	if f.W {
		rec.Put("w", md.Width)
	}
	if f.H {
		rec.Put("h", md.Height)
	}
	if f.Ratio {
		rec.Put("ratio", md.Ratio.Key())
	}
	if f.RatioValue {
		rec.Put("ratioValue", media.RoundTo(md.RatioValue, rc.opts.RatioValueTrim))
	}

	switch {
	case m.encodeErr != nil:
		rc.State.EncodeFailures++
		rc.warn(Issue{Path: j.asset.Path, Key: j.key, Err: m.encodeErr})
	case m.payload != "":
		ratioKey := md.Ratio.Key()
		if rc.opts.PlaceholderNamespace != "" {
			rec.Put("empty", ratioKey)
		} else {
			rec.Put("empty", m.payload)
		}
		if _, ok := rc.ratioSeen[ratioKey]; !ok {
			rc.ratioSeen[ratioKey] = struct{}{}
			rc.ratioOrder = append(rc.ratioOrder, ratioKey)
		}
	}

	logging.Debug("Recorded %s as %s (%dx%d, %s)", j.asset.Path, j.key, md.Width, md.Height, md.Ratio.Key())
}

// record returns the asset's node, replacing any non-object value found at
// its key.
func (rc *RunContext) record(j *job) *tree.Node {
	if rec, ok := tree.GetOrInsert(rc.Tree, j.path, tree.New()).(*tree.Node); ok {
		return rec
	}
	rec := tree.New()
	tree.SetPath(rc.Tree, j.path, rec)
	return rec
}

func (rc *RunContext) warn(issue Issue) {
	rc.warnings = append(rc.warnings, issue)
	metrics.WarningsTotal.WithLabelValues(issueKind(issue.Err)).Inc()
	logging.Warn("%v", issue)
	if rc.opts.Reporter != nil {
		rc.opts.Reporter.Warning(issue)
	}
}

func (rc *RunContext) fail(issue Issue) {
	rc.errors = append(rc.errors, issue)
	metrics.ErrorsTotal.WithLabelValues(issueKind(issue.Err)).Inc()
	logging.Error("%v", issue)
	if rc.opts.Reporter != nil {
		rc.opts.Reporter.Error(issue)
	}
}

// Finish appends the end object and the placeholder table and serializes
// the document. It produces no document when no asset was observed.
func (rc *RunContext) Finish() (*Result, error) {
	res := &Result{
		RunID:        rc.ID,
		State:        rc.State,
		Placeholders: rc.Cache.Len(),
		Warnings:     rc.warnings,
		Errors:       rc.errors,
		Started:      rc.started,
	}

	if rc.State.Observed == 0 {
		res.Duration = time.Since(rc.started)
		logging.Info("Run %s observed no assets, no document produced", rc.ID)
		return res, nil
	}

	if rc.opts.EndObj != nil {
		tree.Merge(rc.Tree, rc.opts.EndObj.Clone())
	}
	if rc.opts.Placeholder && rc.opts.PlaceholderNamespace != "" && len(rc.ratioOrder) > 0 {
		// Entries come in generation order, which varies with the worker
		// count; the table follows first use in input order instead.
		payloads := make(map[string]string, rc.Cache.Len())
		for _, e := range rc.Cache.Entries() {
			payloads[e.Key] = e.Payload
		}
		table := tree.New()
		for _, key := range rc.ratioOrder {
			if payload, ok := payloads[key]; ok {
				table.Put(key, payload)
			}
		}
		tree.SetPath(rc.Tree, namespace.Key(rc.opts.PlaceholderNamespace).Segments(), table)
	}

	doc, err := document.Serialize(rc.Tree, rc.opts.Document)
	if err != nil {
		return nil, err
	}
	res.Document = doc
	res.Duration = time.Since(rc.started)

	metrics.RunDuration.Observe(res.Duration.Seconds())
	metrics.LastRunAssets.Set(float64(rc.State.Observed))
	metrics.DocumentBytes.Set(float64(len(doc)))

	logging.Info("Run %s: %d assets, %d placeholders (%d generated), %d warnings, %d errors in %v",
		rc.ID, rc.State.Observed, res.Placeholders, rc.Cache.Generations(), len(res.Warnings), len(res.Errors), res.Duration)
	return res, nil
}

// IsCanceled reports whether err stems from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
