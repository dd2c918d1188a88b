// Package pipeline runs contract assessments end to end: document intake,
// model calls, background checks, extraction, scoring and storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/covenant/internal/document"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/logging"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/score"
	"github.com/ppiankov/covenant/internal/search"
	"github.com/ppiankov/covenant/internal/store"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	keyDocumentType   = "document_type"
	keySellerCompany  = "seller_company"
	keyExplanations   = "dimension_explanations"
	keyRecommendation = "overall_recommendation"
)

// Options wires a Pipeline
type Options struct {
	Store    store.Store
	Provider llm.Provider
	Checker  *search.BackgroundChecker
	Scorer   *score.Scorer

	// Fetcher enables IngestURL, nil disables it
	Fetcher *Fetcher

	// MaxUploadBytes rejects larger uploads, 0 disables the check
	MaxUploadBytes int64

	Logger *zap.Logger
}

// Pipeline orchestrates assessments against one store
type Pipeline struct {
	store     store.Store
	provider  llm.Provider
	checker   *search.BackgroundChecker
	scorer    *score.Scorer
	fetcher   *Fetcher
	extractor *extract.JSONExtractor
	maxBytes  int64
	logger    *zap.Logger
	inflight  *inflight

	now   func() time.Time
	newID func() string
}

// ErrNoProvider is returned by operations that need a model when the
// pipeline was built without one
var ErrNoProvider = errors.New("no LLM provider configured")

// New creates a pipeline. Store and Scorer are required. Without a Provider
// only duplicate lookups, rescoring and record management work.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, eris.New("pipeline needs a store")
	}
	if opts.Scorer == nil {
		return nil, eris.New("pipeline needs a scorer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := opts.Checker
	if checker == nil {
		checker = search.NewBackgroundChecker(nil, logger)
	}

	return &Pipeline{
		store:     opts.Store,
		provider:  opts.Provider,
		checker:   checker,
		scorer:    opts.Scorer,
		fetcher:   opts.Fetcher,
		extractor: extract.NewJSONExtractor(),
		maxBytes:  opts.MaxUploadBytes,
		logger:    logger.Named("pipeline"),
		inflight:  newInflight(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// Ingest assesses an uploaded document and stores the result. Re-uploading
// identical bytes returns the existing record marked as a duplicate and
// never calls the model.
func (p *Pipeline) Ingest(ctx context.Context, name string, data []byte) (*model.IngestResult, error) {
	log := p.logger.With(zap.String("filename", name))

	doc, err := document.Load(name, data, p.maxBytes)
	if err != nil {
		return nil, stageErr(StageDocument, err)
	}

	hash := store.HashContent(data)
	release, err := p.inflight.acquire(ctx, hash)
	if err != nil {
		return nil, stageErr(StageStorage, err)
	}
	defer release()

	existing, err := p.store.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		log.Info("duplicate upload", zap.String("contract_id", existing.ID))
		return &model.IngestResult{Record: existing, Duplicate: true}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, stageErr(StageStorage, err)
	}

	if p.provider == nil {
		return nil, stageErr(StageLLM, ErrNoProvider)
	}

	target := assessTarget{text: doc.Text}
	var fileID *string
	if doc.NeedsUpload() {
		handle, err := p.provider.UploadDocument(ctx, doc.Name, doc.MIMEType, doc.Data)
		if errors.Is(err, llm.ErrUploadUnsupported) {
			return nil, stageErr(StageDocument, eris.Wrapf(err, "%s files need a provider with document upload (%s has none)", doc.Kind, p.provider.Name()))
		}
		if err != nil {
			return nil, stageErr(StageLLM, err)
		}
		fileID = &handle
		target = assessTarget{fileID: handle, mimeType: doc.MIMEType}
	}

	identity, err := p.identify(ctx, target)
	if err != nil {
		return nil, err
	}
	docType := stringField(identity, keyDocumentType)
	seller := stringField(identity, keySellerCompany)

	companyData, err := p.runChecks(ctx, seller)
	if err != nil {
		return nil, err
	}

	a, err := p.assess(ctx, target, docType, seller, companyData)
	if err != nil {
		return nil, err
	}

	rec := &model.ContractRecord{
		ID:                    p.newID(),
		FileHash:              hash,
		FileID:                fileID,
		Filename:              doc.Name,
		Uploaded:              p.now(),
		Dimensions:            a.dims,
		DimensionExplanations: a.narratives,
		Recommendation:        a.recommendation,
		DocumentType:          docType,
		SellerCompany:         seller,
		RawData:               a.raw,
		CompanyData:           companyData,
	}
	rec.ApplyScore(a.score)

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, stageErr(StageStorage, err)
	}

	log.Info("contract assessed",
		zap.String("contract_id", rec.ID),
		zap.Int("health_score", rec.HealthScore),
		zap.String("tier", string(rec.HealthTier)),
		zap.Bool("circuit_breaker", rec.ScoreBreakdown.CircuitBreaker),
	)
	return &model.IngestResult{Record: rec}, nil
}

// IngestFile reads a file from disk and ingests it
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*model.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stageErr(StageDocument, eris.Wrapf(err, "read %s", path))
	}
	return p.Ingest(ctx, filepath.Base(path), data)
}

// IngestURL downloads a contract and ingests it
func (p *Pipeline) IngestURL(ctx context.Context, rawURL string) (*model.IngestResult, error) {
	if p.fetcher == nil {
		return nil, stageErr(StageDocument, eris.New("fetching contracts by URL is disabled"))
	}
	doc, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, stageErr(StageDocument, err)
	}
	p.logger.Debug("contract downloaded",
		zap.String("url", doc.FinalURL),
		zap.String("content_type", doc.ContentType),
		zap.Int("bytes", len(doc.Data)),
	)
	return p.Ingest(ctx, doc.Name, doc.Data)
}

// UpdateSeller revises the counterparty, reruns background checks and
// re-scores. A record whose document is held by the provider is fully
// re-assessed; otherwise only company data and the seller name change and
// the score is recomputed from the stored dimensions.
func (p *Pipeline) UpdateSeller(ctx context.Context, id, seller string) (*model.ContractRecord, error) {
	seller = strings.TrimSpace(seller)
	if seller == "" {
		return nil, stageErr(StageValidation, eris.New("seller company must not be empty"))
	}

	rec, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, stageErr(StageStorage, err)
	}
	log := p.logger.With(zap.String("contract_id", id))

	if rec.HasExternalDocument() && p.provider == nil {
		return nil, stageErr(StageLLM, ErrNoProvider)
	}

	companyData, err := p.runChecks(ctx, seller)
	if err != nil {
		return nil, err
	}

	if rec.HasExternalDocument() {
		target := assessTarget{fileID: *rec.FileID, mimeType: mimeFor(rec.Filename)}
		a, err := p.assess(ctx, target, rec.DocumentType, seller, companyData)
		if err != nil {
			return nil, err
		}
		rec.Dimensions = a.dims
		rec.DimensionExplanations = a.narratives
		rec.Recommendation = a.recommendation
		rec.RawData = a.raw
		rec.ApplyScore(a.score)
		log.Info("contract re-assessed for new seller", zap.String("seller", seller))
	} else {
		s, err := p.scorer.Score(rec.Dimensions)
		if err != nil {
			return nil, stageErr(StageValidation, err)
		}
		rec.ApplyScore(s)
		log.Info("seller updated without re-assessment", zap.String("seller", seller))
	}

	rec.SellerCompany = seller
	rec.CompanyData = companyData
	updated := p.now()
	rec.Updated = &updated

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, stageErr(StageStorage, err)
	}
	return rec, nil
}

// Rescore recomputes the score of a stored record from its dimensions with
// the current weights
func (p *Pipeline) Rescore(ctx context.Context, id string) (*model.ContractRecord, error) {
	rec, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, stageErr(StageStorage, err)
	}

	s, err := p.scorer.Score(rec.Dimensions)
	if err != nil {
		return nil, stageErr(StageValidation, err)
	}
	rec.ApplyScore(s)
	updated := p.now()
	rec.Updated = &updated

	if err := p.store.Upsert(ctx, rec); err != nil {
		return nil, stageErr(StageStorage, err)
	}
	return rec, nil
}

// Get returns one record
func (p *Pipeline) Get(ctx context.Context, id string) (*model.ContractRecord, error) {
	rec, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, stageErr(StageStorage, err)
	}
	return rec, nil
}

// List returns every record summary ordered by upload date
func (p *Pipeline) List(ctx context.Context) ([]model.ContractSummary, error) {
	out, err := p.store.ListSummaries(ctx)
	if err != nil {
		return nil, stageErr(StageStorage, err)
	}
	return out, nil
}

// Delete removes a record. A missing record is reported as store.ErrNotFound.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	deleted, err := p.store.DeleteByID(ctx, id)
	if err != nil {
		return stageErr(StageStorage, err)
	}
	if !deleted {
		return stageErr(StageStorage, eris.Wrapf(store.ErrNotFound, "contract %s", id))
	}
	p.logger.Info("contract deleted", zap.String("contract_id", id))
	return nil
}

// assessTarget is either an uploaded handle or inline text
type assessTarget struct {
	fileID   string
	mimeType string
	text     string
}

func (t assessTarget) request(prompt string) llm.GenerateRequest {
	return llm.GenerateRequest{
		System:       llm.SystemPrompt,
		Prompt:       prompt,
		DocumentText: t.text,
		FileID:       t.fileID,
		FileMIMEType: t.mimeType,
		JSON:         true,
	}
}

type assessment struct {
	dims           model.DimensionSet
	narratives     model.Narratives
	recommendation string
	raw            map[string]any
	score          model.Score
}

func (p *Pipeline) identify(ctx context.Context, target assessTarget) (map[string]any, error) {
	return p.generateObject(ctx, target.request(llm.IdentifyPrompt()), "identify")
}

func (p *Pipeline) assess(ctx context.Context, target assessTarget, docType, seller string, cd model.CompanyData) (*assessment, error) {
	prompt := llm.AssessPrompt(docType, seller, search.Digest(cd))
	obj, err := p.generateObject(ctx, target.request(prompt), "assess")
	if err != nil {
		return nil, err
	}

	dims, err := score.ParseDimensions(obj)
	if err != nil {
		return nil, stageErr(StageValidation, err)
	}
	s, err := p.scorer.Score(dims)
	if err != nil {
		return nil, stageErr(StageValidation, err)
	}

	if _, ok := obj[keyDocumentType]; !ok && docType != "" {
		obj[keyDocumentType] = docType
	}
	if _, ok := obj[keySellerCompany]; !ok && seller != "" {
		obj[keySellerCompany] = seller
	}

	return &assessment{
		dims:           dims,
		narratives:     parseNarratives(obj),
		recommendation: stringField(obj, keyRecommendation),
		raw:            obj,
		score:          s,
	}, nil
}

// generateObject calls the model and extracts one JSON object from its reply
func (p *Pipeline) generateObject(ctx context.Context, req llm.GenerateRequest, pass string) (map[string]any, error) {
	start := time.Now()
	resp, err := p.provider.Generate(ctx, req)
	if err != nil {
		return nil, stageErr(StageLLM, eris.Wrapf(err, "%s pass", pass))
	}

	obj, strategy, err := p.extractor.ExtractWithStrategy(resp.Text)
	if err != nil {
		p.logger.Warn("unparseable model response",
			zap.String("pass", pass),
			zap.String("provider", p.provider.Name()),
			logging.Err(err),
		)
		return nil, stageErr(StageExtraction, err)
	}

	p.logger.Debug("model response parsed",
		zap.String("pass", pass),
		zap.String("strategy", string(strategy)),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("took", time.Since(start)),
	)
	return obj, nil
}

func (p *Pipeline) runChecks(ctx context.Context, seller string) (model.CompanyData, error) {
	cd, err := p.checker.Run(ctx, seller)
	if err != nil {
		return model.CompanyData{}, stageErr(StageBackground, err)
	}
	return cd, nil
}

func parseNarratives(obj map[string]any) model.Narratives {
	m, _ := obj[keyExplanations].(map[string]any)
	return model.Narratives{
		DestructionRisk:    stringField(m, model.KeyDestructionRisk),
		MutualAdvantage:    stringField(m, model.KeyMutualAdvantage),
		AttritionDepth:     stringField(m, model.KeyAttritionDepth),
		StrategicPotential: stringField(m, model.KeyStrategicPotential),
	}
}

// stringField reads a text value, rendering non-strings and ignoring nulls
func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

func mimeFor(name string) string {
	if _, mime, err := document.Classify(name); err == nil {
		return mime
	}
	return "application/pdf"
}
