package model

import "time"

// ContractRecord is the persisted unit. Field names are part of the storage
// format and must stay stable.
type ContractRecord struct {
	ID string `json:"contract_id"`

	// FileHash is the SHA-256 of the uploaded bytes and never changes
	FileHash string `json:"file_hash"`

	// FileID is the provider-side document handle, nil for locally extracted text
	FileID *string `json:"file_id"`

	Filename string     `json:"filename"`
	Uploaded time.Time  `json:"upload_date"`
	Updated  *time.Time `json:"last_updated"`

	HealthScore     int            `json:"health_score"`
	HealthTier      Tier           `json:"health_tier"`
	HealthTierLabel string         `json:"health_tier_label"`
	ScoreBreakdown  ScoreBreakdown `json:"score_breakdown"`

	Dimensions            DimensionSet `json:"health_dimensions"`
	DimensionExplanations Narratives   `json:"dimension_explanations"`
	Recommendation        string       `json:"overall_recommendation"`

	DocumentType  string         `json:"document_type"`
	SellerCompany string         `json:"seller_company"`
	RawData       map[string]any `json:"raw_data,omitempty"`
	CompanyData   CompanyData    `json:"company_data"`
}

// ApplyScore copies a scoring result onto the record
func (r *ContractRecord) ApplyScore(s Score) {
	r.HealthScore = s.Final
	r.HealthTier = s.Tier
	r.HealthTierLabel = s.TierLabel
	r.ScoreBreakdown = s.Breakdown
}

// HasExternalDocument reports whether the record can be re-assessed against
// the original document held by the inference provider
func (r *ContractRecord) HasExternalDocument() bool {
	return r.FileID != nil && *r.FileID != ""
}

// Summary projects the record into its lightweight list form
func (r *ContractRecord) Summary() ContractSummary {
	return ContractSummary{
		ID:              r.ID,
		Filename:        r.Filename,
		SellerCompany:   r.SellerCompany,
		DocumentType:    r.DocumentType,
		HealthScore:     r.HealthScore,
		HealthTier:      r.HealthTier,
		HealthTierLabel: r.HealthTierLabel,
		Uploaded:        r.Uploaded,
		Updated:         r.Updated,
	}
}

// ContractSummary is the list projection of a record. It never carries the
// narratives or background payloads.
type ContractSummary struct {
	ID              string     `json:"contract_id"`
	Filename        string     `json:"filename"`
	SellerCompany   string     `json:"seller_company"`
	DocumentType    string     `json:"document_type"`
	HealthScore     int        `json:"health_score"`
	HealthTier      Tier       `json:"health_tier"`
	HealthTierLabel string     `json:"health_tier_label"`
	Uploaded        time.Time  `json:"upload_date"`
	Updated         *time.Time `json:"last_updated"`
}

// CompanyData groups the background-check results gathered for the seller
type CompanyData struct {
	Profile                *BackgroundResult `json:"profile"`
	Customs                *BackgroundResult `json:"customs"`
	Legal                  *BackgroundResult `json:"legal"`
	ResponsiblePerson      *BackgroundResult `json:"responsible_person"`
	ResponsiblePersonLegal *BackgroundResult `json:"responsible_person_legal"`
}

// IsEmpty reports whether no background check has been recorded
func (c CompanyData) IsEmpty() bool {
	return c.Profile == nil && c.Customs == nil && c.Legal == nil &&
		c.ResponsiblePerson == nil && c.ResponsiblePersonLegal == nil
}

// BackgroundResult is the opaque payload returned by one search query
type BackgroundResult struct {
	Query     string      `json:"query"`
	Answer    string      `json:"answer,omitempty"`
	Hits      []SearchHit `json:"results"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// SearchHit is a single search result
type SearchHit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// IngestResult is the outcome of a single upload. A duplicate upload is a
// successful result carrying the existing record.
type IngestResult struct {
	Record    *ContractRecord `json:"record"`
	Duplicate bool            `json:"duplicate"`
}
