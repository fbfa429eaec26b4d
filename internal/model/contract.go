package model

import "time"

// Contract is the subset of contract columns read by promoter views.
type Contract struct {
	ID             string     `json:"id"`
	ContractNumber string     `json:"contract_number,omitempty"`
	PromoterID     string     `json:"promoter_id"`
	Status         string     `json:"status"`
	StartDate      *Date      `json:"start_date,omitempty"`
	EndDate        *Date      `json:"end_date,omitempty"`
	ContractValue  *float64   `json:"contract_value,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// ActivitySummary is a promoter's contract count with the latest contracts.
type ActivitySummary struct {
	TotalContracts  int        `json:"total_contracts"`
	RecentContracts []Contract `json:"recent_contracts"`
}

// Skill is a row of promoter_skills.
type Skill struct {
	ID         string `json:"id"`
	PromoterID string `json:"promoter_id"`
	Skill      string `json:"skill"`
	Level      string `json:"level,omitempty"`
}

// Experience is a row of promoter_experience.
type Experience struct {
	ID          string `json:"id"`
	PromoterID  string `json:"promoter_id"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	StartDate   *Date  `json:"start_date,omitempty"`
	EndDate     *Date  `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is a row of promoter_education.
type Education struct {
	ID          string `json:"id"`
	PromoterID  string `json:"promoter_id"`
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        *int   `json:"year,omitempty"`
}

// Document is a row of promoter_documents.
type Document struct {
	ID           string     `json:"id"`
	PromoterID   string     `json:"promoter_id"`
	DocumentType string     `json:"document_type"`
	FileName     string     `json:"file_name,omitempty"`
	FileURL      string     `json:"file_url,omitempty"`
	UploadedOn   *time.Time `json:"uploaded_on,omitempty"`
}

// CVData groups the CV sub-resources of a promoter. Each slice is non-nil.
type CVData struct {
	Skills     []Skill      `json:"skills"`
	Experience []Experience `json:"experience"`
	Education  []Education  `json:"education"`
	Documents  []Document   `json:"documents"`
}
