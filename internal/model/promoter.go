// Package model defines the records exchanged with the promoter backend.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PromoterStatus is the lifecycle state of a promoter.
type PromoterStatus string

const (
	StatusActive    PromoterStatus = "active"
	StatusInactive  PromoterStatus = "inactive"
	StatusPending   PromoterStatus = "pending"
	StatusSuspended PromoterStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s PromoterStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

// ParseStatus parses a status, case-insensitively.
func ParseStatus(s string) (PromoterStatus, error) {
	st := PromoterStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", eris.Errorf("invalid input: unknown promoter status %q", s)
	}
	return st, nil
}

// Promoter is a promoter record as stored in the promoters table.
type Promoter struct {
	ID                 string         `json:"id"`
	NameEN             string         `json:"name_en"`
	NameAR             string         `json:"name_ar"`
	IDCardNumber       string         `json:"id_card_number"`
	PassportNumber     string         `json:"passport_number,omitempty"`
	IDCardExpiryDate   *Date          `json:"id_card_expiry_date,omitempty"`
	PassportExpiryDate *Date          `json:"passport_expiry_date,omitempty"`
	EmployerID         string         `json:"employer_id,omitempty"`
	Email              string         `json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	MobileNumber       string         `json:"mobile_number,omitempty"`
	Nationality        string         `json:"nationality,omitempty"`
	WorkLocation       string         `json:"work_location,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	Status             PromoterStatus `json:"status"`
	CreatedAt          *time.Time     `json:"created_at,omitempty"`
	UpdatedAt          *time.Time     `json:"updated_at,omitempty"`

	// Derived per read; not a column.
	ActiveContractsCount int `json:"active_contracts_count"`
}

// PromoterInput carries the writable fields for creating a promoter.
type PromoterInput struct {
	NameEN             string         `json:"name_en"`
	NameAR             string         `json:"name_ar"`
	IDCardNumber       string         `json:"id_card_number"`
	PassportNumber     string         `json:"passport_number,omitempty"`
	IDCardExpiryDate   *Date          `json:"id_card_expiry_date,omitempty"`
	PassportExpiryDate *Date          `json:"passport_expiry_date,omitempty"`
	EmployerID         string         `json:"employer_id,omitempty"`
	Email              string         `json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	MobileNumber       string         `json:"mobile_number,omitempty"`
	Nationality        string         `json:"nationality,omitempty"`
	WorkLocation       string         `json:"work_location,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	Status             PromoterStatus `json:"status,omitempty"`
}

// Validate checks required fields. Errors use the "invalid input" wording so
// the classifier never retries them.
func (in PromoterInput) Validate() error {
	if strings.TrimSpace(in.NameEN) == "" {
		return eris.New("invalid input: name_en is required")
	}
	if strings.TrimSpace(in.IDCardNumber) == "" {
		return eris.New("invalid input: id_card_number is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return eris.Errorf("invalid input: unknown promoter status %q", in.Status)
	}
	return nil
}

// PromoterAnalytics is a promoter row enriched by the analytics procedure.
type PromoterAnalytics struct {
	Promoter
	OverallStatus        string   `json:"overall_status"`
	IDCardStatus         string   `json:"id_card_status"`
	PassportStatus       string   `json:"passport_status"`
	TotalContracts       int      `json:"total_contracts"`
	ActiveContracts      int      `json:"active_contracts"`
	CompletedContracts   int      `json:"completed_contracts"`
	TotalContractValue   float64  `json:"total_contract_value"`
	DaysUntilIDExpiry    *int     `json:"days_until_id_expiry,omitempty"`
	DaysUntilPassportExp *int     `json:"days_until_passport_expiry,omitempty"`
	PerformanceScore     *float64 `json:"performance_score,omitempty"`
}

// PerformanceStats is the fixed-shape aggregate for the promoter dashboard.
type PerformanceStats struct {
	TotalPromoters          int     `json:"total_promoters"`
	ActivePromoters         int     `json:"active_promoters"`
	InactivePromoters       int     `json:"inactive_promoters"`
	CriticalStatusCount     int     `json:"critical_status_count"`
	WarningStatusCount      int     `json:"warning_status_count"`
	TotalContracts          int     `json:"total_contracts"`
	TotalContractValue      float64 `json:"total_contract_value"`
	AverageContractDuration float64 `json:"average_contract_duration"`
	UtilizationRate         float64 `json:"utilization_rate"`
}

// ImportResult is the envelope returned by the bulk-import job.
type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Total    int      `json:"total"`
}
