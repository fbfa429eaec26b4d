package model

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samber/mo"
)

// DocumentStatus selects promoters by the state of their identity documents.
type DocumentStatus string

const (
	DocumentExpired  DocumentStatus = "expired"
	DocumentExpiring DocumentStatus = "expiring"
	DocumentValid    DocumentStatus = "valid"
)

// ParseDocumentStatus parses a document status.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	ds := DocumentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch ds {
	case DocumentExpired, DocumentExpiring, DocumentValid:
		return ds, nil
	}
	return "", eris.Errorf("invalid input: unknown document status %q", s)
}

// PromoterFilters is the optional predicate bag for promoter listings.
// A None field means "no filter" for that dimension.
type PromoterFilters struct {
	Status         mo.Option[PromoterStatus]
	DocumentStatus mo.Option[DocumentStatus]
	OverallStatus  mo.Option[string]
	WorkLocation   mo.Option[string]
	HasContracts   mo.Option[bool]
}

// NoFilters matches every promoter.
func NoFilters() PromoterFilters {
	return PromoterFilters{}
}

// ParseFilters builds filters from string parameters, as found in a query
// string or CLI flags. Empty values and "all" mean no filter.
func ParseFilters(get func(key string) string) (PromoterFilters, error) {
	var f PromoterFilters

	if v, ok := present(get("status")); ok {
		st, err := ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = mo.Some(st)
	}
	if v, ok := present(get("document_status")); ok {
		ds, err := ParseDocumentStatus(v)
		if err != nil {
			return f, err
		}
		f.DocumentStatus = mo.Some(ds)
	}
	if v, ok := present(get("overall_status")); ok {
		f.OverallStatus = mo.Some(strings.ToLower(v))
	}
	if v, ok := present(get("work_location")); ok {
		f.WorkLocation = mo.Some(v)
	}
	if v, ok := present(get("has_contracts")); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, eris.Errorf("invalid input: has_contracts must be a boolean, got %q", v)
		}
		f.HasContracts = mo.Some(b)
	}
	return f, nil
}

func present(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return "", false
	}
	return v, true
}
