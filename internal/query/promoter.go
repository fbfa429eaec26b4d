package query

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/promoter-service/internal/model"
)

// Promoter table and column names.
const (
	TablePromoters  = "promoters"
	TableContracts  = "contracts"
	TableSkills     = "promoter_skills"
	TableExperience = "promoter_experience"
	TableEducation  = "promoter_education"
	TableDocuments  = "promoter_documents"

	ColID                 = "id"
	ColNameEN             = "name_en"
	ColNameAR             = "name_ar"
	ColIDCardNumber       = "id_card_number"
	ColIDCardExpiryDate   = "id_card_expiry_date"
	ColPassportExpiryDate = "passport_expiry_date"
	ColStatus             = "status"
	ColWorkLocation       = "work_location"
	ColPromoterID         = "promoter_id"
	ColCreatedAt          = "created_at"
	ColUpdatedAt          = "updated_at"
)

// ExpiryWindow is how far ahead a document counts as "expiring".
const ExpiryWindow = 30 * 24 * time.Hour

// SearchConds returns the name/ID-card disjunction for term, or nil when the
// trimmed term is empty.
func SearchConds(term string) []Cond {
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	pattern := "%" + term + "%"
	return []Cond{
		{Column: ColNameEN, Op: OpILike, Value: pattern},
		{Column: ColNameAR, Op: OpILike, Value: pattern},
		{Column: ColIDCardNumber, Op: OpILike, Value: pattern},
	}
}

// ExpiringConds matches promoters with either document expiring on or before
// cutoff.
func ExpiringConds(cutoff time.Time) []Cond {
	return []Cond{
		{Column: ColIDCardExpiryDate, Op: OpLte, Value: cutoff},
		{Column: ColPassportExpiryDate, Op: OpLte, Value: cutoff},
	}
}

// BuildPromoterQuery adds the search and filter clauses to q. Clauses are
// AND-ed; each search or expiry clause is an OR over its columns. now anchors
// the document windows.
//
// Expired and expiring match when EITHER document qualifies; valid requires
// BOTH documents to be valid. Promoters missing one document therefore never
// appear under valid.
func BuildPromoterQuery(q *Query, search string, filters model.PromoterFilters, now time.Time) *Query {
	if conds := SearchConds(search); conds != nil {
		q.Or(conds...)
	}

	if status, ok := filters.Status.Get(); ok {
		q.Eq(ColStatus, string(status))
	}

	if ds, ok := filters.DocumentStatus.Get(); ok {
		cutoff := now.Add(ExpiryWindow)
		switch ds {
		case model.DocumentExpired:
			q.Or(
				Cond{Column: ColIDCardExpiryDate, Op: OpLt, Value: now},
				Cond{Column: ColPassportExpiryDate, Op: OpLt, Value: now},
			)
		case model.DocumentExpiring:
			q.Or(ExpiringConds(cutoff)...)
		case model.DocumentValid:
			q.Gt(ColIDCardExpiryDate, cutoff)
			q.Gt(ColPassportExpiryDate, cutoff)
		}
	}

	if loc, ok := filters.WorkLocation.Get(); ok {
		q.Eq(ColWorkLocation, loc)
	}

	return q
}
