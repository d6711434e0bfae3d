// Package integrity checks funnels and offer mappings for the referential
// and naming problems that break per-funnel financial attribution.
package integrity

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Funnel is one row of the funnels table.
type Funnel struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// Offer is one row of the offer mappings table. Empty strings stand for
// NULL columns.
type Offer struct {
	ID               string `json:"id"`
	ProjectID        string `json:"project_id"`
	FunnelID         string `json:"funnel_id"`
	LegacyFunnelName string `json:"legacy_funnel_name"`
	ProductName      string `json:"product_name"`
	OfferName        string `json:"offer_name"`
	Origin           string `json:"origin"`
}

// Report is the integrity diagnosis of a set of funnels and offers.
type Report struct {
	ProjectID   string            `json:"project_id,omitempty"`
	Totals      Totals            `json:"totals"`
	Integrity   Checks            `json:"integrity"`
	Duplicates  Duplicates        `json:"duplicates"`
	Semantics   Semantics         `json:"semantics"`
	Samples     Samples           `json:"samples"`
	Remediation map[string]string `json:"remediation"`
}

type Totals struct {
	Funnels int `json:"funnels"`
	Offers  int `json:"offers"`
}

type Checks struct {
	OffersMissingFunnelID     int `json:"offers_missing_funnel_id"`
	OffersWithInvalidFunnelID int `json:"offers_with_invalid_funnel_id"`
	OffersMissingProjectID    int `json:"offers_missing_project_id"`
	OffersMissingProductName  int `json:"offers_missing_product_name"`
	OffersMissingOfferName    int `json:"offers_missing_offer_name"`
	FunnelsWithoutOffers      int `json:"funnels_without_offers"`
}

// Issues is the number of offers and funnels flagged by any check.
func (c Checks) Issues() int {
	return c.OffersMissingFunnelID + c.OffersWithInvalidFunnelID + c.OffersMissingProjectID +
		c.OffersMissingProductName + c.OffersMissingOfferName + c.FunnelsWithoutOffers
}

type Duplicates struct {
	Groups    int `json:"groups"`
	ExtraRows int `json:"extra_rows"`
}

type Semantics struct {
	GenericOfferNames int            `json:"generic_offer_names"`
	ByOrigin          map[string]int `json:"by_origin"`
}

type Samples struct {
	InvalidFunnelIDs     map[string]int   `json:"invalid_funnel_ids"`
	FunnelsWithoutOffers []FunnelSample   `json:"funnels_without_offers"`
	TopDuplicateGroups   []DuplicateGroup `json:"top_duplicate_groups"`
}

type FunnelSample struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DuplicateGroup is a set of offers that normalise to the same
// (project, funnel, product, offer) key.
type DuplicateGroup struct {
	Count       int    `json:"count"`
	ProjectID   string `json:"project_id"`
	FunnelID    string `json:"funnel_id"`
	ProductName string `json:"product_name"`
	OfferName   string `json:"offer_name"`
}

const (
	sampleLimit = 10
	emptyOrigin = "(empty)"
)

// genericOfferNames are the placeholder names written by bulk imports.
var genericOfferNames = map[string]struct{}{
	"auto-importado":                      {},
	"auto-importado de vendas existentes": {},
	"importado das vendas":                {},
}

var folder = cases.Fold()

// Normalize trims, collapses inner whitespace and case-folds s.
func Normalize(s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}

type duplicateKey struct {
	project, funnel, product, offer string
}

// Analyze builds a report from already loaded funnels and offers. It
// performs no I/O.
func Analyze(funnels []Funnel, offers []Offer) *Report {
	r := &Report{
		Totals: Totals{Funnels: len(funnels), Offers: len(offers)},
		Semantics: Semantics{
			ByOrigin: map[string]int{},
		},
		Samples: Samples{
			InvalidFunnelIDs:     map[string]int{},
			FunnelsWithoutOffers: []FunnelSample{},
			TopDuplicateGroups:   []DuplicateGroup{},
		},
		Remediation: remediationSQL(),
	}

	funnelIDs := make(map[string]struct{}, len(funnels))
	for _, f := range funnels {
		funnelIDs[f.ID] = struct{}{}
	}

	offersByFunnel := map[string]int{}
	groups := map[duplicateKey][]Offer{}
	var groupOrder []duplicateKey

	for _, o := range offers {
		switch {
		case o.FunnelID == "":
			r.Integrity.OffersMissingFunnelID++
		default:
			offersByFunnel[o.FunnelID]++
			if _, ok := funnelIDs[o.FunnelID]; !ok {
				r.Integrity.OffersWithInvalidFunnelID++
				r.Samples.InvalidFunnelIDs[o.FunnelID]++
			}
		}
		if o.ProjectID == "" {
			r.Integrity.OffersMissingProjectID++
		}
		if o.ProductName == "" {
			r.Integrity.OffersMissingProductName++
		}
		if o.OfferName == "" {
			r.Integrity.OffersMissingOfferName++
		}

		if _, ok := genericOfferNames[Normalize(o.OfferName)]; ok {
			r.Semantics.GenericOfferNames++
		}

		origin := o.Origin
		if origin == "" {
			origin = emptyOrigin
		}
		r.Semantics.ByOrigin[origin]++

		key := duplicateKey{
			project: Normalize(o.ProjectID),
			funnel:  Normalize(o.FunnelID),
			product: Normalize(o.ProductName),
			offer:   Normalize(o.OfferName),
		}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], o)
	}

	for _, f := range funnels {
		if offersByFunnel[f.ID] > 0 {
			continue
		}
		r.Integrity.FunnelsWithoutOffers++
		if len(r.Samples.FunnelsWithoutOffers) < sampleLimit {
			r.Samples.FunnelsWithoutOffers = append(r.Samples.FunnelsWithoutOffers, FunnelSample{ID: f.ID, Name: f.Name})
		}
	}

	var dupes []DuplicateGroup
	for _, key := range groupOrder {
		rows := groups[key]
		if len(rows) < 2 {
			continue
		}
		r.Duplicates.Groups++
		r.Duplicates.ExtraRows += len(rows) - 1
		first := rows[0]
		dupes = append(dupes, DuplicateGroup{
			Count:       len(rows),
			ProjectID:   first.ProjectID,
			FunnelID:    first.FunnelID,
			ProductName: first.ProductName,
			OfferName:   first.OfferName,
		})
	}
	// Largest first; ties keep first-seen order.
	sort.SliceStable(dupes, func(i, j int) bool { return dupes[i].Count > dupes[j].Count })
	if len(dupes) > sampleLimit {
		dupes = dupes[:sampleLimit]
	}
	r.Samples.TopDuplicateGroups = append(r.Samples.TopDuplicateGroups, dupes...)

	return r
}

func remediationSQL() map[string]string {
	return map[string]string{
		"check_invalid_funnel_sql": "SELECT om.project_id, om.funnel_id, COUNT(*) " +
			"FROM public.offer_mappings om " +
			"LEFT JOIN public.funnels f ON f.id = om.funnel_id " +
			"WHERE om.funnel_id IS NOT NULL AND f.id IS NULL " +
			"GROUP BY om.project_id, om.funnel_id ORDER BY COUNT(*) DESC;",
		"backfill_by_legacy_name_sql": "UPDATE public.offer_mappings om " +
			"SET funnel_id = f.id, updated_at = now() " +
			"FROM public.funnels f " +
			"WHERE om.project_id = f.project_id " +
			"AND om.funnel_id IS NULL " +
			"AND om.legacy_funnel_name IS NOT NULL " +
			"AND btrim(lower(om.legacy_funnel_name)) = btrim(lower(f.name));",
		"reassign_invalid_funnel_sql_template": "UPDATE public.offer_mappings om " +
			"SET funnel_id = :target_funnel_id::uuid, updated_at = now() " +
			"WHERE om.project_id = :project_id::uuid " +
			"AND (om.funnel_id IS NULL OR NOT EXISTS (" +
			"SELECT 1 FROM public.funnels f WHERE f.id = om.funnel_id));",
	}
}
