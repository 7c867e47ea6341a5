package catalog

import "strings"

// DecideCountMode classifies a request's counting needs. The default view
// (every field neutral: no search, category "all", full price range,
// availability in-stock, no flags, no advanced fields) needs no count at all;
// the caller already maintains the catalog total. Any filtered view gets a
// cheap estimate, trading count precision for bounded latency on large scans.
// An explicit exact override is honored for administrative reporting.
func DecideCountMode(c Criteria) CountMode {
	if c.ForceExactCount {
		return CountExact
	}
	if isDefaultView(c) {
		return CountNone
	}
	return CountApproximate
}

func isDefaultView(c Criteria) bool {
	category := strings.TrimSpace(c.Category)
	return strings.TrimSpace(c.Search) == "" &&
		(category == "" || strings.EqualFold(category, "all")) &&
		(c.PriceMinCents == nil || *c.PriceMinCents <= 0) &&
		c.PriceMaxCents == nil &&
		c.Availability == AvailabilityInStock &&
		c.Sort == nil &&
		c.Featured == nil && c.New == nil && c.OnSale == nil &&
		c.Cover == CoverAny &&
		c.Publisher == "" && c.Location == "" && c.ISBN == "" &&
		c.PagesMin == nil && c.PagesMax == nil &&
		c.YearMin == nil && c.YearMax == nil &&
		!c.IncludeInactive
}
