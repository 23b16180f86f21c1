// Package domain models hurricane hazard records and the identifiers that
// key them.
//
// # Data Conventions
//
// Storm identifiers:
//
//	"<Name>-<Year>"  →  e.g. "Katrina-2005".
//	The year is everything after the last hyphen. Multi-part names keep their
//	internal hyphens: "Alpha-Beta-2005" has year 2005. Identifiers without a
//	parseable year suffix indicate a corrupt record set and abort processing.
//
// County identifiers:
//
//	5-digit FIPS codes, state prefix (2 digits) + county suffix (3 digits),
//	e.g. "22071" = Orleans Parish, LA. The dataset covers states in the
//	eastern half of the US; identifiers with other state prefixes are
//	rejected up front. Well-formed codes absent from the dataset are not an
//	error — queries for them simply return no rows.
//
// Hazard records:
//
//	Wind:     one row per (storm, county); max sustained and max gust in m/s.
//	Rain:     one row per (storm, county, day) across the coverage window,
//	          typically ±3 days around the county's closest-approach date;
//	          precipitation in mm. The closest-approach date repeats on every
//	          row of a (storm, county) group.
//	Distance: one row per (storm, county); closest track approach in km.
//
// Communities:
//
//	A community is a caller-defined named group of counties treated as a
//	single exposure unit. Raw form is one (community, fips) assignment per
//	row; membership is a set per community.
package domain
