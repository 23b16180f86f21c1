package domain

import (
	"fmt"
	"sort"
)

// supportedStates maps 2-digit state FIPS prefixes for the eastern-US states
// covered by the hazard dataset.
var supportedStates = map[string]bool{
	"01": true, // AL
	"05": true, // AR
	"09": true, // CT
	"10": true, // DE
	"11": true, // DC
	"12": true, // FL
	"13": true, // GA
	"17": true, // IL
	"18": true, // IN
	"19": true, // IA
	"20": true, // KS
	"21": true, // KY
	"22": true, // LA
	"23": true, // ME
	"24": true, // MD
	"25": true, // MA
	"26": true, // MI
	"28": true, // MS
	"29": true, // MO
	"33": true, // NH
	"34": true, // NJ
	"36": true, // NY
	"37": true, // NC
	"39": true, // OH
	"40": true, // OK
	"42": true, // PA
	"44": true, // RI
	"45": true, // SC
	"47": true, // TN
	"48": true, // TX
	"50": true, // VT
	"51": true, // VA
	"54": true, // WV
	"55": true, // WI
}

// InvalidLocationError indicates a county identifier that is not a
// FIPS-shaped token or lies outside the supported states.
type InvalidLocationError struct {
	ID     string
	Reason string
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid location %q: %s", e.ID, e.Reason)
}

// ValidateFIPS checks that an identifier is a 5-digit FIPS code with a
// supported state prefix. It does not consult a county master list: codes
// absent from the dataset simply yield no rows downstream.
func ValidateFIPS(id string) error {
	if len(id) != 5 {
		return &InvalidLocationError{ID: id, Reason: "want a 5-digit FIPS code"}
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return &InvalidLocationError{ID: id, Reason: "want a 5-digit FIPS code"}
		}
	}
	if !supportedStates[id[:2]] {
		return &InvalidLocationError{ID: id, Reason: "state not covered by the dataset"}
	}
	return nil
}

// LocationSet is a validated, deduplicated, sorted set of county FIPS codes.
type LocationSet []string

// ResolveCounties validates a flat collection of county identifiers.
func ResolveCounties(ids []string) (LocationSet, error) {
	seen := make(map[string]bool, len(ids))
	set := make(LocationSet, 0, len(ids))
	for _, id := range ids {
		if err := ValidateFIPS(id); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	sort.Strings(set)
	return set, nil
}

// Has reports set membership. The set is sorted, so this is a binary search.
func (s LocationSet) Has(fips string) bool {
	i := sort.SearchStrings(s, fips)
	return i < len(s) && s[i] == fips
}

// CommunityAssignment is the raw tall form of a community definition: one
// row per (community, member county) pair.
type CommunityAssignment struct {
	Community string
	FIPS      string
}

// CommunityMap groups counties into named exposure units. Membership is a
// set per community; duplicate assignments collapse. A county listed under
// several communities counts toward each of them.
type CommunityMap map[string]LocationSet

// ResolveCommunities validates assignment rows into a CommunityMap.
func ResolveCommunities(rows []CommunityAssignment) (CommunityMap, error) {
	members := make(map[string][]string)
	for _, row := range rows {
		if row.Community == "" {
			return nil, &InvalidLocationError{ID: row.FIPS, Reason: "empty community name"}
		}
		if err := ValidateFIPS(row.FIPS); err != nil {
			return nil, err
		}
		members[row.Community] = append(members[row.Community], row.FIPS)
	}
	cm := make(CommunityMap, len(members))
	for name, fips := range members {
		set, err := ResolveCounties(fips)
		if err != nil {
			return nil, err
		}
		cm[name] = set
	}
	return cm, nil
}

// Counties returns the union of all member counties, sorted.
func (cm CommunityMap) Counties() LocationSet {
	seen := make(map[string]bool)
	var all []string
	for _, set := range cm {
		for _, fips := range set {
			if !seen[fips] {
				seen[fips] = true
				all = append(all, fips)
			}
		}
	}
	sort.Strings(all)
	return all
}

// Names returns community names in sorted order for deterministic output.
func (cm CommunityMap) Names() []string {
	names := make([]string, 0, len(cm))
	for name := range cm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
