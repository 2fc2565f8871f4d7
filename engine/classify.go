/*
classify.go - Region, division, job-number and cost-code inference

PURPOSE:
  Annotates each allocation row with billing classification derived
  from its free-text job reference. All functions here are pure and
  deterministic: identical input always yields identical output,
  including synthetic job numbers.

RULES:
  Region:    "HOUSTON"/"HOU" -> HOU, "WEST"/"WT" -> WT, else DFW
  Division:  "UTILITY"/"UTL" -> UTL, else HWY
  JobNumber: first \d{4}-\d{3} match verbatim; otherwise a synthetic
             "{region}-{NNN}" derived from a stable hash of the text
  CostCode:  canonical jobs before 2023-014 bill to the legacy code
             "9000 100M"; everything else (including synthetic jobs)
             defaults to "9000 100F"

The cost-code default may be overridden by a PM revision (revision.go).
*/
package engine

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
)

var jobNumberPattern = regexp.MustCompile(`\d{4}-\d{3}`)

// Canonical job numbers are exactly YYYY-NNN.
var canonicalJobPattern = regexp.MustCompile(`^(\d{4})-(\d{3})$`)

// Jobs numbered before this boundary bill to the legacy cost code.
const (
	legacyCutoffYear = 2023
	legacyCutoffSeq  = 14
)

// Classify annotates a row with region, division, job number, and the
// default cost code. It never fails: rows with unrecognizable job
// references still receive defaults and a synthetic job number.
func Classify(row *AllocationRow) {
	row.Region = ClassifyRegion(row.JobReference)
	row.Division = ClassifyDivision(row.JobReference)
	row.JobNumber = JobNumberFor(row.JobReference, row.Region)
	row.CostCode = CostCodeFor(row.JobNumber)
}

// ClassifyRegion infers the billing region from the job reference by
// case-insensitive substring match. DFW is the default region.
func ClassifyRegion(jobRef string) Region {
	u := strings.ToUpper(jobRef)
	switch {
	case strings.Contains(u, "HOUSTON"), strings.Contains(u, "HOU"):
		return RegionHOU
	case strings.Contains(u, "WEST"), strings.Contains(u, "WT"):
		return RegionWT
	default:
		return RegionDFW
	}
}

// ClassifyDivision infers the billing division. HWY is the default.
func ClassifyDivision(jobRef string) Division {
	u := strings.ToUpper(jobRef)
	if strings.Contains(u, "UTILITY") || strings.Contains(u, "UTL") {
		return DivisionUTL
	}
	return DivisionHWY
}

// JobNumberFor extracts the canonical job number from the reference
// text, or synthesizes a deterministic one when no YYYY-NNN pattern is
// present. Synthetic numbers are stable across runs for identical
// input so repeated uploads reconcile to the same rows.
func JobNumberFor(jobRef string, region Region) string {
	if m := jobNumberPattern.FindString(jobRef); m != "" {
		return m
	}
	h := fnv.New32a()
	h.Write([]byte(jobRef))
	return fmt.Sprintf("%s-%03d", region, h.Sum32()%1000)
}

// CostCodeFor assigns the billing cost code by job vintage. Canonical
// jobs sorting before 2023-014 take the legacy code; all other jobs,
// synthetic ones included, take the current default.
func CostCodeFor(jobNumber string) string {
	m := canonicalJobPattern.FindStringSubmatch(jobNumber)
	if m == nil {
		return CostCodeCurrent
	}
	year, _ := strconv.Atoi(m[1])
	seq, _ := strconv.Atoi(m[2])
	if year < legacyCutoffYear || (year == legacyCutoffYear && seq < legacyCutoffSeq) {
		return CostCodeLegacy
	}
	return CostCodeCurrent
}
