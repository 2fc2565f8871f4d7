/*
catalog.go - Equipment rate catalog

PURPOSE:
  The rate/equipment-description table is maintained by hand, so its
  column headers drift ("Rate" vs "Monthly Rate" vs "Daily Rate").
  This loader resolves headers against fixed synonym lists and builds
  an asset-id lookup with safe defaults.

CONTRACT:
  The catalog never errors. Missing rate or description cells, missing
  assets, even a missing catalog entirely all degrade to DefaultRateInfo.
  The catalog is an optional enrichment, not a requirement.

SEE ALSO:
  - units.go: Looks up rates when computing amounts
*/
package engine

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Catalog column synonyms, in resolution order.
var (
	catalogAssetColumns = []string{"Asset", "Asset ID", "Equipment", "Equipment ID", "Unit"}
	catalogRateColumns  = []string{"Rate", "Monthly Rate", "Daily Rate"}
	catalogDescColumns  = []string{"Equipment Description", "Description", "Equipment Type"}
)

// RateCatalog is the asset-id to RateInfo lookup built once per run.
type RateCatalog struct {
	rates map[AssetID]RateInfo
}

// LoadCatalog builds a RateCatalog from raw catalog rows. Rows without
// a resolvable asset id are ignored; unparseable rates fall back to
// DefaultRate; missing descriptions fall back to "Equipment {asset}".
func LoadCatalog(rows []RawRow) *RateCatalog {
	c := &RateCatalog{rates: make(map[AssetID]RateInfo, len(rows))}

	for _, row := range rows {
		assetCell, ok := row.Lookup(catalogAssetColumns...)
		if !ok || assetCell == "" {
			continue
		}
		asset := AssetID(assetCell)
		info := DefaultRateInfo(asset)

		if rateCell, ok := row.Lookup(catalogRateColumns...); ok && rateCell != "" {
			if f, err := strconv.ParseFloat(rateCell, 64); err == nil && f >= 0 {
				info.Rate = decimal.NewFromFloat(f)
			}
		}
		if desc, ok := row.Lookup(catalogDescColumns...); ok && desc != "" {
			info.EquipmentDescription = desc
		}

		c.rates[asset] = info
	}

	return c
}

// Lookup returns the rate info for an asset, defaulting when absent.
func (c *RateCatalog) Lookup(asset AssetID) RateInfo {
	if c != nil {
		if info, ok := c.rates[asset]; ok {
			return info
		}
	}
	return DefaultRateInfo(asset)
}

// Len returns the number of catalog entries loaded.
func (c *RateCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rates)
}
