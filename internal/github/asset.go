package github

import (
	"fmt"
	"strings"
)

// mainAssetPatterns are checked in order; the first pattern matched by any
// asset wins, regardless of where that asset appears in the list.
var mainAssetPatterns = []string{
	".zip",
	".apk",
	".jar",
	"module.prop",
	".tar.gz",
	".tgz",
}

// SelectMainAsset picks the asset that represents the release download.
// It returns false when the release has no assets.
func SelectMainAsset(assets []Asset) (Asset, bool) {
	if len(assets) == 0 {
		return Asset{}, false
	}
	for _, pattern := range mainAssetPatterns {
		for _, a := range assets {
			if strings.HasSuffix(strings.ToLower(a.Name), pattern) {
				return a, true
			}
		}
	}
	return assets[0], true
}

// TotalSize sums the size of all assets
func TotalSize(assets []Asset) int64 {
	var total int64
	for _, a := range assets {
		total += a.Size
	}
	return total
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders bytes with base-1024 units and two decimals, e.g. "1.00 MB"
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
