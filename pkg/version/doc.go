// Package version orders loosely structured release version strings.
//
// Versions published on GitHub rarely follow semver strictly. Tags such as
// "v2.0", "2.0.0", "2.0-beta" and "1.4-rc2" all appear in the wild, so the
// comparator here is tolerant rather than strict:
//
//	version.Compare("2.1.0", "2.0.9")        // > 0
//	version.Compare("1.0.0-beta", "1.0.0-alpha") // > 0
//	version.Compare("v1.2", "1.2.0")         // == 0
//
// # Ordering Rules
//
// A version is lowercased, a leading "v" is removed and the rest is split on
// "." and "-". Parts are compared pairwise, with missing parts treated as "0".
// Two numeric parts compare numerically. Otherwise each part is ranked:
//
//   - alpha: 1
//   - beta: 2
//   - rc: 3
//   - numeric: value + 1000
//   - anything else: 999
//
// Equal ranks fall back to a plain string comparison, so the result is a total
// order and Compare never fails on malformed input.
package version
