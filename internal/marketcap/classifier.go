// Package marketcap maps issuer capitalization to size buckets.
package marketcap

import (
	"math"

	"github.com/wonny/insiderperf/internal/contracts"
)

// Lower bounds, inclusive
const (
	MegaFloor  = 200e9
	LargeFloor = 10e9
	MidFloor   = 2e9
	SmallFloor = 300e6
)

// Categorize returns the bucket for cap. NaN yields Unclassified rather than Micro.
func Categorize(cap float64) contracts.CapBucket {
	switch {
	case math.IsNaN(cap):
		return contracts.CapUnclassified
	case cap >= MegaFloor:
		return contracts.CapMega
	case cap >= LargeFloor:
		return contracts.CapLarge
	case cap >= MidFloor:
		return contracts.CapMid
	case cap >= SmallFloor:
		return contracts.CapSmall
	default:
		return contracts.CapMicro
	}
}

// Buckets lists every bucket from largest to smallest, then Unclassified
func Buckets() []contracts.CapBucket {
	return []contracts.CapBucket{
		contracts.CapMega,
		contracts.CapLarge,
		contracts.CapMid,
		contracts.CapSmall,
		contracts.CapMicro,
		contracts.CapUnclassified,
	}
}
