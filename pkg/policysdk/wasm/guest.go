// Package wasm documents the guest contract for building remitroute WASM
// selection policies.
//
// This package is designed for use with TinyGo and the WASI target. A
// policy module is handed the same feature vector the linear policy sees
// and returns the index of the candidate to select, so a model trained
// offline can be shipped as a sandboxed module instead of a weight file.
//
// Usage (in a TinyGo policy):
//
//	//go:build tinygo
//
//	package main
//
//	import "unsafe"
//
//	var buf [4096]byte
//
//	//export malloc
//	func malloc(size uint32) uintptr {
//		return uintptr(unsafe.Pointer(&buf[0]))
//	}
//
//	//export choose
//	func choose(ptr uintptr, nFeatures, nCandidates uint32) int64 {
//		feats := floats(ptr, nFeatures)
//		best, bestScore := Decline, float64(0)
//		for i := uint32(0); i < nCandidates; i++ {
//			block := feats[1+FeatureBlockSize*i:]
//			if block[FeatValid] == 0 {
//				continue
//			}
//			score := block[FeatReliability] - block[FeatFeePct]
//			if best < 0 || score > bestScore {
//				best, bestScore = int64(i), score
//			}
//		}
//		return best
//	}
//
// # Required exports
//
//   - malloc(size uint32) ptr uint32: allocate guest memory for the
//     feature vector. The host writes little-endian float64 values at the
//     returned pointer.
//   - choose(ptr uint32, n_features uint32, n_candidates uint32) int64:
//     return the 0-based index of the chosen candidate, or a negative value
//     to decline and let the host's heuristic pick.
//
// # Optional exports
//
//   - free(ptr uint32, size uint32): called after every choose; may be a
//     no-op under a garbage collector.
//
// # Feature vector layout
//
// features[0] is the payment amount in source currency units. It is
// followed by n_candidates blocks of FeatureBlockSize values, one block per
// ranked candidate, best ranked first. Indices past the last live candidate
// are zero-filled. An index returned outside [0, n_candidates) is ignored
// by the host in favor of its heuristic.
package wasm

// FeatureBlockSize is the number of values per candidate block in the
// feature vector.
const FeatureBlockSize = 5

// Offsets within one candidate block.
const (
	// FeatFeePct is the route fee as a fraction of the payment amount.
	FeatFeePct = 0
	// FeatTimeNorm is normalized delivery time: 0 is immediate, 1 is at or
	// beyond the scoring ceiling.
	FeatTimeNorm = 1
	// FeatReliability is the historical success rate in [0,1].
	FeatReliability = 2
	// FeatCompliance is 1 when the compliance gate approved the route.
	FeatCompliance = 3
	// FeatValid is 1 when the route passes the request's preference filters.
	FeatValid = 4
)

// Decline is returned from choose when the policy defers to the host
// heuristic. Any negative value declines.
const Decline int64 = -1

// CandidateBlock returns the offset of candidate i's block within the
// feature vector.
func CandidateBlock(i int) int {
	return 1 + FeatureBlockSize*i
}
