package occumap

import "math"

// NumDetails is 2^D - 1 detail coefficients per node, D=3.
const NumDetails = NumChildren - 1

// hadamard8 is the natural-order Hadamard matrix of order 8, built via the
// Sylvester construction H_{2n} = [[H_n,H_n],[H_n,-H_n]] starting from
// H_1=[1]. Normalized by 1/sqrt(8) it is its own inverse (H H^T = 8 I and H
// is symmetric), so a single linear map serves as both forward and
// backward transform.
var hadamard8 = [8][8]F{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, -1, 1, -1, 1, -1, 1, -1},
	{1, 1, -1, -1, 1, 1, -1, -1},
	{1, -1, -1, 1, 1, -1, -1, 1},
	{1, 1, 1, 1, -1, -1, -1, -1},
	{1, -1, 1, -1, -1, 1, -1, 1},
	{1, 1, -1, -1, -1, -1, 1, 1},
	{1, -1, -1, 1, -1, 1, 1, -1},
}

var invSqrt8 = F(1 / math.Sqrt(8))

// Transform is the linear bijection between a parent (scale, details) pair
// and its 8 child scales. Forward decomposes; Backward
// reconstructs. Because the underlying matrix is symmetric and
// self-inverse once normalized, both directions reuse the same matrix-
// vector product.
type Transform struct{}

// Forward computes (scale, details) from 8 child scale values.
func (Transform) Forward(childScales [8]F) (scale F, details [7]F) {
	out := hadamardApply(childScales)
	scale = out[0]
	copy(details[:], out[1:])
	return scale, details
}

// Backward reconstructs 8 child scale values from (scale, details).
func (Transform) Backward(scale F, details [7]F) [8]F {
	var in [8]F
	in[0] = scale
	copy(in[1:], details[:])
	return hadamardApply(in)
}

func hadamardApply(in [8]F) [8]F {
	var out [8]F
	for i := 0; i < 8; i++ {
		var sum F
		row := hadamard8[i]
		for j := 0; j < 8; j++ {
			sum += row[j] * in[j]
		}
		out[i] = sum * invSqrt8
	}
	return out
}

// ReconstructLeaf walks a path of (scale, details) pairs from the root of
// a block down to a single leaf, without materializing the full subtree,
// by repeatedly applying Backward and keeping only the child the path
// selects. relativeChildren gives the relative child index (0..7) chosen
// at each level, root-to-leaf order.
func ReconstructLeaf(rootScale F, detailsPerLevel [][7]F, relativeChildren []int) F {
	value := rootScale
	for i, details := range detailsPerLevel {
		children := Transform{}.Backward(value, details)
		value = children[relativeChildren[i]]
	}
	return value
}

// ClampLogOdds saturates a log-odds value into [minLogOdds, maxLogOdds],
// the thresholding step required after any mutation.
func ClampLogOdds(v, minLogOdds, maxLogOdds F) F {
	if v < minLogOdds {
		return minLogOdds
	}
	if v > maxLogOdds {
		return maxLogOdds
	}
	return v
}

// AllZero reports whether every detail coefficient is zero within tol,
// the condition prune() uses to decide a subtree can collapse.
func AllZero(details [7]F, tol F) bool {
	for _, d := range details {
		if absF(d) > tol {
			return false
		}
	}
	return true
}
