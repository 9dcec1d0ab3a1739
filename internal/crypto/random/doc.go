// Package random fills buffers with random bytes from the first available
// source in an ordered probe list.
//
// The default list ends in a math/rand fallback. That source is NOT
// cryptographically secure; it exists so hosts without a secure generator
// keep working. Sources carry a Secure flag, the adapter warns once when the
// fallback is selected, and metrics label every fill with its source.
package random
