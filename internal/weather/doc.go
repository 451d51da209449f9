// Package weather resolves location queries to current weather conditions.
//
// The Gateway geocodes free-text queries, consults an injected Cache keyed
// by rounded coordinate, language and unit system, and falls through to the
// live Provider on a miss. Concurrent misses for the same key share a single
// provider call. The cache is an optimization only: a NoopCache yields the
// same results with more provider traffic.
package weather
