// Package refdata caches the engine's reference data (rule tables,
// achievement definitions, subjects) as one immutable snapshot shared by
// every request. Concurrent misses are collapsed into a single load, and the
// snapshot lives until Invalidate is called.
package refdata
