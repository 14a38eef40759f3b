// Package vectorindex defines the similarity-search contract the engine
// consumes and provides an exact in-memory implementation.
//
// The engine owns how search results are weighted and combined, not the
// underlying index structure. Two logical corpora share one index,
// partitioned by the "type" metadata key: policy chunks ("chunk"),
// feedback queries ("feedback"), and prior decisions ("decision").
// Implementations backed by a dedicated vector database satisfy the same
// Index interface.
package vectorindex
