// Package retrieval is the single boundary between the pipelines and the
// embedding, generation and vector index providers.
//
// Every error leaving a Gateway method is a *fault.Fault. Index errors are
// marked with storage.ErrIndex before translation so they are reported as
// vector store failures unless a more specific rule applies.
package retrieval
