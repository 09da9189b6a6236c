// Package ingestion turns documents into indexed chunks.
//
// Pipeline splits a document and upserts its chunks through an Indexer in a
// single call; once Ingest returns nil the document's source is retrievable.
// Importer is the body of one ingestion task: it resolves an uploaded file
// from its storage locator, extracts its text and ingests it under the
// stored file name.
//
// Neither type retries. Every error returned is a *fault.Fault.
package ingestion
