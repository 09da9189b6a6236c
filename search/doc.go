// Package search answers questions about one ingested document.
//
// Searcher retrieves the chunks of a source most similar to the question,
// places them in a grounding prompt and returns the generator's output as
// is. Generation runs even when nothing was retrieved, leaving it to the
// model to say that it does not know.
package search
