// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	provider := mock.NewMockProvider()
//	embedder := provider.GetMockEmbedder()
//
//	// Inject custom behavior
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("boom")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: bag-of-words vectors, so texts sharing words are similar
//   - MockGenerator: returns Answer and records the last prompt
//   - MockProvider: Aggregates mock embedder and generator
package mock
