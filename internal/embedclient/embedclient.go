// Package embedclient defines the Embedding Client capability (spec.md
// §6): turning a text string into a fixed-length vector tied to a named
// model. Grounded on pkg/embedders/registry.go's EmbedderProvider
// interface, narrowed to the two operations spec.md §6 actually names
// (embedding / embedding_async) plus the model/dimension accessors the
// Memory Controller needs to tag written chunks (§4.D, I7).
package embedclient

import "context"

// Result is delivered on the channel returned by EmbedAsync.
type Result struct {
	Vector []float32
	Err    error
}

// Client embeds text into vectors against one named model.
type Client interface {
	// Embed synchronously embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedAsync embeds text on a goroutine, delivering exactly one
	// Result on the returned channel.
	EmbedAsync(ctx context.Context, text string) <-chan Result

	// EmbedBatch embeds multiple texts in as few requests as the
	// backend's batch size allows, returning vectors in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the backend's embedding model name.
	Model() string

	// Dimension returns the fixed vector length this Client produces.
	Dimension() int
}

// RunAsync is the shared goroutine-dispatch helper every adapter's
// EmbedAsync delegates to.
func RunAsync(ctx context.Context, embed func(context.Context, string) ([]float32, error), text string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		vec, err := embed(ctx, text)
		out <- Result{Vector: vec, Err: err}
		close(out)
	}()
	return out
}
