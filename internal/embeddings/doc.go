// Package embeddings provides text embeddings for response validation.
//
// Three providers are available: FastEmbed (local ONNX, requires cgo),
// TEI (a text-embeddings-inference server) and any OpenAI-compatible
// embeddings API through langchaingo. Lazy wraps a provider factory so the
// model loads once, on first use, and is shared read-only afterwards.
package embeddings
