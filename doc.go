// Package reagent runs a language-model agent over a large tool universe
// without ever showing the model more than a relevant slice of it. Tool
// groups registered in a Catalog are ranked by a semantic retrieval index;
// the Loop renders the winning tools into a prompt, parses the model's
// free-text reply into a structured action, executes it, and feeds the
// observation back until the model produces a final answer.
//
// Embeddings, vector stores, model providers, and plugin loaders live under
// src/ and plug in through small interfaces; the runtime in this package
// stays agnostic of all of them.
package reagent
