//go:build !fastembed

package embed

import (
	"context"
	"errors"
)

// FastEmbedder is unavailable without the fastembed build tag; every method
// reports that instead of pulling the ONNX runtime into default builds.
type FastEmbedder struct{}

var errFastEmbedDisabled = errors.New("fastembed disabled; rebuild with -tags fastembed")

func defaultFastEmbedOptions() *FastEmbedOptions { return nil }

func NewFastEmbed(context.Context, *FastEmbedOptions) (Embedder, error) {
	return nil, errFastEmbedDisabled
}

func (FastEmbedder) Close() error { return nil }

func (FastEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errFastEmbedDisabled
}

func (FastEmbedder) EmbedPassages(context.Context, []string) ([][]float32, error) {
	return nil, errFastEmbedDisabled
}
