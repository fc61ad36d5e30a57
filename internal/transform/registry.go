// Package transform converts message payloads between formats. Converters
// are registered per (source, target) pair.
package transform

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
)

// Transformer converts a payload from one format into another. It must not
// modify its input.
type Transformer interface {
	Transform(ctx context.Context, payload []byte) ([]byte, error)
}

type Func func(ctx context.Context, payload []byte) ([]byte, error)

func (f Func) Transform(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (p Pair) String() string { return p.Source + "->" + p.Target }

func normalize(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

type Registry struct {
	mu           sync.RWMutex
	transformers map[Pair]Transformer
}

func NewRegistry() *Registry {
	return &Registry{transformers: make(map[Pair]Transformer)}
}

// NewDefaultRegistry registers the json<->yaml converters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(FormatJSON, FormatYAML, Func(JSONToYAML))
	_ = r.Register(FormatYAML, FormatJSON, Func(YAMLToJSON))
	return r
}

// Register binds t to the pair. A pair may be bound once.
func (r *Registry) Register(source, target string, t Transformer) error {
	pair := Pair{Source: normalize(source), Target: normalize(target)}
	if pair.Source == "" || pair.Target == "" {
		return apperrors.NewValidation("format", "source and target formats are required")
	}
	if pair.Source == pair.Target {
		return apperrors.NewValidation("format", "source and target formats must differ")
	}
	if t == nil {
		return apperrors.NewValidation("transformer", "transformer is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transformers[pair]; exists {
		return apperrors.NewDuplicate("transformer", pair.String())
	}
	r.transformers[pair] = t
	return nil
}

func (r *Registry) Get(source, target string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transformers[Pair{Source: normalize(source), Target: normalize(target)}]
	if !ok {
		return nil, apperrors.NewUnsupportedFormat(source, target)
	}
	return t, nil
}

func (r *Registry) Supports(source, target string) bool {
	if normalize(source) == normalize(target) {
		return true
	}
	_, err := r.Get(source, target)
	return err == nil
}

func (r *Registry) Pairs() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]Pair, 0, len(r.transformers))
	for p := range r.transformers {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})
	return pairs
}

// Transform returns a new payload in the target format. Equal formats yield
// a copy of payload.
func (r *Registry) Transform(ctx context.Context, source, target string, payload []byte) ([]byte, error) {
	if normalize(source) == normalize(target) {
		return append([]byte(nil), payload...), nil
	}

	t, err := r.Get(source, target)
	if err != nil {
		metrics.IncTransformation(normalize(source), normalize(target), false)
		return nil, err
	}

	out, err := t.Transform(ctx, payload)
	metrics.IncTransformation(normalize(source), normalize(target), err == nil)
	if err != nil {
		if apperrors.IsValidation(err) || apperrors.IsUnsupportedFormat(err) {
			return nil, err
		}
		return nil, apperrors.NewValidation("payload", "cannot transform "+source+" to "+target).
			WithCause(err)
	}
	return out, nil
}
