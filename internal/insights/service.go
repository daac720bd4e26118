package insights

import (
	"context"
	"time"

	"github.com/pulseboardhq/pulseboard-backend/internal/fetch"
	pkgerrors "github.com/pulseboardhq/pulseboard-backend/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Service runs a generator under a hard deadline and parses its output.
// Unlike metric fetches there is no degraded rendering for insights; a
// generator that fails or stalls surfaces as a dependency error.
type Service struct {
	generator Generator
	timeout   time.Duration
}

func NewService(generator Generator, timeout time.Duration) *Service {
	if generator == nil {
		generator = NewRuleBased()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{generator: generator, timeout: timeout}
}

type generation struct {
	raw string
	err error
}

// Insights generates and parses the findings for one input.
func (s *Service) Insights(ctx context.Context, input Input) ([]Insight, error) {
	// The inner error rides inside the value so it survives the fallback
	// substitution on failure.
	result, status := fetch.WithTimeout(ctx, s.timeout, generation{}, func(ctx context.Context) (generation, error) {
		raw, err := s.generator.Generate(ctx, input)
		return generation{raw: raw, err: err}, nil
	})
	switch {
	case status == fetch.StatusTimedOut:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "insight generator timed out")
	case result.err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.err, "insight generator failed")
	}
	return ParseLines(result.raw), nil
}
