package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/strand/pkg/domain"
	"github.com/aretw0/strand/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ReportStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks text matching any of the patterns in the output
// and error of saved reports. The caller's report is left untouched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.ReportStore) ports.ReportStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, report *domain.Report) error {
	cloned := *report
	cloned.Output = make([]string, len(report.Output))
	for i, line := range report.Output {
		cloned.Output[i] = m.mask(line)
	}
	cloned.Error = m.mask(report.Error)
	cloned.Roots.Violations = append([]string(nil), report.Roots.Violations...)
	return m.next.Save(ctx, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, runID string) (*domain.Report, error) {
	return m.next.Load(ctx, runID)
}

func (m *piiMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
