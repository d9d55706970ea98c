package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/strand/pkg/domain"
)

// RequestNow asks the host for the current time.
const RequestNow domain.RequestKind = "now"

func (r *Runner) registerBuiltins() {
	r.Registry.Register(domain.RequestPrint, r.print)
	r.Registry.Register(domain.RequestHalt, halt)
	r.Registry.Register(RequestNow, func(context.Context, *domain.Request) (any, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
}

func (r *Runner) print(ctx context.Context, req *domain.Request) (any, error) {
	text, err := SanitizeOutput(fmt.Sprint(req.Payload))
	if err != nil {
		return nil, err
	}
	if st := runStateFrom(ctx); st != nil {
		st.report.Output = append(st.report.Output, text)
	}
	if r.Output != nil {
		out := text
		if r.Renderer != nil {
			if rendered, err := r.Renderer(text); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(r.Output, out)
	}
	return nil, nil
}

func halt(_ context.Context, req *domain.Request) (any, error) {
	reason, _ := req.Payload.(string)
	if reason == "" {
		reason = "requested"
	}
	return nil, &domain.Halt{Reason: reason}
}
