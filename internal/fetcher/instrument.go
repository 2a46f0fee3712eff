package fetcher

import "context"

// CallRecorder receives one event per upstream REST call.
type CallRecorder interface {
	RecordUpstreamCall(ctx context.Context, resource, kind string)
}

// instrumentedUpstream counts upstream calls before delegating.
type instrumentedUpstream struct {
	next     Upstream
	recorder CallRecorder
}

// InstrumentUpstream wraps an upstream so every call is recorded. A nil
// recorder returns the upstream unchanged.
func InstrumentUpstream(next Upstream, recorder CallRecorder) Upstream {
	if recorder == nil {
		return next
	}
	return &instrumentedUpstream{next: next, recorder: recorder}
}

func (u *instrumentedUpstream) BatchGet(ctx context.Context, resource string, ids []string) (map[string]map[string]interface{}, error) {
	u.recorder.RecordUpstreamCall(ctx, resource, "batch_get")
	return u.next.BatchGet(ctx, resource, ids)
}

func (u *instrumentedUpstream) Finder(ctx context.Context, resource, finder string, params map[string]string) ([]map[string]interface{}, error) {
	u.recorder.RecordUpstreamCall(ctx, resource, "finder")
	return u.next.Finder(ctx, resource, finder, params)
}
