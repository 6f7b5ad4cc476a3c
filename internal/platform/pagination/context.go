package pagination

import "context"

type paramsKey struct{}

// WithParams attaches parsed pagination parameters to the context.
func WithParams(ctx context.Context, params Params) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, paramsKey{}, params)
}

// FromContext returns parameters previously attached with WithParams.
func FromContext(ctx context.Context) (Params, bool) {
	if ctx == nil {
		return Params{}, false
	}
	params, ok := ctx.Value(paramsKey{}).(Params)
	return params, ok
}

// FromContextOrDefault returns the attached parameters, filling in the
// default page size when none were attached or the size is unset.
func FromContextOrDefault(ctx context.Context) Params {
	params, ok := FromContext(ctx)
	if !ok {
		return Params{PageSize: DefaultPageSize}
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	return params
}
