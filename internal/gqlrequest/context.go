package gqlrequest

import "context"

type analysisKey struct{}

// WithAnalysis returns ctx carrying analysis. A nil analysis leaves ctx as is
// so an outer analysis is never masked.
func WithAnalysis(ctx context.Context, analysis *Analysis) context.Context {
	if analysis == nil {
		return ctx
	}
	return context.WithValue(ctx, analysisKey{}, analysis)
}

// AnalysisFromContext returns the analysis stored by WithAnalysis, or nil.
func AnalysisFromContext(ctx context.Context) *Analysis {
	analysis, _ := ctx.Value(analysisKey{}).(*Analysis)
	return analysis
}
