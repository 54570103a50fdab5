package dashboard

import "context"

// Viewer identifies who the dashboard is rendered for. Remote persistence
// only applies to authenticated viewers.
type Viewer struct {
	UserID        string
	Authenticated bool
	Locale        string
}

type viewerContextKey struct{}

// ContextWithViewer stores the viewer on ctx.
func ContextWithViewer(ctx context.Context, viewer Viewer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, viewerContextKey{}, viewer)
}

// ViewerFrom returns the viewer stored on ctx, or an anonymous viewer.
func ViewerFrom(ctx context.Context) Viewer {
	if ctx == nil {
		return Viewer{}
	}
	if viewer, ok := ctx.Value(viewerContextKey{}).(Viewer); ok {
		return viewer
	}
	return Viewer{}
}
