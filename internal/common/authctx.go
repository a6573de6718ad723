package common

import "context"

type subjectKey struct{}

// WithSubject stores the authenticated admin subject on the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject returns the admin subject set by the auth middleware.
// Anonymous requests and blank subjects report false.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}
