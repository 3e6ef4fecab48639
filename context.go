package authcore

import "context"

type clientIPContextKey struct{}
type localeContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is used for
// logging only; no authentication decision depends on it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithLocale attaches the caller's locale tag to ctx. It is passed through
// to the mailer when a flow does not carry an explicit locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func localeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	locale, _ := ctx.Value(localeContextKey{}).(string)
	return locale
}
