// Package authcore implements the session and credential-token lifecycle
// for classtape: password login, signed access tokens with transparent
// sliding renewal from server-side refresh records, tiered authorization,
// and single-use verification secrets for email confirmation and password
// reset.
//
// The root package is transport-agnostic. Persistence is injected through
// the UserStore and RefreshTokenStore interfaces (store/postgres and
// store/redisstore provide implementations), outbound mail through Mailer,
// and the HTTP surface with its CSRF handling lives in web.
//
// Construct a Service with the Builder:
//
//	svc, err := authcore.New().
//		WithConfig(cfg).
//		WithLogger(log).
//		WithUserStore(users).
//		WithRefreshTokenStore(refresh).
//		WithMailer(mailer).
//		Build()
package authcore
