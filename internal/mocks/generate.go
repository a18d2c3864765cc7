// Package mocks provides gomock-generated doubles for the auth ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	idp := mocks.NewMockIdentityProvider(ctrl)
//	idp.EXPECT().Exchange(gomock.Any(), "code").Return(ports.TokenResponse{IDToken: raw}, nil)
//
// Hand-written in-memory doubles live in internal/mocks/auth.
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go github.com/harborline/backoffice/internal/ports IdentityProvider
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/harborline/backoffice/internal/ports UserRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/harborline/backoffice/internal/ports SessionStore
