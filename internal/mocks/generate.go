// Package mocks provides gomock mocks for the portal's ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	storage := mocks.NewMockDurableStorage(ctrl)
//	storage.EXPECT().Get(gomock.Any(), "access-token").Return("t1", nil)
package mocks

// Generate mock for DurableStorage interface from internal/ports package.
// This creates MockDurableStorage with methods: Get, Set, Remove
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=storage_mock.go github.com/eduassist/portal/internal/ports DurableStorage
