// Package mocks holds mockery output for domain repositories. Regenerate
// with go generate ./internal/mocks after changing an interface.
package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/jobscheduler --output domain/jobscheduler --outpkg jobschedulermock --filename repository_mock.go
