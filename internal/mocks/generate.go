package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Writer --dir ../domain/lottery --output domain/lottery --outpkg lotterymock --filename writer_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Reader --dir ../domain/lottery --output domain/lottery --outpkg lotterymock --filename reader_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Fetcher --dir ../domain/source --output domain/source --outpkg sourcemock --filename fetcher_mock.go
