package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name LiveScoreProvider --dir ../usecase --output usecase --outpkg usecasemock --filename live_score_provider_mock.go
