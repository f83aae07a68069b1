package api

import "github.com/listenupapp/listenup-player/internal/service"

// Services groups the business logic the API server exposes.
type Services struct {
	Auth   *service.AuthService
	Player *service.Player
}
