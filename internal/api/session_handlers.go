package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/listenup-player/internal/service"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/login",
		Summary:     "Sign in",
		Description: "Signs a listener in with a username and PIN. Unknown usernames get a new profile.",
		Tags:        []string{"Session"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "switchUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/switch",
		Summary:     "Sign out",
		Description: "Signs the current listener out so another can sign in",
		Tags:        []string{"Session"},
	}, s.handleSwitchUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get session",
		Description: "Returns the signed-in listener",
		Tags:        []string{"Session"},
	}, s.handleGetSession)
}

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Username string `json:"username" maxLength:"128" doc:"Profile name, case-sensitive"`
	PIN      string `json:"pin,omitempty" maxLength:"64" doc:"Profile PIN, empty for none"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// LoginOutput wraps the login result for Huma.
type LoginOutput struct {
	Body service.LoginResult
}

// SessionOutput wraps the session view for Huma.
type SessionOutput struct {
	Body service.SessionView
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	result, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Username: input.Body.Username,
		PIN:      input.Body.PIN,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return &LoginOutput{Body: *result}, nil
}

func (s *Server) handleSwitchUser(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	s.services.Auth.SwitchUser(ctx)
	return s.handleGetSession(ctx, nil)
}

func (s *Server) handleGetSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	view, err := s.services.Auth.Current(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &SessionOutput{Body: view}, nil
}
