package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/listenup-player/internal/service"
)

func (s *Server) registerSleepRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSleepTimer",
		Method:      http.MethodGet,
		Path:        "/api/v1/sleep",
		Summary:     "Get sleep timer",
		Tags:        []string{"Sleep"},
	}, s.handleGetSleep)

	huma.Register(s.api, huma.Operation{
		OperationID: "setSleepTimer",
		Method:      http.MethodPost,
		Path:        "/api/v1/sleep",
		Summary:     "Set sleep timer",
		Description: `Arms the timer with one of the offered durations in seconds, or cancels it with "off"`,
		Tags:        []string{"Sleep"},
	}, s.handleSetSleep)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelSleepTimer",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sleep",
		Summary:     "Cancel sleep timer",
		Tags:        []string{"Sleep"},
	}, s.handleCancelSleep)
}

// SleepRequest is the request body for setting the sleep timer.
type SleepRequest struct {
	Selection string `json:"selection" doc:"Seconds, e.g. \"900\", or \"off\""`
}

// SleepInput wraps the sleep request for Huma.
type SleepInput struct {
	Body SleepRequest
}

// SleepOutput wraps the sleep timer view for Huma.
type SleepOutput struct {
	Body service.SleepStatus
}

func (s *Server) handleGetSleep(_ context.Context, _ *struct{}) (*SleepOutput, error) {
	return &SleepOutput{Body: s.services.Player.SleepStatus()}, nil
}

func (s *Server) handleSetSleep(_ context.Context, input *SleepInput) (*SleepOutput, error) {
	st, err := s.services.Player.SelectSleep(input.Body.Selection)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &SleepOutput{Body: st}, nil
}

func (s *Server) handleCancelSleep(_ context.Context, _ *struct{}) (*SleepOutput, error) {
	return &SleepOutput{Body: s.services.Player.CancelSleep()}, nil
}
