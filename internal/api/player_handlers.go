package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/listenup-player/internal/service"
)

func (s *Server) registerPlayerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPlayer",
		Method:      http.MethodGet,
		Path:        "/api/v1/player",
		Summary:     "Get player",
		Description: "Returns the player view, the pending resume offer and the offered rates",
		Tags:        []string{"Player"},
	}, s.handleGetPlayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "loadFile",
		Method:      http.MethodPost,
		Path:        "/api/v1/player/load",
		Summary:     "Load file",
		Description: "Loads a library file. The response carries a resume offer when the profile has a saved position for it.",
		Tags:        []string{"Player"},
	}, s.handleLoad)

	s.registerControl("togglePlayback", "/api/v1/player/toggle", "Play or pause", s.services.Player.Toggle)
	s.registerControl("play", "/api/v1/player/play", "Play", s.services.Player.Play)
	s.registerControl("pause", "/api/v1/player/pause", "Pause", func(ctx context.Context) (service.PlayerState, error) {
		return s.services.Player.Pause(ctx), nil
	})
	s.registerControl("skipBack", "/api/v1/player/skip-back", "Skip back 15 seconds", func(ctx context.Context) (service.PlayerState, error) {
		return s.services.Player.SkipBack(ctx), nil
	})
	s.registerControl("skipForward", "/api/v1/player/skip-forward", "Skip forward 30 seconds", func(ctx context.Context) (service.PlayerState, error) {
		return s.services.Player.SkipForward(ctx), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "seek",
		Method:      http.MethodPost,
		Path:        "/api/v1/player/seek",
		Summary:     "Seek",
		Description: "Moves the playhead to a percentage of the duration. Does nothing while the duration is unknown.",
		Tags:        []string{"Player"},
	}, s.handleSeek)

	huma.Register(s.api, huma.Operation{
		OperationID: "setRate",
		Method:      http.MethodPost,
		Path:        "/api/v1/player/rate",
		Summary:     "Set playback rate",
		Description: "Sets one of the offered playback rates and saves it to the profile",
		Tags:        []string{"Player"},
	}, s.handleSetRate)

	huma.Register(s.api, huma.Operation{
		OperationID: "setVolume",
		Method:      http.MethodPost,
		Path:        "/api/v1/player/volume",
		Summary:     "Set volume",
		Description: "Sets the volume between 0 and 1 and saves it to the profile",
		Tags:        []string{"Player"},
	}, s.handleSetVolume)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptResume",
		Method:      http.MethodPost,
		Path:        "/api/v1/player/resume",
		Summary:     "Resume",
		Description: "Jumps to the saved position offered when the file was loaded",
		Tags:        []string{"Player"},
	}, s.handleResume)
}

// registerControl registers a body-less POST that returns the player view.
func (s *Server) registerControl(id, path, summary string, fn func(context.Context) (service.PlayerState, error)) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        path,
		Summary:     summary,
		Tags:        []string{"Player"},
	}, func(ctx context.Context, _ *struct{}) (*PlayerStateOutput, error) {
		st, err := fn(ctx)
		if err != nil {
			return nil, toStatusError(err)
		}
		return &PlayerStateOutput{Body: st}, nil
	})
}

// PlayerResponse is the full player view.
type PlayerResponse struct {
	State       service.PlayerState  `json:"state"`
	ResumeOffer *service.ResumeOffer `json:"resume_offer,omitempty"`
	RateChoices []float64            `json:"rate_choices" doc:"Offered playback rates"`
}

// PlayerOutput wraps the player view for Huma.
type PlayerOutput struct {
	Body PlayerResponse
}

// PlayerStateOutput wraps the player state for Huma.
type PlayerStateOutput struct {
	Body service.PlayerState
}

// LoadRequest is the request body for loading a file.
type LoadRequest struct {
	Path string `json:"path" minLength:"1" doc:"Path relative to the library root"`
}

// LoadInput wraps the load request for Huma.
type LoadInput struct {
	Body LoadRequest
}

// LoadOutput wraps the load result for Huma.
type LoadOutput struct {
	Body service.LoadResult
}

// SeekInput wraps the seek request for Huma.
type SeekInput struct {
	Body struct {
		Percent float64 `json:"percent" minimum:"0" maximum:"100" doc:"Target position as a percentage of the duration"`
	}
}

// RateInput wraps the rate request for Huma.
type RateInput struct {
	Body struct {
		Rate float64 `json:"rate" exclusiveMinimum:"0" doc:"One of the offered playback rates"`
	}
}

// VolumeInput wraps the volume request for Huma.
type VolumeInput struct {
	Body struct {
		Volume float64 `json:"volume" minimum:"0" maximum:"1" doc:"Volume level"`
	}
}

// ResumeResponse reports whether a saved position was applied.
type ResumeResponse struct {
	Resumed bool                `json:"resumed"`
	State   service.PlayerState `json:"state"`
}

// ResumeOutput wraps the resume result for Huma.
type ResumeOutput struct {
	Body ResumeResponse
}

func (s *Server) handleGetPlayer(_ context.Context, _ *struct{}) (*PlayerOutput, error) {
	p := s.services.Player
	offer, _ := p.ResumeOffer()
	return &PlayerOutput{Body: PlayerResponse{
		State:       p.State(),
		ResumeOffer: offer,
		RateChoices: p.RateChoices(),
	}}, nil
}

func (s *Server) handleLoad(ctx context.Context, input *LoadInput) (*LoadOutput, error) {
	result, err := s.services.Player.Load(ctx, input.Body.Path)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &LoadOutput{Body: *result}, nil
}

func (s *Server) handleSeek(ctx context.Context, input *SeekInput) (*PlayerStateOutput, error) {
	st, err := s.services.Player.SeekPercent(ctx, input.Body.Percent)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &PlayerStateOutput{Body: st}, nil
}

func (s *Server) handleSetRate(ctx context.Context, input *RateInput) (*PlayerStateOutput, error) {
	st, err := s.services.Player.SetRate(ctx, input.Body.Rate)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &PlayerStateOutput{Body: st}, nil
}

func (s *Server) handleSetVolume(ctx context.Context, input *VolumeInput) (*PlayerStateOutput, error) {
	st, err := s.services.Player.SetVolume(ctx, input.Body.Volume)
	if err != nil {
		return nil, toStatusError(err)
	}
	return &PlayerStateOutput{Body: st}, nil
}

func (s *Server) handleResume(ctx context.Context, _ *struct{}) (*ResumeOutput, error) {
	st, ok := s.services.Player.AcceptResume(ctx)
	return &ResumeOutput{Body: ResumeResponse{Resumed: ok, State: st}}, nil
}
