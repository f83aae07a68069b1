package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/listenup-player/internal/library"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/library",
		Summary:     "List library",
		Description: "Returns the audio files in the media directory",
		Tags:        []string{"Library"},
	}, s.handleListLibrary)
}

// LibraryFile describes one playable file.
type LibraryFile struct {
	Name            string    `json:"name" doc:"File name, the key progress is saved under"`
	Path            string    `json:"path" doc:"Path relative to the library root, used to load the file"`
	Title           string    `json:"title" doc:"Embedded title, or the file name"`
	Series          string    `json:"series,omitempty" doc:"Embedded series"`
	Format          string    `json:"format,omitempty" doc:"Container format"`
	SizeKB          int64     `json:"size_kb" doc:"Size in KB"`
	DurationSeconds float64   `json:"duration_seconds" doc:"Length in seconds, 0 when unknown"`
	ModifiedAt      time.Time `json:"modified_at" doc:"Last modification time"`
}

// LibraryResponse contains the library listing.
type LibraryResponse struct {
	Files []LibraryFile `json:"files" doc:"Audio files sorted by path"`
}

// LibraryOutput wraps the library listing for Huma.
type LibraryOutput struct {
	Body LibraryResponse
}

func (s *Server) handleListLibrary(ctx context.Context, _ *struct{}) (*LibraryOutput, error) {
	entries, err := s.services.Player.Library(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}

	files := make([]LibraryFile, 0, len(entries))
	for _, e := range entries {
		files = append(files, toLibraryFile(e))
	}
	return &LibraryOutput{Body: LibraryResponse{Files: files}}, nil
}

func toLibraryFile(e library.Entry) LibraryFile {
	return LibraryFile{
		Name:            e.Name,
		Path:            e.Path,
		Title:           e.Title,
		Series:          e.Series,
		Format:          e.Format,
		SizeKB:          e.SizeKB(),
		DurationSeconds: e.Duration.Seconds(),
		ModifiedAt:      e.ModTime,
	}
}
