package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	photoingest "github.com/LPDavidbdeb/court-sub000/internal/ingest/photo"
)

type ImportPhotosRequest struct {
	SourceDirectory string `json:"source_directory" form:"source_directory"`
	Mode            string `json:"mode" form:"mode"`
	PhotoTypeID     int    `json:"photo_type_id" form:"photo_type_id"`
}

// ImportPhotos streams one server-sent event per processed file. Interactive
// mode is CLI-only; over HTTP a file without a date is skipped.
func (s *Server) ImportPhotos(c *gin.Context) {
	var req ImportPhotosRequest
	if err := c.ShouldBind(&req); err != nil || req.SourceDirectory == "" && req.Mode != photoingest.ModeClean {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Mode == "" {
		req.Mode = photoingest.ModeAddByPath
	}
	if req.Mode == photoingest.ModeAddInteractive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interactive mode runs through the CLI"})
		return
	}

	events := make(chan photoingest.Event, 16)
	done := make(chan error, 1)
	go func() {
		_, err := s.Photos.Run(c.Request.Context(), req.SourceDirectory, req.Mode, req.PhotoTypeID, events)
		done <- err
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		ev, open := <-events
		if !open {
			return false
		}
		c.SSEvent("message", ev.HTML)
		return true
	})

	if err := <-done; err != nil {
		// The stream is already committed; the error only reaches the log.
		c.SSEvent("message", "<p class=\"error\">Le traitement s'est interrompu.</p>")
	}
}
