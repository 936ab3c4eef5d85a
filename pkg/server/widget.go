package server

import (
	"net/http"
)

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.face.View(s.monitor.Display(s.loc)), http.StatusOK)
}

// handleWidgetNext cycles the stat shown on the face, like tapping the panel
// icon on the home screen widget.
func (s *Server) handleWidgetNext(w http.ResponseWriter, r *http.Request) {
	s.face.Next()
	s.handleWidget(w, r)
}
