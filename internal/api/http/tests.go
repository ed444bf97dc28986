package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GET /tests
func ListTestsHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTests(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /tests/{testID}  (answer keys stripped)
func GetTestHandler(svc QuizService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
