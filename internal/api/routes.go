// Package api exposes the grid operations as HTTP/JSON endpoints and
// provides a client for them.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/grid/internal/auth"
)

func SetupRoutes(h *GridHandler, mw *auth.Middleware) *mux.Router {
	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Handle("/api/v1/session", mw.OptionalAuth(http.HandlerFunc(h.GetSession))).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(mw.RequireAuth)

	v1.HandleFunc("/tables/default", h.GetOrCreateDefaultTable).Methods("GET")
	v1.HandleFunc("/bases", h.GetBases).Methods("GET")
	v1.HandleFunc("/bases", h.CreateBase).Methods("POST")
	v1.HandleFunc("/bases/{baseID}/tables", h.CreateTable).Methods("POST")
	v1.HandleFunc("/tables/{tableID}", h.GetTable).Methods("GET")
	v1.HandleFunc("/tables/{tableID}/rows", h.GetTableRows).Methods("GET")
	v1.HandleFunc("/tables/{tableID}/rows", h.AddRow).Methods("POST")
	v1.HandleFunc("/tables/{tableID}/rows/bulk", h.AddBulkRows).Methods("POST")
	v1.HandleFunc("/tables/{tableID}/cells", h.UpdateCell).Methods("POST")
	v1.HandleFunc("/tables/{tableID}/cells", h.PatchCell).Methods("PATCH")
	v1.HandleFunc("/tables/{tableID}/columns", h.AddColumn).Methods("POST")

	return r
}
