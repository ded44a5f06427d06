package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mkalnins/revtrack/internal/actor"
	"github.com/mkalnins/revtrack/internal/core"
	"github.com/mkalnins/revtrack/internal/diff"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/mkalnins/revtrack/internal/store"
)

// editorHeader names the request header carrying the acting editor
// identity for mutating endpoints. Absence records an anonymous change.
const editorHeader = "X-Editor"

// Handler creates the HTTP handler with all routes and middleware.
func Handler(st *store.Store, reg *registry.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /v1/objects/{type}/{id}/state", makeStateHandler(st, reg))
	mux.HandleFunc("PUT /v1/objects/{type}/{id}", makeSaveHandler(st, reg))
	mux.HandleFunc("GET /v1/objects/{type}/{id}/revisions", makeLogHandler(st))
	mux.HandleFunc("GET /v1/objects/{type}/{id}/revisions/{n}", makeGetRevisionHandler(st))
	mux.HandleFunc("GET /v1/objects/{type}/{id}/revisions/{n}/diff", makeDiffHandler(st, reg))
	mux.HandleFunc("POST /v1/objects/{type}/{id}/revert/{n}", makeRevertHandler(st, reg))

	return applyMiddleware(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		requestIDMiddleware,
	)
}

// pathRef extracts the object reference from the route.
func pathRef(r *http.Request) models.ObjectRef {
	return models.ObjectRef{Type: r.PathValue("type"), ID: r.PathValue("id")}
}

// pathRevision parses the {n} path segment as a positive revision number.
func pathRevision(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		return 0, errors.New("revision must be a positive integer")
	}
	return n, nil
}

func makeStateHandler(st *store.Store, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)

		if at := r.URL.Query().Get("at"); at != "" {
			n, err := strconv.Atoi(at)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "bad_request", "at must be a positive integer")
				return
			}
			fields, err := core.Reconstruct(r.Context(), st, reg, ref, n)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "at": n, "fields": fields})
			return
		}

		fields, err := st.GetObject(r.Context(), ref)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "fields": fields})
	}
}

func makeSaveHandler(st *store.Store, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)

		var body struct {
			Fields  map[string]string `json:"fields"`
			Comment string            `json:"comment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
			return
		}
		if len(body.Fields) == 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "fields are required")
			return
		}

		ctx := actor.With(r.Context(), r.Header.Get(editorHeader), clientIP(r))

		existed, err := st.HasObject(ctx, ref)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		rev, err := core.Save(ctx, st, reg, ref, body.Fields, core.Meta{Comment: body.Comment})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if rev == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "changed": false})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ref": ref, "changed": true, "created": !existed, "revision": rev})
	}
}

func makeLogHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)

		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		revs, err := st.Log(r.Context(), ref, limit)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "revisions": revs})
	}
}

func makeGetRevisionHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)
		n, err := pathRevision(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		rev, err := st.GetRevision(r.Context(), ref, n)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rev)
	}
}

func makeDiffHandler(st *store.Store, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)
		n, err := pathRevision(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		fds, err := core.RenderDiff(r.Context(), st, reg, ref, n)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		type fieldDiff struct {
			Field string `json:"field"`
			HTML  string `json:"html"`
		}
		out := make([]fieldDiff, 0, len(fds))
		for _, fd := range fds {
			out = append(out, fieldDiff{Field: fd.Field, HTML: fd.HTML})
		}
		writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "revision": n, "diffs": out})
	}
}

func makeRevertHandler(st *store.Store, reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := pathRef(r)
		n, err := pathRevision(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		ctx := actor.With(r.Context(), r.Header.Get(editorHeader), clientIP(r))
		rev, err := core.Revert(ctx, st, reg, ref, n, core.Meta{})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if rev == nil {
			writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "reverted": false})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ref": ref, "reverted": true, "revision": rev})
	}
}

// writeEngineError maps engine and store errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrRevisionConflictExhausted):
		writeError(w, http.StatusConflict, "revision_conflict", err.Error())
	case errors.Is(err, diff.ErrMalformedDelta), errors.Is(err, core.ErrFingerprintMismatch):
		writeError(w, http.StatusInternalServerError, "corrupt_history", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
