package router

import (
	"net/http"
	"strings"

	"github.com/taskkart/backend/internal/auth"
	"github.com/taskkart/backend/internal/handlers"
	"github.com/taskkart/backend/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth        *auth.Handler
	Tasks       *handlers.TaskHandler
	Submissions *handlers.SubmissionHandler
	Wallet      *handlers.WalletHandler
	Profile     *handlers.ProfileHandler
	Stats       *handlers.StatsHandler
	Files       *handlers.FileHandler
}

// New returns an http.Handler that serves the API under /api/v1.
// Everything except auth endpoints requires a valid session; admin-only
// routes are additionally wrapped in RequireAdmin.
func New(h Handlers, authSvc auth.Service) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	session := middleware.SessionAuth(authSvc)
	user := func(fn http.HandlerFunc) http.Handler { return session(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return session(middleware.RequireAdmin(fn)) }

	mux.HandleFunc(base+"/auth/register", methodPOST(h.Auth.Register))
	mux.HandleFunc(base+"/auth/login", methodPOST(h.Auth.Login))

	mux.Handle(base+"/tasks", user(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Tasks.List(w, r)
		case http.MethodPost:
			requireAdminFunc(h.Tasks.Create)(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle(base+"/tasks/", user(func(w http.ResponseWriter, r *http.Request) {
		switch tail(r.URL.Path, base+"/tasks/") {
		case "":
			switch r.Method {
			case http.MethodGet:
				h.Tasks.Get(w, r)
			case http.MethodPatch:
				requireAdminFunc(h.Tasks.Update)(w, r)
			case http.MethodDelete:
				requireAdminFunc(h.Tasks.Delete)(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
		case "close-preview":
			requireAdminFunc(methodGET(h.Tasks.ClosePreview))(w, r)
		case "close":
			requireAdminFunc(methodPOST(h.Tasks.Close))(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	mux.Handle(base+"/submissions", user(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Submissions.ListMine(w, r)
		case http.MethodPost:
			h.Submissions.Create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.Handle(base+"/submissions/", admin(methodPATCH(h.Submissions.Review)))

	mux.Handle(base+"/wallet", user(methodGET(h.Wallet.Get)))
	mux.Handle(base+"/profile", user(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Profile.Get(w, r)
		case http.MethodPatch:
			h.Profile.Update(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	mux.Handle(base+"/stats", admin(methodGET(h.Stats.Get)))
	mux.Handle(base+"/files/", user(methodGET(h.Files.URL)))

	return mux
}

// tail returns the path segment after the resource ID, e.g. "close" for
// /api/v1/tasks/{id}/close.
func tail(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.Trim(parts[1], "/")
}

func requireAdminFunc(fn http.HandlerFunc) http.HandlerFunc {
	h := middleware.RequireAdmin(fn)
	return h.ServeHTTP
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPOST(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPATCH(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
