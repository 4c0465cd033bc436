package web

import (
	"errors"
	"net/http"

	"cumeal/internal/adapters/backend"
	"cumeal/internal/adapters/http/middleware"
	"cumeal/internal/application/orchestrators"
	"cumeal/internal/domain/audit"
)

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/menus", http.StatusSeeOther)
			return
		}
		data := map[string]any{"Title": "Login"}
		if r.URL.Query().Get("expired") != "" {
			data["Notice"] = backend.ErrSessionExpired.Error()
		}
		renderTemplate(w, r, "login.html", data)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.LoginInput{
			Username:  r.FormValue("username"),
			Password:  r.FormValue("password"),
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		sess, err := orchestrators.ExecuteLogin(r.Context(), input, authDeps())
		if err != nil {
			msg := "Login failed: " + err.Error()
			if errors.Is(err, orchestrators.ErrMissingCredentials) {
				msg = err.Error()
			}
			renderTemplateStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{
				"Title":    "Login",
				"Error":    msg,
				"Username": input.Username,
			})
			return
		}

		middleware.SetSessionCookie(w, sess.Token)
		http.Redirect(w, r, "/menus", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		ctx := audit.WithActor(r.Context(), audit.Actor{
			ID:        sess.AccountID,
			Name:      sess.Username,
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		if err := orchestrators.ExecuteLogout(ctx, sess, authDeps()); err != nil {
			internalError(w, err)
			return
		}
		registry.Drop(sess.Token)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
