package httpx

import (
	"bytes"
	"html/template"
	"net/http"

	domainauth "github.com/harborline/backoffice/internal/domain/auth"
)

const pageLayout = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Harborline back-office</title>
<link rel="stylesheet" href="/static/styles.css"></head>
<body><main>{{template "content" .}}</main></body></html>`

//nolint:gochecknoglobals // parsed once at init; read-only afterwards
var (
	pageSignedOut = mustPage(`{{define "content"}}<h1>Signed out</h1>
<p>You have been signed out.</p><p><a href="/auth/login">Sign in again</a></p>{{end}}`)
	pageDenied = mustPage(`{{define "content"}}<h1>Access denied</h1>
<p>{{.Message}}</p><p><a href="/auth/login">Sign in</a></p>{{end}}`)
	pageHome = mustPage(`{{define "content"}}<h1>Back-office</h1>
<p>Signed in as {{.Email}} ({{.Role}}).</p>
<ul><li><a href="/api/shipments">Shipment history</a></li><li><a href="/auth/logout">Sign out</a></li></ul>{{end}}`)
	pageClientDashboard = mustPage(`{{define "content"}}<h1>{{.Organization}}</h1>
<p>Signed in as {{.Email}}.</p>
<ul><li><a href="/api/shipments">Your shipments</a></li><li><a href="/auth/logout">Sign out</a></li></ul>{{end}}`)
)

type pageData struct {
	Message      string
	Email        string
	Role         string
	Organization string
}

func mustPage(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(pageLayout))
	return template.Must(t.Parse(content))
}

// renderPage buffers the render so a template failure never leaves a half-written page.
func renderPage(w http.ResponseWriter, status int, t *template.Template, data pageData) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Home handles GET /. Client sessions are sent to their dashboard.
func Home(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if sess.Role == domainauth.RoleClient {
		http.Redirect(w, r, LandingPath(sess), http.StatusFound)
		return
	}
	renderPage(w, http.StatusOK, pageHome, pageData{Email: sess.Email, Role: string(sess.Role)})
}

// ClientDashboard handles GET /client/dashboard?org=<organization>.
func ClientDashboard(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	org := r.URL.Query().Get("org")
	if sess.Role == domainauth.RoleClient && org != sess.Organization {
		http.Redirect(w, r, LandingPath(sess), http.StatusSeeOther)
		return
	}
	renderPage(w, http.StatusOK, pageClientDashboard, pageData{Email: sess.Email, Organization: org})
}
