package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/report"
	"github.com/pivolan/eda_dashboard/session"
	"github.com/pivolan/eda_dashboard/upload"
)

//go:embed templates/*.html
var templateFiles embed.FS

const sessionCookie = "eda_session"

// multipart parts above this are spooled to disk by net/http
const maxMemory = 32 << 20

type sessionKey struct{}

type dashboard struct {
	store     *session.Store
	templates *template.Template
}

// pageData is what templates/index.html renders.
type pageData struct {
	session.View
	Kinds []plot.Kind
	Form  models.AggregationRequest
}

var funcMap = template.FuncMap{
	"pct": func(missing, rows int64) string {
		if rows <= 0 {
			return ""
		}
		return plot.FormatValue(float64(missing)*100/float64(rows)) + "%"
	},
}

func newRouter(store *session.Store) http.Handler {
	templates := template.Must(template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html"))
	d := &dashboard{store: store, templates: templates}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(d.withSession)

	r.Get("/", d.handleIndex)
	r.Post("/upload", d.handleUpload)
	r.Post("/aggregate", d.handleAggregate)
	r.Post("/chart/kind", d.handleChartKind)
	r.Post("/chart/toggle", d.handleChartToggle)
	r.Get("/chart", d.handleChart)
	r.Get("/chart.png", d.handleChart)
	r.Get("/chart/missing", d.handleMissingChart)
	r.Get("/api/view", d.handleView)
	r.Get("/export.xlsx", d.handleExport)
	return r
}

// withSession binds the request to a session. ?id= from a bot link wins
// over the cookie, unknown ids get a fresh session.
func (d *dashboard) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			sess *session.Session
			id   string
		)
		if q := r.URL.Query().Get("id"); q != "" {
			if s, ok := d.store.Get(q); ok {
				sess, id = s, q
			}
		}
		if sess == nil {
			if c, err := r.Cookie(sessionCookie); err == nil {
				if s, ok := d.store.Get(c.Value); ok {
					sess, id = s, c.Value
				}
			}
		}
		if sess == nil {
			sess = d.store.Create()
			id = sess.ID
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

func (d *dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r).Current()
	form := v.Request
	if form.Function == "" {
		form.Function = models.DefaultAggregationFunction
	}
	data := pageData{View: v, Kinds: plot.Kinds, Form: form}

	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (d *dashboard) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var f upload.File
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Printf("session %s: parse upload form: %v", sess.ID, err)
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "Error reading file", http.StatusBadRequest)
			return
		}
		f = upload.File{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// пустой File даст notice "Please select a file first"
	default:
		http.Error(w, "Error uploading file", http.StatusBadRequest)
		return
	}

	if err := handleFile(r.Context(), sess, f); err != nil {
		log.Printf("session %s: upload: %v", sess.ID, err)
	}
	d.respond(w, r)
}

func (d *dashboard) handleAggregate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	req, err := parseAggregation(r.FormValue("cat_col"), r.FormValue("con_col"), r.FormValue("agg_func"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.Aggregate(r.Context(), req); err != nil && !errors.Is(err, session.ErrStaleResponse) {
		log.Printf("session %s: aggregate: %v", sess.ID, err)
	}
	d.respond(w, r)
}

func (d *dashboard) handleChartKind(w http.ResponseWriter, r *http.Request) {
	kind, err := plot.ParseKind(r.FormValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessionFrom(r).SetChartKind(kind)
	d.respond(w, r)
}

func (d *dashboard) handleChartToggle(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).ToggleChart()
	d.respond(w, r)
}

// handleChart renders the current result chart, as html by default and as
// png for /chart.png.
func (d *dashboard) handleChart(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r).Peek()
	if v.Error != "" {
		http.Error(w, v.Error, http.StatusUnprocessableEntity)
		return
	}
	if v.Chart == nil {
		http.Error(w, "no aggregation result", http.StatusNotFound)
		return
	}
	var renderer plot.Renderer = plot.HTMLRenderer{}
	if strings.HasSuffix(r.URL.Path, ".png") {
		renderer = plot.PNGRenderer{}
	}
	writeChart(w, renderer, *v.Chart)
}

func (d *dashboard) handleMissingChart(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r).Peek()
	if v.MissingChart == nil {
		http.Error(w, "no missing values", http.StatusNotFound)
		return
	}
	writeChart(w, plot.HTMLRenderer{}, *v.MissingChart)
}

func (d *dashboard) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Current())
}

func (d *dashboard) handleExport(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r).Peek()
	if v.Result == nil {
		http.Error(w, "no aggregation result", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, *v.Result); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	name := "aggregation.xlsx"
	if v.Chart != nil {
		name = plot.FileName(*v.Chart, "xlsx")
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	buf.WriteTo(w)
}

// respond answers a form post. Scripts asking for JSON get the view, the
// plain form gets redirected back to the page.
func (d *dashboard) respond(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, sessionFrom(r).Current())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeChart(w http.ResponseWriter, renderer plot.Renderer, spec plot.Spec) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, spec); err != nil {
		if errors.Is(err, plot.ErrEmptyChart) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("render chart %q: %v", spec.Layout.Title, err)
		http.Error(w, "Error rendering chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
