package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hperssn/productwizard/internal/domain"
	"github.com/hperssn/productwizard/internal/logging"
	"github.com/hperssn/productwizard/internal/session"
	"github.com/hperssn/productwizard/internal/storage"
	"github.com/hperssn/productwizard/internal/wizard"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

const maxBodyBytes = 1 << 20

// ProductReader serves the completion and listing pages.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*storage.ProductRecord, error)
	ListProducts(ctx context.Context) ([]storage.ProductRecord, error)
}

type Options struct {
	CookieName   string
	SecureCookie bool
}

// Server wires the wizard, the session store and the products table to HTTP.
type Server struct {
	wizard    *wizard.Wizard
	sessions  session.Store
	products  ProductReader
	logger    *zap.Logger
	templates *template.Template
	opts      Options
}

func New(wz *wizard.Wizard, sessions session.Store, products ProductReader, logger *zap.Logger, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"label":     label,
		"stepTitle": stepTitle,
		"stepURL":   stepURL,
	}).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CookieName == "" {
		opts.CookieName = "productwizard_session"
	}

	return &Server{
		wizard:    wz,
		sessions:  sessions,
		products:  products,
		logger:    logger,
		templates: tmpl,
		opts:      opts,
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware(s.opts.CookieName, s.opts.SecureCookie))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products/wizard", http.StatusSeeOther)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Get("/{id}", s.getProduct)

		r.Get("/wizard", s.startWizard)
		r.Get("/wizard/{step}", s.showStep)
		r.Post("/wizard/{step}", s.updateStep)
		r.Patch("/wizard/{step}", s.updateStep)
	})

	return r
}

func (s *Server) loadState(r *http.Request) session.State {
	state, ok := s.sessions.Load(GetSessionID(r))
	if !ok {
		return session.State{}
	}
	return state
}

func (s *Server) startWizard(w http.ResponseWriter, r *http.Request) {
	state, first := s.wizard.Start(s.loadState(r))
	s.sessions.Save(GetSessionID(r), state)

	http.Redirect(w, r, stepURL(first), http.StatusSeeOther)
}

// knownStep resolves the step URL parameter. Unknown steps get a 404 before
// the session is loaded, since loading refreshes its expiry.
func (s *Server) knownStep(w http.ResponseWriter, r *http.Request) (domain.Step, bool) {
	step := domain.Step(chi.URLParam(r, "step"))
	if !s.wizard.Steps().Contains(step) {
		s.respondError(w, r, wizard.ErrStepNotFound.Error(), http.StatusNotFound)
		return "", false
	}
	return step, true
}

type stepPage struct {
	View wizard.View
}

func (s *Server) showStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.knownStep(w, r)
	if !ok {
		return
	}

	view, err := s.wizard.Show(s.loadState(r), step)
	if err != nil {
		s.logger.Error("wizard show failed", zap.String("step", string(step)), zap.Error(err))
		s.respondError(w, r, "could not load step", http.StatusInternalServerError)
		return
	}

	if wantsJSON(r) {
		s.respondJSON(w, view, http.StatusOK)
		return
	}
	s.render(w, "step.gohtml", stepPage{View: view}, http.StatusOK)
}

func (s *Server) updateStep(w http.ResponseWriter, r *http.Request) {
	step, ok := s.knownStep(w, r)
	if !ok {
		return
	}

	submitted, err := submittedFields(w, r)
	if err != nil {
		s.respondError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	id := GetSessionID(r)
	res, err := s.wizard.Update(r.Context(), s.loadState(r), step, submitted)
	if err != nil {
		s.logger.Error("wizard update failed", zap.String("step", string(step)), zap.Error(err))
		s.respondError(w, r, "could not save product", http.StatusInternalServerError)
		return
	}

	switch res.Outcome {
	case wizard.OutcomeAdvance:
		s.sessions.Save(id, res.State)
		if wantsJSON(r) {
			s.respondJSON(w, map[string]any{
				"outcome":  res.Outcome.String(),
				"next":     res.Next,
				"location": stepURL(res.Next),
			}, http.StatusOK)
			return
		}
		http.Redirect(w, r, stepURL(res.Next), http.StatusSeeOther)

	case wizard.OutcomeComplete:
		s.sessions.Save(id, res.State)
		location := productURL(res.Product.ID)
		if wantsJSON(r) {
			w.Header().Set("Location", location)
			s.respondJSON(w, map[string]any{
				"outcome": res.Outcome.String(),
				"product": res.Product,
			}, http.StatusCreated)
			return
		}
		http.Redirect(w, r, location, http.StatusSeeOther)

	default:
		if wantsJSON(r) {
			s.respondJSON(w, map[string]any{
				"outcome": res.Outcome.String(),
				"view":    res.View,
			}, http.StatusUnprocessableEntity)
			return
		}
		s.render(w, "step.gohtml", stepPage{View: res.View}, http.StatusUnprocessableEntity)
	}
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	records, err := s.products.ListProducts(r.Context())
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		s.respondError(w, r, "could not list products", http.StatusInternalServerError)
		return
	}

	products := make([]domain.Product, 0, len(records))
	for i := range records {
		products = append(products, records[i].ToDomain())
	}

	if wantsJSON(r) {
		s.respondJSON(w, products, http.StatusOK)
		return
	}
	s.render(w, "products.gohtml", products, http.StatusOK)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, r, "product not found", http.StatusNotFound)
		return
	}

	record, err := s.products.GetProduct(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, r, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get product failed", zap.Int64("id", id), zap.Error(err))
		s.respondError(w, r, "could not load product", http.StatusInternalServerError)
		return
	}

	product := record.ToDomain()
	if wantsJSON(r) {
		s.respondJSON(w, product, http.StatusOK)
		return
	}
	s.render(w, "product.gohtml", product, http.StatusOK)
}

// submittedFields reads either a JSON object (optionally wrapped in
// {"product": {...}}) or a form body using "product[field]" or bare names.
func submittedFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSONBody(r) {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if nested, ok := raw["product"].(map[string]any); ok {
			raw = nested
		}

		out := make(map[string]string, len(raw))
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				out[k] = v
			case json.Number:
				out[k] = v.String()
			case nil:
			default:
				out[k] = fmt.Sprint(v)
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.PostForm))
	nested := make(map[string]string)
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		if inner, ok := strings.CutPrefix(key, "product["); ok {
			nested[strings.TrimSuffix(inner, "]")] = values[0]
			continue
		}
		out[key] = values[0]
	}
	// product[field] wins over a bare field of the same name.
	for name, value := range nested {
		out[name] = value
	}
	return out, nil
}

func stepURL(step domain.Step) string {
	return "/products/wizard/" + string(step)
}

func productURL(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func label(field string) string {
	if field == "" {
		return ""
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func stepTitle(step domain.Step) string {
	return label(strings.ReplaceAll(strings.TrimPrefix(string(step), "add_"), "_", " "))
}
