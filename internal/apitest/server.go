// Package apitest is an in-memory stand-in for the Oversee backend. Tests and
// cmd/oversee-mockapi serve it over HTTP.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"oversee-cli/internal/model"
)

// Fixtures is the data served. Item maps are keyed by DocKey.
type Fixtures struct {
	Companies        []model.Company
	Inbound          map[string][]model.InboundInvoice
	Outbound         map[string][]model.OutboundInvoice
	Requisitions     map[string][]model.Requisition
	InboundItems     map[string][]model.LineItem
	OutboundItems    map[string][]model.LineItem
	RequisitionItems map[string][]model.LineItem
}

func DocKey(branch, doc string) string { return branch + "/" + doc }

// CheckCall is one PATCH received.
type CheckCall struct {
	ItemID     int64
	Branch     string
	DocumentID string
	UserID     string
	Checked    string
	Quantity   string
}

type Server struct {
	// Token, when set, is the only bearer token accepted.
	Token string
	// Delay is added before every response.
	Delay time.Duration
	// OmitEchoID drops the id from PATCH responses.
	OmitEchoID bool
	// FailCheck, when set and returning a non-zero status, fails the PATCH with
	// that status and message.
	FailCheck func(itemID int64) (status int, message string)

	mu     sync.Mutex
	fx     Fixtures
	checks []CheckCall
	hits   map[string]int
}

func New(fx Fixtures) *Server {
	return &Server{fx: fx, hits: map[string]int{}}
}

// Start serves s on a local listener closed at the end of the test.
func Start(tb testing.TB, s *Server) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(s.Router())
	tb.Cleanup(srv.Close)
	return srv
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.auth)

	r.Get("/empresas", s.companies)
	r.Get("/nfentradas/itens", s.items(func(f *Fixtures) map[string][]model.LineItem { return f.InboundItems }, "nr_nfent"))
	r.Get("/nfsaidas/itens", s.items(func(f *Fixtures) map[string][]model.LineItem { return f.OutboundItems }, "nr_nf"))
	r.Get("/requisicoes/itens", s.items(func(f *Fixtures) map[string][]model.LineItem { return f.RequisitionItems }, "nr_mov"))
	r.Get("/nfentradas/{branch}", s.inbound)
	r.Get("/nfsaidas/{branch}", s.outbound)
	r.Get("/requisicoes/{branch}", s.requisitions)
	r.Patch("/nfentradas/itens/{id}", s.check)
	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		delay := s.Delay
		s.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token inválido ou expirado"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetDelay changes the response delay while the server is running.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.Delay = d
	s.mu.Unlock()
}

// Hits counts requests by "METHOD /path".
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *Server) Checks() []CheckCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CheckCall(nil), s.checks...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func dateOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02T15:04:05.000Z")
}

func (s *Server) companies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.fx.Companies))
	for _, c := range s.fx.Companies {
		branches := make([]map[string]any, 0, len(c.Branches))
		for _, b := range c.Branches {
			branches = append(branches, map[string]any{"cd_fil": b.Code, "nm_fil": b.Name})
		}
		out = append(out, map[string]any{"nm_emp": c.Name, "filiais": branches})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) inbound(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.fx.Inbound[chi.URLParam(r, "branch")]
	out := make([]map[string]any, 0, len(rows))
	for _, n := range rows {
		out = append(out, map[string]any{
			"nr_nfent": n.Number, "cd_forn": n.SupplierCode, "nm_forn": n.SupplierName,
			"dt_emis": dateOrNil(n.IssuedAt), "vl_nota": n.Amount.String(), "nm_fil": n.BranchName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) outbound(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.fx.Outbound[chi.URLParam(r, "branch")]
	out := make([]map[string]any, 0, len(rows))
	for _, n := range rows {
		var shipped any
		if n.ShippedAt != nil {
			shipped = dateOrNil(*n.ShippedAt)
		}
		out = append(out, map[string]any{
			"nr_nf": n.Number, "cd_cli": n.CustomerCode, "nm_cli": n.CustomerName,
			"dt_emis": dateOrNil(n.IssuedAt), "dt_saida": shipped, "vl_nf": n.Amount.String(), "nm_fil": n.BranchName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requisitions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.fx.Requisitions[chi.URLParam(r, "branch")]
	out := make([]map[string]any, 0, len(rows))
	for _, q := range rows {
		out = append(out, map[string]any{"nr_mov": q.Number, "dt_mov": dateOrNil(q.Date), "nm_custo": q.CostCenter})
	}
	writeJSON(w, http.StatusOK, out)
}

func itemJSON(it model.LineItem) map[string]any {
	flag := 0
	if it.Checked {
		flag = 1
	}
	row := map[string]any{
		"id": it.ID, "nm_mat": it.Name, "cd_mat": it.Code,
		"qt_prod": it.Quantity.String(), "sn_check": flag, "qt_check": it.CheckedQuantity.String(),
	}
	if it.Barcode != "" {
		row["cd_gtin"] = it.Barcode
	}
	return row
}

func (s *Server) items(pick func(*Fixtures) map[string][]model.LineItem, docParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branch, doc := r.URL.Query().Get("cd_fil"), r.URL.Query().Get(docParam)
		if branch == "" || doc == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "cd_fil e " + docParam + " são obrigatórios"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rows := pick(&s.fx)[DocKey(branch, doc)]
		out := make([]map[string]any, 0, len(rows))
		for _, it := range rows {
			out = append(out, itemJSON(it))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "id inválido"})
		return
	}
	var body struct {
		Branch     string `json:"cd_fil"`
		DocumentID string `json:"nr_nfent"`
		UserID     string `json:"cd_usu_check"`
		Checked    string `json:"sn_check"`
		Quantity   string `json:"qt_check"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "corpo inválido"})
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(body.Quantity))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "quantidade inválida"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, CheckCall{
		ItemID: id, Branch: body.Branch, DocumentID: body.DocumentID,
		UserID: body.UserID, Checked: body.Checked, Quantity: body.Quantity,
	})
	if s.FailCheck != nil {
		if status, msg := s.FailCheck(id); status != 0 {
			writeJSON(w, status, map[string]string{"message": msg})
			return
		}
	}

	rows := s.fx.InboundItems[DocKey(body.Branch, body.DocumentID)]
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		rows[i].Checked = body.Checked == "1"
		rows[i].CheckedQuantity = qty
		echo := map[string]any{"qt_check": qty.String(), "sn_check": body.Checked}
		if !s.OmitEchoID {
			echo["id"] = id
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": echo})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Item não encontrado"})
}
