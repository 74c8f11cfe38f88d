package api

import (
	"context"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/h2non/gock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/model"
)

const testAPI = "http://api.oversee.test"

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: testAPI + "/", Tokens: staticToken("tok-123")})
	require.NoError(t, err)
	return c
}

func TestInboundInvoices_DecodesAndSkipsInvalidRows(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Get("/nfentradas/1").
		MatchHeader("Authorization", "^Bearer tok-123$").
		HeaderPresent("X-Request-ID").
		Reply(http.StatusOK).
		JSON([]map[string]any{
			{"nr_nfent": 1001, "cd_forn": "77", "nm_forn": "Açúcar União", "dt_emis": "2025-03-04T00:00:00.000Z", "vl_nota": "1520.40", "nm_fil": "Matriz"},
			{"nr_nfent": "2040", "cd_forn": 78, "nm_forn": "Parafusos SA", "dt_emis": "2025-03-05", "vl_nota": 99.9},
			{"cd_forn": "79", "nm_forn": "sem número"},
			{"nr_nfent": map[string]any{"bad": true}},
		})

	got, err := newTestClient(t).InboundInvoices(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "1001", got[0].Number)
	assert.Equal(t, "Açúcar União", got[0].SupplierName)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("1520.40")))
	assert.Equal(t, 2025, got[0].IssuedAt.Year())
	assert.Equal(t, "78", got[1].SupplierCode)
	assert.True(t, gock.IsDone())
}

func TestCompanies_FlattenToBranches(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Get("/empresas").
		Reply(http.StatusOK).
		JSON([]map[string]any{
			{"nm_emp": "Lemarq", "filiais": []map[string]any{{"cd_fil": 1, "nm_fil": "Matriz"}, {"nm_fil": "sem código"}}},
			{"nm_emp": "Outra", "filiais": []map[string]any{{"cd_fil": "2", "nm_fil": "Filial Norte"}}},
		})

	branches, err := newTestClient(t).Branches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Branch{{Code: "1", Name: "Matriz"}, {Code: "2", Name: "Filial Norte"}}, branches)
}

func TestInboundItems_QueryAndFlags(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Get("/nfentradas/itens").
		MatchParam("cd_fil", "^1$").
		MatchParam("nr_nfent", "^5501$").
		Reply(http.StatusOK).
		JSON([]map[string]any{
			{"id": 1, "nm_mat": "Parafuso", "cd_mat": "001", "qt_prod": 50, "sn_check": 0},
			{"id": "2", "nm_mat": "Porca", "cd_mat": "002", "qt_prod": "12.5", "cd_gtin": "7891234567895", "sn_check": "1", "qt_check": 12},
			{"id": "x", "nm_mat": "inválido"},
		})

	items, err := newTestClient(t).InboundItems(context.Background(), "1", "5501")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].Checked)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(50)))
	assert.True(t, items[1].Checked)
	assert.Equal(t, "7891234567895", items[1].Barcode)
	assert.True(t, items[1].CheckedQuantity.Equal(decimal.NewFromInt(12)))
}

func TestCheckItem_SendsBodyAndReadsEcho(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Patch("/nfentradas/itens/1").
		JSON(map[string]string{"cd_fil": "1", "nr_nfent": "5501", "cd_usu_check": "008", "sn_check": "1", "qt_check": "10"}).
		Reply(http.StatusOK).
		JSON(map[string]any{"data": map[string]any{"id": 1, "qt_check": "10", "sn_check": 1}})

	echo, err := newTestClient(t).CheckItem(context.Background(), model.CheckRequest{
		ItemID: 1, BranchCode: "1", DocumentID: "5501", UserID: "008",
		Checked: true, CheckedQuantity: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.True(t, echo.HasID)
	assert.Equal(t, int64(1), echo.ID)
	assert.True(t, echo.Checked)
	assert.True(t, echo.CheckedQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, gock.IsDone())
}

func TestCheckItem_EchoWithoutID(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Patch("/nfentradas/itens/3").
		Reply(http.StatusOK).
		JSON(map[string]any{"ok": true})

	echo, err := newTestClient(t).CheckItem(context.Background(), model.CheckRequest{ItemID: 3, CheckedQuantity: decimal.Zero})
	require.NoError(t, err)
	assert.False(t, echo.HasID)
	assert.False(t, echo.HasQuantity)
}

func TestErrorStatusCarriesServerMessage(t *testing.T) {
	defer gock.Off()

	gock.New(testAPI).
		Patch("/nfentradas/itens/1").
		Reply(http.StatusUnprocessableEntity).
		JSON(map[string]string{"message": "Item já conferido"})

	_, err := newTestClient(t).CheckItem(context.Background(), model.CheckRequest{ItemID: 1})
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))
	assert.Equal(t, "Item já conferido", apperr.UserMessage(err))

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, e.Status)
}

func TestNew_RejectsBadURLs(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestCATransport_TrustsOnlyGivenCA(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"nr_mov": 12, "nm_custo": "Manutenção", "dt_mov": "2025-02-01"}]`))
	}))
	t.Cleanup(srv.Close)

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caPath, pemBytes, 0o600))

	c, err := New(Config{BaseURL: srv.URL, CAPath: caPath})
	require.NoError(t, err)
	reqs, err := c.Requisitions(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Manutenção", reqs[0].CostCenter)

	plain, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = plain.Requisitions(context.Background(), "1")
	assert.True(t, apperr.IsNetwork(err), "an unknown CA must be refused")
}

func TestCATransport_BadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := newCATransport(filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not pem"), 0o600))
	_, err = newCATransport(empty)
	assert.Error(t, err)

	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1}}), 0o600))
	_, err = newCATransport(key)
	assert.Error(t, err)
}
