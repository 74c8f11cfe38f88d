package checking_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oversee-cli/internal/api"
	"oversee-cli/internal/apitest"
	"oversee-cli/internal/apperr"
	"oversee-cli/internal/checking"
	"oversee-cli/internal/listsync"
	"oversee-cli/internal/model"
)

type token string

func (t token) Token(context.Context) (string, error) { return string(t), nil }

func setup(t *testing.T, fake *apitest.Server) (*api.Client, *listsync.Controller[model.LineItem]) {
	t.Helper()
	fake.Token = "tok"
	srv := apitest.Start(t, fake)
	client, err := api.New(api.Config{BaseURL: srv.URL, Tokens: token("tok")})
	require.NoError(t, err)

	items := listsync.NewController(func(ctx context.Context) ([]model.LineItem, error) {
		return client.InboundItems(ctx, "1", "5501")
	})
	require.NoError(t, items.Load(context.Background()))
	return client, items
}

func parafusoFixture() apitest.Fixtures {
	return apitest.Fixtures{InboundItems: map[string][]model.LineItem{
		apitest.DocKey("1", "5501"): {{ID: 1, Name: "Parafuso", Code: "001", Quantity: decimal.NewFromInt(50)}},
	}}
}

func TestCheckOverHTTP(t *testing.T) {
	t.Parallel()

	fake := apitest.New(parafusoFixture())
	client, items := setup(t, fake)

	w := checking.New(checking.Scope{Branch: "1", DocumentID: "5501", User: model.User{ID: "008"}}, checking.ListStore{List: items}, client)
	require.NoError(t, w.Select(1))
	require.NoError(t, w.SetQuantity(decimal.NewFromInt(10)))

	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checking.Uncheckable, res.ItemState)
	assert.False(t, res.Reloaded)

	got := items.Canonical()[0]
	assert.True(t, got.Checked)
	assert.True(t, got.CheckedQuantity.Equal(decimal.NewFromInt(10)))
	assert.ErrorIs(t, w.Select(1), checking.ErrAlreadyChecked)

	calls := fake.Checks()
	require.Len(t, calls, 1)
	assert.Equal(t, apitest.CheckCall{ItemID: 1, Branch: "1", DocumentID: "5501", UserID: "008", Checked: "1", Quantity: "10"}, calls[0])
	assert.Equal(t, 1, fake.Hits("GET /nfentradas/itens"), "a matched echo must not reload")
}

func TestCheckOverHTTP_MissingEchoIDReloads(t *testing.T) {
	t.Parallel()

	fake := apitest.New(parafusoFixture())
	fake.OmitEchoID = true
	client, items := setup(t, fake)

	w := checking.New(checking.Scope{Branch: "1", DocumentID: "5501", User: model.User{ID: "008"}}, checking.ListStore{List: items}, client)
	require.NoError(t, w.Select(1))
	res, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Reloaded)
	assert.Equal(t, 2, fake.Hits("GET /nfentradas/itens"))
	assert.True(t, items.Canonical()[0].Checked)
}

func TestCheckOverHTTP_ServerRejection(t *testing.T) {
	t.Parallel()

	fake := apitest.New(parafusoFixture())
	fake.FailCheck = func(int64) (int, string) { return http.StatusConflict, "Nota fechada para conferência" }
	client, items := setup(t, fake)

	w := checking.New(checking.Scope{Branch: "1", DocumentID: "5501"}, checking.ListStore{List: items}, client)
	require.NoError(t, w.Select(1))
	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))
	assert.Equal(t, "Nota fechada para conferência", apperr.UserMessage(err))

	s, open := w.Session()
	require.True(t, open)
	assert.Equal(t, checking.Rejected, s.Phase)
	assert.False(t, items.Canonical()[0].Checked)
}
