// Package tui is the interactive terminal front-end: branch picker, menu,
// searchable document lists, item checking and the support page.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"oversee-cli/internal/clock"
	"oversee-cli/internal/model"
	"oversee-cli/internal/store"
)

var log = logrus.StandardLogger().WithField("package", "tui")

// API is the part of the backend client the screens use.
type API interface {
	Branches(ctx context.Context) ([]model.Branch, error)
	InboundInvoices(ctx context.Context, branch string) ([]model.InboundInvoice, error)
	OutboundInvoices(ctx context.Context, branch string) ([]model.OutboundInvoice, error)
	Requisitions(ctx context.Context, branch string) ([]model.Requisition, error)
	InboundItems(ctx context.Context, branch, invoice string) ([]model.LineItem, error)
	OutboundItems(ctx context.Context, branch, invoice string) ([]model.LineItem, error)
	RequisitionItems(ctx context.Context, branch, number string) ([]model.LineItem, error)
	CheckItem(ctx context.Context, req model.CheckRequest) (model.CheckEcho, error)
}

type Options struct {
	Client API
	Store  store.Store
	// Branch overrides the session's branch code.
	Branch    string
	Debounce  time.Duration
	NavWindow time.Duration
	Profile   string
	// Clock drives search debouncing and navigation locks; nil means real time.
	Clock clock.Clock
}

// Run blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	sess, err := opts.Store.LoadSession(ctx)
	if err != nil {
		return err
	}

	applyThemePreference()
	applyColorProfilePreference()
	applyProfile(opts.Profile)

	m := newAppModel(ctx, opts, sess)
	defer m.shutdown()

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
