// Package checking drives the conference of inbound invoice line items: pick an
// unchecked item, adjust the quantity found, and send it to the server, which has
// the final word on the item's checked state.
package checking

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/model"
)

var log = logrus.StandardLogger().WithField("package", "checking")

type State int

const (
	Uncheckable State = iota
	Selectable
	Editing
	Submitting
	Committed
	Rejected
)

func (s State) String() string {
	switch s {
	case Uncheckable:
		return "uncheckable"
	case Selectable:
		return "selectable"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Scope is what every check of one document is addressed to.
type Scope struct {
	Branch     string
	DocumentID string
	User       model.User
}

// ItemStore is the part of the line-item list the workflow may touch.
type ItemStore interface {
	Item(id int64) (model.LineItem, bool)
	ReplaceItem(id int64, update func(model.LineItem) model.LineItem) bool
	Reload(ctx context.Context) error
}

type Patcher interface {
	CheckItem(ctx context.Context, req model.CheckRequest) (model.CheckEcho, error)
}

var (
	ErrNoSession      = apperr.Validation(apperr.CodeNoSession, "no item selected")
	ErrBusy           = apperr.Validation(apperr.CodeBusy, "a check is already being sent")
	ErrAlreadyChecked = apperr.Validation(apperr.CodeAlreadyChecked, "item already checked")
	ErrInvalidItem    = apperr.Validation(apperr.CodeInvalidItem, "invalid item")
	ErrMissingScope   = apperr.Validation(apperr.CodeMissingScope, "branch or document not set")
	ErrInvalidQty     = apperr.Validation(apperr.CodeInvalidQuantity, "invalid quantity")
)

// Session is the open edit of one item.
type Session struct {
	Item     model.LineItem
	Quantity decimal.Decimal
	Phase    State
	// Err is the reason of the last rejected submit.
	Err error
}

// Result describes a successful submit.
type Result struct {
	Item model.LineItem
	// Outcome is Committed for every accepted submit.
	Outcome State
	// ItemState is where the item settles afterwards: Uncheckable when the
	// server says it is checked, Selectable otherwise.
	ItemState State
	// Reloaded is true when the response could not be matched to the list and
	// the whole list was fetched again instead.
	Reloaded bool
}

// Workflow holds at most one editing session at a time.
type Workflow struct {
	scope   Scope
	items   ItemStore
	patcher Patcher

	mu      sync.Mutex
	session *Session
}

func New(scope Scope, items ItemStore, patcher Patcher) *Workflow {
	return &Workflow{scope: scope, items: items, patcher: patcher}
}

func (w *Workflow) Scope() Scope { return w.scope }

// Select opens a session on an unchecked item with quantity 1.
func (w *Workflow) Select(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil && w.session.Phase == Submitting {
		return ErrBusy
	}
	item, ok := w.items.Item(id)
	if !ok {
		return ErrInvalidItem
	}
	if item.Checked {
		return ErrAlreadyChecked
	}
	w.session = &Session{Item: item, Quantity: decimal.NewFromInt(1), Phase: Editing}
	return nil
}

func (w *Workflow) Increment() error {
	return w.adjust(func(q decimal.Decimal) decimal.Decimal { return q.Add(decimal.NewFromInt(1)) })
}

func (w *Workflow) Decrement() error {
	return w.adjust(func(q decimal.Decimal) decimal.Decimal { return q.Sub(decimal.NewFromInt(1)) })
}

// SetQuantity sets the quantity, clamped to [0, available].
func (w *Workflow) SetQuantity(q decimal.Decimal) error {
	return w.adjust(func(decimal.Decimal) decimal.Decimal { return q })
}

func (w *Workflow) adjust(next func(decimal.Decimal) decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.session
	if s == nil {
		return ErrNoSession
	}
	if s.Phase == Submitting {
		return ErrBusy
	}
	s.Quantity = Clamp(next(s.Quantity), s.Item.Quantity)
	s.Phase = Editing
	return nil
}

// Clamp bounds q to [0, available].
func Clamp(q, available decimal.Decimal) decimal.Decimal {
	if q.GreaterThan(available) {
		q = available
	}
	if q.IsNegative() {
		q = decimal.Zero
	}
	return q
}

// Submit validates the session locally, then sends it. On a network failure the
// session stays open as Rejected and nothing local changes.
func (w *Workflow) Submit(ctx context.Context) (Result, error) {
	w.mu.Lock()
	s := w.session
	if s == nil {
		w.mu.Unlock()
		return Result{}, ErrNoSession
	}
	if s.Phase == Submitting {
		w.mu.Unlock()
		return Result{}, ErrBusy
	}
	if err := w.validateLocked(s); err != nil {
		w.mu.Unlock()
		return Result{}, err
	}
	qty := Clamp(s.Quantity, s.Item.Quantity)
	s.Quantity = qty
	s.Phase = Submitting
	s.Err = nil
	req := model.CheckRequest{
		ItemID:          s.Item.ID,
		BranchCode:      w.scope.Branch,
		DocumentID:      w.scope.DocumentID,
		UserID:          w.scope.User.ID,
		Checked:         qty.IsPositive(),
		CheckedQuantity: qty,
	}
	w.mu.Unlock()

	echo, err := w.patcher.CheckItem(ctx, req)
	if err != nil {
		w.mu.Lock()
		if w.session == s {
			s.Phase = Rejected
			s.Err = err
		}
		w.mu.Unlock()
		log.WithError(err).WithField("item", req.ItemID).Warn("check rejected")
		return Result{}, err
	}

	w.mu.Lock()
	if w.session == s {
		w.session = nil
	}
	w.mu.Unlock()

	if echo.HasID && echo.ID == req.ItemID {
		var updated model.LineItem
		ok := w.items.ReplaceItem(req.ItemID, func(it model.LineItem) model.LineItem {
			it.Checked = echo.Checked
			if echo.HasQuantity {
				it.CheckedQuantity = echo.CheckedQuantity
			} else {
				it.CheckedQuantity = req.CheckedQuantity
			}
			updated = it
			return it
		})
		if ok {
			return Result{Item: updated, Outcome: Committed, ItemState: stateOf(updated)}, nil
		}
	}

	gap := apperr.Reconciliation(fmt.Sprintf("check response for item %d did not match the list", req.ItemID))
	log.WithError(gap).Info("reloading items")
	if err := w.items.Reload(ctx); err != nil {
		return Result{Reloaded: true}, fmt.Errorf("reload items: %w", err)
	}
	res := Result{Reloaded: true, Outcome: Committed, ItemState: Selectable}
	if it, ok := w.items.Item(req.ItemID); ok {
		res.Item = it
		res.ItemState = stateOf(it)
	}
	return res, nil
}

func (w *Workflow) validateLocked(s *Session) error {
	if s.Item.ID <= 0 {
		return ErrInvalidItem
	}
	if w.scope.Branch == "" || w.scope.DocumentID == "" {
		return ErrMissingScope
	}
	if s.Quantity.IsNegative() {
		return ErrInvalidQty
	}
	return nil
}

// Cancel closes the session unless it is being submitted.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil && w.session.Phase == Submitting {
		return ErrBusy
	}
	w.session = nil
	return nil
}

// Session returns a copy of the open session.
func (w *Workflow) Session() (Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return Session{}, false
	}
	return *w.session, true
}

// ItemState reports how the screen should treat item.
func (w *Workflow) ItemState(item model.LineItem) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != nil && w.session.Item.ID == item.ID {
		return w.session.Phase
	}
	return stateOf(item)
}

func stateOf(item model.LineItem) State {
	if item.Checked {
		return Uncheckable
	}
	return Selectable
}
