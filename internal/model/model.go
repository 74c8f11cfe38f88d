// Package model holds the records the Oversee screens list and check.
package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Branch struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (b Branch) Key() string { return b.Code }

func (b Branch) SearchFields(numericFirst bool) []string {
	if numericFirst {
		return []string{b.Code, b.Name}
	}
	return []string{b.Name, b.Code}
}

type Company struct {
	Name     string   `json:"name"`
	Branches []Branch `json:"branches"`
}

// User is the person checking items, as known to the server.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u User) IsZero() bool { return u.ID == "" }

type InboundInvoice struct {
	Number       string          `json:"number"`
	SupplierCode string          `json:"supplierCode"`
	SupplierName string          `json:"supplierName"`
	IssuedAt     time.Time       `json:"issuedAt"`
	Amount       decimal.Decimal `json:"amount"`
	BranchName   string          `json:"branchName,omitempty"`
}

func (n InboundInvoice) Key() string { return n.Number }

func (n InboundInvoice) SearchFields(numericFirst bool) []string {
	if numericFirst {
		return []string{n.Number, n.SupplierCode, n.SupplierName}
	}
	return []string{n.SupplierName, n.SupplierCode, n.Number}
}

type OutboundInvoice struct {
	Number       string          `json:"number"`
	CustomerCode string          `json:"customerCode"`
	CustomerName string          `json:"customerName"`
	IssuedAt     time.Time       `json:"issuedAt"`
	ShippedAt    *time.Time      `json:"shippedAt,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	BranchName   string          `json:"branchName,omitempty"`
}

func (n OutboundInvoice) Key() string { return n.Number }

func (n OutboundInvoice) SearchFields(numericFirst bool) []string {
	if numericFirst {
		return []string{n.Number, n.CustomerCode, n.CustomerName}
	}
	return []string{n.CustomerName, n.CustomerCode, n.Number}
}

// Requisition is a material requisition (internal stock movement).
type Requisition struct {
	Number     string    `json:"number"`
	Date       time.Time `json:"date"`
	CostCenter string    `json:"costCenter"`
}

func (r Requisition) Key() string { return r.Number }

func (r Requisition) SearchFields(numericFirst bool) []string {
	if numericFirst {
		return []string{r.Number, r.CostCenter}
	}
	return []string{r.CostCenter, r.Number}
}

// LineItem is one material line of an invoice or requisition.
//
// Checked and CheckedQuantity only ever come from the server: a fetch or the
// echo of a successful check.
type LineItem struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Quantity        decimal.Decimal `json:"quantity"`
	Barcode         string          `json:"barcode,omitempty"`
	Checked         bool            `json:"checked"`
	CheckedQuantity decimal.Decimal `json:"checkedQuantity"`
}

func (i LineItem) Key() string { return strconv.FormatInt(i.ID, 10) }

func (i LineItem) SearchFields(numericFirst bool) []string {
	if numericFirst {
		return []string{i.Code, i.Barcode, i.Name}
	}
	return []string{i.Name, i.Code, i.Barcode}
}

// CheckRequest marks one inbound line item as conferred (or not) by a user.
type CheckRequest struct {
	ItemID          int64
	BranchCode      string
	DocumentID      string
	UserID          string
	Checked         bool
	CheckedQuantity decimal.Decimal
}

// CheckEcho is the server's authoritative view of an item after a check.
// HasID is false when the response did not identify the item.
type CheckEcho struct {
	ID              int64
	HasID           bool
	Checked         bool
	CheckedQuantity decimal.Decimal
	HasQuantity     bool
}
