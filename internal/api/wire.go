package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"oversee-cli/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// flexString accepts a JSON string, number or null. The backend sends codes and
// document numbers either way.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected string or number, got %s", b)
	default:
		*s = flexString(b)
	}
	return nil
}

func (s flexString) String() string { return string(s) }

// flexFlag is a 0/1 flag sent as number, string or bool. Set is false when the
// field was absent or null.
type flexFlag struct {
	Set   bool
	Value bool
}

func (f *flexFlag) UnmarshalJSON(b []byte) error {
	var raw flexString
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(string(raw)) {
	case "":
		*f = flexFlag{}
	case "1", "true", "s", "y":
		*f = flexFlag{Set: true, Value: true}
	case "0", "false", "n":
		*f = flexFlag{Set: true, Value: false}
	default:
		n, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("invalid flag %q", string(raw))
		}
		*f = flexFlag{Set: true, Value: n == 1}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// flexTime parses the date formats the backend is known to send.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var raw flexString
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if v, err := time.Parse(layout, string(raw)); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", string(raw))
}

func (t flexTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type branchDTO struct {
	Code flexString `json:"cd_fil" validate:"required"`
	Name flexString `json:"nm_fil"`
}

type companyDTO struct {
	Name     flexString  `json:"nm_emp"`
	Branches []branchDTO `json:"filiais"`
}

// toModel drops branches without a code.
func (d companyDTO) toModel() model.Company {
	c := model.Company{Name: d.Name.String(), Branches: make([]model.Branch, 0, len(d.Branches))}
	for _, b := range d.Branches {
		if err := validate.Struct(b); err != nil {
			log.WithField("company", c.Name).WithField("fields", validationFields(err)).Warn("skipping invalid branch")
			continue
		}
		c.Branches = append(c.Branches, model.Branch{Code: b.Code.String(), Name: b.Name.String()})
	}
	return c
}

type inboundDTO struct {
	Number       flexString          `json:"nr_nfent" validate:"required"`
	SupplierCode flexString          `json:"cd_forn"`
	SupplierName flexString          `json:"nm_forn"`
	IssuedAt     flexTime            `json:"dt_emis"`
	Amount       decimal.NullDecimal `json:"vl_nota"`
	BranchName   flexString          `json:"nm_fil"`
}

func (d inboundDTO) toModel() model.InboundInvoice {
	return model.InboundInvoice{
		Number:       d.Number.String(),
		SupplierCode: d.SupplierCode.String(),
		SupplierName: d.SupplierName.String(),
		IssuedAt:     d.IssuedAt.Time,
		Amount:       d.Amount.Decimal,
		BranchName:   d.BranchName.String(),
	}
}

type outboundDTO struct {
	Number       flexString          `json:"nr_nf" validate:"required"`
	CustomerCode flexString          `json:"cd_cli"`
	CustomerName flexString          `json:"nm_cli"`
	IssuedAt     flexTime            `json:"dt_emis"`
	ShippedAt    flexTime            `json:"dt_saida"`
	Amount       decimal.NullDecimal `json:"vl_nf"`
	BranchName   flexString          `json:"nm_fil"`
}

func (d outboundDTO) toModel() model.OutboundInvoice {
	return model.OutboundInvoice{
		Number:       d.Number.String(),
		CustomerCode: d.CustomerCode.String(),
		CustomerName: d.CustomerName.String(),
		IssuedAt:     d.IssuedAt.Time,
		ShippedAt:    d.ShippedAt.ptr(),
		Amount:       d.Amount.Decimal,
		BranchName:   d.BranchName.String(),
	}
}

type requisitionDTO struct {
	Number     flexString `json:"nr_mov" validate:"required"`
	Date       flexTime   `json:"dt_mov"`
	CostCenter flexString `json:"nm_custo"`
}

func (d requisitionDTO) toModel() model.Requisition {
	return model.Requisition{Number: d.Number.String(), Date: d.Date.Time, CostCenter: d.CostCenter.String()}
}

type lineItemDTO struct {
	ID              flexString          `json:"id" validate:"required,numeric"`
	Name            flexString          `json:"nm_mat"`
	Code            flexString          `json:"cd_mat"`
	Quantity        decimal.NullDecimal `json:"qt_prod"`
	Barcode         flexString          `json:"cd_gtin"`
	Checked         flexFlag            `json:"sn_check"`
	CheckedQuantity decimal.NullDecimal `json:"qt_check"`
}

func (d lineItemDTO) toModel() (model.LineItem, error) {
	id, err := strconv.ParseInt(d.ID.String(), 10, 64)
	if err != nil {
		return model.LineItem{}, fmt.Errorf("invalid id %q: %w", d.ID, err)
	}
	return model.LineItem{
		ID:              id,
		Name:            d.Name.String(),
		Code:            d.Code.String(),
		Quantity:        d.Quantity.Decimal,
		Barcode:         d.Barcode.String(),
		Checked:         d.Checked.Value,
		CheckedQuantity: d.CheckedQuantity.Decimal,
	}, nil
}

type checkBody struct {
	Branch     string `json:"cd_fil"`
	DocumentID string `json:"nr_nfent"`
	UserID     string `json:"cd_usu_check"`
	Checked    string `json:"sn_check"`
	Quantity   string `json:"qt_check"`
}

func newCheckBody(req model.CheckRequest) checkBody {
	flag := "0"
	if req.Checked {
		flag = "1"
	}
	return checkBody{
		Branch:     req.BranchCode,
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		Checked:    flag,
		Quantity:   req.CheckedQuantity.String(),
	}
}

type checkEchoDTO struct {
	ID              flexString          `json:"id"`
	Checked         flexFlag            `json:"sn_check"`
	CheckedQuantity decimal.NullDecimal `json:"qt_check"`
}

// toModel falls back to what was sent for fields the server left out.
func (d checkEchoDTO) toModel(sent model.CheckRequest) model.CheckEcho {
	echo := model.CheckEcho{Checked: sent.Checked}
	if id, err := strconv.ParseInt(d.ID.String(), 10, 64); err == nil && id > 0 {
		echo.ID = id
		echo.HasID = true
	}
	if d.Checked.Set {
		echo.Checked = d.Checked.Value
	}
	if d.CheckedQuantity.Valid {
		echo.CheckedQuantity = d.CheckedQuantity.Decimal
		echo.HasQuantity = true
	}
	return echo
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// unwrapData returns the value under a top-level "data" key when the body is an
// object that has one, and the body itself otherwise.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if d := bytes.TrimSpace(env.Data); len(d) > 0 && string(d) != "null" {
		return d
	}
	return trimmed
}

// decodeRows decodes a JSON array one row at a time. Rows that do not decode,
// validate or convert are logged and skipped.
func decodeRows[D any, M any](body []byte, resource string, convert func(D) (M, error)) ([]M, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(unwrapData(body), &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	out := make([]M, 0, len(raws))
	for i, raw := range raws {
		var dto D
		if err := json.Unmarshal(raw, &dto); err != nil {
			log.WithError(err).WithField("resource", resource).WithField("row", i).Warn("skipping malformed row")
			continue
		}
		if err := validate.Struct(dto); err != nil {
			log.WithField("resource", resource).WithField("row", i).WithField("fields", validationFields(err)).Warn("skipping invalid row")
			continue
		}
		m, err := convert(dto)
		if err != nil {
			log.WithError(err).WithField("resource", resource).WithField("row", i).Warn("skipping unconvertible row")
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["_"] = err.Error()
		return fields
	}
	for _, ve := range verrs {
		fields[ve.Namespace()] = ve.Tag()
	}
	return fields
}
