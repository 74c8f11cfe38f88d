// Package api is the HTTP client for the Oversee backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"oversee-cli/internal/apperr"
	"oversee-cli/internal/model"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "oversee-cli"
	maxErrorBody   = 64 << 10
)

var (
	log    = logrus.StandardLogger().WithField("package", "api")
	tracer = otel.Tracer("oversee/api")
)

type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// CAPath, when set, is a PEM file holding the only CAs trusted for TLS.
	CAPath string
	Tokens TokenSource
}

type Client struct {
	http     *http.Client
	endpoint *url.URL
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("api url is not set (use --api-url or OVERSEE_API_URL)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	auth := &authTransport{tokens: cfg.Tokens}
	if cfg.CAPath != "" {
		ca, err := newCATransport(cfg.CAPath)
		if err != nil {
			return nil, err
		}
		auth.base = ca
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Transport: auth, Timeout: timeout},
		endpoint: u,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.endpoint.String() }

type call struct {
	method string
	// route is the path template, used as the span name.
	route string
	path  string
	query url.Values
	body  any
}

// do performs the call and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, span := tracer.Start(ctx, cl.method+" "+cl.route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", cl.method),
			attribute.String("http.route", cl.route),
		))
	defer span.End()

	u := *c.endpoint
	u.Path = c.endpoint.Path + cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	fields := logrus.Fields{"method": cl.method, "url": u.String()}
	res, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		log.WithError(err).WithFields(fields).Warn("request failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, apperr.Network(apperr.CodeUnreachable, "the server took too long to answer", err)
		}
		return nil, apperr.Network(apperr.CodeUnreachable, "could not reach the server", err)
	}
	defer res.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		msg := serverMessage(b)
		span.SetStatus(codes.Error, res.Status)
		log.WithFields(fields).WithField("status", res.StatusCode).WithField("message", msg).Warn("unexpected status")
		return nil, apperr.HTTPStatus(res.StatusCode, msg)
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Network(apperr.CodeRequest, "the server response was cut short", err)
	}
	log.WithFields(fields).WithField("status", res.StatusCode).Debug("request done")
	return b, nil
}

func serverMessage(b []byte) string {
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}

func decodeErr(resource string, err error) error {
	return apperr.Network(apperr.CodeDecode, fmt.Sprintf("the server sent an unreadable %s list", resource), err)
}

// Companies lists the companies and their branches.
func (c *Client) Companies(ctx context.Context) ([]model.Company, error) {
	b, err := c.do(ctx, call{method: http.MethodGet, route: "/empresas", path: "/empresas"})
	if err != nil {
		return nil, err
	}
	out, err := decodeRows(b, "companies", func(d companyDTO) (model.Company, error) { return d.toModel(), nil })
	if err != nil {
		return nil, decodeErr("company", err)
	}
	return out, nil
}

// Branches flattens Companies.
func (c *Client) Branches(ctx context.Context) ([]model.Branch, error) {
	companies, err := c.Companies(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Branch
	for _, co := range companies {
		out = append(out, co.Branches...)
	}
	return out, nil
}

func (c *Client) InboundInvoices(ctx context.Context, branch string) ([]model.InboundInvoice, error) {
	b, err := c.do(ctx, call{method: http.MethodGet, route: "/nfentradas/{branch}", path: "/nfentradas/" + url.PathEscape(branch)})
	if err != nil {
		return nil, err
	}
	out, err := decodeRows(b, "inbound", func(d inboundDTO) (model.InboundInvoice, error) { return d.toModel(), nil })
	if err != nil {
		return nil, decodeErr("inbound invoice", err)
	}
	return out, nil
}

func (c *Client) OutboundInvoices(ctx context.Context, branch string) ([]model.OutboundInvoice, error) {
	b, err := c.do(ctx, call{method: http.MethodGet, route: "/nfsaidas/{branch}", path: "/nfsaidas/" + url.PathEscape(branch)})
	if err != nil {
		return nil, err
	}
	out, err := decodeRows(b, "outbound", func(d outboundDTO) (model.OutboundInvoice, error) { return d.toModel(), nil })
	if err != nil {
		return nil, decodeErr("outbound invoice", err)
	}
	return out, nil
}

func (c *Client) Requisitions(ctx context.Context, branch string) ([]model.Requisition, error) {
	b, err := c.do(ctx, call{method: http.MethodGet, route: "/requisicoes/{branch}", path: "/requisicoes/" + url.PathEscape(branch)})
	if err != nil {
		return nil, err
	}
	out, err := decodeRows(b, "requisitions", func(d requisitionDTO) (model.Requisition, error) { return d.toModel(), nil })
	if err != nil {
		return nil, decodeErr("requisition", err)
	}
	return out, nil
}

func (c *Client) items(ctx context.Context, route string, q url.Values) ([]model.LineItem, error) {
	b, err := c.do(ctx, call{method: http.MethodGet, route: route, path: route, query: q})
	if err != nil {
		return nil, err
	}
	out, err := decodeRows(b, route, lineItemDTO.toModel)
	if err != nil {
		return nil, decodeErr("item", err)
	}
	return out, nil
}

func (c *Client) InboundItems(ctx context.Context, branch, invoice string) ([]model.LineItem, error) {
	return c.items(ctx, "/nfentradas/itens", url.Values{"cd_fil": {branch}, "nr_nfent": {invoice}})
}

func (c *Client) OutboundItems(ctx context.Context, branch, invoice string) ([]model.LineItem, error) {
	return c.items(ctx, "/nfsaidas/itens", url.Values{"cd_fil": {branch}, "nr_nf": {invoice}})
}

func (c *Client) RequisitionItems(ctx context.Context, branch, number string) ([]model.LineItem, error) {
	return c.items(ctx, "/requisicoes/itens", url.Values{"cd_fil": {branch}, "nr_mov": {number}})
}

// CheckItem sends the checked state of one inbound item and returns the server's
// view of it. The echo may come at the top level or under "data".
func (c *Client) CheckItem(ctx context.Context, req model.CheckRequest) (model.CheckEcho, error) {
	b, err := c.do(ctx, call{
		method: http.MethodPatch,
		route:  "/nfentradas/itens/{id}",
		path:   fmt.Sprintf("/nfentradas/itens/%d", req.ItemID),
		body:   newCheckBody(req),
	})
	if err != nil {
		return model.CheckEcho{}, err
	}
	var dto checkEchoDTO
	if body := unwrapData(b); len(body) > 0 {
		if err := json.Unmarshal(body, &dto); err != nil {
			log.WithError(err).WithField("item", req.ItemID).Warn("unreadable check response")
			dto = checkEchoDTO{}
		}
	}
	return dto.toModel(req), nil
}

// Logout tells the server to end the token's session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodPost, route: "/logout", path: "/logout"})
	return err
}
