package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)
	Delete(ctx context.Context, path string) (*Response, error)

	SetBody(body interface{}) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetQueryParams(params map[string]string) Request
	SetResult(result interface{}) Request
}

// Response wraps http.Response with additional helpers.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError reports whether the response has an error status code.
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// requestBuilder implements Request.
type requestBuilder struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	headers        map[string]string
	queryParams    map[string]string
	body           interface{}
	result         interface{}
	errorHandler   ResponseErrorHandler
	labels         []*Label
	logRequest     bool
	logResponse    bool
}

func (b *requestBuilder) SetBody(body interface{}) Request {
	b.body = body
	return b
}

func (b *requestBuilder) SetHeader(key, value string) Request {
	b.headers[key] = value
	return b
}

func (b *requestBuilder) SetQueryParam(key, value string) Request {
	b.queryParams[key] = value
	return b
}

func (b *requestBuilder) SetQueryParams(params map[string]string) Request {
	for k, v := range params {
		b.queryParams[k] = v
	}
	return b
}

func (b *requestBuilder) SetResult(result interface{}) Request {
	b.result = result
	return b
}

func (b *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return b.execute(ctx, http.MethodGet, path)
}

func (b *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return b.execute(ctx, http.MethodPost, path)
}

func (b *requestBuilder) Delete(ctx context.Context, path string) (*Response, error) {
	return b.execute(ctx, http.MethodDelete, path)
}

func (b *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	fullURL, err := b.buildURL(path)
	if err != nil {
		return nil, err
	}

	attrs := make([]attribute.KeyValue, 0, len(b.labels)+2)
	attrs = append(attrs,
		attribute.String("http.method", method),
		attribute.String("provider", b.providerName),
	)
	for _, l := range b.labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}

	ctx, span := b.tracer.Start(ctx, fmt.Sprintf("http.%s %s", strings.ToLower(method), path),
		trace.WithAttributes(attrs...))
	defer span.End()

	var bodyReader *bytes.Reader
	if b.body != nil {
		raw, err := json.Marshal(b.body)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
		if b.logRequest {
			span.SetAttributes(attribute.String("http.request.body", string(raw)))
		}
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	b.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	resp, err := b.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw, err := ReadBody(resp)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	response := &Response{Response: resp, body: raw}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if b.logResponse {
		span.SetAttributes(attribute.String("http.response.body", string(raw)))
	}

	if b.errorHandler != nil {
		if handlerErr := b.errorHandler(resp.StatusCode, raw); handlerErr != nil {
			span.RecordError(handlerErr)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if b.result != nil && !response.IsError() && len(raw) > 0 {
		if err := json.Unmarshal(raw, b.result); err != nil {
			span.RecordError(err)
			return response, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return response, nil
}

func (b *requestBuilder) buildURL(path string) (string, error) {
	full := path
	if b.baseURL != "" {
		full = strings.TrimSuffix(b.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", full, err)
	}

	if len(b.queryParams) > 0 {
		q := u.Query()
		for k, v := range b.queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
