// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/openzipkin-contrib/zipkin-go-scope/encoding"
	"github.com/openzipkin-contrib/zipkin-go-scope/logging"
)

const defaultHTTPTimeout = 5 * time.Second

// Collector paths of the two API versions
const (
	V1SpansPath = "/api/v1/spans"
	V2SpansPath = "/api/v2/spans"
)

// HTTPHandler posts payloads to a Zipkin collector.
type HTTPHandler struct {
	logger          logging.Logger
	url             string
	contentType     string
	client          *http.Client
	maxPayloadBytes int
	reqCallback     RequestCallback
}

// RequestCallback receives the initialized request from the Handler before
// sending it over the wire. This allows one to plug in additional headers or
// do other customization.
type RequestCallback func(*http.Request)

// HTTPOption sets a parameter for the HTTPHandler
type HTTPOption func(h *HTTPHandler)

// HTTPLogger sets the logger used to report rejected payloads. By default,
// a no-op logger is used, i.e. no errors are logged anywhere. It's important
// to set this option in a production service.
func HTTPLogger(logger logging.Logger) HTTPOption {
	return func(h *HTTPHandler) { h.logger = logger }
}

// HTTPTimeout sets maximum timeout for http request.
func HTTPTimeout(duration time.Duration) HTTPOption {
	return func(h *HTTPHandler) { h.client.Timeout = duration }
}

// HTTPClient sets a custom http client to use.
func HTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPHandler) { h.client = client }
}

// HTTPMaxPayloadBytes limits the size of a single request body.
func HTTPMaxPayloadBytes(n int) HTTPOption {
	return func(h *HTTPHandler) { h.maxPayloadBytes = n }
}

// HTTPRequestCallback registers a callback function to adjust the
// *http.Request before it is sent to Zipkin.
func HTTPRequestCallback(rc RequestCallback) HTTPOption {
	return func(h *HTTPHandler) { h.reqCallback = rc }
}

// NewHTTPHandler returns a Handler posting enc payloads to the collector at
// baseURL, e.g. "http://127.0.0.1:9411". Legacy encodings go to the v1 API,
// the others to the v2 API.
func NewHTTPHandler(baseURL string, enc encoding.Encoding, options ...HTTPOption) (*HTTPHandler, error) {
	if _, err := encoding.Get(enc); err != nil {
		return nil, err
	}
	path := V2SpansPath
	if enc.Legacy() {
		path = V1SpansPath
	}
	h := &HTTPHandler{
		logger:      logging.NewNopLogger(),
		url:         strings.TrimSuffix(baseURL, "/") + path,
		contentType: enc.ContentType(),
		client:      &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, option := range options {
		option(h)
	}
	return h, nil
}

// URL returns the endpoint payloads are posted to.
func (h *HTTPHandler) URL() string { return h.url }

// MaxPayloadBytes implements Handler
func (h *HTTPHandler) MaxPayloadBytes() int { return h.maxPayloadBytes }

// Send implements Handler. A request that cannot be made is an error; a
// collector answering with a non 2xx status is only logged.
func (h *HTTPHandler) Send(payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "creating span request")
	}
	req.Header.Set("Content-Type", h.contentType)
	if h.reqCallback != nil {
		h.reqCallback(req)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "posting spans to %s", h.url)
	}
	// drain so the connection is reused by the next flush
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	// non 2xx code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = h.logger.Log("msg", "HTTP POST span failed", "code", resp.Status, "url", h.url)
	}
	return nil
}

// HTTPConfig configures an HTTPHandler from the environment.
type HTTPConfig struct {
	BaseURL         string        `envconfig:"ZIPKIN_BASE_URL" default:"http://127.0.0.1:9411"`
	Encoding        string        `envconfig:"ZIPKIN_ENCODING" default:"V2_JSON"`
	Timeout         time.Duration `envconfig:"ZIPKIN_TIMEOUT" default:"5s"`
	MaxPayloadBytes int           `envconfig:"ZIPKIN_MAX_PAYLOAD_BYTES" default:"0"`
}

// HTTPConfigFromEnv reads the ZIPKIN_* environment variables.
func HTTPConfigFromEnv() (HTTPConfig, error) {
	var cfg HTTPConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return HTTPConfig{}, errors.Wrap(err, "reading zipkin transport environment")
	}
	return cfg, nil
}

// NewHandler builds the HTTPHandler described by c. options are applied
// after the configured values.
func (c HTTPConfig) NewHandler(options ...HTTPOption) (*HTTPHandler, error) {
	enc, err := encoding.ParseEncoding(c.Encoding)
	if err != nil {
		return nil, err
	}
	return NewHTTPHandler(c.BaseURL, enc, append([]HTTPOption{
		HTTPTimeout(c.Timeout),
		HTTPMaxPayloadBytes(c.MaxPayloadBytes),
	}, options...)...)
}
