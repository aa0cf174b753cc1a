package gqlrequest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Envelope is the transport-independent form of a GraphQL request: the
// document, the operation to run and its raw variables.
type Envelope struct {
	Method      string
	ContentType string

	Query         string
	OperationName string
	VariablesRaw  json.RawMessage

	DocumentSizeBytes int
}

// DecodeEnvelope reads the GraphQL payload of r in any of the encodings the
// HTTP handler accepts: GET parameters, a JSON body, an application/graphql
// body or a form body. The body is rewound so the handler can read it again.
func DecodeEnvelope(r *http.Request) (Envelope, error) {
	if r == nil {
		return Envelope{}, fmt.Errorf("request is nil")
	}

	env := Envelope{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
	}

	var err error
	switch {
	case r.Method == http.MethodGet:
		env.fromValues(r.URL.Query())
	case r.Method == http.MethodPost && r.Body != nil:
		err = env.fromBody(r)
	}
	env.DocumentSizeBytes = len(env.Query)
	return env, err
}

func (env *Envelope) fromValues(values url.Values) {
	env.Query = values.Get("query")
	env.OperationName = values.Get("operationName")
	env.setVariables([]byte(values.Get("variables")))
}

func (env *Envelope) fromBody(r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	switch mediaType(env.ContentType) {
	case "application/graphql":
		env.Query = string(body)
		// A raw document can only name its operation in the URL.
		env.OperationName = r.URL.Query().Get("operationName")
		return nil
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return fmt.Errorf("form body: %w", err)
		}
		env.fromValues(values)
		return nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var payload struct {
		Query         string          `json:"query"`
		OperationName string          `json:"operationName"`
		Variables     json.RawMessage `json:"variables"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return err
	}
	env.Query = payload.Query
	env.OperationName = payload.OperationName
	env.setVariables(payload.Variables)
	return nil
}

// setVariables keeps raw only when it carries a value; null and empty mean
// no variables.
func (env *Envelope) setVariables(raw []byte) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return
	}
	env.VariablesRaw = append(json.RawMessage(nil), trimmed...)
}

func mediaType(contentType string) string {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil || parsed == "" {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return parsed
}
