package io

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdio "io"
	"net/http"
	"time"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
	"etl-template/internal/util"
)

// entriesKey is the member of the response object holding the records.
const entriesKey = "entries"

// APIReader fetches a JSON document of the form {"entries": [{...}, ...]}
// with a single GET request.
type APIReader struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewAPIReader creates an APIReader. The timeout bounds the whole request,
// body included. A zero timeout means no limit.
func NewAPIReader(endpoint string, timeout time.Duration, logger *logging.Logger) *APIReader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &APIReader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Endpoint returns the URL the reader fetches.
func (r *APIReader) Endpoint() string { return r.endpoint }

// Extract implements InputReader.
//
// Transport failures, unreadable bodies and non-2xx statuses are
// ErrRetrieval. A body that is not a JSON object, or whose entries are not an
// array of objects, is ErrParse. Missing, null or empty entries give an empty
// Dataset.
func (r *APIReader) Extract(ctx context.Context) (*dataset.Dataset, error) {
	r.logger.Logf(logging.Debug, "APIReader requesting %s (timeout %s)", r.endpoint, r.client.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, etlerr.Retrieval(r.endpoint, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, etlerr.Retrieval(r.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := stdio.ReadAll(resp.Body)
	if err != nil {
		return nil, etlerr.Retrieval(r.endpoint, fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, etlerr.Retrieval(r.endpoint,
			fmt.Errorf("unexpected status %s: %s", resp.Status, util.Snippet(body)))
	}

	ds, err := decodeEntries(body)
	if err != nil {
		return nil, etlerr.Parse(r.endpoint, err)
	}
	if ds.Len() == 0 {
		r.logger.Logf(logging.Warning, "API %s returned no entries.", r.endpoint)
	} else {
		r.logger.Logf(logging.Debug, "APIReader decoded %d entries with columns %v", ds.Len(), ds.Columns())
	}
	return ds, nil
}

// decodeEntries walks the document token by token so that columns keep the
// order in which they first appear. Nested objects and arrays are kept as
// their JSON text.
func decodeEntries(body []byte) (*dataset.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("response is %s, not a JSON object", describeToken(tok))
	}

	ds := dataset.New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if key, _ := keyTok.(string); key != entriesKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("invalid JSON: %w", err)
			}
			continue
		}
		// A repeated key replaces the earlier value, as with json.Unmarshal.
		if ds, err = decodeEntryArray(dec); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != stdio.EOF {
		return nil, errors.New("invalid JSON: unexpected data after the top-level object")
	}
	return ds, nil
}

func decodeEntryArray(dec *json.Decoder) (*dataset.Dataset, error) {
	ds := dataset.New()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if tok == nil {
		return ds, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("'%s' is %s, not an array", entriesKey, describeToken(tok))
	}

	for i := 0; dec.More(); i++ {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("entry %d is %s, not an object", i, describeToken(tok))
		}
		row := make(dataset.Row)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("invalid JSON in entry %d: %w", i, err)
			}
			key, _ := keyTok.(string)
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("invalid JSON in entry %d: %w", i, err)
			}
			ds.AddColumn(key)
			row[key] = dataset.ValueOf(v)
		}
		if _, err := dec.Token(); err != nil { // '}'
			return nil, fmt.Errorf("invalid JSON in entry %d: %w", i, err)
		}
		ds.Append(row)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return ds, nil
}

func describeToken(tok json.Token) string {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			return "an array"
		case '{':
			return "an object"
		}
		return fmt.Sprintf("'%s'", t)
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
