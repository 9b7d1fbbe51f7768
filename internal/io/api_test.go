package io

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

func serveJSON(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestAPIReader_Extract(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want *dataset.Dataset
	}{
		{
			name: "entries with duplicates and nulls",
			body: `{"count": 3, "entries": [
				{"API": "A1", "Description": "d1", "HTTPS": true},
				{"API": "A1", "Description": "d1", "HTTPS": true},
				{"API": "A2", "Description": null, "HTTPS": false}
			]}`,
			want: newDataset([]string{"API", "Description", "HTTPS"},
				[]interface{}{"A1", "d1", true},
				[]interface{}{"A1", "d1", true},
				[]interface{}{"A2", nil, false},
			),
		},
		{
			name: "columns keep first appearance order",
			body: `{"entries": [{"b": 1, "a": 2}, {"c": 3, "a": 4.5}]}`,
			want: newDataset([]string{"b", "a", "c"},
				[]interface{}{1.0, 2.0, nil},
				[]interface{}{nil, 4.5, 3.0},
			),
		},
		{
			name: "nested values kept as JSON text",
			body: `{"entries": [{"API": "A1", "Tags": ["x", "y"], "Meta": {"k": 1}}]}`,
			want: newDataset([]string{"API", "Tags", "Meta"},
				[]interface{}{"A1", `["x","y"]`, `{"k":1}`},
			),
		},
		{
			name: "other members are ignored",
			body: `{"meta": {"page": [1, 2]}, "entries": [{"API": "A1"}], "count": 1}`,
			want: newDataset([]string{"API"}, []interface{}{"A1"}),
		},
		{name: "empty entries", body: `{"entries": []}`, want: dataset.New()},
		{name: "null entries", body: `{"entries": null}`, want: dataset.New()},
		{name: "missing entries", body: `{"count": 0}`, want: dataset.New()},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewAPIReader(serveJSON(t, http.StatusOK, tc.body), time.Second, logging.Discard())
			got, err := r.Extract(context.Background())
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got == nil {
				t.Fatal("Extract() returned a nil dataset")
			}
			compareDatasets(t, got, tc.want)
		})
	}
}

func TestAPIReader_KeepsWideIntegers(t *testing.T) {
	body := `{"entries": [
		{"id": 9007199254740993, "API": "A1"},
		{"id": 9007199254740992, "API": "A1"},
		{"id": 12.50, "API": "A2"}
	]}`
	got, err := NewAPIReader(serveJSON(t, http.StatusOK, body), time.Second, nil).Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []string{"9007199254740993", "9007199254740992", "12.50"}
	for i, w := range want {
		v := got.Row(i).Get("id")
		if v.Kind() != dataset.Number {
			t.Errorf("row %d id kind = %v, want number", i, v.Kind())
		}
		if v.String() != w || v.SQLArg() != w {
			t.Errorf("row %d id = %q (sql %v), want %q", i, v.String(), v.SQLArg(), w)
		}
	}
	if got.DropDuplicates().Len() != 3 {
		t.Errorf("rows differing only in a wide id must not be duplicates")
	}
}

func TestAPIReader_ExtractErrors(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantKind   error
		wantErrMsg string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantKind: etlerr.ErrRetrieval, wantErrMsg: "500"},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"nope"}`, wantKind: etlerr.ErrRetrieval, wantErrMsg: "nope"},
		{name: "invalid json", status: http.StatusOK, body: `{"entries": [`, wantKind: etlerr.ErrParse, wantErrMsg: "invalid JSON"},
		{name: "not json at all", status: http.StatusOK, body: `<html></html>`, wantKind: etlerr.ErrParse},
		{name: "top level array", status: http.StatusOK, body: `[{"API": "A1"}]`, wantKind: etlerr.ErrParse, wantErrMsg: "not a JSON object"},
		{name: "entries not an array", status: http.StatusOK, body: `{"entries": {"API": "A1"}}`, wantKind: etlerr.ErrParse, wantErrMsg: "not an array"},
		{name: "entry not an object", status: http.StatusOK, body: `{"entries": [{"API": "A1"}, "A2"]}`, wantKind: etlerr.ErrParse, wantErrMsg: "entry 1"},
		{name: "trailing data", status: http.StatusOK, body: `{"entries": []} {}`, wantKind: etlerr.ErrParse},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewAPIReader(serveJSON(t, tc.status, tc.body), time.Second, nil)
			got, err := r.Extract(context.Background())
			assertKind(t, err, tc.wantKind)
			if got != nil {
				t.Errorf("Extract() dataset = %v, want nil on error", got)
			}
			if tc.wantErrMsg != "" && !strings.Contains(err.Error(), tc.wantErrMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tc.wantErrMsg)
			}
		})
	}
}

func TestAPIReader_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := NewAPIReader(srv.URL, 50*time.Millisecond, nil)
	_, err := r.Extract(context.Background())
	assertKind(t, err, etlerr.ErrRetrieval)
}

func TestAPIReader_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAPIReader(url, time.Second, nil).Extract(context.Background())
	assertKind(t, err, etlerr.ErrRetrieval)
}
