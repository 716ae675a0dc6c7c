package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(404)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if !c.IsRunning(context.Background()) {
		t.Error("expected IsRunning to be true for healthy server")
	}
}

func TestIsRunning_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL)
	if c.IsRunning(context.Background()) {
		t.Error("expected IsRunning to be false for closed server")
	}
}

func TestClassify(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" || r.Method != "POST" {
			w.WriteHeader(404)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"keywords":[{"word":"budget","score":0.92},{"word":"planning","score":0.61}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	preds, err := c.Classify(context.Background(), "keyword-base", "quarterly budget planning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0].Word != "budget" || preds[0].Score != 0.92 {
		t.Errorf("prediction = %+v, want budget/0.92", preds[0])
	}

	if gotBody["model"] != "keyword-base" {
		t.Errorf("request model = %q, want keyword-base", gotBody["model"])
	}
	if gotBody["text"] != "quarterly budget planning" {
		t.Errorf("request text = %q", gotBody["text"])
	}
}

func TestClassify_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classify(context.Background(), "", "text")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClassify_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Classify(context.Background(), "", "text")
	if err == nil {
		t.Fatal("expected error for malformed response body")
	}
}
