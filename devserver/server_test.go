package devserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	morphgen "github.com/morphlang/morphgen"
)

func testBuild(t *testing.T) BuildFunc {
	t.Helper()
	return func() (*morphgen.Engine, error) {
		engine := morphgen.New(morphgen.Config{})
		sources := map[string]string{
			"animal.morph": "class $Animal { id: int; }",
			"pet.morph":    "@morph(generateJson: true) class $Pet implements $Animal { name: String; }",
		}
		for id, text := range sources {
			if err := engine.RegisterSource(text, id); err != nil {
				return nil, err
			}
		}
		return engine, nil
	}
}

func TestGenerateAll(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/Generate", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(body.Results))
	}
	for _, res := range body.Results {
		if res.Error != nil {
			t.Errorf("result %s has error: %v", res.Name, res.Error)
		}
		if res.Output == "" {
			t.Errorf("result %s has empty output", res.Name)
		}
	}
}

func TestGenerateSingle(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/Generate", "application/json", strings.NewReader(`{"name":"Pet"}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Name != "Pet" {
		t.Fatalf("results = %+v, want single Pet result", body.Results)
	}
	if !strings.Contains(body.Results[0].Output, "class Pet") {
		t.Errorf("output missing class header: %q", body.Results[0].Output)
	}
}

func TestGenerateUnknownName(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/Generate", "application/json", strings.NewReader(`{"name":"Nope"}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var envelope morphgen.Error
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if envelope.Code != morphgen.CodeNotFound {
		t.Errorf("code = %q, want %q", envelope.Code, morphgen.CodeNotFound)
	}
}

func TestGenerateBadBody(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/Generate", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestDeclarations(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"Animal", "Pet"}},
		{query: "?prefix=P", want: []string{"Pet"}},
		{query: "?prefix=Z", want: []string{}},
	}

	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/rpc/Declarations" + tt.query)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		var body DeclarationsResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		resp.Body.Close()

		if len(body.Names) != len(tt.want) {
			t.Errorf("query %q: names = %v, want %v", tt.query, body.Names, tt.want)
			continue
		}
		for i, name := range tt.want {
			if body.Names[i] != name {
				t.Errorf("query %q: names[%d] = %q, want %q", tt.query, i, body.Names[i], name)
			}
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(New(testBuild(t), nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/rpc/Generate")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}
