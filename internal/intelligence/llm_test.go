package intelligence

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deusflow/lankanews/internal/news"
)

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func TestLLMClassify(t *testing.T) {
	gen := &fakeGenerator{answer: "Technology"}
	svc := NewLLM(gen, nil)

	got, err := svc.Classify(context.Background(), "නව ජංගම දුරකථනය")
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if got != news.Technology {
		t.Errorf("Classify() = %q, want Technology", got)
	}
	if !strings.Contains(gen.prompts[0], "Business, Entertainment, General") {
		t.Errorf("prompt does not list the categories: %q", gen.prompts[0])
	}
}

func TestLLMClassifyOutOfEnum(t *testing.T) {
	svc := NewLLM(&fakeGenerator{answer: "Weather"}, nil)
	if _, err := svc.Classify(context.Background(), "x"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Classify() error = %v, want ErrMalformedResponse", err)
	}
}

func TestLLMCluster(t *testing.T) {
	gen := &fakeGenerator{answer: `[{"title":"a","group":"group_1"},{"title":"b","group":"unique"}]`}
	svc := NewLLM(gen, nil)

	tags, err := svc.Cluster(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}
	if len(tags) != 2 || tags[0].Group != "group_1" || tags[1].Group != Unique {
		t.Errorf("Cluster() = %+v", tags)
	}
	if !strings.Contains(gen.prompts[0], `["a","b"]`) {
		t.Errorf("prompt does not carry the titles as JSON: %q", gen.prompts[0])
	}

	tags, err = svc.Cluster(context.Background(), nil)
	if err != nil || tags != nil {
		t.Errorf("Cluster(nil) = %v, %v; want nil, nil", tags, err)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("Cluster(nil) called the model")
	}
}

func TestLLMSummarize(t *testing.T) {
	gen := &fakeGenerator{answer: "  සාරාංශය  "}
	svc := NewLLM(gen, nil)

	got, err := svc.Summarize(context.Background(), "text", Short)
	if err != nil || got != "සාරාංශය" {
		t.Errorf("Summarize() = %q, %v", got, err)
	}
	if _, err := svc.Summarize(context.Background(), "text", Mode("medium")); err == nil {
		t.Error("Summarize() accepted an unknown mode")
	}

	gen.answer = " "
	if _, err := svc.Summarize(context.Background(), "text", Long); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Summarize() error = %v, want ErrMalformedResponse", err)
	}
}

func TestLLMFeatureArticle(t *testing.T) {
	gen := &fakeGenerator{answer: "feature"}
	svc := NewLLM(gen, nil)

	got, err := svc.FeatureArticle(context.Background(), news.Sports, []string{"one", "two"})
	if err != nil || got != "feature" {
		t.Fatalf("FeatureArticle() = %q, %v", got, err)
	}
	if !strings.Contains(gen.prompts[0], "'Sports'") || !strings.Contains(gen.prompts[0], "one\n\ntwo") {
		t.Errorf("prompt = %q", gen.prompts[0])
	}
	if _, err := svc.FeatureArticle(context.Background(), news.Sports, nil); err == nil {
		t.Error("FeatureArticle() accepted no texts")
	}
}

func TestLLMClipsLongInput(t *testing.T) {
	svc := NewLLM(&fakeGenerator{}, nil)
	svc.maxChars = 20

	got := svc.clip(strings.Repeat("අ", 50))
	if !strings.HasSuffix(got, "[TRUNCATED]") {
		t.Errorf("clip() = %q, want truncation marker", got)
	}
	if short := svc.clip("short"); short != "short" {
		t.Errorf("clip() = %q, want unchanged", short)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":" Politics "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator("test-key", srv.URL+"/v1/", "")
	got, err := gen.Generate(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "Politics" {
		t.Errorf("Generate() = %q, want Politics", got)
	}
}
