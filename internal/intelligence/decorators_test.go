package intelligence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/lankanews/internal/cache"
	"github.com/deusflow/lankanews/internal/news"
	"github.com/deusflow/lankanews/internal/ratelimit"
	"github.com/deusflow/lankanews/internal/retry"
)

func TestCachedAvoidsRepeatCalls(t *testing.T) {
	stub := &Stub{}
	c := cache.New[string](0)
	defer c.Close()
	budget := ratelimit.NewBudget(0, nil)
	svc := NewCached(stub, c, time.Hour, budget)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Summarize(ctx, "same text", Short); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Classify(ctx, "same text"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Summarize(ctx, "same text", Long); err != nil {
		t.Fatal(err)
	}

	if n := stub.Calls("summarize"); n != 2 {
		t.Errorf("summarize calls = %d, want 2", n)
	}
	if n := stub.Calls("classify"); n != 1 {
		t.Errorf("classify calls = %d, want 1", n)
	}
	if hits := budget.GetStats()["cache_hits"]; hits != 4 {
		t.Errorf("cache_hits = %v, want 4", hits)
	}
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	calls := 0
	stub := &Stub{ClassifyFunc: func(string) (news.Category, error) {
		calls++
		if calls == 1 {
			return "", errors.New("timeout")
		}
		return news.Sports, nil
	}}
	c := cache.New[string](0)
	defer c.Close()
	svc := NewCached(stub, c, time.Hour, nil)

	if _, err := svc.Classify(context.Background(), "t"); err == nil {
		t.Fatal("first Classify() succeeded")
	}
	got, err := svc.Classify(context.Background(), "t")
	if err != nil || got != news.Sports {
		t.Errorf("Classify() = %q, %v; want Sports", got, err)
	}
}

func TestLimitedRetriesAndSpendsBudget(t *testing.T) {
	calls := 0
	stub := &Stub{SummarizeFunc: func(string, Mode) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("503")
		}
		return "ok", nil
	}}
	budget := ratelimit.NewBudget(10, nil)
	svc := NewLimited(stub, budget, retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, time.Second)

	got, err := svc.Summarize(context.Background(), "t", Short)
	if err != nil || got != "ok" {
		t.Fatalf("Summarize() = %q, %v", got, err)
	}
	if r := budget.Remaining(); r != 8 {
		t.Errorf("Remaining() = %d, want 8", r)
	}
}

func TestLimitedStopsWhenBudgetSpent(t *testing.T) {
	stub := &Stub{}
	budget := ratelimit.NewBudget(1, nil)
	svc := NewLimited(stub, budget, retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, 0)

	if _, err := svc.Classify(context.Background(), "a"); err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	_, err := svc.Classify(context.Background(), "b")
	if !errors.Is(err, ErrBudgetExceeded) || !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Errorf("Classify() error = %v, want ErrBudgetExceeded", err)
	}
	if n := stub.Calls("classify"); n != 1 {
		t.Errorf("classify calls = %d, want 1", n)
	}
}

func TestLimitedDoesNotRetryMalformed(t *testing.T) {
	stub := &Stub{ClusterFunc: func([]string) ([]TitleTag, error) {
		return nil, ErrMalformedResponse
	}}
	svc := NewLimited(stub, nil, retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, 0)

	if _, err := svc.Cluster(context.Background(), []string{"a"}); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Cluster() error = %v", err)
	}
	if n := stub.Calls("cluster"); n != 1 {
		t.Errorf("cluster calls = %d, want 1", n)
	}
}

func TestLocalService(t *testing.T) {
	svc := NewLocal(nil)
	ctx := context.Background()

	if c, _ := svc.Classify(ctx, "anything"); c != news.General {
		t.Errorf("Classify() = %q, want General", c)
	}
	tags, _ := svc.Cluster(ctx, []string{"a", "b"})
	for _, tag := range tags {
		if tag.Group != Unique {
			t.Errorf("Cluster() tag = %+v, want unique", tag)
		}
	}

	text := "පළමු වාක්‍යය මෙහි ඇත. දෙවන වාක්‍යය ද මෙහි ඇත. තෙවන වාක්‍යය ද මෙහි ඇත."
	short, _ := svc.Summarize(ctx, text, Short)
	if short != "පළමු වාක්‍යය මෙහි ඇත. දෙවන වාක්‍යය ද මෙහි ඇත." {
		t.Errorf("Summarize(short) = %q", short)
	}
	long, _ := svc.Summarize(ctx, text, Long)
	if long != text {
		t.Errorf("Summarize(long) = %q", long)
	}
}

func TestExtractiveSummaryFallsBackToPrefix(t *testing.T) {
	text := strings.Repeat("x", 200)
	got := ExtractiveSummary("short. bits. xxxxx", 2)
	if got != "short. bits. xxxxx" {
		t.Errorf("ExtractiveSummary() = %q", got)
	}
	if got := ExtractiveSummary(text, 2); got != text+"." {
		t.Errorf("ExtractiveSummary() over single long sentence = %q", got)
	}
	if got := ExtractiveSummary(strings.Repeat("ab. ", 100), 2); len(got) != 163 || !strings.HasSuffix(got, "...") {
		t.Errorf("ExtractiveSummary() prefix fallback = %q", got)
	}
	if ExtractiveSummary("", 2) != "" {
		t.Error("ExtractiveSummary(\"\") not empty")
	}
}
