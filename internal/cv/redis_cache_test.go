package cv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Runs against a real server: JOBSCOUT_TEST_REDIS_URL=redis://localhost:6379/15
func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("JOBSCOUT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("JOBSCOUT_TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	template := "test-" + uuid.NewString()
	key := CacheKey{UserID: "u1", PostingKey: "c1-go-0", TemplateID: template}

	if g, err := c.Get(ctx, key); err != nil || g != nil {
		t.Fatalf("expected a miss, got %+v, %v", g, err)
	}
	if err := c.Put(ctx, key, &Generation{ID: "g1", TemplateID: template}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	g, err := c.Get(ctx, key)
	if err != nil || g == nil || g.ID != "g1" {
		t.Fatalf("expected a hit, got %+v, %v", g, err)
	}

	if err := c.InvalidateTemplate(ctx, template); err != nil {
		t.Fatalf("InvalidateTemplate() error = %v", err)
	}
	if g, _ := c.Get(ctx, key); g != nil {
		t.Fatalf("expected the entry to be invalidated")
	}
}

func TestRedisCacheInvalidateLeavesSiblingTemplates(t *testing.T) {
	url := os.Getenv("JOBSCOUT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("JOBSCOUT_TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	base := "test-" + uuid.NewString()
	keys := map[string]CacheKey{}
	for _, template := range []string{base, base + ":v2", base + "*"} {
		key := CacheKey{UserID: "u1", PostingKey: "c1-go-0", TemplateID: template}
		if err := c.Put(ctx, key, &Generation{ID: template, TemplateID: template}); err != nil {
			t.Fatalf("Put(%s) error = %v", template, err)
		}
		keys[template] = key
	}
	defer func() {
		for template := range keys {
			_ = c.InvalidateTemplate(ctx, template)
		}
	}()

	if err := c.InvalidateTemplate(ctx, base+"*"); err != nil {
		t.Fatalf("InvalidateTemplate() error = %v", err)
	}
	if err := c.InvalidateTemplate(ctx, base); err != nil {
		t.Fatalf("InvalidateTemplate() error = %v", err)
	}

	if g, _ := c.Get(ctx, keys[base]); g != nil {
		t.Fatalf("expected %s to be invalidated", base)
	}
	if g, _ := c.Get(ctx, keys[base+"*"]); g != nil {
		t.Fatalf("expected the glob-named template to be invalidated")
	}
	if g, err := c.Get(ctx, keys[base+":v2"]); err != nil || g == nil {
		t.Fatalf("sibling template must survive, got %+v, %v", g, err)
	}
}
