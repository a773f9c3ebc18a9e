package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// Vecは値が記録されるまで出力されないので1件ずつ記録する
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(10 * time.Millisecond)
	c.RecordPageCache(true)
	c.RecordArticleCreated()
	c.RecordCommentCreated()
	c.RecordSubscriptionChange("follow")
	c.RecordSessionsCleaned(1)

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 7 {
		t.Errorf("メトリクス数 = %d, want 7", count)
	}
}

func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("200 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("404")); got != 1 {
		t.Errorf("404 = %v, want 1", got)
	}
}

func TestRecordPageCache(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordPageCache(true)
	c.RecordPageCache(false)
	c.RecordPageCache(false)

	if got := testutil.ToFloat64(c.pageCache.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.pageCache.WithLabelValues("miss")); got != 2 {
		t.Errorf("miss = %v, want 2", got)
	}
}

func TestContentCounters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordArticleCreated()
	c.RecordCommentCreated()
	c.RecordCommentCreated()
	c.RecordSubscriptionChange("follow")
	c.RecordSubscriptionChange("unfollow")
	c.RecordSessionsCleaned(5)

	checks := map[string]struct {
		got  float64
		want float64
	}{
		"articles": {testutil.ToFloat64(c.articlesCreated), 1},
		"comments": {testutil.ToFloat64(c.commentsCreated), 2},
		"follow":   {testutil.ToFloat64(c.subscriptions.WithLabelValues("follow")), 1},
		"unfollow": {testutil.ToFloat64(c.subscriptions.WithLabelValues("unfollow")), 1},
		"sessions": {testutil.ToFloat64(c.sessionsCleaned), 5},
	}
	for name, v := range checks {
		if v.got != v.want {
			t.Errorf("%s = %v, want %v", name, v.got, v.want)
		}
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("同じレジストリへの二重登録はpanicするべき")
		}
	}()
	NewCollector(reg)
}
