package policy

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	cachekit "github.com/htcacheio/cachekit"
)

func respHeaders(date time.Time, cacheControl string) cachekit.Header {
	h := cachekit.NewHeader()
	h.Set("Date", date.Format(http.TimeFormat))
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}
	return h
}

func TestGetFreshnessMaxAge(t *testing.T) {
	now := time.Now().UTC()
	fresh1 := respHeaders(now, "max-age=60")
	if got := getFreshness(fresh1, cachekit.NewHeader(), slog.Default()); got != fresh {
		t.Fatalf("expected fresh, got %d", got)
	}

	stale1 := respHeaders(now.Add(-2*time.Minute), "max-age=60")
	if got := getFreshness(stale1, cachekit.NewHeader(), slog.Default()); got != stale {
		t.Fatalf("expected stale, got %d", got)
	}
}

func TestGetFreshnessNoCacheIsStale(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now, "no-cache, max-age=60")
	if got := getFreshness(resp, cachekit.NewHeader(), slog.Default()); got != stale {
		t.Fatalf("no-cache response must never classify as fresh, got %d", got)
	}
}

func TestGetFreshnessRequestNoCacheIsTransparent(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now, "max-age=60")
	req := cachekit.NewHeader()
	req.Set("Cache-Control", "no-cache")
	if got := getFreshness(resp, req, slog.Default()); got != transparent {
		t.Fatalf("expected transparent when request carries no-cache, got %d", got)
	}
}

func TestGetFreshnessOnlyIfCachedForcesFresh(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now.Add(-2*time.Hour), "max-age=60")
	req := cachekit.NewHeader()
	req.Set("Cache-Control", "only-if-cached")
	if got := getFreshness(resp, req, slog.Default()); got != fresh {
		t.Fatalf("only-if-cached must force a fresh verdict regardless of lifetime, got %d", got)
	}
}

func TestGetFreshnessStaleWhileRevalidateWindow(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now.Add(-90*time.Second), "max-age=60, stale-while-revalidate=60")
	if got := getFreshness(resp, cachekit.NewHeader(), slog.Default()); got != staleWhileRevalidate {
		t.Fatalf("expected staleWhileRevalidate within the swr window, got %d", got)
	}

	expired := respHeaders(now.Add(-200*time.Second), "max-age=60, stale-while-revalidate=60")
	if got := getFreshness(expired, cachekit.NewHeader(), slog.Default()); got != stale {
		t.Fatalf("expected plain stale once the swr window has also elapsed, got %d", got)
	}
}

func TestGetFreshnessMissingDateIsStale(t *testing.T) {
	resp := cachekit.NewHeader()
	resp.Set("Cache-Control", "max-age=60")
	if got := getFreshness(resp, cachekit.NewHeader(), slog.Default()); got != stale {
		t.Fatalf("a response with no Date header cannot be judged fresh, got %d", got)
	}
}

func TestCanStaleOnError(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now.Add(-5*time.Second), "max-age=0, stale-if-error=30")
	if !canStaleOnError(resp, cachekit.NewHeader(), slog.Default()) {
		t.Fatal("expected stale-if-error to permit serving within its window")
	}

	tooOld := respHeaders(now.Add(-60*time.Second), "max-age=0, stale-if-error=30")
	if canStaleOnError(tooOld, cachekit.NewHeader(), slog.Default()) {
		t.Fatal("expected stale-if-error window to have elapsed")
	}

	noDirective := respHeaders(now, "max-age=0")
	if canStaleOnError(noDirective, cachekit.NewHeader(), slog.Default()) {
		t.Fatal("expected no stale-if-error allowance without the directive")
	}
}

func TestIsActuallyStaleIgnoresMaxStale(t *testing.T) {
	now := time.Now().UTC()
	resp := respHeaders(now.Add(-2*time.Minute), "max-age=60")
	if !isActuallyStale(resp, slog.Default()) {
		t.Fatal("response past its own lifetime must be actually stale")
	}

	fresh := respHeaders(now, "max-age=60")
	if isActuallyStale(fresh, slog.Default()) {
		t.Fatal("response within its own lifetime must not be actually stale")
	}
}
