package crawl_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/raysh454/intent/internal/crawl"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/testutil"
	"github.com/raysh454/intent/internal/webclient"
)

func html(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, body)
}

// site: / -> /pricing, /docs (500), off-site and mailto links.
// /pricing -> /pricing/enterprise -> /deep (depth 3).
func newSite(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var deepHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		html(w, `<html><head><title>Shop</title></head><body>
		<nav><a href="/pricing">Pricing</a><a href="/docs">Docs</a></nav>
		<main><p>Welcome to the shop.</p>
		<a href="https://other.test/x">elsewhere</a><a href="mailto:sales@shop.test">mail</a>
		<a href="/pricing?utm_source=home#plans">plans</a></main></body></html>`)
	})
	mux.HandleFunc("/pricing", func(w http.ResponseWriter, r *http.Request) {
		html(w, `<html><body><header>Shop header</header><main>
		<h1>Pricing</h1><p>Starter tier is free.</p>
		<ul><li>Team: <p>per seat</p></li></ul>
		<script>var secret = 1;</script>
		<a href="/pricing/enterprise">Enterprise</a></main></body></html>`)
	})
	mux.HandleFunc("/pricing/enterprise", func(w http.ResponseWriter, r *http.Request) {
		html(w, `<html><body><article><p>Talk to sales for volume pricing.</p><a href="/deep">more</a></article></body></html>`)
	})
	mux.HandleFunc("/deep", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&deepHits, 1)
		html(w, `<p>too deep</p>`)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &deepHits
}

func newSpider(t *testing.T, cfg crawl.Config) *crawl.Spider {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	s, err := crawl.NewSpider(cfg, wc, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewSpider: %v", err)
	}
	return s
}

type chunkRecorder struct {
	mu     sync.Mutex
	chunks map[string]model.ContentChunk
}

func (r *chunkRecorder) PutContentChunk(_ context.Context, c model.ContentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chunks == nil {
		r.chunks = map[string]model.ContentChunk{}
	}
	r.chunks[c.ID] = c
	return nil
}

// ─── Crawl ─────────────────────────────────────────────────────────────

func TestCrawl_DepthAndHost(t *testing.T) {
	srv, deep := newSite(t)
	s := newSpider(t, crawl.Config{MaxDepth: 2})

	pages, failed, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1 (/docs)", failed)
	}

	got := map[string]int{}
	for _, p := range pages {
		got[strings.TrimPrefix(p.URL, srv.URL)] = p.Depth
	}
	want := map[string]int{"/": 0, "/pricing": 1, "/pricing/enterprise": 2}
	if len(got) != len(want) {
		t.Fatalf("pages = %v, want %v", got, want)
	}
	for path, d := range want {
		if got[path] != d {
			t.Errorf("%s depth = %d, want %d", path, got[path], d)
		}
	}
	if n := atomic.LoadInt32(deep); n != 0 {
		t.Errorf("/deep fetched %d times beyond max depth", n)
	}
}

func TestCrawl_MaxPages(t *testing.T) {
	srv, _ := newSite(t)
	s := newSpider(t, crawl.Config{MaxDepth: 5, MaxPages: 2})

	pages, _, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("pages = %d, want 2", len(pages))
	}
}

func TestCrawl_ExtractsReadableText(t *testing.T) {
	srv, _ := newSite(t)
	s := newSpider(t, crawl.Config{MaxDepth: 1})

	pages, _, err := s.Crawl(context.Background(), srv.URL+"/pricing")
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) == 0 {
		t.Fatal("no pages")
	}
	p := pages[0]
	if p.Title != "Pricing" {
		t.Errorf("title = %q, want h1 fallback", p.Title)
	}
	text := strings.Join(p.Blocks, "\n")
	for _, want := range []string{"Starter tier is free.", "Team: per seat"} {
		if !strings.Contains(text, want) {
			t.Errorf("blocks %q missing %q", p.Blocks, want)
		}
	}
	for _, unwanted := range []string{"secret", "Shop header"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("blocks should not contain %q: %q", unwanted, p.Blocks)
		}
	}
	if strings.Count(text, "per seat") != 1 {
		t.Errorf("nested block emitted twice: %q", p.Blocks)
	}
}

func TestCrawl_BadRoot(t *testing.T) {
	s := newSpider(t, crawl.DefaultConfig())
	if _, _, err := s.Crawl(context.Background(), "/relative"); err == nil {
		t.Error("expected error for root without host")
	}
}

// ─── Chunks & Index ────────────────────────────────────────────────────

func TestChunks(t *testing.T) {
	p := crawl.Page{URL: "https://shop.test/a", Title: "A", Blocks: []string{"aaaa", "bbbb", "cccccccccc"}}
	chunks := crawl.Chunks("shop", p, 8)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].Text != "aaaa\nbbbb" || chunks[1].Text != "cccccccccc" {
		t.Errorf("texts = %q, %q", chunks[0].Text, chunks[1].Text)
	}
	if chunks[0].ID == chunks[1].ID {
		t.Error("chunk ids must differ")
	}
	again := crawl.Chunks("shop", p, 8)
	if again[0].ID != chunks[0].ID {
		t.Error("chunk ids must be stable across runs")
	}
	if other := crawl.Chunks("blog", p, 8); other[0].ID == chunks[0].ID {
		t.Error("chunk ids must be scoped to the site")
	}
	if len(crawl.Chunks("shop", crawl.Page{URL: "u"}, 8)) != 0 {
		t.Error("empty page should yield no chunks")
	}
}

func TestIndex_WritesChunksIdempotently(t *testing.T) {
	srv, _ := newSite(t)
	s := newSpider(t, crawl.Config{MaxDepth: 2})
	rec := &chunkRecorder{}

	st, err := s.Index(context.Background(), "shop", srv.URL, rec)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if st.Pages != 3 || st.Failed != 1 || st.Chunks != 3 {
		t.Errorf("stats = %+v", st)
	}
	for _, c := range rec.chunks {
		if c.SiteID != "shop" || c.Text == "" {
			t.Errorf("chunk = %+v", c)
		}
	}

	if _, err := s.Index(context.Background(), "shop", srv.URL, rec); err != nil {
		t.Fatalf("second Index: %v", err)
	}
	if len(rec.chunks) != 3 {
		t.Errorf("re-index stored %d distinct chunks, want 3", len(rec.chunks))
	}

	if _, err := s.Index(context.Background(), "", srv.URL, rec); err == nil {
		t.Error("expected error without site id")
	}
}
