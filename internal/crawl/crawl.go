// Package crawl walks an operator's site and indexes its readable text as
// content chunks for the local context lookup.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/utils"
	"github.com/raysh454/intent/internal/webclient"
)

// ChunkWriter persists indexed content. *store.Store satisfies it.
type ChunkWriter interface {
	PutContentChunk(ctx context.Context, c model.ContentChunk) error
}

type Config struct {
	MaxDepth int
	MaxPages int
	// ChunkChars is the soft upper bound on one chunk's length in runes.
	ChunkChars int
}

func DefaultConfig() Config {
	return Config{MaxDepth: 2, MaxPages: 200, ChunkChars: 800}
}

// Page is one crawled document.
type Page struct {
	URL   string
	Depth int
	Title string
	// Blocks are the readable paragraphs in document order.
	Blocks []string
}

type Stats struct {
	Pages  int
	Failed int
	Chunks int
}

var linkOptions = utils.CanonicalizeOptions{
	DropTrackingParams: true,
	StripTrailingSlash: true,
}

// Spider crawls same-host links breadth first up to MaxDepth.
type Spider struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

func NewSpider(cfg Config, wc webclient.WebClient, logger logging.Logger) (*Spider, error) {
	if wc == nil {
		return nil, errors.New("crawl: web client is required")
	}
	d := DefaultConfig()
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = d.MaxPages
	}
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = d.ChunkChars
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Spider{cfg: cfg, wc: wc, logger: logger.With(logging.Field{Key: "component", Value: "crawl"})}, nil
}

// Crawl fetches root and every same-host page reachable within MaxDepth.
// Pages that fail to load are logged and skipped.
func (s *Spider) Crawl(ctx context.Context, root string) ([]Page, int, error) {
	start, err := utils.Canonicalize(root, linkOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("crawl root %q: %w", root, err)
	}
	host := utils.Hostname(start)

	depth := map[string]int{start: 0}
	queue := []string{start}
	var pages []Page
	failed := 0

	for len(queue) > 0 && len(pages) < s.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return pages, failed, err
		}
		target := queue[0]
		queue = queue[1:]

		page, links, err := s.fetch(ctx, target)
		if err != nil {
			failed++
			s.logger.Warn("error while crawling page",
				logging.Field{Key: "url", Value: target}, logging.Err(err))
			continue
		}
		page.Depth = depth[target]
		pages = append(pages, *page)

		if page.Depth >= s.cfg.MaxDepth {
			continue
		}
		for _, l := range links {
			if utils.Hostname(l) != host {
				continue
			}
			if _, seen := depth[l]; seen {
				continue
			}
			depth[l] = page.Depth + 1
			queue = append(queue, l)
		}
	}
	return pages, failed, nil
}

func (s *Spider) fetch(ctx context.Context, target string) (*Page, []string, error) {
	resp, err := s.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: target, Headers: http.Header{}})
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Headers.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/html") {
		return nil, nil, fmt.Errorf("not html: %s", ct)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	base, _ := url.Parse(target)
	links := extractLinks(doc, base)
	title, blocks := extractText(doc)
	return &Page{URL: target, Title: title, Blocks: blocks}, links, nil
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		c, err := utils.Canonicalize(abs.String(), linkOptions)
		if err != nil {
			return
		}
		out = append(out, c)
	})
	return out
}

var blockSelector = "h1, h2, h3, h4, p, li, blockquote, td, dd"

// extractText returns the page title and the readable blocks of its main
// content, skipping navigation chrome and scripts.
func extractText(doc *goquery.Document) (string, []string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, noscript, template, nav, header, footer, aside, form").Remove()
	scope := doc.Find("main, article").First()
	if scope.Length() == 0 {
		scope = doc.Find("body")
	}

	var blocks []string
	scope.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (a p inside an li) are emitted by the outer one.
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		if t := strings.Join(strings.Fields(scope.Text()), " "); t != "" {
			blocks = append(blocks, t)
		}
	}
	return title, blocks
}

// Chunks groups a page's blocks into chunks of about maxChars runes. A block
// longer than maxChars becomes its own chunk. IDs are derived from the site,
// URL and position, so re-indexing a page replaces its chunks.
func Chunks(siteID string, p Page, maxChars int) []model.ContentChunk {
	var out []model.ContentChunk
	var cur []string
	n := 0
	emit := func() {
		if len(cur) == 0 {
			return
		}
		id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s|%s|%d", siteID, p.URL, len(out))))
		out = append(out, model.ContentChunk{
			ID:     id.String(),
			SiteID: siteID,
			URL:    p.URL,
			Title:  p.Title,
			Text:   strings.Join(cur, "\n"),
		})
		cur, n = nil, 0
	}
	for _, b := range p.Blocks {
		l := utf8.RuneCountInString(b)
		if n > 0 && n+l > maxChars {
			emit()
		}
		cur = append(cur, b)
		n += l
	}
	emit()
	return out
}

// Index crawls root and writes every page's chunks for siteID.
func (s *Spider) Index(ctx context.Context, siteID, root string, w ChunkWriter) (Stats, error) {
	if siteID == "" {
		return Stats{}, errors.New("crawl: site id is required")
	}
	pages, failed, err := s.Crawl(ctx, root)
	st := Stats{Pages: len(pages), Failed: failed}
	if err != nil {
		return st, err
	}
	for _, p := range pages {
		for _, c := range Chunks(siteID, p, s.cfg.ChunkChars) {
			if err := w.PutContentChunk(ctx, c); err != nil {
				return st, err
			}
			st.Chunks++
		}
	}
	s.logger.Info("site indexed",
		logging.Field{Key: "site_id", Value: siteID},
		logging.Field{Key: "pages", Value: st.Pages},
		logging.Field{Key: "failed", Value: st.Failed},
		logging.Field{Key: "chunks", Value: st.Chunks})
	return st, nil
}
