package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/fursa-app/opportunity-cli/internal/model"
	"github.com/fursa-app/opportunity-cli/internal/store"
	"github.com/fursa-app/opportunity-cli/pkg/jina"
)

// Listing is one article discovered on the source homepage.
type Listing struct {
	Title       string
	Link        string
	DateText    string
	PublishedAt *time.Time
}

// Fetcher discovers newly published articles on the listing page and stores
// each one as a markdown document for extraction.
type Fetcher struct {
	http       *http.Client
	reader     jina.Client
	docs       *DocStore
	store      store.Store
	limiter    *rate.Limiter
	listingURL string
	source     string
}

// NewFetcher builds the fetch stage. articlesPerSec throttles per-article
// downloads against the source site.
func NewFetcher(reader jina.Client, docs *DocStore, st store.Store, listingURL, source string, timeout time.Duration, articlesPerSec float64) *Fetcher {
	if articlesPerSec <= 0 {
		articlesPerSec = 1
	}
	return &Fetcher{
		http:       &http.Client{Timeout: timeout},
		reader:     reader,
		docs:       docs,
		store:      st,
		limiter:    rate.NewLimiter(rate.Limit(articlesPerSec), 1),
		listingURL: listingURL,
		source:     source,
	}
}

// Run fetches the listing page, filters out articles already ingested, and
// downloads the rest. It reports whether any new document was written.
func (f *Fetcher) Run(ctx context.Context) (bool, error) {
	log := zap.L()

	lastCreated := f.lastCreatedAt(ctx)

	listings, err := f.fetchListings(ctx)
	if err != nil {
		return false, err
	}
	log.Info("fetch: listing parsed", zap.Int("articles", len(listings)))

	fresh := filterNew(listings, lastCreated)
	if lastCreated != nil {
		log.Info("fetch: filtered by last ingested date",
			zap.Time("last_created_at", *lastCreated),
			zap.Int("new", len(fresh)),
			zap.Int("skipped", len(listings)-len(fresh)),
		)
	}
	if len(fresh) == 0 {
		log.Info("fetch: no new articles")
		return false, nil
	}

	if err := f.docs.Clear(); err != nil {
		return false, err
	}

	meta := make(map[string]model.RawDocument, len(fresh))
	for _, l := range fresh {
		if l.Title == "" || l.Link == "" {
			continue
		}
		name := SanitizeFilename(l.Title)
		meta[name] = model.RawDocument{Filename: name, Source: f.source, SourceURL: l.Link}
	}
	if err := f.docs.WriteMeta(meta); err != nil {
		return false, err
	}

	successful := 0
	for i, l := range fresh {
		if l.Link == "" {
			log.Warn("fetch: article without link", zap.String("title", l.Title))
			continue
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return successful > 0, eris.Wrap(err, "fetch: rate limit wait")
		}

		log.Info("fetch: downloading article",
			zap.Int("index", i+1),
			zap.Int("total", len(fresh)),
			zap.String("title", l.Title),
		)
		resp, err := f.reader.Read(ctx, l.Link)
		if err != nil {
			log.Error("fetch: article failed", zap.String("url", l.Link), zap.Error(err))
			continue
		}

		doc := fmt.Sprintf("# %s\n\n**Date:** %s\n\n**Source:** [%s](%s)\n\n---\n\n%s",
			l.Title, l.DateText, l.Link, l.Link, resp.Data.Content)
		if err := f.docs.WriteDoc(SanitizeFilename(l.Title), doc); err != nil {
			return successful > 0, err
		}
		successful++
	}

	log.Info("fetch: complete", zap.Int("saved", successful), zap.Int("failed", len(fresh)-successful))
	return successful > 0, nil
}

// lastCreatedAt asks the store for the newest ingested record. A store error
// degrades to a full fetch rather than failing the run.
func (f *Fetcher) lastCreatedAt(ctx context.Context) *time.Time {
	if f.store == nil {
		return nil
	}
	t, err := f.store.LastCreatedAt(ctx)
	if err != nil {
		zap.L().Warn("fetch: could not query last ingested date, fetching all", zap.Error(err))
		return nil
	}
	return t
}

// filterNew keeps articles published after the cutoff. Articles without a
// machine-readable date are kept, matching a conservative "when in doubt,
// fetch" policy.
func filterNew(listings []Listing, cutoff *time.Time) []Listing {
	if cutoff == nil {
		return listings
	}
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.PublishedAt == nil || l.PublishedAt.After(*cutoff) {
			out = append(out, l)
		}
	}
	return out
}

func (f *Fetcher) fetchListings(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.listingURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create listing request")
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: get listing page")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetch: listing page status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read listing page")
	}
	return ParseListings(string(body))
}

// ParseListings extracts article entries from the listing page HTML. Each
// entry is an h3 with class "entry-title" wrapping a link, with a sibling
// time element carrying the publication date in its datetime attribute.
func ParseListings(page string) ([]Listing, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse listing html")
	}

	var listings []Listing

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				if hasClass(n, "entry-title") {
					if a := findAnchor(n); a != nil {
						listings = append(listings, Listing{
							Title: strings.TrimSpace(textContent(a)),
							Link:  attr(a, "href"),
						})
					}
				}
			case "time":
				// The date element follows its title in document order, so
				// it belongs to the most recent listing.
				if i := len(listings) - 1; i >= 0 && listings[i].PublishedAt == nil {
					listings[i].DateText = strings.TrimSpace(textContent(n))
					if dt := attr(n, "datetime"); dt != "" {
						if t, err := time.Parse(time.RFC3339, dt); err == nil {
							listings[i].PublishedAt = &t
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return listings, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findAnchor(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "a" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if a := findAnchor(c); a != nil {
			return a
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
