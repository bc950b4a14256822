package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github/itish2003/cricketbot/models"
)

const wikipediaUserAgent = "cricketbot/1.0 (https://github.com/itish2003/cricketbot)"

// WikipediaLoader searches Wikipedia for a query and loads the plain-text
// extract of each matching article.
type WikipediaLoader struct {
	httpClient *http.Client
	apiURL     string
	query      string
	maxDocs    int
	maxChars   int

	// OnProgress, when set, is called after each article is fetched.
	OnProgress ProgressFunc
}

func NewWikipediaLoader(apiURL, query string, maxDocs, maxChars int, httpClient *http.Client) *WikipediaLoader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &WikipediaLoader{
		httpClient: httpClient,
		apiURL:     apiURL,
		query:      query,
		maxDocs:    maxDocs,
		maxChars:   maxChars,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPageResponse struct {
	Query struct {
		Pages []struct {
			PageID  int    `json:"pageid"`
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// Load returns up to maxDocs articles in search-rank order. Articles that
// cannot be fetched are skipped; a failed search is an error.
func (w *WikipediaLoader) Load(ctx context.Context) ([]models.RawDocument, error) {
	if w.maxDocs == 0 {
		return nil, nil
	}

	titles, err := w.search(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("LOADER: Wikipedia search for %q returned %d titles", w.query, len(titles))

	docs := make([]models.RawDocument, 0, len(titles))
	for i, title := range titles {
		doc, ok, err := w.fetchPage(ctx, title)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnf("LOADER: could not fetch %q: %v", title, err)
		case !ok:
			log.Warnf("LOADER: page %q is missing, skipping", title)
		default:
			docs = append(docs, doc)
		}
		if w.OnProgress != nil {
			w.OnProgress(i+1, len(titles))
		}
	}
	log.Printf("LOADER: %d documents loaded from Wikipedia.", len(docs))
	return docs, nil
}

func (w *WikipediaLoader) search(ctx context.Context) ([]string, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {w.query},
		"srlimit":       {strconv.Itoa(w.maxDocs)},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	var resp wikiSearchResponse
	if err := w.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("wikipedia search failed: %w", err)
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

func (w *WikipediaLoader) fetchPage(ctx context.Context, title string) (models.RawDocument, bool, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts|info"},
		"explaintext":   {"1"},
		"inprop":        {"url"},
		"redirects":     {"1"},
		"titles":        {title},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	var resp wikiPageResponse
	if err := w.get(ctx, params, &resp); err != nil {
		return models.RawDocument{}, false, err
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return models.RawDocument{}, false, nil
	}

	page := resp.Query.Pages[0]
	return models.RawDocument{
		Title:     page.Title,
		Summary:   introSection(page.Extract),
		SourceURL: page.FullURL,
		Content:   truncateUTF8(page.Extract, w.maxChars),
	}, true, nil
}

func (w *WikipediaLoader) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call wikipedia api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wikipedia api returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode wikipedia response: %w", err)
	}
	return nil
}

// introSection returns the lead of a plain-text extract, before the first
// section heading.
func introSection(extract string) string {
	if idx := strings.Index(extract, "\n=="); idx >= 0 {
		extract = extract[:idx]
	}
	return strings.TrimSpace(extract)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune. n <= 0
// disables truncation.
func truncateUTF8(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
