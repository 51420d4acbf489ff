package finn

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"rental-radar/config"
	"rental-radar/utils"
)

const siteBase = "https://www.finn.no"

var (
	// adHrefRegexp matches lettings ad URLs, both the legacy finnkode form
	// and the newer slug form ending in a numeric id.
	adHrefRegexp = regexp.MustCompile(`(?i)(https?://)?(www\.)?finn\.no/realestate/lettings/(?:ad\.html\?finnkode=\d+|.*?/\d{6,})([?#].*)?$`)
	// listingIDRegexp recovers the site-assigned ad id from a URL
	listingIDRegexp = regexp.MustCompile(`(?:finnkode=|/)(\d{6,})`)
)

// Page is one fetched ad page: its URL, the recovered listing id (may be
// empty) and the rendered markup handed to the extractor.
type Page struct {
	URL       string
	ListingID string
	HTML      string
}

// Archiver saves fetched pages so extraction can be re-run offline.
type Archiver interface {
	SaveRawHTML(name, markup string) error
}

// Scraper walks a market's search results with a headless browser and
// collects the rendered HTML of every ad page. It only retrieves markup;
// extraction happens elsewhere.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	pool    *utils.WorkerPool
	visited *utils.URLSet
	retry   *utils.RetryConfig
	archive Archiver
}

// New creates a ready-to-use finn.no Scraper. The archiver may be nil, in
// which case fetched pages are not kept.
func New(cfg *config.Config, logger *utils.Logger, archive Archiver) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		pool:    utils.NewWorkerPool(cfg.MaxConcurrency, cfg.AdSleepMs),
		visited: utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		archive: archive,
	}
}

// Crawl paginates through one market's search results, harvests ad URLs and
// fetches each ad page. The crawl stops at MaxPages or as soon as a result
// page contributes no new links.
func (s *Scraper) Crawl(marketKey, searchURL string) ([]*Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.cfg.UserAgent),
	)
	if bin := findChromeBinary(s.cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	var adURLs []string
	for page := 1; page <= s.cfg.MaxPages; page++ {
		pageURL, err := buildPageURL(searchURL, page)
		if err != nil {
			return nil, fmt.Errorf("finn: bad search url %q: %w", searchURL, err)
		}

		html, err := s.fetchHTML(allocCtx, fmt.Sprintf("%s-search-%d", marketKey, page), pageURL)
		if err != nil {
			s.logger.Error("[finn] %s: result page %d failed: %v", marketKey, page, err)
			break
		}
		s.archivePage(searchArchiveName(marketKey, page), html)

		added := 0
		for _, u := range extractAdURLs(html) {
			if s.visited.Add(u) {
				adURLs = append(adURLs, u)
				added++
			}
		}
		s.logger.Info("[finn] %s: page %d — %d new links (total %d)", marketKey, page, added, len(adURLs))

		if page > 1 && added == 0 {
			break
		}
		time.Sleep(time.Duration(s.cfg.PageSleepMs) * time.Millisecond)
	}

	s.logger.Info("[finn] %s: fetching %d ad pages", marketKey, len(adURLs))

	// Results keep the harvest order even though fetches run in the pool.
	pages := make([]*Page, len(adURLs))
	for i, adURL := range adURLs {
		i, adURL := i, adURL
		s.pool.Submit(func() {
			html, err := s.fetchHTML(allocCtx, fmt.Sprintf("ad-%d", i+1), adURL)
			if err != nil {
				s.logger.Error("[finn] %s: ad fetch failed %s: %v", marketKey, adURL, err)
				return
			}
			pages[i] = &Page{
				URL:       adURL,
				ListingID: listingIDFrom(adURL, html),
				HTML:      html,
			}
		})
	}
	s.pool.Wait()

	fetched := make([]*Page, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			fetched = append(fetched, p)
		}
	}

	s.logger.Info("[finn] %s: crawl complete — %d/%d ad pages fetched", marketKey, len(fetched), len(adURLs))
	return fetched, nil
}

// archivePage hands one fetched page to the archiver. Archive failures are
// logged and do not interrupt the crawl.
func (s *Scraper) archivePage(name, markup string) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveRawHTML(name, markup); err != nil {
		s.logger.Warn("[finn] Raw HTML archive failed for %s: %v", name, err)
	}
}

func searchArchiveName(marketKey string, page int) string {
	return fmt.Sprintf("%s_search_%d.html", marketKey, page)
}

// fetchHTML navigates to a URL in a fresh tab and returns the rendered
// document, retrying with backoff.
func (s *Scraper) fetchHTML(allocCtx context.Context, name, pageURL string) (string, error) {
	var html string
	err := s.retry.Do("fetch-"+name, func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html),
		)
	})
	return html, err
}

// buildPageURL sets the page query parameter on the market's search URL.
func buildPageURL(searchURL string, page int) (string, error) {
	parsed, err := url.Parse(searchURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set("page", strconv.Itoa(page))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// extractAdURLs pulls lettings ad links out of a search result page. DOM
// anchors are preferred; a raw regex sweep over the markup is the fallback
// when the card layout changes.
func extractAdURLs(html string) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(href string) {
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "/") {
			href = siteBase + href
		}
		if !adHrefRegexp.MatchString(href) {
			return
		}
		href = strings.SplitN(href, "#", 2)[0]
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		urls = append(urls, href)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok {
				add(href)
			}
		})
	}

	if len(urls) == 0 {
		for _, m := range adHrefRegexp.FindAllString(html, -1) {
			if !strings.HasPrefix(m, "http") {
				m = "https://" + m
			}
			add(m)
		}
	}

	return urls
}

// listingIDFrom recovers the ad id from the URL, falling back to the page's
// og:url meta tag. Returns "" when neither yields one.
func listingIDFrom(adURL, html string) string {
	if m := listingIDRegexp.FindStringSubmatch(adURL); m != nil {
		return m[1]
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	og, _ := doc.Find(`meta[property="og:url"]`).First().Attr("content")
	if m := listingIDRegexp.FindStringSubmatch(og); m != nil {
		return m[1]
	}
	return ""
}

// findChromeBinary returns the configured browser binary or the first one
// found on PATH.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
