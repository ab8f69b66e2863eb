package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/campuscrawl/internal/fetch"
	"github.com/nao1215/campuscrawl/internal/metrics"
	"github.com/nao1215/campuscrawl/internal/page"
	"github.com/nao1215/campuscrawl/internal/textstats"
	"github.com/nao1215/campuscrawl/internal/urlcanon"
)

// outcome is what a fetched page contributed.
type outcome struct {
	informative bool
	links       []string
}

// visit processes one URL taken from the frontier: download, analyze,
// enqueue its links and mark it complete. An error means a store failed or
// ctx was cancelled. In the latter case the URL stays pending.
func (p *Pool) visit(ctx context.Context, logger *slog.Logger, url string) error {
	start := time.Now()
	resp := p.downloader.Download(ctx, url)
	if err := ctx.Err(); err != nil {
		return err
	}
	p.metrics.PageFetched(resp.Status, len(resp.Body), time.Since(start).Seconds())

	out, err := p.analyze(ctx, logger, resp)
	if err != nil {
		return err
	}

	logger.Info("fetched",
		"url", url,
		"status", resp.Status,
		"informative", out.informative,
	)
	if resp.Err != nil {
		logger.Debug("fetch failed", "url", url, "attempts", resp.Attempts, "error", resp.Err)
	}

	for _, link := range out.links {
		if err := p.enqueue(ctx, logger, link); err != nil {
			return err
		}
	}

	if err := p.frontier.MarkComplete(ctx, url); err != nil {
		if errors.Is(err, urlcanon.ErrMalformedURL) {
			logger.Error("malformed url", "url", url, "error", err)
			return nil
		}
		return err
	}
	p.fetched.Add(1)
	return nil
}

// analyze runs the page checks in order and stops at the first one that
// rejects the page. Only store errors are returned.
func (p *Pool) analyze(ctx context.Context, logger *slog.Logger, resp *fetch.Response) (outcome, error) {
	var out outcome

	if !resp.OK() {
		return out, nil
	}
	if !page.IsHTML(resp.Body, resp.ContentType) {
		logger.Debug("discarding non-html body", "url", resp.URL, "content_type", resp.ContentType)
		return out, nil
	}

	pageURL := resp.FinalURL
	if pageURL == "" {
		pageURL = resp.URL
	}

	doc, err := page.Parse(resp.Body, resp.ContentType, pageURL)
	if err != nil {
		logger.Warn("failed to parse page", "url", pageURL, "error", err)
		return out, nil
	}

	robots := doc.RobotsMeta()
	if robots.NoIndex {
		logger.Debug("discarding noindex page", "url", pageURL)
		return out, nil
	}

	key, err := urlcanon.IdentityKey(pageURL)
	if err != nil {
		p.metrics.MalformedURL()
		logger.Error("malformed url", "url", pageURL, "error", err)
		return out, nil
	}

	stats := textstats.Analyze(doc.Text())
	var fp *uint64
	if stats.HasFingerprint {
		fp = &stats.Fingerprint
	}

	// An entry under this very URL means an earlier visit was cut short
	// after admission: words are counted, links are enqueued again.
	resumed := false
	if prev, ok := p.pages.Lookup(key); ok && prev == resp.URL {
		logger.Debug("resuming unfinished page", "url", resp.URL)
		resumed = true
	} else {
		duplicate, err := p.pages.CheckAndRecord(ctx, key, fp, resp.URL)
		if err != nil {
			return out, err
		}
		if duplicate {
			p.duplicates.Add(1)
			p.metrics.Duplicate(metrics.DuplicatePage)
			return out, nil
		}
		p.unique.Add(1)
	}

	if !resumed && stats.WordCount >= p.minWords {
		out.informative = true
		if err := p.words.AddWordCounts(ctx, stats.Frequencies); err != nil {
			return out, fmt.Errorf("failed to record words of %s: %w", pageURL, err)
		}
		if _, err := p.words.UpdateRichest(ctx, pageURL, stats.WordCount); err != nil {
			return out, fmt.Errorf("failed to update richest page: %w", err)
		}
		logger.Debug("counted words", "url", pageURL, "title", doc.Title(), "words", stats.WordCount)
	}

	if robots.NoFollow {
		return out, nil
	}

	for _, a := range doc.Anchors() {
		if a.Err != nil {
			p.metrics.MalformedURL()
			logger.Error("malformed url", "href", a.Href, "page", pageURL, "error", a.Err)
			continue
		}
		out.links = append(out.links, a.URL)
	}
	return out, nil
}

// enqueue hands link to the frontier if it is crawlable and was not seen
// as a link before.
func (p *Pool) enqueue(ctx context.Context, logger *slog.Logger, link string) error {
	if !urlcanon.IsValid(link) {
		return nil
	}

	key, err := urlcanon.IdentityKey(link)
	if err != nil {
		p.metrics.MalformedURL()
		logger.Error("malformed url", "url", link, "error", err)
		return nil
	}

	seen, err := p.links.CheckURL(ctx, key, link)
	if err != nil {
		return err
	}
	if seen {
		p.metrics.Duplicate(metrics.DuplicateLink)
		return nil
	}

	added, err := p.frontier.AddURL(ctx, link)
	if err != nil {
		// The link never reached the ledger. Its dedup entry must go too,
		// or a resumed crawl would skip it for good.
		if ferr := p.links.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			return errors.Join(err, ferr)
		}
		if errors.Is(err, urlcanon.ErrMalformedURL) {
			p.metrics.MalformedURL()
			logger.Error("malformed url", "url", link, "error", err)
			return nil
		}
		return err
	}
	if added {
		p.enqueued.Add(1)
		p.metrics.URLEnqueued()
	}
	return nil
}
