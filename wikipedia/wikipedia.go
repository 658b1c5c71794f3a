// Package wikipedia reads the "Holidays and observances" section of the
// English Wikipedia date pages through the MediaWiki parse API.
package wikipedia

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hk-410/hakyng-bots/fetch"
	"golang.org/x/net/html"
)

// DefaultAPIURL is the English Wikipedia action API.
const DefaultAPIURL = "https://en.wikipedia.org/w/api.php"

// ObservancesSection is the section title on every date page.
const ObservancesSection = "Holidays and observances"

// Section is one entry of a page's table of contents.
type Section struct {
	Line  string `json:"line"`
	Index string `json:"index"`
	Level string `json:"level"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type sectionsResponse struct {
	Parse struct {
		Sections []Section `json:"sections"`
	} `json:"parse"`
	Error *apiError `json:"error"`
}

type textResponse struct {
	Parse struct {
		Text struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error *apiError `json:"error"`
}

// Client queries the parse API.
type Client struct {
	fetcher *fetch.Fetcher
	apiURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL points the client at another MediaWiki install.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

// New creates a client. The fetcher's User-Agent must identify the bot, as
// Wikimedia's API policy requires.
func New(f *fetch.Fetcher, opts ...Option) *Client {
	c := &Client{fetcher: f, apiURL: DefaultAPIURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sections lists the sections of page.
func (c *Client) Sections(ctx context.Context, page string) ([]Section, error) {
	var resp sectionsResponse
	if err := c.fetcher.GetJSON(ctx, c.parseURL(page, url.Values{"prop": {"sections"}}), &resp); err != nil {
		return nil, fmt.Errorf("fetch sections of %q: %w", page, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("wikipedia %s: %s", resp.Error.Code, resp.Error.Info)
	}
	return resp.Parse.Sections, nil
}

// SectionHTML returns the rendered HTML of one section.
func (c *Client) SectionHTML(ctx context.Context, page, index string) (string, error) {
	var resp textResponse
	u := c.parseURL(page, url.Values{"prop": {"text"}, "section": {index}})
	if err := c.fetcher.GetJSON(ctx, u, &resp); err != nil {
		return "", fmt.Errorf("fetch section %s of %q: %w", index, page, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("wikipedia %s: %s", resp.Error.Code, resp.Error.Info)
	}
	return resp.Parse.Text.HTML, nil
}

// Observances returns the list items of the page's observances section.
// A page without the section yields an empty list.
func (c *Client) Observances(ctx context.Context, page string) ([]string, error) {
	sections, err := c.Sections(ctx, page)
	if err != nil {
		return nil, err
	}

	index := ""
	for _, s := range sections {
		if s.Line == ObservancesSection {
			index = s.Index
			break
		}
	}
	if index == "" {
		return []string{}, nil
	}

	fragment, err := c.SectionHTML(ctx, page, index)
	if err != nil {
		return nil, err
	}
	return ListItems(fragment)
}

func (c *Client) parseURL(page string, extra url.Values) string {
	q := url.Values{
		"action": {"parse"},
		"page":   {page},
		"format": {"json"},
	}
	for k, v := range extra {
		q[k] = v
	}
	return c.apiURL + "?" + q.Encode()
}

// ListItems returns the trimmed, non-empty text of every li element in
// document order. Nested items appear both on their own and inside their
// parent's text.
func ListItems(fragment string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse section HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	items := []string{}
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	return items, nil
}
