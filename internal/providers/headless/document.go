package headless

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNotHTML is returned for responses that are not an HTML document.
var ErrNotHTML = errors.New("headless: response is not an HTML document")

// Document is a parsed page. It is mutated by scripts through the DOM
// binding, so it must only be touched on its runtime's goroutine once a
// runtime owns it.
type Document struct {
	URL       *url.URL
	Status    int
	MediaType string
	Charset   string

	gq *goquery.Document
}

// ParseDocument decodes page into a Document.
func ParseDocument(page *Page) (*Document, error) {
	mediaType, params, _ := mime.ParseMediaType(page.ContentType)
	if !isHTML(mediaType, page.Body) {
		detected := mimetype.Detect(page.Body)
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, detected.String())
	}

	label := params["charset"]
	if label == "" {
		label = detectCharset(page.Body)
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(page.Body))
	if err != nil {
		reader = bytes.NewReader(page.Body)
		label = "utf-8"
	}

	gq, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	gq.Url = page.URL

	if mediaType == "" {
		mediaType = "text/html"
	}
	return &Document{
		URL:       page.URL,
		Status:    page.Status,
		MediaType: mediaType,
		Charset:   strings.ToLower(label),
		gq:        gq,
	}, nil
}

func isHTML(mediaType string, body []byte) bool {
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	case "":
		return mimetype.Detect(body).Is("text/html")
	default:
		return false
	}
}

func detectCharset(body []byte) string {
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// Title returns the document title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.gq.Find("title").First().Text())
}

// InlineScripts returns the source of every classic inline script in
// document order. External and module scripts are not executed.
func (d *Document) InlineScripts() []string {
	var out []string
	d.gq.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		switch t, _ := s.Attr("type"); strings.ToLower(strings.TrimSpace(t)) {
		case "", "text/javascript", "application/javascript":
		default:
			return
		}
		if src := s.Text(); strings.TrimSpace(src) != "" {
			out = append(out, src)
		}
	})
	return out
}

// Viewport returns the content of the viewport meta tag.
func (d *Document) Viewport() string {
	root := d.Root()
	if root == nil {
		return ""
	}
	node := htmlquery.FindOne(root, "//meta[@name='viewport']")
	if node == nil {
		return ""
	}
	return htmlquery.SelectAttr(node, "content")
}

// HTML renders the current document.
func (d *Document) HTML() (string, error) {
	return d.gq.Html()
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	if len(d.gq.Nodes) == 0 {
		return nil
	}
	return d.gq.Nodes[0]
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.gq.Find(selector)
}

// FindIn runs a CSS selector under n.
func (d *Document) FindIn(n *html.Node, selector string) *goquery.Selection {
	return d.gq.FindNodes(n).Find(selector)
}
