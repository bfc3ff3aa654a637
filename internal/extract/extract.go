// Package extract turns an HTML license page into plain text ready for
// normalization.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Options selects which part of the page is kept.
type Options struct {
	// Selector keeps only elements matching this CSS selector. It takes
	// precedence over IncludeAll.
	Selector string
	// IncludeAll converts the whole page instead of the readability main content.
	IncludeAll bool
	// BaseURL resolves relative links during readability extraction. May be nil.
	BaseURL *url.URL
}

// LooksLikeHTML sniffs the leading bytes of content.
func LooksLikeHTML(content []byte) bool {
	return strings.HasPrefix(http.DetectContentType(content), "text/html")
}

// ToText extracts license text from an HTML document.
func ToText(content io.Reader, opts Options) (string, error) {
	switch {
	case opts.Selector != "":
		return selectText(content, opts.Selector)
	case opts.IncludeAll:
		b, err := io.ReadAll(content)
		if err != nil {
			return "", fmt.Errorf("reading HTML: %w", err)
		}
		return convert(string(b))
	default:
		return mainContent(content, opts.BaseURL)
	}
}

// Text returns content unchanged unless it is HTML (by mediaType, or by
// sniffing when mediaType is empty), in which case it is extracted with opts.
func Text(content []byte, mediaType string, opts Options) (string, error) {
	isHTML := mediaType == "text/html" || mediaType == "application/xhtml+xml"
	if mediaType == "" {
		isHTML = LooksLikeHTML(content)
	}
	if !isHTML {
		if opts.Selector != "" {
			slog.Debug("Selector ignored for non-HTML input", "selector", opts.Selector, "mediaType", mediaType)
		}
		return string(content), nil
	}
	return ToText(bytes.NewReader(content), opts)
}

func mainContent(content io.Reader, baseURL *url.URL) (string, error) {
	if baseURL == nil {
		baseURL = &url.URL{}
	}
	article, err := readability.FromReader(content, baseURL)
	if err != nil {
		return "", fmt.Errorf("extracting main content: %w", err)
	}
	slog.Debug("Readability extraction", "title", article.Title, "length", article.Length)
	return convert(article.Content)
}

func selectText(content io.Reader, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	selection := doc.Find(selector)
	if selection.Length() == 0 {
		return "", fmt.Errorf("no elements match selector %q", selector)
	}

	var parts []string
	selection.Each(func(_ int, s *goquery.Selection) {
		html, err := s.Html()
		if err != nil {
			return
		}
		tag := goquery.NodeName(s)
		parts = append(parts, fmt.Sprintf("<%s>%s</%s>", tag, html, tag))
	})
	if len(parts) == 0 {
		return "", fmt.Errorf("no HTML extracted for selector %q", selector)
	}
	return convert(strings.Join(parts, "\n"))
}

// convert renders HTML as Markdown, which keeps the words and paragraph breaks
// and drops markup the normalizer would otherwise have to strip.
func convert(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "nav", "footer")

	text, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML: %w", err)
	}
	text = strings.TrimSpace(text)
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text, nil
}
