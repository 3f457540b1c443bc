package detection

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// ExtractPageMeta derives page metadata from the fetched body, the raw header
// text, and the request URL. It is pure and best-effort: malformed HTML
// degrades to empty fields, never an error.
func ExtractPageMeta(rawURL, headers, body string) models.PageMeta {
	meta := models.PageMeta{
		HTTPVersion: parseHTTPVersion(headers),
		SSLEnabled:  schemeIsHTTPS(rawURL),
	}

	tokenizer := html.NewTokenizer(strings.NewReader(body))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			// EOF or unparseable remainder; keep what was found so far.
			return meta
		}
		if tokenType != html.StartTagToken && tokenType != html.SelfClosingTagToken {
			continue
		}

		token := tokenizer.Token()
		switch token.Data {
		case "title":
			if tokenType == html.StartTagToken && meta.Title == "" {
				if tokenizer.Next() == html.TextToken {
					meta.Title = strings.TrimSpace(tokenizer.Token().Data)
				}
			}
		case "meta":
			name, content := attrValue(token, "name"), attrValue(token, "content")
			switch strings.ToLower(name) {
			case "description":
				if meta.Description == "" {
					meta.Description = strings.TrimSpace(content)
				}
			case "viewport":
				if strings.Contains(strings.ToLower(content), "width=device-width") {
					meta.Responsive = true
				}
			}
		}
	}
}

func attrValue(token html.Token, key string) string {
	for _, attr := range token.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

// parseHTTPVersion pulls the protocol token from the first response status
// line, e.g. "HTTP/2 200" yields "HTTP/2". Unparseable input yields "".
func parseHTTPVersion(headers string) string {
	firstLine := headers
	if idx := strings.IndexAny(headers, "\r\n"); idx >= 0 {
		firstLine = headers[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if !strings.HasPrefix(strings.ToUpper(firstLine), "HTTP/") {
		return ""
	}
	if idx := strings.IndexByte(firstLine, ' '); idx >= 0 {
		return firstLine[:idx]
	}
	return firstLine
}

func schemeIsHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}
