// Package listing fetches a best-seller listing page and parses its product
// tiles into crawled-product entries. The markup conventions follow the
// Korean cosmetics shops this tool collects from.
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"mirelle/internal/domain"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Fetcher struct {
	// Client defaults to http.DefaultClient; pass one with a timeout in
	// production wiring.
	Client *http.Client
}

// Fetch downloads the crawl's source URL and parses its product tiles. The
// crawl's category is stamped onto every entry.
func (f *Fetcher) Fetch(ctx context.Context, run domain.CrawlRun) ([]domain.CrawledProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, run.SourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing fetch: %s returned %s", run.Source, resp.Status)
	}

	products, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Category = run.Category
	}
	return products, nil
}

var (
	numberRe  = regexp.MustCompile(`[\d,]+`)
	goodsNoRe = regexp.MustCompile(`goodsNo=(\w+)`)
)

// Parse extracts product entries from listing HTML. Tiles are elements
// carrying a prd_info or flag_wrap class; tiles without a product name are
// skipped.
func Parse(r io.Reader) ([]domain.CrawledProduct, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var out []domain.CrawledProduct
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, "prd_info", "flag_wrap") {
			if p, ok := parseTile(n); ok {
				out = append(out, p)
			}
			return false // tiles do not nest
		}
		return true
	})
	return out, nil
}

func parseTile(tile *html.Node) (domain.CrawledProduct, bool) {
	var p domain.CrawledProduct
	p.Brand = textOf(findClass(tile, "tx_brand", "brand"))
	p.Name = textOf(findClass(tile, "tx_name", "prd_name"))
	if p.Name == "" {
		return p, false
	}

	p.Price = parseNumber(textOf(findClass(tile, "tx_cur", "price")))
	p.OriginalPrice = p.Price
	if org := findClass(tile, "tx_org", "org_price"); org != nil {
		p.OriginalPrice = parseNumber(textOf(org))
	}

	if link := find(tile, func(n *html.Node) bool {
		return n.Data == "a" && strings.Contains(attrOf(n, "href"), "goods")
	}); link != nil {
		href := attrOf(link, "href")
		p.ProductURL = href
		if m := goodsNoRe.FindStringSubmatch(href); m != nil {
			p.ProductCode = m[1]
		}
	}
	if img := find(tile, func(n *html.Node) bool { return n.Data == "img" }); img != nil {
		p.ImageURL = attrOf(img, "src")
		if p.ImageURL == "" {
			p.ImageURL = attrOf(img, "data-src")
		}
	}

	p.Rank = parseNumber(textOf(findClass(tile, "num", "rank")))
	p.ReviewCount = parseNumber(textOf(findClass(tile, "tx_review", "review_count")))

	walk(tile, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, "icon_flag", "badge", "tag") {
			badge := strings.ToLower(textOf(n))
			if strings.Contains(badge, "new") || strings.Contains(badge, "신상") {
				p.IsNew = true
			}
			return false
		}
		return true
	})
	return p, true
}

// walk visits n and its descendants depth-first; visit returning false skips
// the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n != root && n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func findClass(root *html.Node, classes ...string) *html.Node {
	return find(root, func(n *html.Node) bool { return hasClass(n, classes...) })
}

func hasClass(n *html.Node, classes ...string) bool {
	for _, token := range strings.Fields(attrOf(n, "class")) {
		for _, c := range classes {
			if token == c {
				return true
			}
		}
	}
	return false
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

func parseNumber(s string) int {
	m := numberRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
