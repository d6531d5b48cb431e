package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/bitfsorg/x402-bch-go/x402"
)

// DefaultPriceSat is charged on a protected route whose config leaves
// PriceSat unset.
const DefaultPriceSat = 1000

// DefaultMaxTimeoutSeconds is advertised when a route config leaves
// MaxTimeoutSeconds unset.
const DefaultMaxTimeoutSeconds = 60

// RouteConfig describes the payment terms of one protected route.
type RouteConfig struct {
	// PriceSat is the amount in satoshis charged per request.
	PriceSat int64

	Description       string
	MimeType          string
	MaxTimeoutSeconds int

	// Discoverable marks the route as listable in payment requirement
	// schemas. Advisory only.
	Discoverable bool
}

// Requirements builds the accepts array advertised for a request hitting
// this route, with payTo as the receiving address.
func (cfg RouteConfig) Requirements(r *http.Request, payTo string) []x402.PaymentRequirements {
	price := cfg.PriceSat
	if price <= 0 {
		price = DefaultPriceSat
	}
	timeout := cfg.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultMaxTimeoutSeconds
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return []x402.PaymentRequirements{{
		Scheme:            x402.SchemeUTXO,
		Network:           x402.NetworkBCH,
		MinAmountRequired: price,
		Resource:          scheme + "://" + r.Host + r.URL.Path,
		Description:       cfg.Description,
		MimeType:          cfg.MimeType,
		PayTo:             payTo,
		MaxTimeoutSeconds: timeout,
		Asset:             x402.AssetBCH,
		OutputSchema: &x402.OutputSchema{
			Input: x402.InputSchema{
				Type:         "http",
				Method:       strings.ToUpper(r.Method),
				Discoverable: cfg.Discoverable,
			},
		},
		Extra: map[string]any{},
	}}
}

// route is one compiled entry of the table. source keeps the generated
// regexp text so specificity can be compared by length.
type route struct {
	verb   string
	source string
	re     *regexp.Regexp
	config RouteConfig
}

// RouteTable matches incoming requests against protected route patterns.
type RouteTable struct {
	routes []route
}

var paramSegment = regexp.MustCompile(`\[[^\]]+\]`)

// CompileRoutes builds a route table from a pattern map. Keys take the form
// "VERB /path" where VERB may be "*" for any method; a bare "/path" also
// matches any method. Within the path, "*" matches any run of characters
// (non-greedy) and "[name]" matches a single path segment.
func CompileRoutes(routes map[string]RouteConfig) (*RouteTable, error) {
	table := &RouteTable{}
	for pattern, cfg := range routes {
		verb := "*"
		path := pattern
		if i := strings.IndexAny(pattern, " \t"); i >= 0 {
			verb = pattern[:i]
			path = strings.TrimLeft(pattern[i:], " \t")
		}
		if path == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRoutePattern, pattern)
		}

		source := "^" + pathRegexp(path) + "$"
		re, err := regexp.Compile("(?i)" + source)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRoutePattern, pattern, err)
		}

		table.routes = append(table.routes, route{
			verb:   strings.ToUpper(verb),
			source: source,
			re:     re,
			config: cfg,
		})
	}
	return table, nil
}

// pathRegexp converts a route path into regexp text: literal characters are
// escaped, "*" becomes a non-greedy wildcard and "[name]" a single-segment
// wildcard.
func pathRegexp(path string) string {
	var b strings.Builder
	for _, c := range path {
		switch c {
		case '$', '(', ')', '+', '.', '?', '^', '{', '|', '}', '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	escaped := b.String()
	escaped = strings.ReplaceAll(escaped, "*", ".*?")
	escaped = paramSegment.ReplaceAllString(escaped, "[^/]+")
	return escaped
}

// Match returns the config of the most specific route matching the request
// method and path, or false when the request is unprotected. Specificity is
// decided by the length of the compiled pattern.
func (t *RouteTable) Match(method, path string) (RouteConfig, bool) {
	normalized, ok := normalizePath(path)
	if !ok {
		return RouteConfig{}, false
	}
	method = strings.ToUpper(method)

	best := -1
	for i, r := range t.routes {
		if r.verb != "*" && r.verb != method {
			continue
		}
		if !r.re.MatchString(normalized) {
			continue
		}
		if best < 0 || len(r.source) > len(t.routes[best].source) {
			best = i
		}
	}
	if best < 0 {
		return RouteConfig{}, false
	}
	return t.routes[best].config, true
}

// normalizePath strips query and fragment, percent-decodes, converts
// backslashes to slashes, collapses slash runs and trims trailing slashes.
// A path that fails to decode matches nothing.
func normalizePath(path string) (string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", false
	}

	decoded = strings.ReplaceAll(decoded, "\\", "/")
	for strings.Contains(decoded, "//") {
		decoded = strings.ReplaceAll(decoded, "//", "/")
	}
	if len(decoded) > 1 {
		decoded = strings.TrimRight(decoded, "/")
		if decoded == "" {
			decoded = "/"
		}
	}
	return decoded, true
}
