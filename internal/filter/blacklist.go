package filter

import (
	"bufio"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// Blacklist is a static set membership test over result source domains.
// A load failure yields an empty, fail-open blacklist: availability of the
// list must never block search.
type Blacklist struct {
	domains map[string]struct{}
}

// LoadBlacklist reads one domain per line, skipping blanks.
func LoadBlacklist(path string, logger *slog.Logger) *Blacklist {
	if logger == nil {
		logger = slog.Default()
	}

	bl := &Blacklist{domains: map[string]struct{}{}}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("blacklist unavailable, filtering disabled", "path", path, "error", err)
		return bl
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		domain := strings.TrimSpace(scanner.Text())
		if domain == "" {
			continue
		}
		bl.domains[domain] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("blacklist read interrupted", "path", path, "error", err)
	}

	return bl
}

// NewBlacklist builds a blacklist from an in-memory domain list.
func NewBlacklist(domains []string) *Blacklist {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return &Blacklist{domains: set}
}

// Contains reports whether the domain is blacklisted.
func (b *Blacklist) Contains(domain string) bool {
	if b == nil || domain == "" {
		return false
	}
	_, ok := b.domains[domain]
	return ok
}

// Len reports the number of loaded domains.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.domains)
}

// extractDomain pulls the URL authority from a result link. Extraction
// failure yields an empty domain, which is never blacklisted.
func extractDomain(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return parsed.Host
}
