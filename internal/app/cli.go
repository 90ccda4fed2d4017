package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet.
// Zero defaults leave the value to env vars and config defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	RegisterDocsFlags(flags)

	flags.Bool("cache-enabled", false, "Cache search results")
	flags.String("cache-redis-addr", "", "Redis address for the search cache (host:port); in-process LRU if empty")
	flags.String("cache-redis-password", "", "Redis password")
	flags.Int("cache-redis-db", 0, "Redis database number")
	flags.Duration("cache-ttl", 0, "Search cache entry time-to-live")
	flags.Int("cache-size", 0, "Maximum entries of the in-process search cache")

	flags.Bool("rate-limit-enabled", false, "Rate limit SSE requests")
	flags.Float64("rate-limit-rps", 0, "Sustained requests per second")
	flags.Int("rate-limit-burst", 0, "Maximum request burst")
}

// RegisterDocsFlags registers the documentation source flags. Sub-commands
// that only index share these with the server.
func RegisterDocsFlags(flags *pflag.FlagSet) {
	flags.BoolP("docs-enabled", "d", false, "Enable documentation symbol indexing")
	flags.StringSliceP("docs-sources", "s", nil, "Documentation sources: local directories or SSH git URLs (comma-separated)")
	flags.String("docs-base-dir", "", "Directory for clones, indexes and the manifest")
	flags.Duration("docs-sync-interval", 0, "Interval between source sync checks")
	flags.Duration("docs-sync-timeout", 0, "Time to wait for another process to finish syncing")
	flags.Int64("docs-max-file-size", 0, "Maximum size in bytes of an indexed search fragment")
	flags.Int("docs-max-results", 0, "Maximum results returned by a search")
}
