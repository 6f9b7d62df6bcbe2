package config

import "github.com/spf13/cobra"

// RegisterGlobalFlags attaches the flags shared by every command to the
// root command's persistent flag set.
func RegisterGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Only log errors")
	pf.Bool("json", false, "Emit logs as JSON")
	pf.String("user-agent", "", "Override the browser user agent")
	pf.String("proxy", "", "Proxy server for the browser session")
	pf.String("chrome-path", "", "Path to the Chrome/Chromium binary")
	pf.String("timeout", "", "HTTP timeout for image downloads (e.g. 20s)")
	pf.Bool("headless", DefaultHeadless, "Run the browser headless")
}

// RegisterRunFlags attaches the crawl-run flags to the run command.
func RegisterRunFlags(run *cobra.Command) {
	f := run.Flags()
	f.StringSliceP("entry", "e", nil, "Entry point URL (repeatable)")
	f.StringP("mode", "m", "listing", "Entry strategy: listing or categories")
	f.Int("max-pages", DefaultMaxPagesPerEntry, "Max listing pages per entry point")
	f.Int("max-items", DefaultMaxItemsPerPage, "Max products taken per page or category")
	f.Duration("delay-min", DefaultDelayMin, "Lower bound of the randomized inter-request delay")
	f.Duration("delay-max", DefaultDelayMax, "Upper bound of the randomized inter-request delay")
	f.StringP("out", "o", DefaultDatasetRoot, "Dataset root directory")
	f.Int("flush-every", DefaultFlushEvery, "Flush records to disk every N products (0 = end of run)")
	f.Bool("skip-untitled", false, "Route records without an extractable title to the failure ledger")
	f.String("base-url", DefaultBaseURL, "Base URL for resolving relative category links")
	f.String("theme", "", "Theme label recorded on every product of this run")
}
