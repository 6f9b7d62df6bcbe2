package config

import "time"

// Defaults mirror the tuning the storefront tolerates in practice; the delay
// window and pause lengths are deliberately conservative.
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	// Desktop Chrome UA; the storefront serves a stripped page to obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

	DefaultHTTPTimeout = 20 * time.Second
	DefaultNavTimeout  = 15 * time.Second
	DefaultWaitTimeout = 15 * time.Second

	DefaultHeadless   = true
	DefaultWindowSize = "1440,900"

	DefaultMaxPagesPerEntry = 1
	DefaultMaxItemsPerPage  = 3

	DefaultDelayMin = 1200 * time.Millisecond
	DefaultDelayMax = 2800 * time.Millisecond

	// Shadow-content materialization pauses: after each scroll-down, after
	// the return to top, and the final settle before enumeration.
	DefaultScrollPause = 2 * time.Second
	DefaultTopPause    = 1 * time.Second
	DefaultSettlePause = 5 * time.Second

	DefaultImageRateLimitRPS   = 3.0
	DefaultImageRateLimitBurst = 5

	DefaultDatasetRoot = "dataset"
	DefaultFlushEvery  = 0 // flush at end of run only

	DefaultBaseURL = "https://gift.kakao.com"

	// Dialogs whose text carries this marker demand a logged-in session the
	// crawler intentionally does not have; they are dismissed, all others
	// accepted.
	DefaultAuthDialogMarker = "로그인"

	// Sentinel name recorded when title extraction times out.
	DefaultNoTitleSentinel = "제목 없음"
)
