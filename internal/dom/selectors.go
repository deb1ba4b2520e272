package dom

// X.com DOM markers.
// These are isolated here because X changes their DOM frequently.
// Update these when extraction breaks.

const (
	// Page structure
	FeedContainer = `[data-testid="primaryColumn"]`
	TimelineCell  = `[data-testid="cellInnerDiv"]`
	TweetArticle  = `article[data-testid="tweet"]`

	// Tweet content
	TweetText      = `[data-testid="tweetText"]`
	TweetAuthor    = `[data-testid="User-Name"]`
	AuthorLink     = `a[role="link"]`
	TweetTimestamp = `time`
	TweetPhoto     = `[data-testid="tweetPhoto"]`
	VideoPlayer    = `[data-testid="videoPlayer"]`
	QuotedTweet    = `[data-testid="quoteTweet"], [data-testid="quote"]`

	// Chrome that never counts as content
	AuthorRegion     = `[data-testid="User-Name"], [data-testid="UserAvatar-Container"], [data-testid^="UserAvatar-Container"], [class*="avatar"], [class*="Avatar"]`
	FollowControl    = `[data-testid="follow"], [data-testid="subscribe"], [data-testid$="-follow"], [data-testid$="-unfollow"], [data-testid$="-subscribe"]`
	TranslateControl = `[data-testid="translateTweet"], [data-testid="tweet-text-show-translation"]`
	ShowMoreControl  = `[data-testid="tweet-text-show-more-link"]`
	ButtonLike       = `button, [role="button"]`

	// Engagement
	ReplyCount   = `[data-testid="reply"]`
	RetweetCount = `[data-testid="retweet"], [data-testid="unretweet"]`
	LikeCount    = `[data-testid="like"], [data-testid="unlike"]`
	ShareButton  = `[data-testid="share"]`

	// Login page indicators (for detecting auth state)
	HomeIndicator = `[data-testid="SideNav_NewTweet_Button"]`
	LoginForm     = `[data-testid="loginButton"]`
)

// Attributes stamped onto the live DOM by the capture script.
const (
	WeightAttr    = "data-x2n-weight"
	ConnectorAttr = "data-x2n-connector"
)

// ReplyConnector marks a timeline cell that is visually joined to its neighbour
// (the vertical line between reply chain members).
const ReplyConnector = `[data-x2n-connector="true"]`

// Media and asset URL patterns
const (
	MediaHost        = "pbs.twimg.com"
	ProfileImagePath = "profile_images"
	EmojiAssetPath   = "twimg.com/emoji"
	DefaultBaseURL   = "https://x.com"
)

// Texts that identify UI controls by their label rather than a test id.
var (
	FollowLabels    = []string{"Follow", "Following", "Subscribe", "关注", "订阅"}
	TranslateLabels = []string{"Translate post", "Translate Tweet", "Show translation", "翻译帖子", "显示翻译"}
	AdLabels        = []string{"Ad", "Promoted"}
)

// EmojiClassMarkers are class names X puts on inline emoji images
var EmojiClassMarkers = []string{"emoji", "r-4qtqp9", "r-dflpy8", "r-1kqtdi0", "r-1sp51qo"}

// Wait conditions for the capture layer
const (
	WaitForFeed   = FeedContainer
	WaitForTweets = TweetArticle
)
