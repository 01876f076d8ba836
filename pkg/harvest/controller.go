package harvest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"xpulse/pkg/config"
	"xpulse/pkg/errors"
	"xpulse/pkg/logger"
	"xpulse/pkg/metrics"
	"xpulse/pkg/models"
	"xpulse/pkg/retry"
	"xpulse/pkg/sentiment"
	"xpulse/pkg/session"
	"xpulse/pkg/twitter"
)

const topEmojiCount = 10

// Sessions is the slice of the session manager the controller depends on.
type Sessions interface {
	RestoreOrLogin(ctx context.Context, forceNew bool) (session.Client, error)
	Rotate(ctx context.Context) (session.Client, error)
	Classify(err error) errors.Classification
	PoolSize() int
}

// Controller orchestrates the per-keyword search-and-paginate loop, scoring
// each item and applying the rotation/backoff policy on failures. Execution
// is strictly sequential: one search, login or pagination request in flight
// at a time.
type Controller struct {
	sessions Sessions
	scorer   *sentiment.Scorer
	cfg      *config.Config
	log      logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time

	client session.Client
	// consecutive rate limits; resets to zero on any successful request
	rateLimitRun int
}

// Option customizes controller construction.
type Option func(*Controller)

// WithSleep injects the sleep function (tests pass a recording stub).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the controller's logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController creates a harvest controller.
func NewController(cfg *config.Config, sessions Sessions, scorer *sentiment.Scorer, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		scorer:   scorer,
		cfg:      cfg,
		sleep:    retry.Wait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	return c
}

// Run harvests every configured keyword in order and assembles the report.
// Only a failed startup authentication is fatal; keyword failures are
// recorded on their result and the run continues.
func (c *Controller) Run(ctx context.Context) (*models.Report, error) {
	start := c.now()
	defer metrics.ObserveHarvestDuration(start)

	client, err := c.sessions.RestoreOrLogin(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("harvest aborted: %w", err)
	}
	c.client = client

	since := time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, start.Location()).Format("2006-01-02")
	until := start.Format("2006-01-02")

	report := &models.Report{
		GeneratedAt: start,
		Period:      models.Period{From: since, To: until},
	}

	keywords := c.cfg.Search.Keywords
	for i, keyword := range keywords {
		c.log.InfoWithFields("harvesting keyword", map[string]interface{}{
			"keyword":  keyword,
			"position": fmt.Sprintf("%d/%d", i+1, len(keywords)),
		})

		result := c.harvestKeyword(ctx, keyword, since, until)
		report.Keywords = append(report.Keywords, result)

		c.log.InfoWithFields("keyword done", map[string]interface{}{
			"keyword":  keyword,
			"posts":    result.TotalFound,
			"positive": result.Summary.Positive,
			"negative": result.Summary.Negative,
			"neutral":  result.Summary.Neutral,
		})

		// Inter-keyword pause keeps the aggregate request rate down.
		if i < len(keywords)-1 {
			if err := c.sleep(ctx, c.cfg.Search.KeywordPause); err != nil {
				return report, fmt.Errorf("harvest cancelled: %w", err)
			}
		}
	}

	return report, nil
}

// harvestKeyword runs the search-and-paginate loop for one keyword. Any
// uncaught failure lands as a terminal error string on the result; partial
// posts collected before the failure are kept.
func (c *Controller) harvestKeyword(ctx context.Context, keyword, since, until string) models.KeywordResult {
	result := models.KeywordResult{
		Keyword: keyword,
		EmojiStats: models.EmojiStats{
			TopEmojis: map[string]int{},
		},
	}

	query := twitter.Query{
		Keyword: keyword,
		Since:   since,
		Until:   until,
		Lang:    c.cfg.Search.Language,
		Latest:  true,
	}

	metrics.Searches.WithLabelValues(keyword).Inc()
	page, err := c.searchWithRecovery(ctx, query, func() (twitter.PageHandle, error) {
		return c.client.Search(ctx, query)
	})
	if err != nil {
		c.log.ErrorWithFields("keyword search failed", map[string]interface{}{
			"keyword":        keyword,
			"classification": string(c.sessions.Classify(err)),
			"error":          err.Error(),
		})
		metrics.KeywordErrors.Inc()
		result.Error = err.Error()
		return result
	}

	emojiCounter := map[string]int{}
	limit := c.cfg.Search.MaxPerKeyword

	for page != nil {
		metrics.PagesFetched.Inc()

		for _, post := range page.Posts() {
			if len(result.Posts) >= limit {
				break
			}
			result.Posts = append(result.Posts, c.scorePost(post, &result, emojiCounter))
		}

		if len(result.Posts) >= limit || !page.HasNext() {
			break
		}

		if err := c.sleep(ctx, c.cfg.Search.PagePause); err != nil {
			break
		}

		next, err := c.searchWithRecovery(ctx, query, func() (twitter.PageHandle, error) {
			return page.Next(ctx)
		})
		if err != nil {
			// Unrecoverable pagination failure ends this keyword's
			// collection, not the run; what was gathered stays.
			c.log.WarnWithFields("pagination ended early", map[string]interface{}{
				"keyword":        keyword,
				"collected":      len(result.Posts),
				"classification": string(c.sessions.Classify(err)),
			})
			break
		}
		page = next
	}

	sort.Slice(result.Posts, func(i, j int) bool {
		return result.Posts[i].CreatedAt.After(result.Posts[j].CreatedAt)
	})
	result.TotalFound = len(result.Posts)
	result.EmojiStats.TopEmojis = topEmojis(emojiCounter, topEmojiCount)

	return result
}

// scorePost scores one raw post and folds it into the keyword tallies.
func (c *Controller) scorePost(post twitter.Post, result *models.KeywordResult, emojiCounter map[string]int) models.PostRecord {
	label, score, occurrences := c.scorer.Score(post.Text)
	metrics.PostsScored.WithLabelValues(string(label)).Inc()

	for _, occ := range occurrences {
		emojiCounter[occ.Emoji] += occ.Count
		if occ.Kind == string(sentiment.LabelPositive) {
			result.EmojiStats.TotalPositive += occ.Count
		} else {
			result.EmojiStats.TotalNegative += occ.Count
		}
	}

	switch label {
	case sentiment.LabelPositive:
		result.Summary.Positive++
	case sentiment.LabelNegative:
		result.Summary.Negative++
	default:
		result.Summary.Neutral++
	}

	var permalink string
	if post.AuthorHandle != "" {
		permalink = fmt.Sprintf("https://x.com/%s/status/%s", post.AuthorHandle, post.ID)
	}

	return models.PostRecord{
		ID:        post.ID,
		Text:      post.Text,
		Author:    post.AuthorName,
		Handle:    post.AuthorHandle,
		CreatedAt: post.CreatedAt,
		Sentiment: string(label),
		Score:     score,
		Emojis:    occurrences,
		Likes:     post.Likes,
		Retweets:  post.Retweets,
		Replies:   post.Replies,
		URL:       permalink,
	}
}

// searchWithRecovery executes op and applies the classification-driven
// reaction table. The same policy covers the initial search and every
// pagination call: expired sessions force one re-login and retry, rate
// limits rotate when alternate accounts exist and back off otherwise, and
// everything else propagates.
func (c *Controller) searchWithRecovery(ctx context.Context, query twitter.Query, op func() (twitter.PageHandle, error)) (twitter.PageHandle, error) {
	page, err := op()
	if err == nil {
		c.rateLimitRun = 0
		return page, nil
	}

	switch c.sessions.Classify(err) {
	case errors.Unauthorized, errors.NotFound:
		c.log.WarnWithFields("session rejected, forcing re-login", map[string]interface{}{
			"keyword": query.Keyword,
			"error":   err.Error(),
		})
		client, authErr := c.sessions.RestoreOrLogin(ctx, true)
		if authErr != nil {
			return nil, fmt.Errorf("re-authentication failed: %w", authErr)
		}
		c.client = client

		// Retried at most once per occurrence; a second failure propagates.
		page, err = c.client.Search(ctx, query)
		if err == nil {
			c.rateLimitRun = 0
		}
		return page, err

	case errors.RateLimited:
		metrics.RateLimitHits.Inc()
		c.rateLimitRun++

		if c.sessions.PoolSize() > 1 {
			c.log.WarnWithFields("rate limited, rotating account", map[string]interface{}{
				"keyword": query.Keyword,
			})
			client, rotErr := c.sessions.Rotate(ctx)
			if rotErr != nil {
				return nil, fmt.Errorf("rotation after rate limit failed: %w", rotErr)
			}
			c.client = client

			page, err = c.client.Search(ctx, query)
			if err == nil {
				c.rateLimitRun = 0
			}
			return page, err
		}

		delay := retry.RateLimitDelay(c.rateLimitRun)
		c.log.WarnWithFields("rate limited, backing off", map[string]interface{}{
			"keyword":     query.Keyword,
			"delay":       delay,
			"consecutive": c.rateLimitRun,
		})
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, fmt.Errorf("backoff cancelled: %w", sleepErr)
		}

		page, err = op()
		if err == nil {
			c.rateLimitRun = 0
		}
		return page, err

	default:
		// Blocked, ChallengeRequired and Unknown are not auto-recoverable.
		return nil, err
	}
}

// topEmojis returns the n most frequent emojis, ordered deterministically.
func topEmojis(counter map[string]int, n int) map[string]int {
	type entry struct {
		emoji string
		count int
	}
	entries := make([]entry, 0, len(counter))
	for emoji, count := range counter {
		entries = append(entries, entry{emoji, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].emoji < entries[j].emoji
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	top := make(map[string]int, len(entries))
	for _, e := range entries {
		top[e.emoji] = e.count
	}
	return top
}
