package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/newsradar/newsradar/internal/article"
	"github.com/newsradar/newsradar/internal/user"

	"github.com/robfig/cron/v3"
)

const maxHeadlines = 5

type articleSource interface {
	Recent(ctx context.Context, topic string, since time.Time, limit int) ([]article.Article, error)
}

type watcherSource interface {
	ListWatching(ctx context.Context) ([]user.User, error)
}

type Options struct {
	Interval          time.Duration
	Window            time.Duration
	NegativeThreshold float64
	BaselineDelta     float64
	BaselineAlpha     float64
	MinVolume         int
	MaxArticles       int
}

// Report summarizes one cycle.
type Report struct {
	CycleID   string
	Evaluated int
	Skipped   int
	NoData    int
	Alerts    int
	Failed    int
}

type Monitor struct {
	articles articleSource
	users    watcherSource
	store    Store
	opts     Options
	logger   *log.Logger
	now      func() time.Time
}

func New(articles articleSource, users watcherSource, store Store, opts Options, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if opts.BaselineAlpha <= 0 || opts.BaselineAlpha > 1 {
		opts.BaselineAlpha = 0.3
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = article.MaxQueryLimit
	}
	return &Monitor{
		articles: articles,
		users:    users,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Start evaluates a cycle on every interval until ctx is cancelled. A cycle
// still running when the next one is due is skipped.
func (m *Monitor) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.VerbosePrintfLogger(m.logger))))
	_, err := c.AddFunc("@every "+m.opts.Interval.String(), func() {
		cycle := CycleAt(m.now(), m.opts.Interval)
		if _, err := m.RunCycle(ctx, cycle); err != nil {
			m.logger.Printf("monitor: cycle %s failed: %v", cycle.ID, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule monitor: %w", err)
	}

	m.logger.Printf("monitor: started interval=%s window=%s", m.opts.Interval, m.opts.Window)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	m.logger.Println("monitor: stopped")
	return nil
}

// RunCycle evaluates every (user, topic) pair once for cycle. Pairs already
// evaluated in this cycle are skipped, so reruns never emit a second alert.
func (m *Monitor) RunCycle(ctx context.Context, cycle Cycle) (Report, error) {
	rep := Report{CycleID: cycle.ID}

	users, err := m.users.ListWatching(ctx)
	if err != nil {
		return rep, fmt.Errorf("list watchers: %w", err)
	}

	for _, u := range users {
		for _, topic := range u.Watchlist {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			status, err := m.evaluate(ctx, cycle, u.Email, topic)
			switch {
			case errors.Is(err, errAlreadyEvaluated):
				rep.Skipped++
				continue
			case err != nil:
				rep.Failed++
				m.logger.Printf("monitor: evaluate %s/%q: %v", u.Email, topic, err)
				continue
			}
			rep.Evaluated++
			switch status {
			case StatusNoData:
				rep.NoData++
			case StatusAlerted:
				rep.Alerts++
			}
		}
	}

	m.logger.Printf("monitor: cycle %s evaluated=%d skipped=%d no_data=%d alerts=%d failed=%d",
		rep.CycleID, rep.Evaluated, rep.Skipped, rep.NoData, rep.Alerts, rep.Failed)
	return rep, nil
}

var errAlreadyEvaluated = errors.New("already evaluated this cycle")

func (m *Monitor) evaluate(ctx context.Context, cycle Cycle, email, topic string) (Status, error) {
	id := StateID(email, topic)
	st, found, err := m.store.State(ctx, id)
	if err != nil {
		return "", err
	}
	if found && st.LastCycleID == cycle.ID {
		return "", errAlreadyEvaluated
	}
	if !found {
		st = CycleState{ID: id, Email: email, Topic: topic}
	}

	arts, err := m.articles.Recent(ctx, topic, cycle.At.Add(-m.opts.Window), m.opts.MaxArticles)
	if err != nil {
		return "", fmt.Errorf("recent articles: %w", err)
	}

	negatives, classified := split(arts)
	st.LastCycleID = cycle.ID
	st.LastVolume = len(arts)
	st.UpdatedAt = m.now().UTC()

	// nothing classifiable: record the cycle, leave the baseline alone
	if classified == 0 {
		st.LastStatus = StatusNoData
		st.LastNegativeShare = 0
		return StatusNoData, m.store.SaveState(ctx, st)
	}

	share := float64(len(negatives)) / float64(classified)
	st.LastNegativeShare = share

	if m.triggers(st, classified, share) {
		a := m.buildAlert(cycle, email, topic, arts, negatives, share, st.Baseline)
		inserted, err := m.store.InsertAlert(ctx, a)
		if err != nil {
			return "", err
		}
		if inserted {
			m.logger.Printf("monitor: alert %s/%q cycle=%s share=%.2f baseline=%.2f volume=%d",
				email, topic, cycle.ID, share, st.Baseline, len(arts))
		}
		st.LastStatus = StatusAlerted
		st.LastAlertAt = cycle.At
		return StatusAlerted, m.store.SaveState(ctx, st)
	}

	if st.Samples == 0 {
		st.Baseline = share
	} else {
		a := m.opts.BaselineAlpha
		st.Baseline = a*share + (1-a)*st.Baseline
	}
	st.Samples++
	st.LastStatus = StatusBaseline
	return StatusBaseline, m.store.SaveState(ctx, st)
}

// triggers requires MinVolume classified articles; unknown ones carry no
// signal for the share.
func (m *Monitor) triggers(st CycleState, classified int, share float64) bool {
	if classified < m.opts.MinVolume {
		return false
	}
	if share > m.opts.NegativeThreshold {
		return true
	}
	return st.Samples > 0 && share-st.Baseline > m.opts.BaselineDelta
}

func split(arts []article.Article) (negatives []article.Article, classified int) {
	for _, a := range arts {
		switch a.SentimentOverall {
		case article.SentimentNegative:
			negatives = append(negatives, a)
			classified++
		case article.SentimentPositive, article.SentimentNeutral:
			classified++
		}
	}
	return negatives, classified
}

func (m *Monitor) buildAlert(cycle Cycle, email, topic string, arts, negatives []article.Article, share, baseline float64) Alert {
	ids := make([]string, 0, len(negatives))
	for _, a := range negatives {
		ids = append(ids, a.ID)
	}

	ranked := append([]article.Article(nil), negatives...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].SentimentScore != ranked[j].SentimentScore {
			return ranked[i].SentimentScore > ranked[j].SentimentScore
		}
		return ranked[i].PublishedDate.After(ranked[j].PublishedDate)
	})

	headlines := make([]Headline, 0, maxHeadlines)
	for _, a := range ranked {
		if len(headlines) == maxHeadlines {
			break
		}
		headlines = append(headlines, Headline{
			Title:         a.Title,
			URL:           a.URL,
			SourceName:    a.SourceName,
			PublishedDate: a.PublishedDate,
		})
	}

	summary := ""
	if len(ranked) > 0 {
		summary = ranked[0].Summary
	}

	return Alert{
		ID:            AlertID(email, topic, cycle.ID),
		Email:         email,
		Topic:         topic,
		CycleID:       cycle.ID,
		ArticleIDs:    ids,
		NegativeShare: share,
		Baseline:      baseline,
		Volume:        len(arts),
		Headlines:     headlines,
		TopSummary:    summary,
		GeneratedAt:   m.now().UTC(),
	}
}
