package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	StateCollectionName = "alert_cycle_state"
	AlertCollectionName = "alerts"

	cycleIDLayout = "20060102T150405Z"
)

type Status string

const (
	StatusNoData   Status = "no_data"
	StatusBaseline Status = "baseline"
	StatusAlerted  Status = "alerted"
)

// Cycle identifies one evaluation round. Every evaluation that falls in the
// same interval shares the ID and the window end At.
type Cycle struct {
	ID string
	At time.Time
}

func CycleAt(t time.Time, interval time.Duration) Cycle {
	at := t.UTC().Truncate(interval)
	return Cycle{ID: at.Format(cycleIDLayout), At: at}
}

// CycleState is the rolling memory for one (user, topic) pair.
type CycleState struct {
	ID                string    `bson:"_id" json:"-"`
	Email             string    `bson:"email" json:"email"`
	Topic             string    `bson:"topic" json:"topic"`
	Baseline          float64   `bson:"baseline" json:"baseline"`
	Samples           int       `bson:"samples" json:"samples"`
	LastCycleID       string    `bson:"lastCycleId" json:"last_cycle_id"`
	LastStatus        Status    `bson:"lastStatus" json:"last_status"`
	LastVolume        int       `bson:"lastVolume" json:"last_volume"`
	LastNegativeShare float64   `bson:"lastNegativeShare" json:"last_negative_share"`
	LastAlertAt       time.Time `bson:"lastAlertAt,omitempty" json:"last_alert_at,omitempty"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updated_at"`
}

type Headline struct {
	Title         string    `bson:"title" json:"title"`
	URL           string    `bson:"url" json:"url"`
	SourceName    string    `bson:"sourceName" json:"source_name"`
	PublishedDate time.Time `bson:"publishedDate" json:"published_date"`
}

// Alert is a briefing for one user, topic and cycle. It is never updated.
type Alert struct {
	ID            string     `bson:"_id" json:"id"`
	Email         string     `bson:"email" json:"email"`
	Topic         string     `bson:"topic" json:"topic"`
	CycleID       string     `bson:"cycleId" json:"cycle_id"`
	ArticleIDs    []string   `bson:"articleIds" json:"article_ids"`
	NegativeShare float64    `bson:"negativeShare" json:"negative_share"`
	Baseline      float64    `bson:"baseline" json:"baseline"`
	Volume        int        `bson:"volume" json:"volume"`
	Headlines     []Headline `bson:"headlines" json:"headlines"`
	TopSummary    string     `bson:"topSummary" json:"top_summary"`
	GeneratedAt   time.Time  `bson:"generatedAt" json:"generated_at"`
}

func StateID(email, topic string) string {
	return email + "|" + strings.ToLower(topic)
}

func AlertID(email, topic, cycleID string) string {
	sum := sha256.Sum256([]byte(email + "|" + strings.ToLower(topic) + "|" + cycleID))
	return hex.EncodeToString(sum[:])
}
