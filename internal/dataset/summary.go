package dataset

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/logging"
)

// DateLayout formats daily summary keys.
const DateLayout = "2006-01-02"

// Summary is the aggregate view handed to the stage agents.
type Summary struct {
	DatasetInfo     DatasetInfo   `json:"dataset_info"`
	DailySummary    []DailyRow    `json:"daily_summary"`
	CreativeSummary []CreativeRow `json:"creative_summary"`
	AudienceSummary []AudienceRow `json:"audience_summary"`
	LowCTRAds       []LowCTRAd    `json:"low_ctr_ads"`
}

// DatasetInfo describes the table's shape.
type DatasetInfo struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// DailyRow aggregates one calendar day: counts are summed, ratios averaged.
type DailyRow struct {
	Date        string  `json:"date"`
	Spend       float64 `json:"spend"`
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Purchases   float64 `json:"purchases"`
	Revenue     float64 `json:"revenue"`
	CTR         float64 `json:"ctr"`
	ROAS        float64 `json:"roas"`
}

// CreativeRow aggregates one creative type.
type CreativeRow struct {
	CreativeType    string  `json:"creative_type"`
	CTR             float64 `json:"ctr"`
	ROAS            float64 `json:"roas"`
	Spend           float64 `json:"spend"`
	Impressions     float64 `json:"impressions"`
	CreativeMessage string  `json:"creative_message"`
	CampaignName    string  `json:"campaign_name"`
}

// AudienceRow aggregates one audience type.
type AudienceRow struct {
	AudienceType string  `json:"audience_type"`
	CTR          float64 `json:"ctr"`
	ROAS         float64 `json:"roas"`
	Spend        float64 `json:"spend"`
	Impressions  float64 `json:"impressions"`
}

// LowCTRAd is a single under-performing row.
type LowCTRAd struct {
	CampaignName    string  `json:"campaign_name"`
	AdsetName       string  `json:"adset_name"`
	CreativeType    string  `json:"creative_type"`
	CreativeMessage string  `json:"creative_message"`
	CTR             float64 `json:"ctr"`
	Impressions     float64 `json:"impressions"`
	Country         string  `json:"country"`
	AudienceType    string  `json:"audience_type"`
}

// DateRange returns the first and last day of the daily summary.
func (s *Summary) DateRange() (first, last string, ok bool) {
	if s == nil || len(s.DailySummary) == 0 {
		return "", "", false
	}
	return s.DailySummary[0].Date, s.DailySummary[len(s.DailySummary)-1].Date, true
}

// Summarize aggregates ds. Rows with ctr strictly below lowCTR are listed
// as under-performing.
func Summarize(ds *Dataset, lowCTR float64) *Summary {
	s := &Summary{
		DatasetInfo: DatasetInfo{
			Rows:    len(ds.Records),
			Columns: append([]string(nil), ds.Columns...),
		},
		DailySummary:    summarizeDaily(ds.Records),
		CreativeSummary: summarizeCreatives(ds.Records),
		AudienceSummary: summarizeAudiences(ds.Records),
		LowCTRAds:       []LowCTRAd{},
	}
	for _, r := range ds.Records {
		if r.CTR < lowCTR {
			s.LowCTRAds = append(s.LowCTRAds, LowCTRAd{
				CampaignName:    r.CampaignName,
				AdsetName:       r.AdsetName,
				CreativeType:    r.CreativeType,
				CreativeMessage: r.CreativeMessage,
				CTR:             r.CTR,
				Impressions:     r.Impressions,
				Country:         r.Country,
				AudienceType:    r.AudienceType,
			})
		}
	}
	return s
}

// group accumulates sums and ratio means for one key.
type group struct {
	n           int
	spend       float64
	impressions float64
	clicks      float64
	purchases   float64
	revenue     float64
	ctrSum      float64
	roasSum     float64
	message     string
	campaign    string
}

func (g *group) add(r Record) {
	g.n++
	g.spend += r.Spend
	g.impressions += r.Impressions
	g.clicks += r.Clicks
	g.purchases += r.Purchases
	g.revenue += r.Revenue
	g.ctrSum += r.CTR
	g.roasSum += r.ROAS
	if g.message == "" {
		g.message = r.CreativeMessage
	}
	if g.campaign == "" {
		g.campaign = r.CampaignName
	}
}

func (g *group) meanCTR() float64  { return g.ctrSum / float64(g.n) }
func (g *group) meanROAS() float64 { return g.roasSum / float64(g.n) }

func groupBy(records []Record, key func(Record) (string, bool)) ([]string, map[string]*group) {
	groups := make(map[string]*group)
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			continue
		}
		g, exists := groups[k]
		if !exists {
			g = &group{}
			groups[k] = g
		}
		g.add(r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

func summarizeDaily(records []Record) []DailyRow {
	keys, groups := groupBy(records, func(r Record) (string, bool) {
		if !r.HasDate() {
			return "", false
		}
		return r.Date.Format(DateLayout), true
	})
	out := make([]DailyRow, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, DailyRow{
			Date:        k,
			Spend:       g.spend,
			Impressions: g.impressions,
			Clicks:      g.clicks,
			Purchases:   g.purchases,
			Revenue:     g.revenue,
			CTR:         g.meanCTR(),
			ROAS:        g.meanROAS(),
		})
	}
	return out
}

func summarizeCreatives(records []Record) []CreativeRow {
	keys, groups := groupBy(records, func(r Record) (string, bool) { return r.CreativeType, true })
	out := make([]CreativeRow, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, CreativeRow{
			CreativeType:    k,
			CTR:             g.meanCTR(),
			ROAS:            g.meanROAS(),
			Spend:           g.spend,
			Impressions:     g.impressions,
			CreativeMessage: g.message,
			CampaignName:    g.campaign,
		})
	}
	return out
}

func summarizeAudiences(records []Record) []AudienceRow {
	keys, groups := groupBy(records, func(r Record) (string, bool) { return r.AudienceType, true })
	out := make([]AudienceRow, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, AudienceRow{
			AudienceType: k,
			CTR:          g.meanCTR(),
			ROAS:         g.meanROAS(),
			Spend:        g.spend,
			Impressions:  g.impressions,
		})
	}
	return out
}

// Builder loads the configured dataset and summarizes it.
type Builder struct {
	path   string
	lowCTR float64
	logger *logging.Logger
}

// NewBuilder creates a Builder for the CSV at path.
func NewBuilder(path string, lowCTR float64, logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Builder{path: path, lowCTR: lowCTR, logger: logger.Named("dataset")}
}

// Path returns the dataset location.
func (b *Builder) Path() string { return b.path }

// BuildSummary loads, cleans and aggregates the dataset. A missing file is
// reported as ErrDatasetNotFound.
func (b *Builder) BuildSummary(ctx context.Context) (*Summary, error) {
	ds, err := Load(b.path)
	if err != nil {
		return nil, err
	}
	s := Summarize(ds, b.lowCTR)

	skipped := 0
	for _, r := range ds.Records {
		if !r.HasDate() {
			skipped++
		}
	}
	if skipped > 0 {
		b.logger.Warn(ctx, "rows with unparseable dates excluded from daily summary", zap.Int("rows", skipped))
	}
	b.logger.Debug(ctx, "dataset summarized",
		zap.String("path", b.path),
		zap.Int("rows", s.DatasetInfo.Rows),
		zap.Int("days", len(s.DailySummary)),
		zap.Int("low_ctr_ads", len(s.LowCTRAds)))
	return s, nil
}
