package domain

import "time"

// Health is a traffic-light classification of recent performance against
// the configured KPI thresholds.
type Health string

const (
	HealthGreen  Health = "green"
	HealthYellow Health = "yellow"
	HealthRed    Health = "red"
)

// PerformanceSample is one observation of campaign performance reported
// by an ad platform. Samples are append-only: the collector writes them
// on a fixed cadence and nothing ever mutates them. Spend, Revenue and
// CPC are integer cents; CTR and ROAS are ratios.
type PerformanceSample struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Platform    Platform  `json:"platform"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Spend       int64     `json:"spend_cents"`
	Conversions int64     `json:"conversions"`
	Revenue     int64     `json:"revenue_cents"`
	CTR         float64   `json:"ctr"`
	CPC         int64     `json:"cpc_cents"`
	ROAS        float64   `json:"roas"`
	Health      Health    `json:"health"`
	Timestamp   time.Time `json:"timestamp"`
}

// Thresholds holds the KPI limits the optimizer and health classifier
// compare against. CPCMax is cents.
type Thresholds struct {
	CTRMin  float64
	CPCMax  int64
	ROASMin float64
}

// Summary aggregates a window of samples into totals and derived rates.
type Summary struct {
	Samples     int       `json:"samples"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Spend       int64     `json:"spend_cents"`
	Conversions int64     `json:"conversions"`
	Revenue     int64     `json:"revenue_cents"`
	CTR         float64   `json:"ctr"`
	CPC         int64     `json:"cpc_cents"`
	ROAS        float64   `json:"roas"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
}

// Derive fills the computed CTR, CPC and ROAS fields from the raw
// counters.
func (s *PerformanceSample) Derive() {
	if s.Impressions > 0 {
		s.CTR = float64(s.Clicks) / float64(s.Impressions)
	}
	if s.Clicks > 0 {
		s.CPC = s.Spend / s.Clicks
	}
	if s.Spend > 0 {
		s.ROAS = float64(s.Revenue) / float64(s.Spend)
	}
}

// Summarize folds samples into a Summary. Rates are recomputed from the
// aggregated counters rather than averaged, so sparse samples do not
// skew them.
func Summarize(samples []PerformanceSample) Summary {
	var sum Summary
	sum.Samples = len(samples)
	for i, s := range samples {
		sum.Impressions += s.Impressions
		sum.Clicks += s.Clicks
		sum.Spend += s.Spend
		sum.Conversions += s.Conversions
		sum.Revenue += s.Revenue
		if i == 0 || s.Timestamp.Before(sum.From) {
			sum.From = s.Timestamp
		}
		if s.Timestamp.After(sum.To) {
			sum.To = s.Timestamp
		}
	}
	if sum.Impressions > 0 {
		sum.CTR = float64(sum.Clicks) / float64(sum.Impressions)
	}
	if sum.Clicks > 0 {
		sum.CPC = sum.Spend / sum.Clicks
	}
	if sum.Spend > 0 {
		sum.ROAS = float64(sum.Revenue) / float64(sum.Spend)
	}
	return sum
}

// HealthFor classifies metrics against thresholds. Red means at least one
// hard breach; yellow flags metrics drifting toward a breach (CTR under
// 1.5x the floor or CPC above 0.8x the ceiling).
func HealthFor(ctr float64, cpc int64, roas float64, t Thresholds) Health {
	if ctr < t.CTRMin || cpc > t.CPCMax || roas < t.ROASMin {
		return HealthRed
	}
	if ctr < t.CTRMin*1.5 || float64(cpc) > float64(t.CPCMax)*0.8 {
		return HealthYellow
	}
	return HealthGreen
}

// Breaches returns the threshold violations for the summary, empty when
// all KPIs are inside limits. Windows with no traffic produce no
// breaches; there is nothing to optimize yet.
func (s Summary) Breaches(t Thresholds) []string {
	if s.Impressions == 0 {
		return nil
	}
	var out []string
	if s.CTR < t.CTRMin {
		out = append(out, "ctr below threshold")
	}
	if s.CPC > t.CPCMax {
		out = append(out, "cpc above threshold")
	}
	if s.ROAS < t.ROASMin {
		out = append(out, "roas below threshold")
	}
	return out
}
