package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo campaigns covering the interesting lifecycle
// states: one fresh, one active with history, one halted by budget.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	audience, _ := json.Marshal(map[string]any{
		"languages": []string{"en"},
		"geos":      []string{"US", "CA"},
		"age_min":   21,
		"age_max":   45,
		"interests": []string{"fitness", "wellness"},
	})

	type demo struct {
		name    string
		status  string
		daily   int64
		total   int64
		metaID  string
		history bool
		halted  bool
	}
	demos := []demo{
		{name: "Spring Launch", status: "created", daily: 20000, total: 400000},
		{name: "Evergreen Fitness", status: "active", daily: 50000, total: 1500000, metaID: "sim-meta-demo1", history: true},
		{name: "Flash Sale", status: "halted", daily: 10000, total: 100000, metaID: "sim-meta-demo2", history: true, halted: true},
	}

	for _, d := range demos {
		id := uuid.NewString()
		var haltedAt *time.Time
		haltedFrom := ""
		if d.halted {
			t := time.Now().UTC().Add(-2 * time.Hour)
			haltedAt = &t
			haltedFrom = "active"
		}
		_, err := db.Exec(ctx, `INSERT INTO campaigns
			(id, name, platform, objective, product_name, audience, budget_daily, budget_total,
			 status, meta_campaign_id, google_campaign_id, regen_attempts, version,
			 last_optimized_at, halted_at, halted_from, archived, created_at, updated_at)
			VALUES ($1,$2,'meta','conversions',$3,$4,$5,$6,$7,$8,'',0,1,NULL,$9,$10,FALSE,now(),now())
			ON CONFLICT DO NOTHING`,
			id, d.name, d.name+" Pro", audience, d.daily, d.total, d.status, d.metaID, haltedAt, haltedFrom)
		if err != nil {
			return fmt.Errorf("seed campaign: %w", err)
		}

		if d.metaID != "" {
			_, err = db.Exec(ctx, `INSERT INTO creatives
				(id, campaign_id, headline, description, call_to_action, image_url, image_prompt, state, created_at, updated_at)
				VALUES ($1,$2,$3,$4,'Shop Now',$5,'',$6,now(),now()) ON CONFLICT DO NOTHING`,
				uuid.NewString(), id,
				fmt.Sprintf("Meet %s Pro", d.name),
				"The upgrade your routine deserves.",
				"https://placehold.co/1200x628/png", "approved")
			if err != nil {
				return fmt.Errorf("seed creative: %w", err)
			}
		}

		if d.history {
			for h := 24; h > 0; h-- {
				impressions := 3000 + r.Int63n(5000)
				clicks := impressions * (12 + r.Int63n(25)) / 1000
				spend := clicks * (90 + r.Int63n(120))
				conversions := clicks / 10
				revenue := conversions * 3000
				_, err = db.Exec(ctx, `INSERT INTO performance_samples
					(id, campaign_id, platform, impressions, clicks, spend, conversions, revenue, ctr, cpc, roas, health, ts)
					VALUES ($1,$2,'meta',$3,$4,$5,$6,$7,$8,$9,$10,'green',$11) ON CONFLICT DO NOTHING`,
					uuid.NewString(), id, impressions, clicks, spend, conversions, revenue,
					float64(clicks)/float64(impressions), spend/clicks,
					float64(revenue)/float64(spend),
					time.Now().UTC().Add(-time.Duration(h)*time.Hour))
				if err != nil {
					return fmt.Errorf("seed sample: %w", err)
				}
			}
		}

		if d.halted {
			details, _ := json.Marshal(map[string]any{"reason": "daily budget reached"})
			_, err = db.Exec(ctx, `INSERT INTO approvals
				(id, campaign_id, creative_id, subject, status, details, requested_at, decided_at, decided_by, notes)
				VALUES ($1,$2,NULL,'budget','pending',$3,now(),NULL,'','') ON CONFLICT DO NOTHING`,
				uuid.NewString(), id, details)
			if err != nil {
				return fmt.Errorf("seed approval: %w", err)
			}
		}
	}
	return nil
}
