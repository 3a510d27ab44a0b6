package feedback

import (
	"context"
	"fmt"
)

// Snapshot is an immutable view of the aggregated feedback signal,
// loaded once per discovery run so scoring sees a consistent state and
// never touches the database mid-run.
type Snapshot struct {
	signals map[string]float64
}

// Bias returns the bounded scoring adjustment for a discovered paper
// in the context of one source paper. Pairs with no feedback get zero.
// The mean normalized signal in [-1, 1] scales linearly onto
// [-maxBias, +maxBias].
func (s *Snapshot) Bias(sourcePaperID, discoveredKey string) float64 {
	avg, ok := s.signals[pairKey(sourcePaperID, discoveredKey)]
	if !ok {
		return 0
	}
	bias := avg * maxBias
	if bias > maxBias {
		return maxBias
	}
	if bias < -maxBias {
		return -maxBias
	}
	return bias
}

// Size returns the number of distinct (source paper, discovered paper)
// pairs with feedback.
func (s *Snapshot) Size() int { return len(s.signals) }

// pairKey joins the pair identifiers with a separator neither can
// contain.
func pairKey(sourcePaperID, discoveredKey string) string {
	return sourcePaperID + "\x00" + discoveredKey
}

// LoadSnapshot aggregates all feedback into a Snapshot, averaged per
// (source paper, discovered paper) pair.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	stmt, err := s.getStmt(`
		SELECT source_paper_id, discovered_key, AVG(normalized)
		FROM feedback_events
		GROUP BY source_paper_id, discovered_key`)
	if err != nil {
		return nil, fmt.Errorf("prepare feedback snapshot: %w", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load feedback snapshot: %w", err)
	}
	defer rows.Close()

	signals := make(map[string]float64)
	for rows.Next() {
		var sourceID, key string
		var avg float64
		if err := rows.Scan(&sourceID, &key, &avg); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		signals[pairKey(sourceID, key)] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return &Snapshot{signals: signals}, nil
}
