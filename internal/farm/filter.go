package farm

import (
	"strings"

	"farmScope/internal/model"
)

// Filter keeps pools whose first symbol word or name contains query, ignoring case.
// An empty query keeps everything.
func Filter(pools []model.PoolFarmInfo, query string) []model.PoolFarmInfo {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return pools
	}
	out := make([]model.PoolFarmInfo, 0, len(pools))
	for _, pool := range pools {
		symbol := pool.Symbol
		if fields := strings.Fields(symbol); len(fields) > 0 {
			symbol = fields[0]
		}
		if strings.Contains(strings.ToLower(symbol), query) || strings.Contains(strings.ToLower(pool.Name), query) {
			out = append(out, pool)
		}
	}
	return out
}
