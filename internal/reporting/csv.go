package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the arm ranking as a CSV string.
func RenderCSV(rows []ArmRow) string {
	var sb strings.Builder

	sb.WriteString("strategy_id,params_json,pulls,mean_reward,last_update_ms\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%q,%d,%.6f,%d\n",
			r.StrategyID,
			r.ParamsJSON,
			r.Pulls,
			r.MeanReward,
			r.LastUpdate,
		))
	}

	return sb.String()
}
