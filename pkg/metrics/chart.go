package metrics

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tabular-rl-server/pkg/logger"
)

// HistorySource looks up the running-average history of a hosted agent
type HistorySource interface {
	History(agentID string) ([]float64, bool)
}

// RenderTrainingCurve writes an HTML line chart of history to w. Entry 0 is
// the seed value before any episode.
func RenderTrainingCurve(w io.Writer, agentID string, history []float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Training curve",
			Theme:     "shine",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Running average return",
			Subtitle: agentID,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "average return"}),
	)

	episodes := make([]string, 0, len(history))
	items := make([]opts.LineData, 0, len(history))
	for i, v := range history {
		episodes = append(episodes, fmt.Sprintf("%d", i))
		items = append(items, opts.LineData{Value: v})
	}

	line.SetXAxis(episodes).AddSeries("average_return", items)
	return line.Render(w)
}

// ChartHandler serves /agents/{id}/chart
func ChartHandler(source HistorySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := r.PathValue("id")
		history, ok := source.History(agentID)
		if !ok {
			http.Error(w, "agent not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := RenderTrainingCurve(w, agentID, history); err != nil {
			logger.GetLogger().Errorf("Failed to render chart for agent %s: %v", agentID, err)
		}
	}
}
