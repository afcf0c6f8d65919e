package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	Logger "github.com/globalpulse/newsdesk/utils/log"
	"github.com/olekukonko/tablewriter"
)

type RendererConfig struct {
	// Name of the renderer.
	Name string
}

// Renderer consumes view snapshots and prints them. A failed run renders its
// error banner only, the previously rendered data is never cleared by a
// later failure.
type Renderer struct {
	Config RendererConfig

	EventBus *gochannel.GoChannel

	out io.Writer
}

var (
	statusGreen  = color.New(color.FgGreen).SprintFunc()
	statusYellow = color.New(color.FgYellow).SprintFunc()
	statusRed    = color.New(color.FgRed).SprintFunc()
	errorBanner  = color.New(color.FgRed, color.Bold).SprintFunc()
	heading      = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Return a new instance of Renderer writing to out.
func NewRenderer(config RendererConfig, out io.Writer, e *gochannel.GoChannel) *Renderer {
	return &Renderer{
		Config:   config,
		out:      out,
		EventBus: e,
	}
}

func (r *Renderer) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.EventBus.Subscribe(ctx, desk.TopicViewSnapshot)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		snapshot := desk.ViewSnapshot{}
		if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
			Logger.Log.Errorf("fail to decode view snapshot: %s", err)
			continue
		}
		r.Render(snapshot)
	}

	return nil
}

// Render prints one snapshot: either the error banner, or the full triple.
func (r *Renderer) Render(snapshot desk.ViewSnapshot) {
	if snapshot.Err != "" {
		fmt.Fprintf(r.out, "\n%s %s\n", errorBanner("refresh failed:"), snapshot.Err)
		fmt.Fprintln(r.out, "previous results are kept until the next successful refresh")
		return
	}

	fmt.Fprintf(r.out, "\n%s %s\n", heading("GLOBAL PULSE"), describeFilter(snapshot.State))

	if len(snapshot.Focus) > 0 {
		fmt.Fprintf(r.out, "\n%s\n", heading("China Focus"))
		for _, item := range snapshot.Focus {
			r.printHeadline(item)
		}
	}

	fmt.Fprintf(r.out, "\n%s (%d total)\n", heading("Latest International Headlines"), snapshot.News.Total)
	if len(snapshot.News.Items) == 0 {
		fmt.Fprintln(r.out, "  no items match the current filters")
	}
	for _, item := range snapshot.News.Items {
		r.printHeadline(item)
	}

	fmt.Fprintf(r.out, "\n%s\n", heading("Sources"))
	r.printHealthTable(snapshot.Health)

	fmt.Fprintf(r.out, "retry queue: %d pending, %d due\n", snapshot.Retry.Pending, snapshot.Retry.Due)
}

func (r *Renderer) printHeadline(item model.NewsItem) {
	tags := ""
	if len(item.CountryTags) > 0 || len(item.TopicTags) > 0 {
		tags = " [" + strings.Join(append(append([]string{}, item.CountryTags...), item.TopicTags...), ", ") + "]"
	}
	fmt.Fprintf(r.out, "  #%-5d %s  %s | %s%s\n",
		item.Id,
		item.PublishedAt.Format("Jan 02 15:04"),
		item.SourceName,
		item.Title,
		tags)
}

func (r *Renderer) printHealthTable(health []model.SourceHealth) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Source", "Status", "Fails", "Latency", "Items", "Checked"})
	for _, row := range health {
		latency := "-"
		if row.LastLatencyMs != nil {
			latency = strconv.FormatInt(*row.LastLatencyMs, 10) + "ms"
		}
		table.Append([]string{
			row.SourceName,
			colorStatus(row.LastStatus),
			strconv.Itoa(row.ConsecutiveFailures),
			latency,
			strconv.Itoa(row.LastItemsCount),
			row.LastCheckedAt.Format("15:04:05"),
		})
	}
	table.Render()
}

func colorStatus(status string) string {
	switch status {
	case model.SourceStatusUp:
		return statusGreen(status)
	case model.SourceStatusDegraded:
		return statusYellow(status)
	case model.SourceStatusDown:
		return statusRed(status)
	default:
		return status
	}
}

func describeFilter(state filter.State) string {
	parts := []string{"lang=" + state.Lang}
	if state.ChinaOnly {
		parts = append(parts, "focus-only")
	}
	if state.Keyword != "" {
		parts = append(parts, "q="+state.Keyword)
	}
	if state.Country != "" {
		parts = append(parts, "country="+state.Country)
	}
	if state.Topic != "" {
		parts = append(parts, "topic="+state.Topic)
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (r *Renderer) Name() string {
	return r.Config.Name
}

func (r *Renderer) Shutdown() {
	Logger.Log.Infoln("Module ", r.Config.Name, " gracefully shutdown")
}
