package modules

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/globalpulse/newsdesk/api"
	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	"github.com/globalpulse/newsdesk/utils"
	Logger "github.com/globalpulse/newsdesk/utils/log"
)

type PromptConfig struct {
	// Name of the prompt.
	Name string
}

// Prompt is the view side of the desk: it owns all FilterState mutations.
// Each committed action is exactly one store mutation and therefore one
// fetch. The keyword edit is two-staged: `q` stages a draft, `apply` (or an
// empty `q`+apply) commits it, so nothing fires per keystroke.
type Prompt struct {
	Config PromptConfig

	client  *api.Client
	store   *desk.FilterStore
	options model.FilterOptions

	in  io.Reader
	out io.Writer

	// Stops the whole engine, wired to the root cancel.
	cancel context.CancelFunc

	draft string
}

// Return a new instance of Prompt reading commands from in.
func NewPrompt(config PromptConfig, client *api.Client, store *desk.FilterStore, options model.FilterOptions, in io.Reader, out io.Writer, cancel context.CancelFunc) *Prompt {
	return &Prompt{
		Config:  config,
		client:  client,
		store:   store,
		options: options,
		in:      in,
		out:     out,
		cancel:  cancel,
	}
}

func (p *Prompt) RunModule(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// EOF on stdin behaves like quit.
				p.cancel()
				return nil
			}
			if quit := p.handle(strings.TrimSpace(line)); quit {
				p.cancel()
				return nil
			}
		}
	}
}

// handle runs one command line, returning true on quit.
func (p *Prompt) handle(line string) bool {
	if line == "" {
		return false
	}
	cmd, arg := line, ""
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		cmd, arg = line[:idx], strings.TrimSpace(line[idx+1:])
	}

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		p.printHelp()
	case "lang":
		p.mutate(func(s filter.State) filter.State { return s.WithLang(arg) })
	case "focus":
		p.mutate(func(s filter.State) filter.State { return s.WithChinaOnly(arg == "on") })
	case "q":
		p.draft = arg
		fmt.Fprintf(p.out, "keyword draft %q staged, run `apply` to search\n", p.draft)
	case "apply":
		draft := p.draft
		p.mutate(func(s filter.State) filter.State { return s.WithKeyword(draft) })
	case "country":
		if arg != "" && len(p.options.Countries) > 0 && !utils.ContainsString(p.options.Countries, arg) {
			fmt.Fprintf(p.out, "note: %q is not in the known country list\n", arg)
		}
		p.mutate(func(s filter.State) filter.State { return s.WithCountry(arg) })
	case "topic":
		if arg != "" && len(p.options.Topics) > 0 && !utils.ContainsString(p.options.Topics, arg) {
			fmt.Fprintf(p.out, "note: %q is not in the known topic list\n", arg)
		}
		p.mutate(func(s filter.State) filter.State { return s.WithTopic(arg) })
	case "reset":
		p.draft = ""
		p.mutate(func(s filter.State) filter.State { return s.Reset() })
	case "refresh":
		if err := p.store.Refresh(desk.TriggerManual); err != nil {
			Logger.Log.Errorf("fail to request refresh: %s", err)
		}
	case "view":
		p.printView(p.store.Snapshot())
	case "open":
		p.openArticle(arg)
	default:
		fmt.Fprintf(p.out, "unknown command %q, try `help`\n", cmd)
	}
	return false
}

func (p *Prompt) mutate(fn func(filter.State) filter.State) {
	state, err := p.store.Mutate(desk.TriggerFilter, fn)
	if err != nil {
		Logger.Log.Errorf("fail to apply filter action: %s", err)
		return
	}
	p.printView(state)
}

// printView rewrites the shareable view string, the desk counterpart of
// replacing the address-bar entry without a navigation.
func (p *Prompt) printView(state filter.State) {
	encoded := filter.Encode(state)
	if encoded == "" {
		fmt.Fprintln(p.out, "view: (default)")
		return
	}
	fmt.Fprintf(p.out, "view: ?%s\n", encoded)
}

func (p *Prompt) openArticle(arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Fprintf(p.out, "open expects a numeric article id, got %q\n", arg)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	item, err := p.client.FetchNewsDetail(ctx, id, p.store.Snapshot().Lang)
	if err != nil {
		fmt.Fprintf(p.out, "fail to open article %d: %s\n", id, err)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s | %s\n\n%s\n\n%s\n", item.Title, item.SourceName, item.PublishedAt.Format("2006-01-02 15:04"), item.Summary, item.Content)
	if item.ArticleUrl != "" {
		fmt.Fprintf(p.out, "link: %s\n", item.ArticleUrl)
	}
}

func (p *Prompt) printHelp() {
	fmt.Fprintln(p.out, `commands:
  lang en|zh        switch feed language
  focus on|off      restrict to flagged items only
  q <words>         stage a keyword draft
  apply             commit the staged keyword
  country <name>    filter by country tag (empty clears)
  topic <name>      filter by topic tag (empty clears)
  reset             clear all filters in one step
  refresh           refetch with the current filters
  open <id>         fetch and print one article
  view              print the shareable view string
  quit              exit`)
	if len(p.options.Countries) > 0 {
		fmt.Fprintf(p.out, "countries: %s\n", strings.Join(p.options.Countries, ", "))
	}
	if len(p.options.Topics) > 0 {
		fmt.Fprintf(p.out, "topics: %s\n", strings.Join(p.options.Topics, ", "))
	}
}

func (p *Prompt) Name() string {
	return p.Config.Name
}

func (p *Prompt) Shutdown() {
	Logger.Log.Infoln("Module ", p.Config.Name, " gracefully shutdown")
}
