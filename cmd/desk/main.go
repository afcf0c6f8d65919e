package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/api"
	"github.com/globalpulse/newsdesk/app_config"
	"github.com/globalpulse/newsdesk/desk"
	"github.com/globalpulse/newsdesk/desk/modules"
	"github.com/globalpulse/newsdesk/filter"
	"github.com/globalpulse/newsdesk/model"
	"github.com/globalpulse/newsdesk/utils/dotenv"
	Logger "github.com/globalpulse/newsdesk/utils/log"
)

var (
	originFlag = flag.String("origin", "", "backend origin, overrides NEWSDESK_API_BASE and the app config")
	viewFlag   = flag.String("view", "", "initial shareable view string, e.g. 'lang=zh&china=1&q=trade'")
	configFlag = flag.String("config", "", "path to the yaml app config")
)

// init() will always be called on before the execution of main function.
func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

// The backend origin is resolved exactly once, here, and injected into every
// component that fetches or connects.
func resolveOrigin(appConfig app_config.DeskAppConfig) string {
	if *originFlag != "" {
		return *originFlag
	}
	if env := os.Getenv("NEWSDESK_API_BASE"); env != "" {
		return env
	}
	return appConfig.API_BASE_URL
}

func newStatsdClient(address string) *statsd.Client {
	if address == "" {
		return nil
	}
	client, err := statsd.New(address)
	if err != nil {
		Logger.Log.Errorf("fail to create statsd client on %s: %s", address, err)
		return nil
	}
	return client
}

func main() {
	flag.Parse()
	Logger.InitLogger()

	appConfig := app_config.ParseDeskAppConfig(*configFlag)
	origin := resolveOrigin(appConfig)
	client := api.NewClient(origin)

	initialState := filter.Decode(*viewFlag)

	// One-shot vocabulary load on startup only. Failure silently degrades
	// the selectors to an empty vocabulary, it never blocks the desk.
	optionsCtx, cancelOptions := context.WithTimeout(context.Background(), 10*time.Second)
	options, err := client.FetchFilterOptions(optionsCtx)
	cancelOptions()
	if err != nil {
		Logger.Log.Infof("filter vocabulary unavailable: %s", err)
		options = model.FilterOptions{Countries: []string{}, Topics: []string{}}
	}

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
	ctx, cancel := context.WithCancel(context.Background())

	store := desk.NewFilterStore(initialState, eventbus)

	// Initialize all engine modules here.
	ms := []desk.Module{
		// Synchronizer serves every refresh request with the three-way fetch
		// and publishes atomic view snapshots.
		modules.NewSynchronizer(
			modules.SynchronizerConfig{Name: "synchronizer", PageSize: appConfig.PAGE_SIZE},
			client, store, options, eventbus,
		),
		// LiveUpdate turns backend push hints into refresh requests.
		modules.NewLiveUpdate(
			modules.LiveUpdateConfig{
				Name:              "live_update",
				Endpoint:          api.PushEndpoint(origin),
				SecureOrigin:      strings.HasPrefix(origin, "https://"),
				HeartbeatInterval: time.Duration(appConfig.HEARTBEAT_SECOND) * time.Second,
				InitialBackoff:    time.Duration(appConfig.BACKOFF_INITIAL_MS) * time.Millisecond,
				MaxBackoff:        time.Duration(appConfig.BACKOFF_MAX_MS) * time.Millisecond,
			},
			eventbus,
		),
		// Renderer prints snapshots to the terminal.
		modules.NewRenderer(modules.RendererConfig{Name: "renderer"}, os.Stdout, eventbus),
		// Prompt owns all filter mutations and the shareable view string.
		modules.NewPrompt(
			modules.PromptConfig{Name: "prompt"},
			client, store, options, os.Stdin, os.Stdout, cancel,
		),
		// Reporter forwards refresh outcomes to dogstatsd when configured.
		modules.NewReporter(
			modules.ReporterConfig{Name: "reporter"},
			newStatsdClient(appConfig.STATSD_ADDRESS),
			eventbus,
		),
	}

	engine := desk.NewEngine(ms, ctx, cancel, eventbus)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		engine.Shutdown()
	}()

	fmt.Printf("news desk connected to %s\n", origin)
	fmt.Println("type `help` for commands")

	// Fire the initial load once the modules had a beat to subscribe.
	go func() {
		time.Sleep(200 * time.Millisecond)
		if err := store.Refresh(desk.TriggerFilter); err != nil {
			Logger.Log.Errorf("fail to request initial load: %s", err)
		}
	}()

	// blocking call.
	engine.Run()

	Logger.Log.Infoln("engine stopped execution.")
}
