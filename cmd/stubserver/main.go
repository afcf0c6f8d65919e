package main

import (
	"flag"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/globalpulse/newsdesk/model"
	"github.com/globalpulse/newsdesk/utils/dotenv"
	Logger "github.com/globalpulse/newsdesk/utils/log"
)

var (
	addrFlag        = flag.String("addr", ":8000", "listen address")
	ingestEveryFlag = flag.Duration("ingest_every", 30*time.Second, "synthetic ingestion cadence")
	seedFeedFlag    = flag.String("seed_feed_url", "", "optional rss feed to seed the store from")
)

// init() will always be called on before the execution of main function.
func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

func main() {
	flag.Parse()
	Logger.InitLogger()

	store := newNewsStore()
	if *seedFeedFlag != "" {
		if err := store.seedFromFeed(*seedFeedFlag); err != nil {
			Logger.Log.Errorf("seed feed unavailable, keeping built-in samples: %s", err)
		}
	}
	hub := newWsHub()

	// Synthetic ingestion: every tick inserts items and hints every
	// connected desk to refetch.
	go func() {
		ticker := time.NewTicker(*ingestEveryFlag)
		defer ticker.Stop()
		for range ticker.C {
			inserted := store.ingestTick()
			hub.broadcast(gin.H{"type": "news_inserted", "count": inserted})
		}
	}()

	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "newsdesk-stub"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/api/news", func(c *gin.Context) {
		lang := c.DefaultQuery("lang", model.LanguageEnglish)
		if lang != model.LanguageChinese {
			lang = model.LanguageEnglish
		}
		chinaOnly, _ := strconv.ParseBool(c.DefaultQuery("china_only", "false"))
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 30
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		total, items := store.query(lang, chinaOnly, c.Query("q"), c.Query("country"), c.Query("topic"), limit, offset)
		c.JSON(http.StatusOK, gin.H{"total": total, "items": items})
	})

	router.GET("/api/news/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid article id"})
			return
		}
		lang := c.DefaultQuery("lang", model.LanguageEnglish)
		item, ok := store.get(id, lang)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "News not found"})
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/api/sources/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"items": store.healthSnapshot()})
	})

	router.GET("/api/filters", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.filterOptions())
	})

	router.GET("/api/retry/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, store.retryMetrics())
	})

	router.GET("/ws/news", func(c *gin.Context) {
		hub.serve(c.Writer, c.Request)
	})

	Logger.Log.Infof("stub backend listening on %s", *addrFlag)
	if err := router.Run(*addrFlag); err != nil {
		Logger.Log.Fatalf("stub backend stopped: %s", err)
	}
}
