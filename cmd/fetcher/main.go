package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/itsmrval/willitbemax/lib/configutil"
	"github.com/itsmrval/willitbemax/lib/scrapers/browser"
	"github.com/itsmrval/willitbemax/lib/scrapers/f1web"
	"github.com/itsmrval/willitbemax/lib/scrapers/jolpica"
	"github.com/itsmrval/willitbemax/lib/serviceutil"
	"github.com/itsmrval/willitbemax/lib/telemetry"
	"github.com/itsmrval/willitbemax/services/fetcher"
	"github.com/itsmrval/willitbemax/services/scheduler"
)

type Config struct {
	Port             int    `json:"port"`
	SchedulerBaseUrl string `json:"scheduler_baseurl"`
	JolpicaBaseUrl   string `json:"jolpica_baseurl"`
	WebsiteBaseUrl   string `json:"f1web_baseurl"`
	BrowserBaseUrl   string `json:"browser_baseurl"`
	LiveTimingUrl    string `json:"live_timing_url"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	MaxRetries       int    `json:"max_retries"`
	RequestDelayMs   int    `json:"request_delay_ms"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.Read[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8200
	}

	t, err := telemetry.SetupFromEnv(ctx, "fetcher")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no telemetry.json5 found, exporters disabled")
	} else if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	} else {
		defer t.Shutdown(context.Background())
	}

	jolpicaClient := jolpica.NewClient(jolpica.ClientOptions{
		BaseUrl: config.JolpicaBaseUrl,
	})
	browserClient := browser.NewClient(browser.ClientOptions{
		BaseUrl: config.BrowserBaseUrl,
	})
	defer browserClient.Close()

	websiteClient := f1web.NewClient(f1web.ClientOptions{
		BaseUrl:       config.WebsiteBaseUrl,
		LiveTimingUrl: config.LiveTimingUrl,
		Renderer:      browserClient,
		Standings:     jolpicaClient,
		Circuits:      jolpicaClient,
		Timeout:       time.Duration(config.TimeoutSeconds) * time.Second,
		MaxRetries:    config.MaxRetries,
		Delay:         time.Duration(config.RequestDelayMs) * time.Millisecond,
	})
	schedulerClient := scheduler.NewClient(scheduler.ClientOptions{
		BaseUrl: config.SchedulerBaseUrl,
	})

	service := fetcher.NewService(fetcher.ServiceOptions{
		Seasons:  jolpicaClient,
		Rounds:   websiteClient,
		Store:    schedulerClient,
		Browser:  browserClient,
		Registry: websiteClient.Metrics().Registry,
	})
	go serviceutil.StartHttpServer(config.Port, service.Router())

	<-ctx.Done()
}
