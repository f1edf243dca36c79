package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/cheggaaa/pb/v3"

	"github.com/ayusman/signcapture/internal/app"
	"github.com/ayusman/signcapture/internal/capture"
	"github.com/ayusman/signcapture/internal/config"
	"github.com/ayusman/signcapture/internal/tray"
)

const usage = `Usage: signcapture [flags] [serve|reindex]

Commands:
  serve     run the capture server (default)
  reindex   rebuild the sample catalog from metadata.csv

Flags:
`

func main() {
	fmt.Println("SignCapture - Sign Language Dataset Capture")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.DatasetDir, "dataset", cfg.DatasetDir, "dataset directory")
	signs := flag.String("signs", "", "comma-separated sign vocabulary (first run only)")
	flag.IntVar(&cfg.MaxHands, "max-hands", cfg.MaxHands, "maximum hands detected per image")
	flag.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show a system tray icon")
	flag.Parse()

	if *signs != "" {
		cfg.Signs = config.ParseSigns(*signs)
	}

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "serve":
		err = serve(cfg)
	case "reindex":
		err = reindex(cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func serve(cfg *config.Config) error {
	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		return a.Run(ctx)
	}

	// systray must own the main goroutine
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New()
	t.OnOpen(func() { openBrowser(formURL(cfg.HTTPAddr)) })
	t.OnQuit(cancel)
	if n, err := a.SampleCount(); err == nil {
		t.SetSampleCount(n)
	}
	a.AddNotifier(&trayCounter{tray: t})

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

// trayCounter keeps the tray's sample count current.
type trayCounter struct {
	tray *tray.Tray
}

func (c *trayCounter) Notify(ev capture.Event) {
	if ev.Type == capture.EventSample {
		c.tray.IncSampleCount()
	}
}

func reindex(cfg *config.Config) error {
	a, err := app.New(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *pb.ProgressBar
	stats, err := a.Reindex(
		func(total int) { bar = pb.StartNew(total) },
		func() { bar.Increment() },
	)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Reindexed %d samples and %d videos into %s\n", stats.Samples, stats.Videos, cfg.CatalogPath())
	return nil
}

// formURL returns the browser address of the capture form served on addr.
func formURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
