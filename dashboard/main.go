package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/monitor"
	"github.com/itohio/adcpipe/pkg/report"
	"github.com/itohio/adcpipe/pkg/scope"
	"github.com/itohio/adcpipe/pkg/system"
	"github.com/itohio/adcpipe/pkg/uart"
	"github.com/rs/zerolog"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Run the pipeline in-process instead of reading a serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of reports to average (0 = whole window, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Monitor.AverageSamples = *averageSamplesFlag
	}

	log := newLogger(cfg.Log)

	application := app.NewWithID("com.itohio.adcpipe")
	window := application.NewWindow("ADC Pipeline Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        log,
		monitor:    monitor.New(cfg),
		window:     window,
		useMock:    *mockFlag,
		throttle:   newThrottle(16 * time.Millisecond),
	}

	toolbar := createToolbar(state)
	state.scopeWidget = scope.New(cfg)

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget))
	window.SetOnClosed(func() { closeChain(state.chain) })
	window.ShowAndRun()
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Console {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// chain tracks the running components for graceful shutdown.
type chain struct {
	link        uart.Link
	cancel      context.CancelFunc // stops the in-process pipeline, nil for serial
	pipeline    chan struct{}      // closed when the in-process pipeline exits
	monitorDone chan struct{}      // closed when the monitor goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	log         zerolog.Logger
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	led         *heartbeatLED
	stats       *widget.Label
	useMock     bool
	chain       *chain
	throttle    *throttle

	registerOnce sync.Once
}

// createToolbar creates the toolbar with the Connect and Settings buttons, the
// heartbeat indicator and the drop statistics.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})
	clearBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		state.monitor.Clear()
		state.scopeWidget.UpdateData(state.monitor.Snapshot())
		state.stats.SetText(formatStats(state.monitor.Snapshot()))
	})

	state.led = newHeartbeatLED()
	state.stats = widget.NewLabel(formatStats(monitor.Snapshot{}))

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn, clearBtn),
		container.NewHBox(state.stats, state.led.Object()),
		nil,
	)
}

func formatStats(s monitor.Snapshot) string {
	return fmt.Sprintf("reports: %d  dropped: %d", s.Reported, s.TotalDropped)
}

// closeChain stops the pipeline, closes the link and waits for the monitor to
// drain.
func closeChain(c *chain) {
	if c == nil {
		return
	}

	if c.cancel != nil {
		c.cancel()
		<-c.pipeline
	}
	if c.link != nil {
		c.link.Close()
	}
	if c.monitorDone != nil {
		<-c.monitorDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.chain != nil {
		closeChain(state.chain)
		state.chain = nil
		state.led.Set(false)
		state.log.Info().Msg("disconnected")
		return
	}

	c, err := startChain(state)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.chain = c
}

// startChain connects the link, optionally starts the in-process pipeline and
// feeds the monitor.
func startChain(state *appState) (*chain, error) {
	c := &chain{}

	if state.useMock {
		loop := uart.NewLoopback(uart.DefaultBufferSize, state.log)
		if err := loop.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect loopback: %w", err)
		}
		sys, err := system.New(state.cfg, adc.NewSim(&state.cfg.Sampler), loop, state.led, state.log)
		if err != nil {
			loop.Close()
			return nil, fmt.Errorf("failed to start pipeline: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		c.link, c.cancel, c.pipeline = loop, cancel, make(chan struct{})
		go func() {
			defer close(c.pipeline)
			if err := sys.Run(ctx); err != nil {
				state.log.Error().Err(err).Msg("pipeline failed")
			}
			state.log.Info().Dict("stats", sys.Stats().Event()).Msg("final stats")
		}()
		state.log.Info().Msg("running in-process pipeline")
	} else {
		dev := uart.New(state.cfg.Serial, uart.DefaultBufferSize, state.log)
		if err := dev.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err)
		}
		c.link = dev
		state.log.Info().Str("port", state.cfg.Serial.Port).Msg("connected")
	}

	state.monitor.ResetShutdown()
	state.registerOnce.Do(func() {
		state.monitor.OnUpdate(func(s monitor.Snapshot) {
			state.throttle.Do(func() {
				fyne.Do(func() {
					state.scopeWidget.UpdateData(s)
					state.stats.SetText(formatStats(s))
				})
			})
		})
	})

	reports := report.NewParser(state.log, 500)(c.link.Lines())
	c.monitorDone = make(chan struct{})
	go func() {
		defer close(c.monitorDone)
		state.monitor.ProcessReports(reports)
	}()

	return c, nil
}
