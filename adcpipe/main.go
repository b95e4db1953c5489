// Command adcpipe runs the sampling pipeline on the host with a simulated
// converter, or monitors the report stream of a running board.
//
// Usage:
//
//	adcpipe run     [-config file] [-p port] [-duration d] [-stats interval]
//	adcpipe monitor [-config file] [-p port]
//	adcpipe ports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/monitor"
	"github.com/itohio/adcpipe/pkg/report"
	"github.com/itohio/adcpipe/pkg/sink"
	"github.com/itohio/adcpipe/pkg/system"
	"github.com/itohio/adcpipe/pkg/task"
	"github.com/itohio/adcpipe/pkg/uart"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:], os.Stdout)
	case "monitor":
		err = monitorCmd(ctx, os.Args[2:])
	case "ports":
		err = portsCmd(os.Stdout)
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "adcpipe: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: adcpipe <run|monitor|ports> [flags]")
}

// commonFlags holds flags shared by run and monitor.
type commonFlags struct {
	config *string
	port   *string
	level  *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", "config.yaml", "Configuration file path"),
		port:   fs.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)"),
		level:  fs.String("log-level", "", "Log level override (trace, debug, info, warn, error)"),
	}
}

// load reads the configuration and applies flag overrides.
func (f commonFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(*f.config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if *f.port != "" {
		cfg.Serial.Port = *f.port
	}
	if *f.level != "" {
		cfg.Log.Level = *f.level
	}
	return cfg, newLogger(cfg.Log, os.Stderr), nil
}

func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// runCmd runs the pipeline against the simulated converter. Reports go to out
// and, when a port is configured, to the serial port as well.
func runCmd(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	common := addCommonFlags(fs)
	statsEvery := fs.Duration("stats", 10*time.Second, "Interval between statistics log lines (0 = off)")
	duration := fs.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	cfg, log, err := common.load()
	if err != nil {
		return err
	}

	var reports sink.TextSink = sink.NewWriter(out, "\n")
	if cfg.Serial.Port != "" {
		dev := uart.New(cfg.Serial, 0, log)
		if err := dev.Connect(); err != nil {
			return err
		}
		defer dev.Close()
		reports = sink.Tee(reports, dev)
	}

	sys, err := system.New(cfg, adc.NewSim(&cfg.Sampler), reports, task.NewLogOutput(log), log)
	if err != nil {
		return err
	}

	if *statsEvery > 0 {
		go logStats(ctx, sys, *statsEvery, log)
	}

	err = sys.Run(ctx)
	log.Info().Dict("stats", sys.Stats().Event()).Msg("final stats")
	return err
}

func logStats(ctx context.Context, sys *system.System, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info().Dict("stats", sys.Stats().Event()).Msg("stats")
		}
	}
}

// monitorCmd reads report lines from a serial port and logs them as
// structured events until interrupted.
func monitorCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := common.load()
	if err != nil {
		return err
	}
	if cfg.Serial.Port == "" {
		return errors.New("no serial port configured, use -p")
	}

	dev := uart.New(cfg.Serial, 0, log)
	if err := dev.Connect(); err != nil {
		return err
	}

	m := monitor.New(cfg)
	m.OnUpdate(func(s monitor.Snapshot) {
		logSnapshot(log, s)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.ProcessReports(report.NewParser(log, 0)(dev.Lines()))
	}()

	select {
	case <-ctx.Done():
	case <-done:
		log.Warn().Msg("serial port closed")
	}
	dev.Close()
	<-done

	s := m.Snapshot()
	log.Info().Uint64("reported", s.Reported).Uint64("dropped", s.TotalDropped).Msg("monitor stopped")
	return nil
}

// logSnapshot logs the newest value of every channel.
func logSnapshot(log zerolog.Logger, s monitor.Snapshot) {
	e := log.Info().Uint64("dropped", s.TotalDropped)
	for _, tr := range s.Traces {
		if last, ok := tr.Last(); ok {
			e = e.Dict(fmt.Sprintf("adc%d", tr.Channel), zerolog.Dict().
				Uint16("value", last.Value).
				Float32("volts", last.Volts).
				Float32("avg", tr.Average))
		}
	}
	e.Msg("report")
}

// portsCmd lists the serial ports.
func portsCmd(out io.Writer) error {
	ports, err := uart.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(out, p.Name)
	}
	return nil
}
