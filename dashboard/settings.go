package main

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/monitor"
	"github.com/itohio/adcpipe/pkg/uart"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createPipelineTab(state),
		createSamplerTab(state),
		createMonitorTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applyConfig runs edit against a copy of the configuration and swaps it in
// only if it validates and saves, reporting problems in a dialog.
func applyConfig(state *appState, edit func(c *config.Config)) bool {
	next, err := editConfig(state.cfg, state.configPath, edit)
	if err != nil {
		dialog.ShowError(err, state.window)
		return false
	}
	state.cfg = next
	return true
}

// editConfig applies edit to a clone of cur, then validates and persists it.
// cur is never modified.
func editConfig(cur *config.Config, path string, edit func(c *config.Config)) (*config.Config, error) {
	next := cur.Clone()
	edit(next)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := next.Save(path); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}
	return next, nil
}

// restartIfConnected restarts the chain so new settings take effect.
func restartIfConnected(state *appState) {
	if state.chain == nil {
		return
	}
	closeChain(state.chain)
	state.chain = nil
	handleConnect(state)
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := uart.Ports()
	portOptions := []string{}
	if err == nil {
		for _, port := range ports {
			portOptions = append(portOptions, port.Name)
		}
	} else {
		state.log.Warn().Err(err).Msg("failed to list serial ports")
	}

	current := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if opt == current {
			found = true
			break
		}
	}
	if !found && current != "" {
		portOptions = append(portOptions, current)
	}

	portSelect := widget.NewSelect(portOptions, func(string) {})
	if current != "" {
		portSelect.SetSelected(current)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			prev := state.cfg.Serial
			ok := applyConfig(state, func(c *config.Config) {
				if portSelect.Selected != "" {
					c.Serial.Port = portSelect.Selected
				}
				if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
					c.Serial.BaudRate = baud
				}
			})
			if !ok {
				return
			}
			if state.cfg.Serial != prev && !state.useMock {
				restartIfConnected(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createPipelineTab creates the tab for pool, queue and task periods.
func createPipelineTab(state *appState) *container.TabItem {
	poolEntry := widget.NewEntry()
	poolEntry.SetText(strconv.Itoa(state.cfg.PoolSize))

	queueEntry := widget.NewEntry()
	queueEntry.SetText(strconv.Itoa(state.cfg.QueueCapacity))

	periodEntries := make([]*widget.Entry, len(state.cfg.Producers))
	items := []*widget.FormItem{
		{Text: "Pool Size", Widget: poolEntry},
		{Text: "Queue Capacity", Widget: queueEntry},
	}
	for i, p := range state.cfg.Producers {
		e := widget.NewEntry()
		e.SetText(p.Period.String())
		periodEntries[i] = e
		items = append(items, &widget.FormItem{Text: fmt.Sprintf("ADC%d Period", p.Channel), Widget: e})
	}

	heartbeatEntry := widget.NewEntry()
	heartbeatEntry.SetText(state.cfg.Heartbeat.Period.String())
	items = append(items, &widget.FormItem{Text: "Heartbeat Period", Widget: heartbeatEntry})

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			ok := applyConfig(state, func(c *config.Config) {
				if n, err := strconv.Atoi(poolEntry.Text); err == nil {
					c.PoolSize = n
				}
				if n, err := strconv.Atoi(queueEntry.Text); err == nil {
					c.QueueCapacity = n
				}
				for i, e := range periodEntries {
					if d, err := time.ParseDuration(e.Text); err == nil && i < len(c.Producers) {
						c.Producers[i].Period = d
					}
				}
				if d, err := time.ParseDuration(heartbeatEntry.Text); err == nil {
					c.Heartbeat.Period = d
				}
			})
			if ok && state.useMock {
				restartIfConnected(state)
			}
		},
	}

	return container.NewTabItem("Pipeline", form)
}

// createSamplerTab creates the simulated converter tab.
func createSamplerTab(state *appState) *container.TabItem {
	conversionEntry := widget.NewEntry()
	conversionEntry.SetText(state.cfg.Sampler.ConversionTime.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.Itoa(state.cfg.Sampler.Noise))

	vrefEntry := widget.NewEntry()
	vrefEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Sampler.VRef))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Conversion Time", Widget: conversionEntry},
			{Text: "Noise (counts)", Widget: noiseEntry},
			{Text: "VRef (V)", Widget: vrefEntry},
		},
		OnSubmit: func() {
			ok := applyConfig(state, func(c *config.Config) {
				if d, err := time.ParseDuration(conversionEntry.Text); err == nil {
					c.Sampler.ConversionTime = d
				}
				if n, err := strconv.Atoi(noiseEntry.Text); err == nil {
					c.Sampler.Noise = n
				}
				if v, err := strconv.ParseFloat(vrefEntry.Text, 32); err == nil {
					c.Sampler.VRef = float32(v)
				}
			})
			if ok && state.useMock {
				restartIfConnected(state)
			}
		},
	}

	return container.NewTabItem("Sampler", form)
}

// createMonitorTab creates the display window and averaging tab.
func createMonitorTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(state.cfg.Monitor.Window.String())

	averageEntry := widget.NewEntry()
	averageEntry.SetText(strconv.Itoa(state.cfg.Monitor.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window", Widget: windowEntry},
			{Text: "Average Samples (0=whole window)", Widget: averageEntry},
		},
		OnSubmit: func() {
			ok := applyConfig(state, func(c *config.Config) {
				if d, err := time.ParseDuration(windowEntry.Text); err == nil {
					c.Monitor.Window = d
				}
				if n, err := strconv.Atoi(averageEntry.Text); err == nil {
					c.Monitor.AverageSamples = n
				}
			})
			if !ok {
				return
			}
			// The monitor keeps its settings for its lifetime.
			closeChain(state.chain)
			wasConnected := state.chain != nil
			state.chain = nil
			state.monitor = monitor.New(state.cfg)
			state.registerOnce = sync.Once{}
			if wasConnected {
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Monitor", form)
}
