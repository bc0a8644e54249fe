package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/scarlett-tools/scarlettd/config"
	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/hotkeys"
	"github.com/scarlett-tools/scarlettd/server"
	"github.com/scarlett-tools/scarlettd/transport"
)

const version = "0.3.0"

func main() {
	var (
		logfile     string
		verbose     bool
		usbDebug    int
		configDir   string
		versionFlag bool
	)

	flag.StringVar(&logfile, "l", "", "Log into a file, rotating after 20MB")
	flag.BoolVar(&verbose, "v", false, "Write verbose logs to either stderr or logfile")
	flag.IntVar(&usbDebug, "d", 0, "libusb debug level (0-4)")
	flag.StringVar(&configDir, "c", "", "Configuration directory (default: the per-user config dir)")
	flag.BoolVar(&versionFlag, "version", false, "Write version")
	flag.Parse()

	if versionFlag {
		fmt.Println(version)
		return
	}

	stderrWriter, stderrLogger, longMemoryWriter := initLoggers(logfile, verbose)

	stderrLogger.Print("scarlettd is starting.")

	if configDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			stderrLogger.Fatalf("config: %s", err)
		}
		configDir = dir
	}
	store, err := config.NewStore(configDir)
	if err != nil {
		stderrLogger.Fatalf("config: %s", err)
	}
	prefs, err := store.LoadPreferences()
	if err != nil {
		stderrLogger.Fatalf("config: %s", err)
	}

	longMemoryWriter.Log("initing usb")
	bus := transport.NewBus(longMemoryWriter, usbDebug)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detector := core.NewDetector(bus, longMemoryWriter)
	go detector.Monitor(ctx)
	go func() {
		for ev := range detector.Events() {
			switch ev.Type {
			case core.DeviceConnected:
				stderrLogger.Printf("connected: %s (serial %s) at %s",
					ev.Device.ModelName, ev.Device.Serial, ev.Path)
			case core.DeviceDisconnected:
				stderrLogger.Printf("disconnected: %s", ev.Path)
			}
		}
	}()

	// Global hotkeys have no hook on headless builds; the stub source keeps
	// the consumer loop identical across platforms.
	var keys hotkeys.Source = hotkeys.NewStubSource()
	defer keys.Close()
	if prefs.HotkeysEnabled {
		go func() {
			for ev := range keys.Events() {
				longMemoryWriter.Log("hotkey: " + ev.String())
			}
		}()
	}

	longMemoryWriter.Log("creating HTTP server")
	s, err := server.New(bus, version, stderrWriter, longMemoryWriter)
	if err != nil {
		stderrLogger.Fatalf("https: %s", err)
	}

	longMemoryWriter.Log("running HTTP server")
	if err := s.Run(); err != nil {
		stderrLogger.Fatalf("https: %s", err)
	}

	longMemoryWriter.Log("main ended successfully")
}
