package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/firmware"
	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/protocol"
	"github.com/scarlett-tools/scarlettd/transport"
)

var (
	serial  string
	output  int
	verbose bool
)

func newLogger() *memorywriter.MemoryWriter {
	var out *os.File
	if verbose {
		out = os.Stderr
	}
	mw, err := memorywriter.New(2000, 200, true, out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return mw
}

// openDevice finds a connected device (by serial if given, otherwise the
// first one), opens it and initializes the protocol session.
func openDevice(mw *memorywriter.MemoryWriter) (*transport.Bus, *transport.Device, protocol.Engine, error) {
	bus := transport.NewBus(mw, 0)

	detector := core.NewDetector(bus, mw)
	handles, err := detector.Scan()
	if err != nil {
		bus.Close()
		return nil, nil, nil, err
	}

	var picked *core.DeviceHandle
	for i := range handles {
		if serial == "" || handles[i].Serial == serial {
			picked = &handles[i]
			break
		}
	}
	if picked == nil {
		bus.Close()
		if serial != "" {
			return nil, nil, nil, fmt.Errorf("no device with serial %q", serial)
		}
		return nil, nil, nil, fmt.Errorf("no device found")
	}

	dev, err := bus.Open(picked.Path)
	if err != nil {
		bus.Close()
		return nil, nil, nil, err
	}

	engine := protocol.New(picked.Model.Generation(), dev, dev.InterfaceNumber(), mw)
	if err := engine.Init(); err != nil {
		_ = dev.Close()
		bus.Close()
		return nil, nil, nil, err
	}
	return bus, dev, engine, nil
}

func listDevices(cmd *cobra.Command, args []string) error {
	mw := newLogger()
	bus := transport.NewBus(mw, 0)
	defer bus.Close()

	detector := core.NewDetector(bus, mw)
	handles, err := detector.Scan()
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		cmd.Println("No devices found")
		return nil
	}
	for _, h := range handles {
		cmd.Printf("%s  serial %s  %s  %s\n",
			h.Path, h.Serial, h.Model.Generation(), h.ModelName)
	}
	return nil
}

func monitorDevices(cmd *cobra.Command, args []string) error {
	mw := newLogger()
	bus := transport.NewBus(mw, 0)
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	detector := core.NewDetector(bus, mw)
	go detector.Monitor(ctx)

	cmd.Println("Watching for devices, Ctrl-C to stop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-detector.Events():
			switch ev.Type {
			case core.DeviceConnected:
				cmd.Printf("connected: %s (serial %s) at %s\n",
					ev.Device.ModelName, ev.Device.Serial, ev.Path)
			case core.DeviceDisconnected:
				cmd.Printf("disconnected: %s\n", ev.Path)
			}
		}
	}
}

func inspectFirmware(cmd *cobra.Command, args []string) error {
	img, err := firmware.ReadFile(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("vendor:   0x%04x\n", img.VendorID)
	cmd.Printf("product:  0x%04x\n", img.ProductID)
	cmd.Printf("version:  %d\n", img.Version)
	cmd.Printf("payload:  %d bytes\n", len(img.Data))
	if model, ok := img.TargetModel(); ok {
		cmd.Printf("target:   %s\n", model.Name())
	} else {
		cmd.Println("target:   unknown model")
	}
	return nil
}

func verifyFirmware(cmd *cobra.Command, args []string) error {
	img, err := firmware.ReadFile(args[0])
	if err != nil {
		return err
	}

	model, ok := img.TargetModel()
	if !ok {
		return fmt.Errorf("image targets unknown product 0x%04x", img.ProductID)
	}
	if err := img.ValidateForDevice(model); err != nil {
		return err
	}
	cmd.Printf("OK: valid image for %s, version %d\n", model.Name(), img.Version)
	return nil
}

func getVolume(cmd *cobra.Command, args []string) error {
	mw := newLogger()
	bus, dev, engine, err := openDevice(mw)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer dev.Close()

	db, err := engine.GetOutputVolume(output)
	if err != nil {
		return err
	}
	cmd.Printf("output %d: %d dB\n", output, db)
	return nil
}

func setVolume(cmd *cobra.Command, args []string) error {
	db, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid dB value %q", args[0])
	}

	mw := newLogger()
	bus, dev, engine, err := openDevice(mw)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer dev.Close()

	if err := engine.SetOutputVolume(output, db); err != nil {
		return err
	}
	cmd.Printf("output %d: %d dB\n", output, protocol.ClampDB(db))
	return nil
}

func adjustVolume(cmd *cobra.Command, args []string) error {
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid dB delta %q", args[0])
	}

	mw := newLogger()
	bus, dev, engine, err := openDevice(mw)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer dev.Close()

	db, err := engine.AdjustOutputVolume(output, delta)
	if err != nil {
		return err
	}
	cmd.Printf("output %d: %d dB\n", output, db)
	return nil
}

func muteCmd(cmd *cobra.Command, args []string) error {
	mw := newLogger()
	bus, dev, engine, err := openDevice(mw)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer dev.Close()

	switch args[0] {
	case "on":
		err = engine.SetMute(output, true)
	case "off":
		err = engine.SetMute(output, false)
	case "toggle":
		var muted bool
		muted, err = engine.ToggleMute(output)
		if err == nil {
			cmd.Printf("output %d muted: %v\n", output, muted)
			return nil
		}
	default:
		return fmt.Errorf("expected on, off or toggle, got %q", args[0])
	}
	if err != nil {
		return err
	}
	cmd.Printf("output %d mute %s\n", output, args[0])
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "scarlett-cli",
	Short:         "Control Focusrite Scarlett interfaces from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serial, "serial", "", "Select device by serial number")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List connected devices",
		RunE:  listDevices,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "monitor",
		Short: "Watch devices connect and disconnect",
		RunE:  monitorDevices,
	})

	fw := &cobra.Command{
		Use:   "firmware",
		Short: "Inspect and verify firmware files",
	}
	fw.AddCommand(&cobra.Command{
		Use:   "inspect <file>",
		Short: "Show firmware file header",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectFirmware,
	})
	fw.AddCommand(&cobra.Command{
		Use:   "verify <file>",
		Short: "Validate a firmware file against the model table",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyFirmware,
	})
	rootCmd.AddCommand(fw)

	volume := &cobra.Command{
		Use:   "volume",
		Short: "Read and set output volume",
	}
	volume.PersistentFlags().IntVar(&output, "output", 0, "Output index")
	volume.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Read the output volume in dB",
		RunE:  getVolume,
	})
	volume.AddCommand(&cobra.Command{
		Use:   "set <db>",
		Short: "Set the output volume in dB (-127..0)",
		Args:  cobra.ExactArgs(1),
		RunE:  setVolume,
	})
	volume.AddCommand(&cobra.Command{
		Use:   "adjust <delta>",
		Short: "Adjust the output volume by a dB delta",
		Args:  cobra.ExactArgs(1),
		RunE:  adjustVolume,
	})
	rootCmd.AddCommand(volume)

	mute := &cobra.Command{
		Use:   "mute <on|off|toggle>",
		Short: "Control output mute",
		Args:  cobra.ExactArgs(1),
		RunE:  muteCmd,
	}
	mute.Flags().IntVar(&output, "output", 0, "Output index")
	rootCmd.AddCommand(mute)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
