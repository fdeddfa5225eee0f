// comfoconnect is a command-line client for Zehnder ComfoConnect LAN C
// bridges.
//
// Usage:
//
//	comfoconnect discover
//	comfoconnect --host 192.168.1.213 --pin 1234 register
//	comfoconnect --host 192.168.1.213 set-speed low
//	comfoconnect --host 192.168.1.213 show-sensors
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/openhvac/comfoconnect/pkg/comfoconnect"
	"github.com/openhvac/comfoconnect/pkg/discovery"
	"github.com/openhvac/comfoconnect/pkg/props"
	"github.com/openhvac/comfoconnect/pkg/rmi"
	"github.com/openhvac/comfoconnect/pkg/sensors"
)

func rmiType(code uint8) rmi.DataType {
	return rmi.DataType(code)
}

var (
	flagHost    string
	flagUUID    string
	flagPin     uint32
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "comfoconnect",
		Short:         "Control ComfoAir Q ventilation units over a ComfoConnect LAN C bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagHost, "host", "", "bridge address (required except for discover)")
	root.PersistentFlags().StringVar(&flagUUID, "uuid", "00000000-0000-0000-0000-000000001337", "local application uuid")
	root.PersistentFlags().Uint32Var(&flagPin, "pin", 0, "bridge pin, used to register when unknown")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		discoverCmd(),
		registerCmd(),
		deregisterCmd(),
		versionCmd(),
		getModeCmd(),
		setModeCmd(),
		getSpeedCmd(),
		setSpeedCmd(),
		setBoostCmd(),
		setComfoCoolCmd(),
		showSensorsCmd(),
		showSensorCmd(),
		getPropertyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loggerFactory() logging.LoggerFactory {
	factory := logging.NewDefaultLoggerFactory()
	if flagVerbose {
		factory.DefaultLogLevel = logging.LogLevelDebug
	} else {
		factory.DefaultLogLevel = logging.LogLevelWarn
	}
	return factory
}

// withClient connects to the configured bridge, runs fn, and disconnects.
func withClient(ctx context.Context, fn func(ctx context.Context, c *comfoconnect.Client) error) error {
	if flagHost == "" {
		return fmt.Errorf("--host is required")
	}
	localUUID, err := uuid.Parse(flagUUID)
	if err != nil {
		return fmt.Errorf("invalid --uuid: %v", err)
	}

	d := discovery.New(discovery.Config{Timeout: 2 * time.Second, LoggerFactory: loggerFactory()})
	found, err := d.Lookup(ctx, flagHost)
	if err != nil {
		return fmt.Errorf("bridge at %s did not answer discovery: %w", flagHost, err)
	}

	config := comfoconnect.Config{
		Host:          found.Host,
		UUID:          found.UUID,
		LocalUUID:     localUUID,
		LoggerFactory: loggerFactory(),
	}
	if flagPin != 0 {
		pin := flagPin
		config.Pin = &pin
	}

	client := comfoconnect.New(config)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	return fn(ctx, client)
}

func discoverCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find bridges on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := discovery.New(discovery.Config{Timeout: timeout, LoggerFactory: loggerFactory()})
			bridges, err := d.Discover(cmd.Context())
			if err != nil {
				return err
			}
			if len(bridges) == 0 {
				return fmt.Errorf("no bridges found")
			}
			for _, b := range bridges {
				fmt.Printf("%s  uuid=%s  version=%s\n", b.Host, b.UUID, sensors.VersionDecode(b.Version))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultTimeout, "how long to wait for replies")
	return cmd
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register this application on the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				apps, err := c.Bridge().CmdListRegisteredApps(ctx)
				if err != nil {
					return err
				}
				fmt.Println("registered apps:")
				for _, app := range apps {
					fmt.Printf("  %s  %s\n", app.UUID, app.DeviceName)
				}
				return nil
			})
		},
	}
}

func deregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deregister-app <uuid>",
		Short: "Remove an application registration from the bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid uuid: %v", err)
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				return c.Bridge().CmdDeregisterApp(ctx, target)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show bridge version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				v, err := c.Bridge().CmdVersionRequest(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("serial:   %s\n", v.SerialNumber)
				fmt.Printf("gateway:  %s\n", sensors.VersionDecode(v.GatewayVersion))
				fmt.Printf("comfonet: %s\n", sensors.VersionDecode(v.ComfoNetVersion))
				return nil
			})
		},
	}
}

func getModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-mode",
		Short: "Show the ventilation mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				mode, err := c.GetMode(ctx)
				if err != nil {
					return err
				}
				fmt.Println(mode)
				return nil
			})
		},
	}
}

func setModeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-mode <auto|manual>",
		Short: "Set the ventilation mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode comfoconnect.VentilationMode
			switch args[0] {
			case "auto":
				mode = comfoconnect.ModeAuto
			case "manual":
				mode = comfoconnect.ModeManual
			default:
				return fmt.Errorf("invalid mode %q", args[0])
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				return c.SetMode(ctx, mode)
			})
		},
	}
}

func getSpeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-speed",
		Short: "Show the fan speed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				speed, err := c.GetSpeed(ctx)
				if err != nil {
					return err
				}
				fmt.Println(speed)
				return nil
			})
		},
	}
}

func setSpeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-speed <away|low|medium|high>",
		Short: "Set the fan speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var speed comfoconnect.VentilationSpeed
			switch args[0] {
			case "away":
				speed = comfoconnect.SpeedAway
			case "low":
				speed = comfoconnect.SpeedLow
			case "medium":
				speed = comfoconnect.SpeedMedium
			case "high":
				speed = comfoconnect.SpeedHigh
			default:
				return fmt.Errorf("invalid speed %q", args[0])
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				return c.SetSpeed(ctx, speed)
			})
		},
	}
}

func setBoostCmd() *cobra.Command {
	var timeout int32
	cmd := &cobra.Command{
		Use:   "set-boost <on|off>",
		Short: "Activate or deactivate boost mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active := args[0] == "on"
			if !active && args[0] != "off" {
				return fmt.Errorf("invalid boost state %q", args[0])
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				return c.SetBoost(ctx, active, timeout)
			})
		},
	}
	cmd.Flags().Int32Var(&timeout, "timeout", 3600, "boost duration in seconds")
	return cmd
}

func setComfoCoolCmd() *cobra.Command {
	var timeout int32
	cmd := &cobra.Command{
		Use:   "set-comfocool <auto|off>",
		Short: "Set the ComfoCool mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode comfoconnect.ComfoCoolMode
			switch args[0] {
			case "auto":
				mode = comfoconnect.ComfoCoolAuto
			case "off":
				mode = comfoconnect.ComfoCoolOff
			default:
				return fmt.Errorf("invalid comfocool mode %q", args[0])
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				return c.SetComfoCoolMode(ctx, mode, timeout)
			})
		},
	}
	cmd.Flags().Int32Var(&timeout, "timeout", -1, "off duration in seconds, -1 for indefinite")
	return cmd
}

func showSensorsCmd() *cobra.Command {
	var follow time.Duration
	cmd := &cobra.Command{
		Use:   "show-sensors",
		Short: "Subscribe to all known sensors and print updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withClient(ctx, func(ctx context.Context, c *comfoconnect.Client) error {
				ids := make([]int, 0, len(sensors.Registry))
				for id := range sensors.Registry {
					ids = append(ids, int(id))
				}
				sort.Ints(ids)

				for _, id := range ids {
					s := sensors.Registry[uint16(id)]
					if _, err := c.RegisterSensor(ctx, s, printSensor); err != nil {
						return err
					}
				}

				select {
				case <-ctx.Done():
				case <-time.After(follow):
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&follow, "follow", 30*time.Second, "how long to listen for updates")
	return cmd
}

func showSensorCmd() *cobra.Command {
	var follow time.Duration
	cmd := &cobra.Command{
		Use:   "show-sensor <id>",
		Short: "Subscribe to one sensor and print updates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid sensor id %q", args[0])
			}
			sensor, ok := sensors.Lookup(uint16(id))
			if !ok {
				return fmt.Errorf("unknown sensor id %d", id)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withClient(ctx, func(ctx context.Context, c *comfoconnect.Client) error {
				if _, err := c.RegisterSensor(ctx, sensor, printSensor); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
				case <-time.After(follow):
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&follow, "follow", 30*time.Second, "how long to listen for updates")
	return cmd
}

func printSensor(s sensors.Sensor, value any) {
	if s.Unit != "" {
		fmt.Printf("%3d  %-45s %v %s\n", s.ID, s.Name, value, s.Unit)
		return
	}
	fmt.Printf("%3d  %-45s %v\n", s.ID, s.Name, value)
}

func getPropertyCmd() *cobra.Command {
	var node uint8
	var typeCode uint8
	cmd := &cobra.Command{
		Use:   "get-property <unit> <subunit> <property-id>",
		Short: "Read a device property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil {
				return fmt.Errorf("invalid unit %q", args[0])
			}
			subunit, err := strconv.ParseUint(args[1], 0, 8)
			if err != nil {
				return fmt.Errorf("invalid subunit %q", args[1])
			}
			propID, err := strconv.ParseUint(args[2], 0, 8)
			if err != nil {
				return fmt.Errorf("invalid property id %q", args[2])
			}

			return withClient(cmd.Context(), func(ctx context.Context, c *comfoconnect.Client) error {
				p := props.Property{Unit: uint8(unit), Subunit: uint8(subunit), PropertyID: uint8(propID), Type: rmiType(typeCode)}
				value, err := c.GetPropertyOnNode(ctx, p, node)
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil
			})
		},
	}
	cmd.Flags().Uint8Var(&node, "node", 1, "comfonet node id")
	cmd.Flags().Uint8Var(&typeCode, "type", 9, "value type code (9=string, 1=uint8, 2=uint16, ...)")
	return cmd
}
