package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Supported subcommands:
// - token:    Mint an API bearer token
// - export:   Write the stored samples as a GeoJSON FeatureCollection
// - geofence: Check a position against the configured region

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	geofenceCmd := flag.NewFlagSet("geofence", flag.ExitOnError)

	tokenSubject := tokenCmd.String("subject", "operator", "Subject of the token")
	tokenRoles := tokenCmd.String("roles", "operator", "Comma separated roles")

	exportOutput := exportCmd.String("output", "", "Output file, stdout when empty")
	exportAnnotated := exportCmd.Bool("annotated", false, "Only export annotated samples")

	geofenceLat := geofenceCmd.Float64("lat", 0, "Latitude in degrees")
	geofenceLon := geofenceCmd.Float64("lon", 0, "Longitude in degrees")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flags := ctlFlags{
		Token: tokenFlags{
			cmd:     tokenCmd,
			subject: tokenSubject,
			roles:   tokenRoles,
		},
		Export: exportFlags{
			cmd:       exportCmd,
			output:    exportOutput,
			annotated: exportAnnotated,
		},
		Geofence: geofenceFlags{
			cmd: geofenceCmd,
			lat: geofenceLat,
			lon: geofenceLon,
		},
	}

	if err := runSubcommand(ctx, &flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type ctlFlags struct {
	Token    tokenFlags
	Export   exportFlags
	Geofence geofenceFlags
}

type tokenFlags struct {
	cmd     *flag.FlagSet
	subject *string
	roles   *string
}

type exportFlags struct {
	cmd       *flag.FlagSet
	output    *string
	annotated *bool
}

type geofenceFlags struct {
	cmd *flag.FlagSet
	lat *float64
	lon *float64
}

func runSubcommand(ctx context.Context, flags *ctlFlags) error {
	switch os.Args[1] {
	case "token":
		return handleToken(flags)
	case "export":
		return handleExport(ctx, flags)
	case "geofence":
		return handleGeofence(flags)
	default:
		printUsage()

		return errors.New("unknown subcommand")
	}
}

func handleToken(flags *ctlFlags) error {
	if err := flags.Token.cmd.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse token flags")
	}

	if *flags.Token.subject == "" {
		return errors.New("--subject flag is required for token command")
	}

	return runToken(*flags.Token.subject, *flags.Token.roles)
}

func handleExport(ctx context.Context, flags *ctlFlags) error {
	if err := flags.Export.cmd.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse export flags")
	}

	return runExport(ctx, *flags.Export.output, *flags.Export.annotated)
}

func handleGeofence(flags *ctlFlags) error {
	if err := flags.Geofence.cmd.Parse(os.Args[2:]); err != nil {
		return errors.Wrap(err, "failed to parse geofence flags")
	}

	return runGeofence(*flags.Geofence.lat, *flags.Geofence.lon)
}

func printUsage() {
	fmt.Println("Usage: fieldtrackctl <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  token       Mint an API bearer token")
	fmt.Println("  export      Export stored samples as GeoJSON")
	fmt.Println("  geofence    Check a position against the region")
	fmt.Println("")
	fmt.Println("Configuration is read the same way as the server (config.yaml, .env, environment).")
	fmt.Println("Use 'fieldtrackctl <command> -h' for more information about a command.")
}
