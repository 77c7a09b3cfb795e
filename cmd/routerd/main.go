package main

import (
	"fmt"
	"os"
	"strings"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "version", "--version":
			fmt.Println("routerd " + version)
			return
		}
	}

	// Bare "routerd" or "routerd --config x" runs the daemon.
	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := runDaemon(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "run":
		if err := runDaemon(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	case "quote":
		if err := runQuote(); err != nil {
			fmt.Fprintf(os.Stderr, "quote: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'routerd --help' for usage.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`routerd - cross-border payment route optimization daemon

USAGE:
    routerd [COMMAND] [FLAGS]

COMMANDS:
    run         Run the daemon (maintenance scheduler + payment runtimes)
    quote       Optimize one corridor and print the selected route as JSON
    doctor      Check the configuration and every collaborator
    version     Print the build version

    (no command) - same as 'run'

FLAGS:
    -h, --help        Show this help message
    --config PATH     Config file path (default: ./config.yaml)

QUOTE FLAGS:
    --amount N                Payment amount in source currency units
    --from CC                 Origin country code (ISO 3166-1 alpha-2)
    --to CC                   Destination country code
    --from-currency XXX       Source currency code (ISO 4217)
    --to-currency XXX         Destination currency code
    --prioritize LIST         Comma-separated: cost, speed, reliability
    --max-fee N               Best-effort fee ceiling
    --max-delivery-minutes N  Best-effort delivery time ceiling
    --provider NAME           Best-effort preferred provider
    --intent PATH             Read a payment intent JSON file instead ("-" for stdin)

CONFIGURATION:
    Config file: ./config.yaml (or $ROUTERD_CONFIG)
    Environment: ROUTERD_* variables override individual fields

EXAMPLES:
    routerd                                       # daemon with ./config.yaml
    routerd run --config /etc/routerd/config.yaml
    routerd quote --amount 500 --from KE --to UG --from-currency KES --to-currency UGX
    routerd quote --amount 1200 --from NG --to GH --from-currency NGN --to-currency GHS --prioritize speed
    routerd doctor`)
}

// configPath resolves the config file path: --config flag, then
// ROUTERD_CONFIG, then ./config.yaml.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("ROUTERD_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
