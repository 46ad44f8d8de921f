package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/swisstax/reconcile/app"
	"github.com/swisstax/reconcile/app/outfmt"
	"github.com/swisstax/reconcile/fx"
	"github.com/swisstax/reconcile/log"
	"github.com/swisstax/reconcile/payment"
)

const (
	toleranceEnv = "RECONCILE_TOLERANCE"
	formatEnv    = "RECONCILE_FORMAT"
)

// Rates read from a file do not change while the command runs.
const rateCacheExpiration = time.Hour

var Tolerance = payment.DefaultTolerance.String()
var OutputFormat = string(outfmt.FormatText)
var CsvOutputDir = "."
var RatesFile = ""
var CompletePeriod = false
var FullValues = false
var MismatchesOnly = false
var NoStyle = false
var NoAllowlist = false

func makeOptions() (app.Options, error) {
	options := app.NewOptions()

	tolerance, err := decimal.NewFromString(Tolerance)
	if err != nil {
		return options, fmt.Errorf("invalid tolerance %q: %w", Tolerance, err)
	}
	if tolerance.IsNegative() {
		return options, fmt.Errorf("tolerance must not be negative, got %s", tolerance)
	}
	options.Tolerance = tolerance
	options.CompletePeriodBalances = CompletePeriod
	options.RenderFullValues = FullValues
	options.MismatchesOnly = MismatchesOnly
	if NoAllowlist {
		options.Allowlist = nil
	}

	if RatesFile != "" {
		rates, err := fx.LoadRatesCsvFile(RatesFile)
		if err != nil {
			return options, err
		}
		options.Rates = fx.NewCachedRateSource(rates, rateCacheExpiration)
	}
	return options, nil
}

func makeWriter(stdout io.Writer) (outfmt.ReportWriter, error) {
	format, err := outfmt.ParseFormat(OutputFormat)
	if err != nil {
		return nil, err
	}
	switch format {
	case outfmt.FormatCSV:
		return outfmt.NewCSVWriter(CsvOutputDir)
	case outfmt.FormatMarkdown:
		return outfmt.NewMarkdownWriter(stdout, !NoStyle)
	}
	return outfmt.NewSTDWriter(stdout), nil
}

// runReconcile returns the process exit code.
func runReconcile(args []string, stdout io.Writer, errPrinter log.ErrorPrinter) int {
	options, err := makeOptions()
	if err != nil {
		errPrinter.Ln("Error:", err)
		return 1
	}
	writer, err := makeWriter(stdout)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return 1
	}

	readers := make([]app.DescribedReader, 0, len(args))
	for _, name := range args {
		fp, err := os.Open(name)
		if err != nil {
			errPrinter.Ln("Error:", err)
			return 1
		}
		defer fp.Close()
		readers = append(readers, app.DescribedReader{Desc: name, Reader: fp})
	}

	results, err := app.RunReconcileApp(readers, options, writer, errPrinter)
	for _, res := range results {
		log.Fverbosef(stdout, "%s: %d securities checked, %d payment rows\n",
			res.Desc, len(res.Positions), len(res.Statement.PaymentReconciliation.Rows))
	}
	if err != nil {
		errPrinter.Ln("[!]", err)
		return 1
	}
	return 0
}

func runRootCmd(cmd *cobra.Command, args []string) {
	if code := runReconcile(args, os.Stdout, &log.StderrErrorPrinter{}); code != 0 {
		os.Exit(code)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " [STATEMENT_JSON ...]",
	Short: "Swiss tax statement position and payment reconciliation tool",
	Long: `A cli tool which cross-checks Swiss electronic tax statements.

For every security, the stock entries (balances and mutations) are checked
for consistency, and the opening and closing positions of the statement
period are derived. Then the payments published in the reference price list
are compared against the payments the broker reported.

Broker amounts in foreign currencies are converted with the exchange rate of
the reference entry. When the reference has no rate, rates may be provided
with --rates as a CSV file with the columns: currency, date, rate.

Defaults may be set in the environment or a .env file:
 RECONCILE_TOLERANCE  tolerance in CHF (default 0.05)
 RECONCILE_FORMAT     text, csv or markdown
 DISPLAY_NAN          text shown for absent values
 TRACE                comma-separated trace tags (position, payment, fx, app)

The exit status is 1 if any position is inconsistent or any payment does not
reconcile.
`,
	Run:     runRootCmd,
	Args:    cobra.MinimumNArgs(1),
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(onInit)

	// Persistent flags, which are global to the app cli
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().StringVarP(&OutputFormat, "format", "o", OutputFormat,
		"Output format. One of text, csv or markdown")
	RootCmd.PersistentFlags().StringVar(&CsvOutputDir, "csv-dir", CsvOutputDir,
		"Directory CSV reports are written to, with --format csv")
	RootCmd.PersistentFlags().BoolVar(&NoStyle, "no-style", false,
		"Print raw markdown instead of terminal styled output, with --format markdown")

	RootCmd.Flags().StringVarP(&Tolerance, "tolerance", "t", Tolerance,
		"Amount in CHF a broker value may fall short of the reference value")
	RootCmd.Flags().StringVarP(&RatesFile, "rates", "r", "",
		"CSV file of exchange rates (currency,date,rate) used when the reference has none")
	RootCmd.Flags().BoolVar(&CompletePeriod, "complete-period", false,
		"Add missing opening and closing balances of the statement period before checking")
	RootCmd.Flags().BoolVar(&FullValues, "full-values", false,
		"Print all decimals of amounts")
	RootCmd.Flags().BoolVarP(&MismatchesOnly, "mismatches-only", "m", false,
		"Only list payment rows which do not reconcile")
	RootCmd.Flags().BoolVar(&NoAllowlist, "no-allowlist", false,
		"Do not excuse broker cash on zero reference payments based on signs or labels")
}

// applyEnvDefault sets a flag from the environment, unless given explicitly.
func applyEnvDefault(cmd *cobra.Command, flagName string, envName string) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil || flag.Changed {
		return
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		if err := cmd.Flags().Set(flagName, val); err != nil {
			fmt.Fprintf(os.Stderr, "Ignoring %s=%q: %v\n", envName, val, err)
		}
	}
}

// onInit reads in a .env file and ENV variables if set, and performs global
// or common actions before running command functions.
func onInit() {
	if err := godotenv.Load(); err == nil {
		log.Fverbosef(os.Stderr, "Loaded environment from .env\n")
	}
	// Must happen after .env was loaded.
	log.LoadTraceSetting()

	applyEnvDefault(RootCmd, "tolerance", toleranceEnv)
	applyEnvDefault(RootCmd, "format", formatEnv)
}
