package dine

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPhil/cmd/util"
	"github.com/ValentinKolb/dPhil/lib/common"
	"github.com/ValentinKolb/dPhil/lib/table"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

var (
	Logger = logger.GetLogger("cmd")

	dineConfig table.Config
	DineCmd    = &cobra.Command{
		Use:   "dine",
		Short: "Seat agents around the table and let them eat",
		Long: `Seat agents around a ring of shared resources. Every agent thinks, gets hungry and eats
with both resources next to it. The run ends when every agent reached the meal limit, the duration
elapsed or the process is interrupted (SIGINT, SIGTERM); agents that are eating finish their meal first.
The configuration can be set via command line flags or environment variables. The format of the
environment variables is DPHIL_<flag> (e.g. DPHIL_EAT=500ms)`,
		PreRunE:      processConfig,
		RunE:         run,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupTableFlags(DineCmd)

	key := "metrics-endpoint"
	DineCmd.Flags().String(key, "", util.WrapString("Address to serve Prometheus metrics on while the table runs (e.g. localhost:9090, empty to disable)"))
}

// processConfig reads the flags and environment variables into the table configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	conf, err := util.GetTableConfig()
	if err != nil {
		return err
	}
	dineConfig = conf
	return nil
}

// run seats the agents and prints the final tallies
func run(cmd *cobra.Command, _ []string) error {
	tbl, err := table.NewTable(dineConfig)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "dPhil run %s\n%s\n", tbl.RunID(), dineConfig.String())

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		srv, _, err := serveMetrics(endpoint, tbl.Metrics())
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := tbl.Run(ctx)
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
}

// printReport writes the tallies to out and a diagnostic for every failed agent to errOut.
// It returns an error if any agent failed.
func printReport(out, errOut io.Writer, report *table.Report) error {
	fmt.Fprintf(out, "\n%s", report.String())

	failed := report.Failed()
	for _, a := range failed {
		fmt.Fprintf(errOut, "agent %d exited with status %d: %v\n", a.ID, a.ExitStatus(), a.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d agents failed", len(failed), len(report.Agents))
	}
	return nil
}

// serveMetrics exposes the metric set and the process metrics on /metrics.
// It returns the address it listens on, which differs from endpoint for port 0.
func serveMetrics(endpoint string, set *metrics.Set) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen for metrics on %s: %w", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		set.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	srv := &http.Server{Addr: endpoint, Handler: mux}
	go func() {
		Logger.Infof("serving metrics on http://%s/metrics", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()
	return srv, ln.Addr(), nil
}

