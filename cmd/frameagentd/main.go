// Command frameagentd is the render-farm host agent daemon: it exposes
// the Control Plane's gRPC service, runs the Proc Sampler and Frame
// Registry grace reaper in the background, and, once the host goes idle,
// logs the command for a pending host action (shutdown/restart/reboot);
// the command itself is not run.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/arctir/frameagent/config"
	"github.com/arctir/frameagent/controlplane"
	"github.com/arctir/frameagent/debugui"
	"github.com/arctir/frameagent/frame"
	"github.com/arctir/frameagent/hostfacts"
	"github.com/arctir/frameagent/lockmgr"
	"github.com/arctir/frameagent/logging"
	"github.com/arctir/frameagent/reaper"
	"github.com/arctir/frameagent/registry"
	"github.com/arctir/frameagent/rqdpb"
	"github.com/arctir/frameagent/sampler"
)

var configPath string

// envSource adapts config and hostfacts into controlplane.EnvironmentSource.
type envSource struct {
	cfg   *config.Config
	facts *hostfacts.Detector
}

func (e envSource) BaseEnvironment() frame.BaseEnvironmentInputs {
	facts, err := e.facts.Detect()
	gpuMem := int64(0)
	home := os.Getenv("HOME")
	logname := os.Getenv("LOGNAME")
	if err == nil {
		gpuMem = int64(facts.GPUMemoryBytes)
	}
	return frame.BaseEnvironmentInputs{
		PATH:           e.cfg.Environment.Linux.PATH,
		Timezone:       localTimezone(e.facts),
		LogName:        logname,
		Home:           home,
		GPUMemoryBytes: gpuMem,
	}
}

func localTimezone(d *hostfacts.Detector) string {
	facts, err := d.Detect()
	if err != nil {
		return "UTC"
	}
	return facts.Timezone
}

func main() {
	root := &cobra.Command{
		Use:   "frameagentd",
		Short: "Render-farm host agent daemon",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/frameagentd/frameagentd.yaml", "path to frameagentd's YAML config file")

	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the frameagentd daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfigOrDefault(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Daemon.Log.Path)
	if err != nil {
		return fmt.Errorf("frameagentd: build logger: %w", err)
	}
	defer log.Sync()

	facts := hostfacts.NewDetector(hostfacts.Paths{
		PathInitTarget:     cfg.Machine.Linux.PathInitTarget,
		PathInittab:        cfg.Machine.Linux.PathInittab,
		PathInittabDefault: cfg.Machine.Linux.PathInittabDefault,
		DisplaysPath:       cfg.Machine.Linux.DisplaysPath,
	})

	reg := registry.New(time.Duration(cfg.Frame.GraceTerminalSeconds) * time.Second)
	locks := lockmgr.New(runtime.NumCPU(), facts, reg)

	watcher := reaper.New(log)
	watcher.Start()
	defer watcher.Stop()

	hostFacts, err := facts.Detect()
	if err != nil {
		return fmt.Errorf("frameagentd: detect host facts: %w", err)
	}

	samp := sampler.New(sampler.Config{
		Interval:    time.Duration(cfg.Sampler.IntervalSeconds) * time.Second,
		SystemHertz: hostFacts.SystemHertz,
		BootTime:    time.Unix(hostFacts.BootTime, 0),
	}, reg, reg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopGraceReaper := make(chan struct{})
	go reg.RunGraceReaper(10*time.Second, stopGraceReaper, samp.Forget)
	defer close(stopGraceReaper)

	go samp.Run(ctx)

	cp := controlplane.New(log, reg, locks, facts, watcher, envSource{cfg: cfg, facts: facts})
	go runIdleActionMonitor(ctx, cp, log)

	grpcServer := grpc.NewServer()
	rqdpb.RegisterRqdServer(grpcServer, cp)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("frameagentd: listen: %w", err)
	}

	ui := debugui.New(log, reg, locks)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port+1)
		if err := http.ListenAndServe(addr, ui.Handler()); err != nil {
			log.Warn("debugui: listener exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("frameagentd: shutting down on signal")
		grpcServer.GracefulStop()
	}()

	log.Info("frameagentd: listening", zap.String("addr", lis.Addr().String()), zap.Int("total_cores", locks.State().TotalCores))
	return grpcServer.Serve(lis)
}

// runIdleActionMonitor polls whether a pending idle host action (set via
// the *Idle RPCs) can now be carried out. Once the host has drained to
// zero running frames it logs the matching OS-level command and stops;
// the command is not executed.
func runIdleActionMonitor(ctx context.Context, cp *controlplane.Server, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action, ready := cp.IdleActionReady()
			if !ready {
				continue
			}
			log.Info("frameagentd: host idle, carrying out pending action", zap.String("action", action.String()))
			performHostAction(action, log)
			return
		}
	}
}

func performHostAction(action lockmgr.PendingAction, log *zap.Logger) {
	var cmdArgs []string
	switch action {
	case lockmgr.ActionShutdown:
		cmdArgs = []string{"shutdown", "-h", "now"}
	case lockmgr.ActionRestart:
		cmdArgs = []string{"systemctl", "restart", "frameagentd"}
	case lockmgr.ActionReboot:
		cmdArgs = []string{"shutdown", "-r", "now"}
	default:
		return
	}
	log.Warn("frameagentd: executing host action", zap.Strings("command", cmdArgs))
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(unwrapPathError(err)) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("frameagentd: load config: %w", err)
	}
	return cfg, nil
}

func unwrapPathError(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}

func statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running frameagentd over gRPC and print a host report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "frameagentd gRPC address")
	return cmd
}

func runStatus(addr string) error {
	conn, err := grpc.Dial(addr, grpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("frameagentd: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := rqdpb.NewRqdClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := client.ReportStatus(ctx, &rqdpb.ReportStatusRequest{})
	if err != nil {
		return fmt.Errorf("frameagentd: report status: %w", err)
	}

	fmt.Printf("host=%s boot_time=%d total_cores=%d locked_cores=%d nimby_on=%v pending_action=%s load_avg=%.2f free_mem=%d\n",
		report.Hostname, report.BootTimeEpoch, report.TotalCores, report.LockedCores, report.NimbyOn, report.PendingAction, report.LoadAverage, report.FreeMemoryBytes)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Frame ID", "RSS", "Max RSS", "PCPU", "Read Bytes", "Write Bytes"})
	for _, f := range report.Frames {
		table.Append([]string{
			f.FrameId,
			fmt.Sprintf("%d", f.Rss),
			fmt.Sprintf("%d", f.MaxRss),
			fmt.Sprintf("%.2f", f.Pcpu),
			fmt.Sprintf("%d", f.ReadBytes),
			fmt.Sprintf("%d", f.WriteBytes),
		})
	}
	table.Render()
	return nil
}
