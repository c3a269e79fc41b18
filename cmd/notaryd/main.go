package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/agentsystems/notary-bundler/internal/cfg"
	"github.com/agentsystems/notary-bundler/internal/health"
	"github.com/agentsystems/notary-bundler/internal/httpserver"
	"github.com/agentsystems/notary-bundler/internal/ingest"
	"github.com/agentsystems/notary-bundler/internal/log"
	"github.com/agentsystems/notary-bundler/internal/metrics"
	"github.com/agentsystems/notary-bundler/internal/opshttp"
	"github.com/agentsystems/notary-bundler/internal/otelx"
	"github.com/agentsystems/notary-bundler/internal/prof"
	"github.com/agentsystems/notary-bundler/internal/queue"
	"github.com/agentsystems/notary-bundler/internal/ratelimit"
	v "github.com/agentsystems/notary-bundler/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var conf cfg.App
	cfg.Register(fs, &conf)
	fs.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if showVersion {
		vi := v.Get()
		fmt.Printf(
			"notary-bundler %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(fs, "NOTARY_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	vi := v.Get()
	if err := cfg.Validate(conf, vi.HasProvenance()); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %s: %v\n", conf.LogLevel, err)
		os.Exit(1)
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           v.Version,
		Commit:            v.Commit,
		BuildId:           v.BuildId,
		Level:             lvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	L := lg.With("component", "notaryd")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_tracing", conf.EnableTracing,
		"queue_config_ssm_param", conf.QueueConfigSSMParam,
		"dead_letter_s3_bucket", conf.DeadLetterS3Bucket,
		"chain_gateway_url", conf.ChainGatewayURL,
	)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "notaryd",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"build_id":  vi.BuildId,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "notaryd",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		L.Error(ctx, err, "failed to load aws config")
		os.Exit(1)
	}
	ssmClient := ssm.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)
	kmsClient := kms.NewFromConfig(awsCfg)

	opCfg, err := queue.ResolveOperatorConfig(ctx, ssmClient, conf.QueueConfigSSMParam)
	if err != nil {
		L.Error(ctx, err, "failed to resolve operator config from ssm", "ssm_param", conf.QueueConfigSSMParam)
		os.Exit(1)
	}
	L.Info(ctx, "resolved operator config", "queue_name", opCfg.QueueName)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "notaryd", vi)
	m.SetProfilingActive(conf.EnablePprof)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe())

	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(10, 30),
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "ratelimit: ip rate limited", "remote_ip", ip)
		}),
		ratelimit.WithOnDenied(func(string) {
			m.IncRateLimitDenied()
		}),
	)

	transport := queue.NewLocalTransport(conf.QueueBufferCapacity)
	publisher := &queue.Publisher{Transport: transport}

	ingestHandler := &ingest.Handler{
		Publisher:    publisher,
		Logger:       L,
		Metrics:      m,
		APIKey:       conf.APIKey,
		MaxBodyBytes: conf.IngestMaxBodyBytes,
	}

	ingestHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
	}, ingestHandler)
	if err != nil {
		L.Error(ctx, err, "failed to start ingest http listener")
		os.Exit(1)
	}
	defer func() { _ = ingestHTTPStop(context.Background()) }()

	submitter := newGatewaySubmitter(kmsClient, opCfg.KeyARN, conf.ChainGatewayURL)
	deadLetter := &queue.DeadLetterArchiver{
		Client: s3Client,
		Bucket: conf.DeadLetterS3Bucket,
		Prefix: conf.DeadLetterS3Prefix,
	}
	consumer := &queue.BatchConsumer{
		Submitter:  submitter,
		DeadLetter: deadLetter,
		Logger:     L,
		Metrics:    m,
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		transport.Run(
			workerCtx,
			conf.QueueBatchSize,
			time.Duration(conf.QueueFlushSeconds)*time.Second,
			L,
			consumer.ProcessBatch,
		)
	}()

	addr := os.Getenv("NOTIFY_SOCKET")
	if addr != "" {
		if conn, err := net.Dial("unixgram", addr); err != nil {
			L.Warn(ctx, "systemd notify failed: dial failed", "notify_socket", addr, "error", err)
		} else {
			_, _ = conn.Write([]byte("READY=1"))
			conn.Close()
			L.Info(ctx, "sent systemd READY notification")
		}
	}

	<-ctx.Done()
	L.Info(context.Background(), "shutdown signal received")

	gate.Set("draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ShutdownBudgetSeconds)*time.Second)
	defer cancel()

	if err := ingestHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ingest http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), time.Duration(conf.DrainSeconds)*time.Second)
	cancelWorker()
	select {
	case <-workerDone:
	case <-drainCtx.Done():
		L.Warn(context.Background(), "queue worker drain timed out")
	}
	cancelDrain()

	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}
