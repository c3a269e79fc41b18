package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/agentsystems/notary-bundler/internal/log"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	HTTPPort          int
	AdminPort         int
	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	// DrainSeconds is how long the queue worker keeps pulling and
	// submitting batches after a shutdown signal before giving up.
	DrainSeconds int
	// ShutdownBudgetSeconds bounds how long graceful shutdown of the
	// HTTP servers is allowed to take before the process exits anyway.
	ShutdownBudgetSeconds int

	// APIKey, when set, is required on every POST /v1/items request via
	// the x-api-key header. Empty means open ingress.
	APIKey string
	// IngestMaxBodyBytes caps the ingest request body, well above the
	// validator's size ceiling so SizeExceeded (not a body-cap
	// truncation) is the rejection reason for an oversized DataItem.
	IngestMaxBodyBytes int64

	// QueueConfigSSMParam names the SSM parameter holding the active
	// "<kms-key-arn>:<queue-name>" operator config pointer.
	QueueConfigSSMParam string
	// DeadLetterS3Bucket/Prefix locate the archive for batches that
	// fail to submit.
	DeadLetterS3Bucket string
	DeadLetterS3Prefix string

	// ChainGatewayURL is the base URL the signed wrapping L1 transaction
	// is POSTed to. Deep internals of the gateway/RPC protocol are out
	// of scope; this is only the submission endpoint.
	ChainGatewayURL string

	// QueueBufferCapacity bounds the in-process local queue transport
	// (internal/queue.LocalTransport); Publish blocks once full.
	QueueBufferCapacity int
	// QueueBatchSize is the max number of envelopes assembled into one
	// bundle per batch.
	QueueBatchSize int
	// QueueFlushSeconds bounds how long a partial batch waits for more
	// envelopes before it is assembled and submitted anyway.
	QueueFlushSeconds int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds the queue worker keeps draining in-flight batches on shutdown")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 30, "seconds allowed for graceful HTTP shutdown before exit")
	fs.StringVar(&c.APIKey, "api-key", "", "x-api-key value required on ingest requests (empty disables auth)")
	fs.Int64Var(&c.IngestMaxBodyBytes, "ingest-max-body-bytes", 1<<20, "max ingest request body size in bytes")
	fs.StringVar(&c.QueueConfigSSMParam, "queue-config-ssm-param", "/app/notary-bundler/operator-config", "ssm parameter name holding \"<kms-key-arn>:<queue-name>\"")
	fs.StringVar(&c.DeadLetterS3Bucket, "dead-letter-s3-bucket", "", "s3 bucket for dead-letter batch archives")
	fs.StringVar(&c.DeadLetterS3Prefix, "dead-letter-s3-prefix", "notary-bundler/dead-letter", "s3 key prefix for dead-letter batch archives")
	fs.StringVar(&c.ChainGatewayURL, "chain-gateway-url", "", "base url the signed wrapping transaction is posted to")
	fs.IntVar(&c.QueueBufferCapacity, "queue-buffer-capacity", 1024, "local queue transport buffer capacity (envelopes)")
	fs.IntVar(&c.QueueBatchSize, "queue-batch-size", 50, "max envelopes assembled into one bundle per batch")
	fs.IntVar(&c.QueueFlushSeconds, "queue-flush-seconds", 10, "max seconds a partial batch waits before it is assembled anyway")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App, hasProvenance bool) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if c.DrainSeconds < 1 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be >= 1)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds < 1 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be >= 1)", c.ShutdownBudgetSeconds))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
	}

	// Pyroscope tenant
	if c.EnablePyroscope {
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Error link limits
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	if c.QueueConfigSSMParam == "" {
		errs = append(errs, fmt.Errorf("QUEUE_CONFIG_SSM_PARAM is required"))
	}
	if c.DeadLetterS3Bucket == "" {
		errs = append(errs, fmt.Errorf("DEAD_LETTER_S3_BUCKET is required"))
	}
	if c.DeadLetterS3Prefix == "" {
		errs = append(errs, fmt.Errorf("DEAD_LETTER_S3_PREFIX is required"))
	}
	if c.IngestMaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("invalid INGEST_MAX_BODY_BYTES %d (must be >= 1)", c.IngestMaxBodyBytes))
	}
	if c.ChainGatewayURL == "" {
		errs = append(errs, fmt.Errorf("CHAIN_GATEWAY_URL is required"))
	}
	if c.QueueBufferCapacity < 1 {
		errs = append(errs, fmt.Errorf("invalid QUEUE_BUFFER_CAPACITY %d (must be >= 1)", c.QueueBufferCapacity))
	}
	if c.QueueBatchSize < 1 {
		errs = append(errs, fmt.Errorf("invalid QUEUE_BATCH_SIZE %d (must be >= 1)", c.QueueBatchSize))
	}
	if c.QueueFlushSeconds < 1 {
		errs = append(errs, fmt.Errorf("invalid QUEUE_FLUSH_SECONDS %d (must be >= 1)", c.QueueFlushSeconds))
	}

	// Fail-closed: release builds must run with an operator config pointer
	// configured. Dev builds without ldflags never reach this path, same
	// as the donor's HasProvenance() gate on its own signing-key checks.
	if hasProvenance {
		if c.QueueConfigSSMParam == "" {
			return fmt.Errorf("release build requires queue-config-ssm-param")
		}
		if c.DeadLetterS3Bucket == "" {
			return fmt.Errorf("release build requires dead-letter-s3-bucket")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
