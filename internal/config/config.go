package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	RegionID    string
	LogLevel    string

	TemporalAddress       string
	TemporalNamespace     string
	TemporalTaskQueue     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	HTTPListenAddr string
	MetricsAddr    string

	AWSRegion          string
	AWSEndpointURL     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Failover targets.
	DBInstanceIdentifier string
	JenkinsASGName       string
	MonitoringASGName    string
	ExtraASGNames        []string
	ASGMinSize           int32
	ASGMaxSize           int32
	ASGDesiredCapacity   int32
	ECSClusterName       string
	ECSServices          []string
	ECSDesiredCount      int32
	TargetGroupsJSON     string
	TargetGroupsFile     string
	DefaultTargetPort    int32
	MaxParallel          int

	// DBWaitInterval and DBWaitMaxAttempts bound the wait for a promoted
	// replica to become available.
	DBWaitInterval    time.Duration
	DBWaitMaxAttempts int

	WebhookURL      string
	WebhookTemplate string
	ReportBucket    string
}

func Load() (*Config, error) {
	var errs []string
	intVar := func(key string, fallback int) int {
		v, err := getEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	int32Var := func(key string, fallback int32) int32 {
		v, err := getEnvInt32(key, fallback)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "dr-failover"),
		RegionID:    getEnv("REGION_ID", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue:     getEnv("TEMPORAL_TASK_QUEUE", "dr-failover"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:    getEnv("METRICS_ADDR", ""),

		AWSRegion:          getEnv("AWS_REGION", getEnv("AWS_DEFAULT_REGION", "")),
		AWSEndpointURL:     getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		DBInstanceIdentifier: getEnv("DB_INSTANCE_IDENTIFIER", ""),
		JenkinsASGName:       getEnv("JENKINS_ASG_NAME", ""),
		MonitoringASGName:    getEnv("MONITORING_ASG_NAME", ""),
		ExtraASGNames:        splitList(getEnv("EXTRA_ASG_NAMES", "")),
		ASGMinSize:           int32Var("ASG_MIN_SIZE", 1),
		ASGMaxSize:           int32Var("ASG_MAX_SIZE", 3),
		ASGDesiredCapacity:   int32Var("ASG_DESIRED_CAPACITY", 1),
		ECSClusterName:       getEnv("ECS_CLUSTER_NAME", ""),
		ECSServices:          splitList(getEnv("ECS_SERVICES", "")),
		ECSDesiredCount:      int32Var("ECS_DESIRED_COUNT", 1),
		TargetGroupsJSON:     getEnv("TARGET_GROUPS", ""),
		TargetGroupsFile:     getEnv("TARGET_GROUPS_FILE", ""),
		DefaultTargetPort:    int32Var("DEFAULT_TARGET_PORT", 80),
		MaxParallel:          intVar("FAILOVER_MAX_PARALLEL", 1),

		DBWaitMaxAttempts: intVar("DB_WAIT_MAX_ATTEMPTS", 60),

		WebhookURL:      getEnv("FAILOVER_WEBHOOK_URL", ""),
		WebhookTemplate: getEnv("FAILOVER_WEBHOOK_TEMPLATE", "generic"),
		ReportBucket:    getEnv("FAILOVER_REPORT_BUCKET", ""),
	}

	interval, err := time.ParseDuration(getEnv("DB_WAIT_INTERVAL", "30s"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("DB_WAIT_INTERVAL: %v", err))
	}
	cfg.DBWaitInterval = interval

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks that the fields required by the given component are set.
func (c *Config) Validate(component string) error {
	var missing []string

	switch component {
	case "failover-worker", "failover-api":
		if c.TemporalAddress == "" {
			missing = append(missing, "TEMPORAL_ADDRESS")
		}
		if c.TemporalTaskQueue == "" {
			missing = append(missing, "TEMPORAL_TASK_QUEUE")
		}
		if component == "failover-api" && c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set or both be empty")
	}
	if c.DBWaitInterval <= 0 || c.DBWaitMaxAttempts <= 0 {
		return fmt.Errorf("DB_WAIT_INTERVAL and DB_WAIT_MAX_ATTEMPTS must be positive")
	}
	switch c.WebhookTemplate {
	case "generic", "slack":
	default:
		return fmt.Errorf("FAILOVER_WEBHOOK_TEMPLATE must be generic or slack, got %q", c.WebhookTemplate)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// getEnvInt32 parses an int32 variable. Values outside the int32 range are
// reported rather than truncated.
func getEnvInt32(key string, fallback int32) (int32, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return fallback, fmt.Errorf("%s: %q is out of range", key, v)
	}
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return int32(n), nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
