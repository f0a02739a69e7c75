package configloader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2/google"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envLogLevel       = "LOG_LEVEL"
	envDatabaseURL    = "DATABASE_URL"
	envPort           = "PORT"
	envProject        = "GOOGLE_CLOUD_PROJECT"

	envRawApplicantBucket       = "RAW_APPLICANT_VIDEO_BUCKET"
	envRawStartupBucket         = "RAW_STARTUP_VIDEO_BUCKET"
	envProcessedApplicantBucket = "PROCESSED_APPLICANT_VIDEO_BUCKET"
	envProcessedStartupBucket   = "PROCESSED_STARTUP_VIDEO_BUCKET"
	envLocalRawPath             = "LOCAL_RAW_VIDEO_PATH"
	envLocalProcessedPath       = "LOCAL_PROCESSED_VIDEO_PATH"
	envPubSubSubscription       = "PUBSUB_SUBSCRIPTION"
	envPubSubTopic              = "PUBSUB_TOPIC"
	envPubSubEmulator           = "PUBSUB_EMULATOR_HOST"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
}

// ServiceMetadata 保存服务标识信息，供日志组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
	LogLevel    string
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Config  RuntimeConfig
	Service ServiceMetadata
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// Build 从配置文件构建 Bundle。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 加载 YAML 配置并扫描到 RuntimeConfig
// 3. 应用环境变量覆盖与默认值
// 4. 执行 validator 校验
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	cfg, err := loadRuntimeConfig(confPath)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Config:  *cfg,
		Service: buildServiceMetadata(),
	}, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// loadRuntimeConfig 从指定路径加载并校验配置。
//
// 错误阶段：
//   - "load": 文件读取失败
//   - "scan": YAML 解析失败或类型不匹配
//   - "validate": 必填字段缺失、约束不满足
func loadRuntimeConfig(confPath string) (*RuntimeConfig, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var rc RuntimeConfig
	if err := c.Scan(&rc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&rc)
	fillDefaults(&rc)

	if err := Validate(&rc); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return &rc, nil
}

// Validate 使用 struct tag 校验配置完整性。
func Validate(rc *RuntimeConfig) error {
	if rc == nil {
		return errors.New("runtime config is nil")
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(rc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return validateSweepWindow(rc)
}

// validateSweepWindow 要求 sweeper.max_age 长于单次运行的上限（审核超时 + 请求超时）。
func validateSweepWindow(rc *RuntimeConfig) error {
	if !rc.Sweeper.Enabled {
		return nil
	}
	budget := rc.Moderation.Timeout.Std() + rc.Server.Timeout.Std()
	if rc.Moderation.Timeout <= 0 {
		return errors.New("sweeper.enabled requires a positive moderation.timeout")
	}
	if rc.Sweeper.MaxAge.Std() <= budget {
		return fmt.Errorf("sweeper.max_age (%s) must exceed moderation.timeout + server.timeout (%s)", rc.Sweeper.MaxAge.Std(), budget)
	}
	return nil
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的特定字段，环境变量为空时保留原值。
//
// bucket 与本地目录的环境变量名与现有部署清单保持一致。
func applyEnvOverrides(rc *RuntimeConfig) {
	if rc == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		rc.Database.DSN = dsn
	}
	// Cloud Run 通过 $PORT 动态分配端口
	if port := os.Getenv(envPort); port != "" {
		rc.Server.Address = replacePort(rc.Server.Address, port)
	}
	if project := os.Getenv(envProject); project != "" && rc.Storage.ProjectID == "" {
		rc.Storage.ProjectID = project
	}
	overrideString(&rc.Storage.RawApplicantBucket, envRawApplicantBucket)
	overrideString(&rc.Storage.RawStartupBucket, envRawStartupBucket)
	overrideString(&rc.Storage.ProcessedApplicantBucket, envProcessedApplicantBucket)
	overrideString(&rc.Storage.ProcessedStartupBucket, envProcessedStartupBucket)
	overrideString(&rc.Staging.RawDir, envLocalRawPath)
	overrideString(&rc.Staging.ProcessedDir, envLocalProcessedPath)
	overrideString(&rc.Messaging.SubscriptionID, envPubSubSubscription)
	overrideString(&rc.Messaging.TopicID, envPubSubTopic)
	overrideString(&rc.Messaging.EmulatorEndpoint, envPubSubEmulator)
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ResolveProjectID 返回显式配置的项目 ID，缺省时回退到 Application Default Credentials。
func ResolveProjectID(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return "", fmt.Errorf("find default credentials: %w", err)
	}
	if creds.ProjectID == "" {
		return "", errors.New("project id not configured and not present in default credentials")
	}
	return creds.ProjectID, nil
}

func buildServiceMetadata() ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(os.Getenv(envServiceName), defaultServiceName),
		Version:     firstNonEmpty(os.Getenv(envServiceVersion), defaultVersion),
		Environment: firstNonEmpty(os.Getenv(envAppEnv), defaultEnvironment),
		InstanceID:  host,
		LogLevel:    os.Getenv(envLogLevel),
	}
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按 confPath 目录 -> 当前工作目录的顺序查找 .env.local/.env，
// 仅返回实际存在的文件。godotenv 不会覆盖已设置的变量，因此先出现的优先。
func envFileCandidates(confPath string) []string {
	dirs := orderedDirs(confPath)
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range dirs {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}

	return dirs
}

// replacePort 替换地址中的端口部分，保留 host。
//   - "0.0.0.0:3000" -> "0.0.0.0:8080"
//   - "[::1]:3000" -> "[::1]:8080"
func replacePort(addr, newPort string) string {
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}
