package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultBaseURL     = "https://www.yhdm6.top"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultConcurrency = 4
	DefaultListen      = "127.0.0.1:8080"
	DefaultLogLevel    = "info"
)

// 自动发现时按顺序尝试的文件名（位于 cwd）。
var discoverNames = []string{"yhdm.toml", "yhdm.json"}

// CLIArgs 是 CLI 暴露的覆盖项，保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	LogLevel    string
	LogLevelSet bool

	Concurrency    int
	ConcurrencySet bool

	Listen    string
	ListenSet bool
}

// FileConfig 对应 yhdm.toml / yhdm.json 的解析结构。
type FileConfig struct {
	BaseURL        string       `json:"base_url" toml:"base_url"`
	PlayerBaseURL  string       `json:"player_base_url" toml:"player_base_url"`
	UserAgent      string       `json:"user_agent" toml:"user_agent"`
	Proxy          *ProxyConfig `json:"proxy" toml:"proxy"`
	TLSFingerprint string       `json:"tls_fingerprint" toml:"tls_fingerprint"`
	Concurrency    int          `json:"concurrency" toml:"concurrency"`
	CacheDir       string       `json:"cache_dir" toml:"cache_dir"`
	LogLevel       string       `json:"log_level" toml:"log_level"`
	Listen         string       `json:"listen" toml:"listen"`
}

type ProxyConfig struct {
	URL string `json:"url" toml:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（构造后只读）。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件；全部使用默认值时为空。
	Source string

	BaseURL       string
	PlayerBaseURL string
	UserAgent     string

	ProxyURL       string
	TLSFingerprint string

	Concurrency int
	CacheDir    string
	LogLevel    string
	Listen      string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则依次尝试 <cwd>/yhdm.toml、<cwd>/yhdm.json（都可选）
//
// 覆盖优先级：CLI > 配置文件 > 内置默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath := absCleanFrom(cwdAbs, p)
		fc, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		return merge(cwdAbs, cli, fc, cfgPath)
	}

	for _, name := range discoverNames {
		cfgPath := filepath.Join(cwdAbs, name)
		fc, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if exists {
			return merge(cwdAbs, cli, fc, cfgPath)
		}
	}
	return merge(cwdAbs, cli, FileConfig{}, "")
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(fc.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := validateHTTPURL(baseURL); err != nil {
		return EffectiveConfig{}, invalid("base_url 无效：%v", err)
	}

	// 解码端点默认与站点同域。
	playerBaseURL := strings.TrimRight(strings.TrimSpace(fc.PlayerBaseURL), "/")
	if playerBaseURL == "" {
		playerBaseURL = baseURL
	}
	if err := validateHTTPURL(playerBaseURL); err != nil {
		return EffectiveConfig{}, invalid("player_base_url 无效：%v", err)
	}

	ua := strings.TrimSpace(fc.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return EffectiveConfig{}, invalid("proxy.url 只支持 http/https/socks5，实际是 %q", u.Scheme)
		}
	}

	fp := strings.ToLower(strings.TrimSpace(fc.TLSFingerprint))
	switch fp {
	case "", "chrome":
	default:
		return EffectiveConfig{}, invalid("tls_fingerprint 只能是空或 chrome，实际是 %q", fc.TLSFingerprint)
	}
	if fp != "" && proxyURL != "" {
		return EffectiveConfig{}, invalid("tls_fingerprint 与 proxy.url 不能同时启用")
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	logLevel := strings.ToLower(strings.TrimSpace(fc.LogLevel))
	if cli.LogLevelSet {
		logLevel = strings.ToLower(strings.TrimSpace(cli.LogLevel))
	}
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log_level 只能是 debug/info/warn/error，实际是 %q", logLevel)
	}

	listen := strings.TrimSpace(fc.Listen)
	if cli.ListenSet {
		listen = strings.TrimSpace(cli.Listen)
	}
	if listen == "" {
		listen = DefaultListen
	}

	cacheDir := ""
	if strings.TrimSpace(fc.CacheDir) != "" {
		cacheDir = absCleanFrom(cwdAbs, fc.CacheDir)
	}

	return EffectiveConfig{
		Source:         cfgPath,
		BaseURL:        baseURL,
		PlayerBaseURL:  playerBaseURL,
		UserAgent:      ua,
		ProxyURL:       proxyURL,
		TLSFingerprint: fp,
		Concurrency:    concurrency,
		CacheDir:       cacheDir,
		LogLevel:       logLevel,
		Listen:         listen,
	}, nil
}

func validateHTTPURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", s)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件；按扩展名选择 TOML 或 JSON。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, err
		}
		return fc, true, nil
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
