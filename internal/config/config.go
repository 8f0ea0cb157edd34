package config

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bashhack/gitupdate/internal/classify"
	"github.com/bashhack/gitupdate/internal/constants"
	gitupdateErrors "github.com/bashhack/gitupdate/internal/errors"
	"github.com/bashhack/gitupdate/internal/git"
	"github.com/spf13/viper"
)

// Configuration keys, as written in TOML files and passed as overrides.
const (
	KeyRepo             = "repo"
	KeyRemoteName       = "remote.name"
	KeyRemoteURL        = "remote.url"
	KeyRemoteBranch     = "remote.branch"
	KeyBreakingPatterns = "breaking.patterns"
	KeyKeepLocalChanges = "update.keep-local-changes"
	KeyNonInteractive   = "non-interactive"
	KeyVerbose          = "verbose"
	KeyDebug            = "debug"
	KeyLogFile          = "log-file"
)

const (
	// ProjectConfigFile is looked up in the repository root.
	ProjectConfigFile = ".gitupdate.toml"

	envPrefix = "GITUPDATE"
)

// Config holds all gitupdate settings.
// It combines defaults, configuration files, environment variables and
// command-line flags, in increasing order of precedence.
type Config struct {
	// RepoPath is the repository to update.
	// If empty, the current working directory is used.
	RepoPath string

	// RemoteName is the configured remote to fetch from when RemoteURL is empty.
	RemoteName string

	// RemoteURL, when set, is fetched from directly instead of RemoteName.
	RemoteURL string

	// Branch is the remote branch to follow.
	Branch string

	// BreakingPatterns are the regular expressions that mark a commit message
	// as a breaking change.
	BreakingPatterns []string

	// Patterns is BreakingPatterns compiled by Finalize.
	Patterns classify.PatternSet

	// KeepLocalChanges reapplies the user's uncommitted changes on top of the
	// new head after an update.
	KeepLocalChanges bool

	// NonInteractive declines every prompt instead of asking.
	NonInteractive bool

	// Verbose controls the amount of informational output.
	Verbose bool

	// Debug enables the debug log file.
	Debug bool

	// LogFile specifies where to write debug logs.
	// If empty, a per-repository file under the XDG data directory is used.
	LogFile string

	// VersionInfo is injected at build time.
	VersionInfo VersionInfo
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		RemoteName:       constants.DefaultRemote,
		Branch:           constants.DefaultBranch,
		BreakingPatterns: append([]string(nil), constants.DefaultBreakingPatterns...),
		KeepLocalChanges: true,
		Verbose:          true,
		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
	}
}

type loadSettings struct {
	workingDir        string
	userConfigPath    string
	projectConfigPath string
	overrides         map[string]any
}

// Option configures Load. Useful for tests to override paths.
type Option func(*loadSettings)

// WithWorkingDir overrides the directory used when no repository is configured.
func WithWorkingDir(dir string) Option {
	return func(s *loadSettings) {
		s.workingDir = dir
	}
}

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(s *loadSettings) {
		s.userConfigPath = path
	}
}

// WithProjectConfig explicitly sets the project config path instead of
// looking for ProjectConfigFile in the repository.
func WithProjectConfig(path string) Option {
	return func(s *loadSettings) {
		s.projectConfigPath = path
	}
}

// WithOverrides injects values typically coming from CLI flags. They take
// precedence over every other source.
func WithOverrides(overrides map[string]any) Option {
	return func(s *loadSettings) {
		if s.overrides == nil {
			s.overrides = make(map[string]any, len(overrides))
		}
		for k, v := range overrides {
			s.overrides[k] = v
		}
	}
}

// Load reads configuration using the precedence:
// defaults < user config < project config < environment variables < overrides.
//
// The returned Config still needs Finalize.
func Load(opts ...Option) (*Config, error) {
	settings := loadSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	workingDir := strings.TrimSpace(settings.workingDir)
	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, gitupdateErrors.NewConfigError(KeyRepo, nil,
				gitupdateErrors.Wrap(err, "failed to get current directory"))
		}
		workingDir = wd
	}

	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		userConfigPath = defaultUserConfigPath()
	}

	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return nil, gitupdateErrors.NewConfigError("user config", userConfigPath, err)
	}

	// The project file lives in the repository, so find the repository first.
	repo := v.GetString(KeyRepo)
	if r, ok := settings.overrides[KeyRepo].(string); ok && r != "" {
		repo = r
	}
	if repo == "" {
		repo = workingDir
	}

	projectConfigPath := strings.TrimSpace(settings.projectConfigPath)
	if projectConfigPath == "" {
		projectConfigPath = filepath.Join(repo, ProjectConfigFile)
	}
	if err := mergeConfigFile(v, projectConfigPath); err != nil {
		return nil, gitupdateErrors.NewConfigError("project config", projectConfigPath, err)
	}

	for k, val := range settings.overrides {
		v.Set(k, val)
	}

	cfg := New()
	cfg.RepoPath = v.GetString(KeyRepo)
	if cfg.RepoPath == "" {
		cfg.RepoPath = workingDir
	}
	cfg.RemoteName = v.GetString(KeyRemoteName)
	cfg.RemoteURL = v.GetString(KeyRemoteURL)
	cfg.Branch = v.GetString(KeyRemoteBranch)
	cfg.BreakingPatterns = v.GetStringSlice(KeyBreakingPatterns)
	cfg.KeepLocalChanges = v.GetBool(KeyKeepLocalChanges)
	cfg.NonInteractive = v.GetBool(KeyNonInteractive)
	cfg.Verbose = v.GetBool(KeyVerbose)
	cfg.Debug = v.GetBool(KeyDebug)
	cfg.LogFile = v.GetString(KeyLogFile)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepo, "")
	v.SetDefault(KeyRemoteName, constants.DefaultRemote)
	v.SetDefault(KeyRemoteURL, "")
	v.SetDefault(KeyRemoteBranch, constants.DefaultBranch)
	v.SetDefault(KeyBreakingPatterns, constants.DefaultBreakingPatterns)
	v.SetDefault(KeyKeepLocalChanges, true)
	v.SetDefault(KeyNonInteractive, false)
	v.SetDefault(KeyVerbose, true)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogFile, "")
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// defaultUserConfigPath follows the XDG Base Directory Specification.
func defaultUserConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "gitupdate", "config.toml")
}

// Source returns what to fetch from: the URL when one is configured,
// otherwise the remote name.
func (c *Config) Source() string {
	if c.RemoteURL != "" {
		return c.RemoteURL
	}
	return c.RemoteName
}

// Finalize validates and finalizes the configuration
func (c *Config) Finalize() error {
	if c.RepoPath == "" {
		var err error
		c.RepoPath, err = os.Getwd()
		if err != nil {
			return gitupdateErrors.NewConfigError(KeyRepo, "", gitupdateErrors.Wrap(err, "failed to get current directory"))
		}
	}

	absRepoPath, err := filepath.Abs(c.RepoPath)
	if err != nil {
		return gitupdateErrors.NewConfigError(KeyRepo, c.RepoPath, gitupdateErrors.Wrap(err, "failed to resolve absolute path"))
	}
	c.RepoPath = absRepoPath

	if err := git.ValidateBranchName(c.Branch); err != nil {
		return gitupdateErrors.NewConfigError(KeyRemoteBranch, c.Branch,
			gitupdateErrors.Join(gitupdateErrors.ErrInvalidConfiguration, err))
	}

	if err := git.ValidateSource(c.Source()); err != nil {
		key := KeyRemoteName
		if c.RemoteURL != "" {
			key = KeyRemoteURL
		}
		return gitupdateErrors.NewConfigError(key, c.Source(),
			gitupdateErrors.Join(gitupdateErrors.ErrInvalidConfiguration, err))
	}

	c.Patterns, err = classify.Compile(c.BreakingPatterns)
	if err != nil {
		return err
	}

	if c.LogFile == "" {
		logDir := os.Getenv("XDG_DATA_HOME")
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err == nil {
				logDir = filepath.Join(homeDir, ".local", "share")
			} else {
				logDir = os.TempDir()
			}
		}

		repoHash := fmt.Sprintf("%x", sha256.Sum256([]byte(c.RepoPath)))[:16]
		c.LogFile = filepath.Join(logDir, "gitupdate", "logs", fmt.Sprintf("gitupdate-%s.log", repoHash))
	}

	if c.Debug {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o700); err != nil {
			return gitupdateErrors.NewConfigError(KeyLogFile, c.LogFile, gitupdateErrors.Wrap(err, "cannot create log directory"))
		}
	}

	return nil
}
