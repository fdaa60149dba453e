package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brogergvhs/novelpipe/internal/util"
)

const DefaultLabel = "Default"

var (
	ErrNoConfig     = errors.New("no config selected")
	ErrConfigExists = errors.New("config already exists")
)

func ConfigRoot() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "novelpipe")
	}
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "novelpipe")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "novelpipe")
}

func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("invalid label %q", label)
	}
	return nil
}

// ConfigPathByLabel returns the profile file for label; it need not exist.
func ConfigPathByLabel(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	return filepath.Join(ConfigsDir(), label+".yaml"), nil
}

func existingPath(label string) (string, error) {
	path, err := ConfigPathByLabel(label)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("config %q does not exist", label)
	}
	return path, nil
}

func CurrentLabel() (string, error) {
	b, err := os.ReadFile(CurrentLabelFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoConfig
	}
	return label, nil
}

func setCurrent(label string) error {
	if err := ensureDirs(); err != nil {
		return err
	}
	return util.WriteFileAtomic(CurrentLabelFile(), []byte(label))
}

func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil {
		return "", err
	}
	return ConfigPathByLabel(label)
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(ConfigsDir())
	if err != nil {
		return nil, err
	}

	activeLabel, _ := CurrentLabel()
	var out []ConfigInfo

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}

		label := strings.TrimSuffix(name, ".yaml")
		out = append(out, ConfigInfo{
			Label:  label,
			Path:   filepath.Join(ConfigsDir(), name),
			Active: label == activeLabel,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func SwitchConfig(label string) error {
	if _, err := existingPath(label); err != nil {
		return err
	}
	return setCurrent(label)
}

// AddConfig copies a YAML file in as a new profile after checking it parses.
func AddConfig(label, srcPath string) (string, error) {
	dst, err := ConfigPathByLabel(label)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %q", ErrConfigExists, label)
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%s is not a valid config: %w", srcPath, err)
	}

	if err := ensureDirs(); err != nil {
		return "", err
	}
	return dst, util.WriteFileAtomic(dst, raw)
}

// CreateConfig writes a profile holding the defaults.
func CreateConfig(label string) (string, error) {
	path, err := ConfigPathByLabel(label)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %q", ErrConfigExists, label)
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}
	return path, SaveYAML(DefaultConfig(), path)
}

// ResetConfig overwrites an existing profile with the defaults.
func ResetConfig(label string) (string, error) {
	path, err := existingPath(label)
	if err != nil {
		return "", err
	}
	return path, SaveYAML(DefaultConfig(), path)
}

func RenameConfig(oldLabel, newLabel string) error {
	oldPath, err := existingPath(oldLabel)
	if err != nil {
		return err
	}
	newPath, err := ConfigPathByLabel(newLabel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%w: %q", ErrConfigExists, newLabel)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return setCurrent(newLabel)
	}
	return nil
}

// RemoveConfig deletes a profile. Removing the active one falls back to
// Default; the Default profile itself is kept.
func RemoveConfig(label string) (fallback bool, err error) {
	if label == DefaultLabel {
		return false, errors.New("cannot remove the Default config")
	}
	path, err := existingPath(label)
	if err != nil {
		return false, err
	}

	if active, _ := CurrentLabel(); active == label {
		if err := SwitchConfig(DefaultLabel); err != nil {
			return false, fmt.Errorf("failed switching to Default: %w", err)
		}
		fallback = true
	}

	return fallback, os.Remove(path)
}

// InitDefaultConfig creates the Default profile if needed and activates it.
// An existing Default is kept and reported with os.ErrExist.
func InitDefaultConfig() (string, error) {
	path, err := CreateConfig(DefaultLabel)
	if errors.Is(err, ErrConfigExists) {
		path, _ = ConfigPathByLabel(DefaultLabel)
		return path, errors.Join(os.ErrExist, setCurrent(DefaultLabel))
	}
	if err != nil {
		return "", err
	}
	return path, setCurrent(DefaultLabel)
}
