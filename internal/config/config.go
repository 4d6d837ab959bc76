// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Game    Game    `yaml:"game"`
	Map     Map     `yaml:"map"`
	Tick    Tick    `yaml:"tick"`
	Journal Journal `yaml:"journal"`
	Index   Index   `yaml:"index"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Addr            string `yaml:"addr"`
	WSPath          string `yaml:"ws_path"`
	ReadBufferSize  int    `yaml:"read_buffer_size"`
	WriteBufferSize int    `yaml:"write_buffer_size"`
	MaxQueue        int    `yaml:"max_queue"`
}

type Game struct {
	CommandBuffer int `yaml:"command_buffer"`
	TaskBuffer    int `yaml:"task_buffer"`
	MaxDepth      int `yaml:"max_depth"`
}

type Map struct {
	Center uint16 `yaml:"center"`
	Range  uint16 `yaml:"range"`
	Floor  uint8  `yaml:"floor"`
}

type Tick struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Journal struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type Index struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// minMapRange keeps the map features two tiles off the center inside the map.
const minMapRange = 2

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = "/ws"
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = 64 * 1024
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = 64 * 1024
	}
	if c.Server.MaxQueue == 0 {
		c.Server.MaxQueue = 64
	}
	if c.Game.CommandBuffer == 0 {
		c.Game.CommandBuffer = 100
	}
	if c.Game.TaskBuffer == 0 {
		c.Game.TaskBuffer = 100
	}
	if c.Game.MaxDepth == 0 {
		c.Game.MaxDepth = 64
	}
	if c.Map.Center == 0 {
		c.Map.Center = 128
	}
	if c.Map.Range == 0 {
		c.Map.Range = 3
	}
	if c.Map.Floor == 0 {
		c.Map.Floor = 7
	}
	if c.Tick.Interval == 0 {
		c.Tick.Interval = time.Second
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "./data/journal"
	}
	if c.Index.Path == "" {
		c.Index.Path = "./data/index.sqlite"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects values applyDefaults cannot repair.
func (c Config) Validate() error {
	var errs []error
	if c.Server.ReadBufferSize < 0 || c.Server.WriteBufferSize < 0 {
		errs = append(errs, errors.New("server: buffer sizes must be positive"))
	}
	if c.Server.MaxQueue < 0 {
		errs = append(errs, errors.New("server: max_queue must be positive"))
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		errs = append(errs, fmt.Errorf("server: ws_path %q must start with /", c.Server.WSPath))
	}
	if c.Game.CommandBuffer < 0 || c.Game.TaskBuffer < 0 {
		errs = append(errs, errors.New("game: buffers must be positive"))
	}
	if c.Game.MaxDepth < 0 {
		errs = append(errs, errors.New("game: max_depth must be positive"))
	}
	if c.Map.Range < minMapRange {
		errs = append(errs, fmt.Errorf("map: range %d is below %d; the switch and lever would fall off the map", c.Map.Range, minMapRange))
	}
	if c.Map.Range > c.Map.Center {
		errs = append(errs, fmt.Errorf("map: range %d exceeds center %d", c.Map.Range, c.Map.Center))
	}
	if c.Tick.Interval < 0 {
		errs = append(errs, errors.New("tick: interval must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Load reads path. A missing file yields Defaults with found=false.
func Load(path string) (c Config, found bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, true, fmt.Errorf("config: %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return c, true, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, true, nil
}
